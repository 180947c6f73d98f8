package models

// KnowledgeDocument is a single snippet retrieved from the vector database.
// Text doubles as the deduplication key when multiple retrievals are merged.
type KnowledgeDocument struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// KnowledgeEntry represents a stored document with its collection id.
type KnowledgeEntry struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ListKnowledgeResponse is the structure for GET /api/v1/knowledge.
type ListKnowledgeResponse struct {
	Count   int              `json:"count"`
	Entries []KnowledgeEntry `json:"entries"`
}
