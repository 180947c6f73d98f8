package models

// ConsultRequest is the payload for the POST /api/v1/ask endpoint.
// Religion defaults to "hindu" for backward compatibility with older clients.
type ConsultRequest struct {
	Question       string `json:"question" binding:"required"`
	Context        string `json:"context,omitempty"`
	Religion       string `json:"religion,omitempty" binding:"omitempty,oneof=hindu christian muslim buddhist jain sikh secular"`
	SessionID      string `json:"session_id,omitempty"`
	UseHistory     bool   `json:"use_history,omitempty"`
	RagWithContext bool   `json:"rag_with_context,omitempty"`
}

type IngestKnowledgeRequest struct {
	Text string `json:"text"`
}
