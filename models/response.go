package models

// ConsultResponse is the structured consultation returned to the client.
// RetrievedSources carries the metadata of every knowledge snippet that was
// fed to the model, acting as a citation list.
type ConsultResponse struct {
	Question         string                   `json:"question"`
	Category         string                   `json:"category"`
	Answer           string                   `json:"answer"`
	Remedy           string                   `json:"remedy"`
	RetrievedSources []map[string]interface{} `json:"retrieved_sources"`
}

type IngestKnowledgeResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
