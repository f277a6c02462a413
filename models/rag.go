package models

// SearchRequest is the body of the RAG service POST /search.
type SearchRequest struct {
	Query          string            `json:"query" binding:"required"`
	Subject        string            `json:"subject" binding:"required,max=50"`
	K              int               `json:"k"`
	FilterMetadata map[string]string `json:"filter_metadata,omitempty"`
}

// RetrievedDocument is one ranked chunk with its metadata.
type RetrievedDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type SearchResponse struct {
	Documents []RetrievedDocument `json:"documents"`
	Sources   []string            `json:"sources"`
}

// PopulateResponse reports per-file outcomes of an ingestion batch.
type PopulateResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Subject        string   `json:"subject"`
	ChunksAdded    int      `json:"chunks_added"`
	ExistingChunks int      `json:"existing_chunks"`
	ProcessedFiles []string `json:"processed_files"`
	FailedFiles    []string `json:"failed_files"`
}

type SubjectsResponse struct {
	Subjects []string `json:"subjects"`
}

// GuideResponse is the body of GET /guide/:subject.
type GuideResponse struct {
	Subject string `json:"subject"`
	Section string `json:"section,omitempty"`
	Content string `json:"content"`
}

// GuideScrapeRequest asks the RAG service to pull a course guide page.
type GuideScrapeRequest struct {
	Subject string `json:"subject" binding:"required,max=50"`
	URL     string `json:"url" binding:"required,url"`
}
