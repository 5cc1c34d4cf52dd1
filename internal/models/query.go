package models

// SearchQuery is the input for a similarity search.
type SearchQuery struct {
	Query  string `json:"query"`
	TopK   int    `json:"top_k,omitempty"`
	Hybrid *bool  `json:"hybrid,omitempty"`
}

// SearchResponse is the result of a similarity search.
type SearchResponse struct {
	Query string         `json:"query"`
	Hits  []RetrievedHit `json:"hits"`
	Total int            `json:"total"`
}

// DocumentInput is the input for inserting a document. An empty ID is
// filled with a generated one by the server layer.
type DocumentInput struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
