// Package models defines core data structures for documents, queries, and retrieval results.
package models

// Document represents a stored unit of text with an id and metadata.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the document (metadata map included).
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// RetrievedHit is a document paired with its similarity score for one query.
// Score is cosine similarity in [-1, 1]; higher is more similar.
type RetrievedHit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
