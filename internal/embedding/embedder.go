// Package embedding provides the text embedding capability consumed by
// the store, with API-backed and deterministic implementations.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text. It is
// the external capability the engine is built around; implementations
// must be safe for concurrent use (ingestion workers call Embed from
// several goroutines at once).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
