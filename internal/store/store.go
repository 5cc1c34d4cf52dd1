// Package store couples an embedder with a vector index: callers hand
// it text documents and natural-language queries, the store handles
// the embedding hop on both paths.
package store

import (
	"context"
	"fmt"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

// Store is a document store over an embedder and an in-memory vector
// index. Safe for concurrent use; the index serializes access and the
// embedder is required to be concurrency-safe.
type Store struct {
	embedder embedding.Embedder
	index    *vector.Index
}

// New creates a store whose index dimension is taken from the embedder.
func New(embedder embedding.Embedder) (*Store, error) {
	idx, err := vector.New(embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Store{embedder: embedder, index: idx}, nil
}

// Insert embeds doc.Content once and upserts it under doc.ID. An
// existing document with the same ID is replaced. Embedding failures
// leave the store unchanged.
func (s *Store) Insert(ctx context.Context, doc models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("insert: document id is empty")
	}
	vec, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document %q: %w", doc.ID, err)
	}
	if err := s.index.Upsert(doc.ID, vec, doc); err != nil {
		return fmt.Errorf("index document %q: %w", doc.ID, err)
	}
	return nil
}

// Delete removes the document with the given ID. Returns false when no
// such document exists.
func (s *Store) Delete(id string) bool {
	return s.index.Delete(id)
}

// Query embeds the query text and returns the topK most similar
// documents, best first.
func (s *Store) Query(ctx context.Context, query string, topK int) ([]models.RetrievedHit, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.index.Query(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return hits, nil
}

// Get returns the stored document with the given ID.
func (s *Store) Get(id string) (models.Document, bool) {
	return s.index.Get(id)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return s.index.Len()
}

// Embedder returns the embedder the store was built with.
func (s *Store) Embedder() embedding.Embedder {
	return s.embedder
}

// Index exposes the underlying vector index for snapshotting.
func (s *Store) Index() *vector.Index {
	return s.index
}
