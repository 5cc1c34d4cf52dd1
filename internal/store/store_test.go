package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/models"
)

// tableEmbedder maps known texts to fixed vectors so similarity
// ordering in tests is predictable.
type tableEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func (e *tableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, e.dims), nil
}

func (e *tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimensions() int { return e.dims }
func (e *tableEmbedder) Close() error    { return nil }

type failingEmbedder struct {
	dims int
	err  error
}

func (e *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, e.err
}

func (e *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, e.err
}

func (e *failingEmbedder) Dimensions() int { return e.dims }
func (e *failingEmbedder) Close() error    { return nil }

func TestStoreInsertAndQuery(t *testing.T) {
	emb := &tableEmbedder{dims: 3, vectors: map[string][]float32{
		"cats are small felines": {1, 0, 0},
		"dogs are loyal animals": {0.8, 0.6, 0},
		"cars have four wheels":  {0, 0, 1},
		"tell me about a feline": {0.95, 0.05, 0},
	}}
	s, err := New(emb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	docs := []models.Document{
		{ID: "cat", Content: "cats are small felines"},
		{ID: "dog", Content: "dogs are loyal animals"},
		{ID: "car", Content: "cars have four wheels"},
	}
	for _, d := range docs {
		if err := s.Insert(ctx, d); err != nil {
			t.Fatalf("insert %q: %v", d.ID, err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 documents, got %d", s.Len())
	}

	hits, err := s.Query(ctx, "tell me about a feline", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Document.ID != "cat" {
		t.Errorf("expected cat first, got %q", hits[0].Document.ID)
	}
	if hits[1].Document.ID != "dog" {
		t.Errorf("expected dog second, got %q", hits[1].Document.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not in descending score order: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestStoreInsertEmptyID(t *testing.T) {
	s, err := New(embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Insert(context.Background(), models.Document{Content: "no id"}); err == nil {
		t.Fatal("expected error for empty document id")
	}
	if s.Len() != 0 {
		t.Errorf("failed insert changed store size: %d", s.Len())
	}
}

func TestStoreInsertOverwrite(t *testing.T) {
	s, err := New(embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := s.Insert(ctx, models.Document{ID: "doc", Content: "first version"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, models.Document{ID: "doc", Content: "second version"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("overwrite grew the store: %d", s.Len())
	}
	hits, err := s.Query(ctx, "second version", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if hits[0].Document.Content != "second version" {
		t.Errorf("expected updated content, got %q", hits[0].Document.Content)
	}
}

func TestStoreEmbedFailure(t *testing.T) {
	wantErr := errors.New("backend unavailable")
	s, err := New(&failingEmbedder{dims: 8, err: wantErr})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := s.Insert(ctx, models.Document{ID: "a", Content: "text"}); !errors.Is(err, wantErr) {
		t.Errorf("insert error does not wrap embedder error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed insert changed store size: %d", s.Len())
	}
	if _, err := s.Query(ctx, "text", 3); !errors.Is(err, wantErr) {
		t.Errorf("query error does not wrap embedder error: %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s, err := New(embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := s.Insert(ctx, models.Document{ID: "x", Content: "content"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !s.Delete("x") {
		t.Error("expected delete to report true")
	}
	if s.Delete("x") {
		t.Error("second delete should report false")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}
