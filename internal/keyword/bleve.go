// Package keyword provides a Bleve full-text index used for hybrid
// search alongside the vector index.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/tansaku/internal/models"
)

// Result is one keyword hit.
type Result struct {
	ID    string
	Score float64
}

// Index is a full-text index over document content.
type Index struct {
	index bleve.Index
}

// indexedDoc is what gets handed to Bleve per document.
type indexedDoc struct {
	Content string `json:"content"`
}

func indexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so query
	// terms match the exact words in documents.
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentField)
	im.DefaultMapping = docMapping
	return im
}

// New creates or opens a Bleve index at path. An empty path creates an
// in-memory index.
func New(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory keyword index: %w", err)
		}
		return &Index{index: idx}, nil
	}
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open keyword index: %w", err)
		}
		return &Index{index: idx}, nil
	}
	idx, err := bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Index adds or updates a document.
func (k *Index) Index(ctx context.Context, doc models.Document) error {
	return k.index.Index(doc.ID, indexedDoc{Content: doc.Content})
}

// Delete removes a document. Deleting an absent ID is not an error.
func (k *Index) Delete(ctx context.Context, id string) error {
	return k.index.Delete(id)
}

// Search runs a match query over content and returns up to limit hits,
// best first.
func (k *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed documents.
func (k *Index) DocCount() (uint64, error) {
	return k.index.DocCount()
}

// Close releases the index.
func (k *Index) Close() error {
	return k.index.Close()
}
