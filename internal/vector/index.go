// Package vector provides an exact, in-memory cosine-similarity index
// with parallel top-k search.
package vector

import (
	"fmt"
	"sync"

	"github.com/hyperjump/tansaku/internal/models"
)

// Entry is one indexed document with its embedding vector.
type Entry struct {
	Document models.Document `json:"document"`
	Vector   []float32       `json:"vector"`

	// norm is the cached L2 norm of Vector, computed on insert and on
	// load. Not serialized.
	norm float64
}

// NewEntry builds an entry with its norm cached. Snapshot backends use
// it when reconstructing entries from storage.
func NewEntry(doc models.Document, vec []float32) Entry {
	return Entry{Document: doc, Vector: vec, norm: L2Norm(vec)}
}

// DimensionError reports a vector whose length does not match the
// index's fixed dimension.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// Index is an exact brute-force cosine-similarity index. Entry ids are
// unique; upserting an existing id replaces the entry in place, keeping
// its insertion-order position. Queries run concurrently with each
// other under a read lock and each observes a consistent entry set.
type Index struct {
	dimension int
	mu        sync.RWMutex
	entries   []Entry
	byID      map[string]int // id -> position in entries
}

// New creates an index with the given fixed dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &Index{
		dimension: dimension,
		byID:      make(map[string]int),
	}, nil
}

// Dimension returns the index's fixed vector dimension.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Len returns the current entry count.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Upsert inserts or replaces the entry for id. The vector is copied.
// Fails only with *DimensionError when the vector length does not match
// the index dimension; on error the index is unchanged.
func (ix *Index) Upsert(id string, vec []float32, doc models.Document) error {
	if len(vec) != ix.dimension {
		return &DimensionError{Want: ix.dimension, Got: len(vec)}
	}
	owned := make([]float32, len(vec))
	copy(owned, vec)
	entry := NewEntry(doc, owned)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if pos, ok := ix.byID[id]; ok {
		ix.entries[pos] = entry
		return nil
	}
	ix.byID[id] = len(ix.entries)
	ix.entries = append(ix.entries, entry)
	return nil
}

// Delete removes the entry for id. Returns true iff an entry was
// removed. Never errors.
func (ix *Index) Delete(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pos, ok := ix.byID[id]
	if !ok {
		return false
	}
	// Shift instead of swap-with-last so the remaining entries keep
	// their relative insertion order (the query tie-break).
	copy(ix.entries[pos:], ix.entries[pos+1:])
	ix.entries = ix.entries[:len(ix.entries)-1]
	delete(ix.byID, id)
	for i := pos; i < len(ix.entries); i++ {
		ix.byID[ix.entries[i].Document.ID] = i
	}
	return true
}

// Query scores vec against every entry and returns the topK
// highest-scoring entries, ordered by descending cosine similarity with
// ties broken by insertion order (earlier entry first). topK is clamped
// to [0, Len()]. Fails only with *DimensionError.
func (ix *Index) Query(vec []float32, topK int) ([]models.RetrievedHit, error) {
	if len(vec) != ix.dimension {
		return nil, &DimensionError{Want: ix.dimension, Got: len(vec)}
	}
	queryNorm := L2Norm(vec)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if topK > len(ix.entries) {
		topK = len(ix.entries)
	}
	if topK <= 0 || len(ix.entries) == 0 {
		return []models.RetrievedHit{}, nil
	}

	winners := searchTopK(ix.entries, vec, queryNorm, topK)
	hits := make([]models.RetrievedHit, len(winners))
	for i, c := range winners {
		hits[i] = models.RetrievedHit{
			Document: ix.entries[c.pos].Document.Clone(),
			Score:    c.score,
		}
	}
	return hits, nil
}

// Get returns a copy of the document stored under id.
func (ix *Index) Get(id string) (models.Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pos, ok := ix.byID[id]
	if !ok {
		return models.Document{}, false
	}
	return ix.entries[pos].Document.Clone(), true
}

// Entries returns a deep copy of all entries in insertion order, for
// snapshot persistence.
func (ix *Index) Entries() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Entry, len(ix.entries))
	for i, e := range ix.entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		out[i] = Entry{Document: e.Document.Clone(), Vector: vec, norm: e.norm}
	}
	return out
}

// ReplaceAll replaces the index contents wholesale with entries,
// preserving their order. All-or-nothing: a dimension mismatch in any
// entry leaves the index unchanged.
func (ix *Index) ReplaceAll(entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != ix.dimension {
			return &DimensionError{Want: ix.dimension, Got: len(e.Vector)}
		}
	}
	fresh := make([]Entry, len(entries))
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		fresh[i] = NewEntry(e.Document.Clone(), vec)
		byID[e.Document.ID] = i
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = fresh
	ix.byID = byID
	return nil
}
