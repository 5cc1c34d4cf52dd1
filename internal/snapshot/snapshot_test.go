package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

func sampleEntries() []vector.Entry {
	return []vector.Entry{
		vector.NewEntry(models.Document{
			ID:       "first",
			Content:  "first document",
			Metadata: map[string]string{"source": "/docs/first.txt"},
		}, []float32{1, 0, 0}),
		vector.NewEntry(models.Document{
			ID:      "second",
			Content: "second document",
		}, []float32{0, 1, 0}),
		vector.NewEntry(models.Document{
			ID:      "third",
			Content: "third document",
		}, []float32{0.5, 0.5, 0.5}),
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackend(filepath.Join(t.TempDir(), "snap"))
	if err != nil {
		t.Fatal(err)
	}
	sb, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sb.Close() })
	return map[string]Backend{"file": fb, "sqlite": sb}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleEntries()
			if err := b.Save(3, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			dim, got, err := b.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if dim != 3 {
				t.Errorf("dimension = %d, want 3", dim)
			}
			if len(got) != len(want) {
				t.Fatalf("got %d entries, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].Document.ID != want[i].Document.ID {
					t.Errorf("entry %d id = %q, want %q (order must be preserved)", i, got[i].Document.ID, want[i].Document.ID)
				}
				if got[i].Document.Content != want[i].Document.Content {
					t.Errorf("entry %d content = %q", i, got[i].Document.Content)
				}
				if len(got[i].Vector) != 3 {
					t.Fatalf("entry %d vector has %d dims", i, len(got[i].Vector))
				}
				for d := range want[i].Vector {
					if got[i].Vector[d] != want[i].Vector[d] {
						t.Errorf("entry %d vector[%d] = %f, want %f", i, d, got[i].Vector[d], want[i].Vector[d])
					}
				}
			}
			if got[0].Document.Metadata["source"] != "/docs/first.txt" {
				t.Errorf("metadata lost: %v", got[0].Document.Metadata)
			}
		})
	}
}

func TestLoadNotFound(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := b.Load(); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(3, sampleEntries()); err != nil {
				t.Fatalf("save: %v", err)
			}
			smaller := []vector.Entry{
				vector.NewEntry(models.Document{ID: "only", Content: "only one"}, []float32{1, 1}),
			}
			if err := b.Save(2, smaller); err != nil {
				t.Fatalf("second save: %v", err)
			}
			dim, got, err := b.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if dim != 2 || len(got) != 1 || got[0].Document.ID != "only" {
				t.Errorf("second snapshot not a full replacement: dim=%d entries=%d", dim, len(got))
			}
		})
	}
}

func TestSaveEmptyIndex(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(4, nil); err != nil {
				t.Fatalf("save: %v", err)
			}
			dim, got, err := b.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if dim != 4 || len(got) != 0 {
				t.Errorf("dim=%d entries=%d, want 4 and 0", dim, len(got))
			}
		})
	}
}

func TestFileBackendNoTempLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(3, sampleEntries()); err != nil {
		t.Fatalf("save: %v", err)
	}
	matches, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Name() != "index.json" {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name()
		}
		t.Errorf("unexpected files in snapshot dir: %v", names)
	}
}
