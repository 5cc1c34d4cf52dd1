package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

const snapshotFileName = "index.json"

// snapshotFile is the on-disk JSON layout.
type snapshotFile struct {
	Dimension int              `json:"dimension"`
	Documents []snapshotRecord `json:"documents"`
}

type snapshotRecord struct {
	Document models.Document `json:"document"`
	Vector   []float32       `json:"vector"`
}

// FileBackend stores the snapshot as a single JSON file in a directory,
// written to a temp file and renamed so a crash mid-write leaves the
// previous snapshot intact.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Save(dimension int, entries []vector.Entry) error {
	snap := snapshotFile{
		Dimension: dimension,
		Documents: make([]snapshotRecord, len(entries)),
	}
	for i, e := range entries {
		snap.Documents[i] = snapshotRecord{Document: e.Document, Vector: e.Vector}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, snapshotFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(b.dir, snapshotFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (b *FileBackend) Load() (int, []vector.Entry, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, snapshotFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, nil, fmt.Errorf("parse snapshot: %w", err)
	}
	entries := make([]vector.Entry, len(snap.Documents))
	for i, rec := range snap.Documents {
		entries[i] = vector.NewEntry(rec.Document, rec.Vector)
	}
	return snap.Dimension, entries, nil
}

func (b *FileBackend) Close() error {
	return nil
}
