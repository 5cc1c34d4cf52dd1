package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/engine"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/fileid"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherIndexesAndRemoves(t *testing.T) {
	dir := t.TempDir()
	eng, err := engine.New(embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	w := New(eng, extract.New(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx, []string{dir}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("watched content"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 5*time.Second, func() bool { return eng.Len() == 1 })

	if _, ok := eng.Get(fileid.ForPath(path)); !ok {
		t.Error("document not indexed under path id")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 5*time.Second, func() bool { return eng.Len() == 0 })
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	eng, err := engine.New(embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	w := New(eng, extract.New(), []string{".md"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx, []string{dir}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "keep.md"), []byte("kept"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 5*time.Second, func() bool { return eng.Len() == 1 })
	time.Sleep(600 * time.Millisecond)
	if eng.Len() != 1 {
		t.Errorf("len = %d, want 1", eng.Len())
	}
}
