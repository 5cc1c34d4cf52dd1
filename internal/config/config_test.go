package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
auto_save: true
server:
  port: 9090
snapshot:
  backend: sqlite
  dir: ./data
embedding:
  provider: ollama
  model: nomic-embed-text
search:
  default_top_k: 7
  similarity_threshold: 0.3
ingest:
  workers: 8
  dedup: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Debug || !cfg.AutoSave {
		t.Error("debug/auto_save not parsed")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host default not applied: %q", cfg.Server.Host)
	}
	if cfg.Snapshot.Backend != "sqlite" {
		t.Errorf("backend = %q", cfg.Snapshot.Backend)
	}
	if cfg.Snapshot.Dir != filepath.Join(dir, "data") {
		t.Errorf("snapshot dir not expanded: %q", cfg.Snapshot.Dir)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Search.DefaultTopK != 7 || cfg.Search.MaxTopK != 100 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Ingest.Workers != 8 || !cfg.Ingest.Dedup {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Ingest.ChunkSize != 512 {
		t.Errorf("chunk size default not applied: %d", cfg.Ingest.ChunkSize)
	}
}

func TestLoadInvalidProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  provider: quantum\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("snapshot:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Embedding.Provider != "mock" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Search.DefaultTopK != 5 || cfg.Search.MaxTopK != 100 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Snapshot.Backend != "file" {
		t.Errorf("backend = %q", cfg.Snapshot.Backend)
	}
}
