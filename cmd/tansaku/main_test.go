package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
)

func TestNewEmbedderProviders(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.EmbeddingConfig
		dims int
	}{
		{"mock default dims", config.EmbeddingConfig{Provider: "mock"}, 384},
		{"mock custom dims", config.EmbeddingConfig{Provider: "mock", Dimensions: 64}, 64},
		{"ollama known model", config.EmbeddingConfig{Provider: "ollama", Model: "all-minilm"}, 384},
		{"ollama override dims", config.EmbeddingConfig{Provider: "ollama", Dimensions: 512}, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := newEmbedder(&tt.cfg)
			if err != nil {
				t.Fatalf("newEmbedder: %v", err)
			}
			defer emb.Close()
			if emb.Dimensions() != tt.dims {
				t.Errorf("dimensions = %d, want %d", emb.Dimensions(), tt.dims)
			}
		})
	}
}

func TestNewEmbedderCached(t *testing.T) {
	emb, err := newEmbedder(&config.EmbeddingConfig{Provider: "mock", CacheSize: 100})
	if err != nil {
		t.Fatal(err)
	}
	defer emb.Close()
	if _, ok := emb.(*embedding.Cached); !ok {
		t.Errorf("cache_size did not wrap embedder: %T", emb)
	}
}

func TestNewEmbedderOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := newEmbedder(&config.EmbeddingConfig{Provider: "openai"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Embedding.Provider != "mock" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadConfigCwdOverride(t *testing.T) {
	dir := t.TempDir()
	content := "embedding:\n  provider: ollama\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("cwd config not used: provider = %q", cfg.Embedding.Provider)
	}
}

func TestIngestOptionsChunking(t *testing.T) {
	cfg := config.IngestConfig{Workers: 2, ChunkSize: 128, ChunkOverlap: 16}
	if got := len(ingestOptions(&cfg)); got != 4 {
		t.Errorf("got %d options, want 4", got)
	}
	cfg.ChunkSize = 0
	if got := len(ingestOptions(&cfg)); got != 3 {
		t.Errorf("got %d options without chunking, want 3", got)
	}
}
