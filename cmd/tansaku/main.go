// Package main is the tansaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/chunk"
	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/engine"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/snapshot"
	"github.com/hyperjump/tansaku/internal/tool"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "serve":
		runServe()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`tansaku - embedded vector retrieval engine

Usage:
  tansaku serve   [-config path] [-debug]          run the HTTP server
  tansaku index   [-config path] [flags] <dir>     ingest a directory
  tansaku search  [-config path] [flags] <query>   search the index
  tansaku delete  [-config path] <id>              delete a document
  tansaku status  [-config path] [-server url]     show index status
  tansaku mcp     [-config path] [-port n]         run the MCP tool server
  tansaku version                                  print version
`)
}

// loadConfig loads the config at path. When path is the default and a
// config.yaml exists in the working directory, that one wins, so
// running from a project directory picks up the project config.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				return config.Load(fallback)
			}
		}
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// newEmbedder builds the configured embedding provider, wrapped in a
// cache when cache_size is set.
func newEmbedder(cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	var (
		emb embedding.Embedder
		err error
	)
	switch cfg.Provider {
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		emb, err = embedding.NewOpenAIEmbedder(apiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
	case "ollama":
		emb = embedding.NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	default:
		emb = embedding.NewMockEmbedder(cfg.Dimensions)
	}
	if cfg.CacheSize > 0 {
		emb = embedding.NewCached(emb, cfg.CacheSize)
	}
	return emb, nil
}

func newBackend(cfg *config.SnapshotConfig) (snapshot.Backend, error) {
	if cfg.Backend == "sqlite" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
		return snapshot.NewSQLiteBackend(filepath.Join(cfg.Dir, "index.db"))
	}
	return snapshot.NewFileBackend(cfg.Dir)
}

// buildEngine wires the embedder, snapshot backend, and optional
// keyword index into an engine and restores the latest snapshot.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	emb, err := newEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(&cfg.Snapshot)
	if err != nil {
		emb.Close()
		return nil, err
	}

	opts := []engine.Option{
		engine.WithSnapshot(backend),
		engine.WithLogger(logger),
		engine.WithSearchDefaults(cfg.Search.DefaultTopK, cfg.Search.MaxTopK, cfg.Search.SimilarityThreshold),
		engine.WithAutoSave(cfg.AutoSave),
	}
	if cfg.Search.Hybrid || cfg.Search.KeywordIndexPath != "" {
		kw, err := keyword.New(cfg.Search.KeywordIndexPath)
		if err != nil {
			emb.Close()
			backend.Close()
			return nil, err
		}
		opts = append(opts, engine.WithKeyword(kw), engine.WithHybridDefault(cfg.Search.Hybrid))
	}

	eng, err := engine.New(emb, opts...)
	if err != nil {
		emb.Close()
		backend.Close()
		return nil, err
	}
	if err := eng.LoadIndex(context.Background()); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

func ingestOptions(cfg *config.IngestConfig) []ingest.Option {
	opts := []ingest.Option{
		ingest.WithWorkers(cfg.Workers),
		ingest.WithExtensions(cfg.Extensions),
		ingest.WithDedup(cfg.Dedup),
	}
	if cfg.ChunkSize > 0 {
		opts = append(opts, ingest.WithChunker(chunk.NewWords(cfg.ChunkSize, cfg.ChunkOverlap)))
	}
	return opts
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fatal("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}
	defer eng.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled && len(cfg.Watch.Directories) > 0 {
		w := watcher.New(eng, extract.New(), cfg.Ingest.Extensions, logger)
		if err := w.Start(watchCtx, cfg.Watch.Directories); err != nil {
			logger.Fatal("failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.New(eng, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := eng.SaveIndex(); err != nil {
		logger.Warn("snapshot save failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	workers := fs.Int("workers", 0, "number of concurrent workers (0 = config value)")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fatal("Usage: tansaku index [flags] <directory>")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		fatal("Failed to build engine: %v", err)
	}
	defer eng.Close()

	opts := ingestOptions(&cfg.Ingest)
	if *workers > 0 {
		opts = append(opts, ingest.WithWorkers(*workers))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	job := eng.IndexDirectory(ctx, dir, opts...)
	if !*quiet {
		for ev := range job.Progress() {
			cli.WriteProgress(os.Stdout, ev)
		}
	}
	outcome, err := job.Wait(context.Background())
	cli.WriteOutcome(os.Stdout, outcome)
	if err != nil {
		fatal("Ingestion aborted: %v", err)
	}
	if err := eng.SaveIndex(); err != nil {
		fatal("Snapshot save failed: %v", err)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query the local snapshot directly)")
	topK := fs.Int("top-k", 0, "number of results (0 = config default)")
	hybrid := fs.Bool("hybrid", false, "combine vector and keyword rankings")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fatal("Usage: tansaku search [flags] <query>")
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fatal("Usage: tansaku search [flags] <query>")
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fatal("%v", err)
	}

	query := models.SearchQuery{Query: queryStr, TopK: *topK}
	if *hybrid {
		h := true
		query.Hybrid = &h
	}

	var resp *models.SearchResponse
	if *serverURL != "" {
		resp, err = searchViaHTTP(*serverURL, query)
		if err != nil {
			fatal("Search failed: %v", err)
		}
	} else {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fatal("Failed to load config: %v", err)
		}
		eng, err := buildEngine(cfg, zap.NewNop())
		if err != nil {
			fatal("Failed to build engine: %v", err)
		}
		defer eng.Close()
		r, err := eng.Search(context.Background(), query)
		if err != nil {
			fatal("Search failed: %v", err)
		}
		resp = &r
	}
	if err := cli.WriteSearchResults(os.Stdout, resp, format); err != nil {
		fatal("Output failed: %v", err)
	}
}

// searchViaHTTP posts the query to a running server, avoiding snapshot
// and keyword index lock conflicts.
func searchViaHTTP(baseURL string, query models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(baseURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var out models.SearchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fatal("Usage: tansaku delete <id>")
	}
	id := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	eng, err := buildEngine(cfg, zap.NewNop())
	if err != nil {
		fatal("Failed to build engine: %v", err)
	}
	defer eng.Close()

	removed, err := eng.Delete(context.Background(), id)
	if err != nil {
		fatal("Delete failed: %v", err)
	}
	if !removed {
		fatal("Document %q not found", id)
	}
	if err := eng.SaveIndex(); err != nil {
		fatal("Snapshot save failed: %v", err)
	}
	fmt.Printf("deleted %s\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local snapshot)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(strings.TrimRight(*serverURL, "/") + "/api/v1/status")
		if err != nil {
			fatal("Status request failed: %v", err)
		}
		defer resp.Body.Close()
		io.Copy(os.Stdout, resp.Body)
		fmt.Println()
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	eng, err := buildEngine(cfg, zap.NewNop())
	if err != nil {
		fatal("Failed to build engine: %v", err)
	}
	defer eng.Close()

	s := eng.Status()
	fmt.Printf("documents: %d\ndimension: %d\nkeyword:   %v\nsnapshot:  %v\n",
		s.Documents, s.Dimension, s.Keyword, s.Snapshot)
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	port := fs.Int("port", 8765, "port for the MCP streamable HTTP endpoint")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatal("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		fatal("Failed to build engine: %v", err)
	}
	defer eng.Close()

	mcpServer := tool.NewServer(eng, version)
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("MCP server starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}
