package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/chunk"
	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if query.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleInsertDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	doc := models.Document{ID: input.ID, Content: input.Content, Metadata: input.Metadata}
	if err := s.engine.Insert(r.Context(), doc); err != nil {
		s.logger.Error("insert failed", zap.String("id", input.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": input.ID, "status": "indexed"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, ok := s.engine.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.engine.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// indexRequest starts a directory ingestion.
type indexRequest struct {
	Path    string `json:"path"`
	Workers int    `json:"workers,omitempty"`
}

func (s *Server) handleIndexDirectory(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}

	opts := s.ingestOptions()
	if req.Workers > 0 {
		opts = append(opts, ingest.WithWorkers(req.Workers))
	}
	// The job outlives this request.
	job := s.engine.IndexDirectory(context.Background(), req.Path, opts...)
	id := s.jobs.track(job)
	s.logger.Info("ingestion started", zap.String("job_id", id), zap.String("path", req.Path))
	s.respondJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

// ingestOptions translates the server's ingest config.
func (s *Server) ingestOptions() []ingest.Option {
	cfg := s.config.Ingest
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

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := s.jobs.get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
