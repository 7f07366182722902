package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/storage"
)

const defaultPageSize = 50

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var input models.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create prompt request", zap.String("title", input.Title))
	p, status, err := s.indexer.IndexPrompt(r.Context(), &input)
	if err != nil {
		s.respondFailure(w, "create prompt failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"id":     p.ID,
		"prompt": p,
		"index":  status,
	})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if maxLimit := s.config.Search.MaxLimit; maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	ctx := r.Context()
	prompts, err := s.storage.ListPrompts(ctx, offset, limit)
	if err != nil {
		s.respondFailure(w, "list prompts failed", err)
		return
	}
	total, err := s.storage.CountPrompts(ctx)
	if err != nil {
		s.respondFailure(w, "count prompts failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": prompts,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := s.storage.GetPrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get prompt failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete prompt request", zap.String("id", id))
	if err := s.indexer.DeletePrompt(r.Context(), id); err != nil {
		s.respondFailure(w, "delete prompt failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleReindexPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, status, err := s.indexer.Reindex(r.Context(), id)
	if err != nil {
		s.respondFailure(w, "reindex prompt failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "index": status})
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	s.runSearch(w, r, &models.SearchQuery{Query: r.URL.Query().Get("q"), Limit: limit})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runSearch(w, r, &query)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.respondFailure(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.respondFailure(w, "status failed", err)
		return
	}
	resp := map[string]interface{}{
		"stats": stats,
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_model":      s.config.Embedding.Model,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"blob_backend":         s.config.Blob.Backend,
			"blob_prefix":          s.config.Blob.Prefix,
			"database_path":        s.config.Storage.DatabasePath,
			"fallback_index_path":  s.config.Storage.FallbackIndexPath,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.FallbackIndexPath,
		s.config.Blob.SQLitePath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// respondFailure maps err to a status code and logs server-side failures.
func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "prompt not found")
	default:
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
