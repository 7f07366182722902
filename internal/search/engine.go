// Package search answers prompt queries from the shared vector store, falling
// back to substring search when embeddings or blob storage are unavailable.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/blob"
	"github.com/hyperjump/promptrepo/internal/config"
	"github.com/hyperjump/promptrepo/internal/embedding"
	"github.com/hyperjump/promptrepo/internal/keyword"
	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/storage"
	"github.com/hyperjump/promptrepo/internal/vector"
	"github.com/hyperjump/promptrepo/internal/vectorstore"
)

// VectorReader is the read side of the shared vector store.
type VectorReader interface {
	Load(ctx context.Context) (*vectorstore.Snapshot, error)
	Dimensions() int
	Backend() string
}

// Engine runs semantic search with a substring fallback.
type Engine struct {
	storage  storage.Storage
	embedder embedding.Embedder
	vectors  VectorReader
	fallback keyword.FallbackIndex
	config   *config.SearchConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectors VectorReader,
	fallback keyword.FallbackIndex,
	cfg *config.SearchConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		storage:  storage,
		embedder: embedder,
		vectors:  vectors,
		fallback: fallback,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query embeds text as a query and returns the k most similar ids from the
// current snapshot, best first.
func (e *Engine) Query(ctx context.Context, text string, k int) ([]vector.Result, error) {
	q, err := e.embedder.Embed(embedding.WithTask(ctx, embedding.TaskRetrievalQuery), text)
	if err != nil {
		return nil, err
	}
	snap, err := e.vectors.Load(ctx)
	if err != nil {
		return nil, err
	}
	return vector.Search(&snap.Snapshot, q, k)
}

// useFallback reports whether err means semantic search is unavailable rather
// than broken. Dimension mismatches and corrupt data are surfaced.
func useFallback(err error) bool {
	return errors.Is(err, embedding.ErrUnavailable) ||
		errors.Is(err, blob.ErrTransient) ||
		errors.Is(err, blob.ErrNotFound) ||
		errors.Is(err, blob.ErrPreconditionFailed)
}

// Search validates the query, runs it and hydrates the hits from storage.
// Hits whose prompt is no longer stored are skipped.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}

	mode := models.ModeSemantic
	results, err := e.Query(ctx, query.Query, query.Limit)
	if err != nil {
		if !useFallback(err) {
			return nil, fmt.Errorf("semantic search failed: %w", err)
		}
		e.logger.Warn("semantic search unavailable, using fallback",
			zap.String("query", query.Query), zap.Error(err))
		mode = models.ModeFallback
		limit := query.Limit
		if e.config.FallbackLimit > 0 && limit > e.config.FallbackLimit {
			limit = e.config.FallbackLimit
		}
		results, err = e.fallback.Search(ctx, query.Query, limit)
		if err != nil {
			return nil, fmt.Errorf("fallback search failed: %w", err)
		}
	}

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(results)),
		Mode:    mode,
		Query:   query.Query,
	}
	for _, r := range results {
		p, err := e.storage.GetPrompt(ctx, r.ID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("search hit without stored prompt", zap.String("id", r.ID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt %s: %w", r.ID, err)
		}
		response.Results = append(response.Results, &models.SearchResult{
			Prompt: p,
			Score:  r.Score,
			Rank:   len(response.Results) + 1,
		})
	}
	response.Total = len(response.Results)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// Stats describes the state of the search backends.
type Stats struct {
	Prompts      int64  `json:"prompts"`
	Vectors      int    `json:"vectors"`
	Dimensions   int    `json:"dimensions"`
	BlobBackend  string `json:"blob_backend"`
	Embedder     string `json:"embedder"`
	FallbackDocs uint64 `json:"fallback_docs"`
	// VectorError is set when the vector store could not be read.
	VectorError string `json:"vector_error,omitempty"`
}

// Stats reports prompt, vector and fallback counts. An unreadable vector
// store is reported in VectorError rather than failing the call.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	prompts, err := e.storage.CountPrompts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count prompts: %w", err)
	}
	docs, err := e.fallback.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count fallback documents: %w", err)
	}
	st := &Stats{
		Prompts:      prompts,
		Dimensions:   e.vectors.Dimensions(),
		BlobBackend:  e.vectors.Backend(),
		Embedder:     e.embedder.Name(),
		FallbackDocs: docs,
	}
	snap, err := e.vectors.Load(ctx)
	if err != nil {
		st.VectorError = err.Error()
		return st, nil
	}
	st.Vectors = snap.Len()
	return st, nil
}
