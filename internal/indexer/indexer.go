// Package indexer stores prompts and keeps the fallback index and the shared
// vector store in step with them.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/embedding"
	"github.com/hyperjump/promptrepo/internal/keyword"
	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/storage"
	"github.com/hyperjump/promptrepo/internal/vector"
)

// DefaultMaxInputRunes caps the text sent to the embedder.
const DefaultMaxInputRunes = 8000

// VectorWriter is the write side of the shared vector store.
type VectorWriter interface {
	Upsert(ctx context.Context, id string, vec []float32) error
	Remove(ctx context.Context, id string) error
}

// Indexer indexes prompts into storage, the fallback index and the vector store.
type Indexer struct {
	storage  storage.Storage
	embedder embedding.Embedder
	vectors  VectorWriter
	fallback keyword.FallbackIndex
	maxRunes int
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for indexing events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMaxInputRunes caps the embedder input length. n <= 0 disables the cap.
func WithMaxInputRunes(n int) IndexerOption {
	return func(idx *Indexer) { idx.maxRunes = n }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectors VectorWriter,
	fallback keyword.FallbackIndex,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:  storage,
		embedder: embedder,
		vectors:  vectors,
		fallback: fallback,
		maxRunes: DefaultMaxInputRunes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexPrompt validates and stores a new prompt, adds it to the fallback index
// and then embeds it into the vector store. Once the prompt is stored, index
// failures do not fail the call: they are logged and reported in the status.
func (idx *Indexer) IndexPrompt(ctx context.Context, input *models.PromptInput) (*models.Prompt, *models.IndexStatus, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}
	p := input.ToPrompt(uuid.New().String())
	if err := idx.storage.CreatePrompt(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("failed to store prompt: %w", err)
	}
	idx.logger.Debug("prompt stored", zap.String("id", p.ID), zap.String("title", p.Title))
	return p, idx.indexStored(ctx, p), nil
}

// indexStored refreshes both indexes for a stored prompt.
func (idx *Indexer) indexStored(ctx context.Context, p *models.Prompt) *models.IndexStatus {
	fallbackErr := idx.fallback.Index(ctx, p)
	if fallbackErr != nil {
		idx.logger.Warn("fallback index failed", zap.String("id", p.ID), zap.Error(fallbackErr))
	}
	st := idx.status(idx.Index(ctx, p.ID, p.SearchableText()))
	st.Fallback = models.VectorIndexed
	if fallbackErr != nil {
		st.Fallback = models.VectorFailed
		st.FallbackError = "fallback index unavailable"
	}
	return st
}

// Index embeds text as a document and upserts it under id. It returns nil
// when the vector is stored.
func (idx *Indexer) Index(ctx context.Context, id, text string) error {
	text = Preprocess(text, idx.maxRunes)
	vec, err := idx.embedder.Embed(embedding.WithTask(ctx, embedding.TaskRetrievalDocument), text)
	if err != nil {
		idx.logger.Warn("embedding failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if err := idx.vectors.Upsert(ctx, id, vec); err != nil {
		idx.logger.Warn("vector upsert failed", zap.String("id", id), zap.Error(err))
		return err
	}
	idx.logger.Debug("prompt embedded", zap.String("id", id), zap.Int("dims", len(vec)))
	return nil
}

// Reindex re-embeds a stored prompt and refreshes its fallback entry.
func (idx *Indexer) Reindex(ctx context.Context, id string) (*models.Prompt, *models.IndexStatus, error) {
	p, err := idx.storage.GetPrompt(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, idx.indexStored(ctx, p), nil
}

// DeletePrompt removes a prompt from the vector store, the fallback index and
// storage, in that order, so a failed call can be retried until the vector is
// gone. A prompt that is not in storage yields storage.ErrNotFound after any
// leftover index entries are removed.
func (idx *Indexer) DeletePrompt(ctx context.Context, id string) error {
	idx.logger.Debug("deleting prompt", zap.String("id", id))
	if err := idx.vectors.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from vector store: %w", err)
	}
	if err := idx.fallback.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from fallback index: %w", err)
	}
	return idx.storage.DeletePrompt(ctx, id)
}

// RebuildFallback loads every stored prompt into the fallback index and
// returns how many were indexed.
func (idx *Indexer) RebuildFallback(ctx context.Context) (int, error) {
	n := 0
	err := idx.storage.ForEachPrompt(ctx, func(p *models.Prompt) error {
		if err := idx.fallback.Index(ctx, p); err != nil {
			return fmt.Errorf("failed to index prompt %s: %w", p.ID, err)
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	idx.logger.Info("fallback index rebuilt", zap.Int("prompts", n))
	return n, nil
}

func (idx *Indexer) status(err error) *models.IndexStatus {
	if err == nil {
		return &models.IndexStatus{Vector: models.VectorIndexed}
	}
	st := &models.IndexStatus{Vector: models.VectorFailed, Error: "vector store unavailable"}
	switch {
	case errors.Is(err, embedding.ErrUnavailable):
		st.Error = "embedding unavailable"
	case errors.Is(err, vector.ErrDimensionMismatch):
		st.Error = "embedding dimension mismatch"
	}
	return st
}
