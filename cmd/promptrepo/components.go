package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/blob"
	"github.com/hyperjump/promptrepo/internal/config"
	"github.com/hyperjump/promptrepo/internal/embedding"
	"github.com/hyperjump/promptrepo/internal/indexer"
	"github.com/hyperjump/promptrepo/internal/keyword"
	"github.com/hyperjump/promptrepo/internal/search"
	"github.com/hyperjump/promptrepo/internal/storage"
	"github.com/hyperjump/promptrepo/internal/vectorstore"
)

// Components holds everything a command needs to serve prompts.
type Components struct {
	Storage  storage.Storage
	Blobs    blob.Store
	Embedder embedding.Embedder
	Vectors  *vectorstore.Store
	Fallback keyword.FallbackIndex
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases every component, logging nothing and ignoring errors.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Fallback != nil {
		_ = c.Fallback.Close()
	}
	if c.Blobs != nil {
		_ = c.Blobs.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, blob store, embedder, vector store,
// fallback index, engine and indexer from cfg. An in-memory fallback index
// is always refilled from storage; rebuildFallback forces that for an
// on-disk one too.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, rebuildFallback bool) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if c.Blobs, err = blob.Open(ctx, &cfg.Blob); err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	if c.Embedder, err = embedding.New(ctx, &cfg.Embedding, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Vectors, err = vectorstore.New(c.Blobs, cfg.Embedding.Dimensions,
		vectorstore.WithPrefix(cfg.Blob.Prefix),
		vectorstore.WithRetryPolicy(vectorstore.RetryPolicyFromConfig(&cfg.Retry)),
		vectorstore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	fallback, err := keyword.NewBleveIndex(cfg.Storage.FallbackIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback index: %w", err)
	}
	c.Fallback = fallback

	c.Engine = search.NewEngine(c.Storage, c.Embedder, c.Vectors, c.Fallback, &cfg.Search, search.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(c.Storage, c.Embedder, c.Vectors, c.Fallback, indexer.WithLogger(logger))

	if rebuildFallback || cfg.Storage.FallbackIndexPath == "" {
		if _, err = c.Indexer.RebuildFallback(ctx); err != nil {
			return nil, fmt.Errorf("failed to rebuild fallback index: %w", err)
		}
	}
	logger.Debug("components initialized",
		zap.String("blob_backend", c.Blobs.Name()),
		zap.String("embedder", c.Embedder.Name()),
		zap.Int("dimensions", cfg.Embedding.Dimensions))
	return c, nil
}
