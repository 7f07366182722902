package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/config"
)

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache of
// cfg.CacheSize entries. A provider that cannot be constructed is replaced by
// one that reports ErrUnavailable, so callers keep working on the fallback
// path. Unknown providers are a configuration error.
func New(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	e, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Cached(e, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BaseURL:    cfg.BaseURL,
		}), nil
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BaseURL:    cfg.BaseURL,
		}), nil
	case "onnx":
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("ONNX embedder unavailable, semantic search disabled",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			return Unavailable("onnx", cfg.Dimensions, err), nil
		}
		return e, nil
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q (use gemini, openai, onnx or mock)", cfg.Provider)
	}
}
