package embedding

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIConfig configures an embedder for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIEmbedder calls the /embeddings endpoint. SDK retries are disabled.
type OpenAIEmbedder struct {
	client     openai.Client
	hasKey     bool
	model      string
	dimensions int
}

// NewOpenAIEmbedder builds an OpenAI client.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		hasKey:     cfg.APIKey != "",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.hasKey {
		return nil, unavailable(e.Name(), errMissingCredentials)
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	}
	// Only the v3 models accept a requested width.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, unavailable(e.Name(), err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, unavailable(e.Name(), errors.New("no embeddings in response"))
	}
	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	if err := checkVector(e.Name(), vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Name returns "openai".
func (e *OpenAIEmbedder) Name() string { return "openai" }

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error { return nil }
