package embedding

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini embedder.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	// BaseURL overrides the API endpoint; empty uses the public API.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client     *genai.Client
	initErr    error
	model      string
	dimensions int
}

// NewGeminiEmbedder builds a Gemini client. A missing key or a client that
// cannot be built does not fail construction; every Embed reports
// ErrUnavailable instead.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) *GeminiEmbedder {
	e := &GeminiEmbedder{model: cfg.Model, dimensions: cfg.Dimensions}
	if cfg.APIKey == "" {
		e.initErr = errMissingCredentials
		return e
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		e.initErr = err
		return e
	}
	e.client = client
	return e
}

// Embed returns the embedding of text. The task type comes from WithTask.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.initErr != nil {
		return nil, unavailable(e.Name(), e.initErr)
	}
	dims := int32(e.dimensions)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dims}
	if task := TaskFrom(ctx); task != "" {
		cfg.TaskType = string(task)
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, unavailable(e.Name(), err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, unavailable(e.Name(), errors.New("no embeddings in response"))
	}
	vec := resp.Embeddings[0].Values
	if err := checkVector(e.Name(), vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

// Name returns "gemini".
func (e *GeminiEmbedder) Name() string { return "gemini" }

// Close is a no-op; the client holds no resources.
func (e *GeminiEmbedder) Close() error { return nil }
