// Package embedding turns prompt text into fixed-width vectors through a
// remote embedding API or a local ONNX model.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/promptrepo/internal/vector"
)

// Embedder produces vector embeddings for text. Implementations make one
// request per call and neither retry nor cache.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// ErrUnavailable reports that no embedding could be produced: missing
// credentials, network failure, a non-2xx answer or a malformed response.
// A well-formed vector of the wrong width is vector.ErrDimensionMismatch instead.
var ErrUnavailable = errors.New("embedding: unavailable")

var errMissingCredentials = errors.New("missing API key")

func unavailable(provider string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, provider, cause)
}

// checkVector rejects empty or wrong-width provider output. An empty vector
// is ErrUnavailable; a wrong width means model skew and is
// vector.ErrDimensionMismatch.
func checkVector(provider string, vec []float32, dimensions int) error {
	if len(vec) == 0 {
		return unavailable(provider, errors.New("empty embedding in response"))
	}
	if len(vec) != dimensions {
		return fmt.Errorf("%w: %s returned %d values, expected %d", vector.ErrDimensionMismatch, provider, len(vec), dimensions)
	}
	return nil
}

// Task tells providers that support it what the embedding is for.
type Task string

const (
	TaskRetrievalDocument Task = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    Task = "RETRIEVAL_QUERY"
)

type taskKey struct{}

// WithTask returns a context carrying the embedding task.
func WithTask(ctx context.Context, task Task) context.Context {
	return context.WithValue(ctx, taskKey{}, task)
}

// TaskFrom returns the task carried by ctx, or "".
func TaskFrom(ctx context.Context) Task {
	t, _ := ctx.Value(taskKey{}).(Task)
	return t
}

// unavailableEmbedder stands in for a provider that could not be constructed,
// so the service can still start and answer from the fallback index.
type unavailableEmbedder struct {
	name       string
	dimensions int
	cause      error
}

// Unavailable returns an Embedder whose every call fails with ErrUnavailable.
func Unavailable(name string, dimensions int, cause error) Embedder {
	return &unavailableEmbedder{name: name, dimensions: dimensions, cause: cause}
}

func (u *unavailableEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, unavailable(u.name, u.cause)
}

func (u *unavailableEmbedder) Dimensions() int { return u.dimensions }
func (u *unavailableEmbedder) Name() string    { return u.name }
func (u *unavailableEmbedder) Close() error    { return nil }
