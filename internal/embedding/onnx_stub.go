//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder is unavailable without CGO (see onnx.go for the real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO.
func NewONNXEmbedder(ONNXConfig) (*ONNXEmbedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, unavailable(e.Name(), errors.New("built without CGO"))
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }
func (e *ONNXEmbedder) Name() string    { return "onnx" }
func (e *ONNXEmbedder) Close() error    { return nil }
