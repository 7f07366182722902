//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder runs a sentence-embedding model locally through ONNX Runtime.
// It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer

	// Run() reads these tensors in place, so calls are serialised.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXEmbedder loads the model at cfg.ModelPath.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	shape := ort.NewShape(1, int64(cfg.MaxTokens))
	e := &ONNXEmbedder{
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
		tokenizer:  NewWordTokenizer(),
	}
	var err error
	if e.inputIDs, err = ort.NewTensor(shape, make([]int64, cfg.MaxTokens)); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewTensor(shape, make([]int64, cfg.MaxTokens)); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDs, err = ort.NewTensor(shape, make([]int64, cfg.MaxTokens)); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if e.output, err = ort.NewTensor(ort.NewShape(1, int64(cfg.Dimensions)), make([]float32, cfg.Dimensions)); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDs, e.attentionMask, e.tokenTypeIDs},
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// Embed runs the model on text. Inference errors are reported as ErrUnavailable.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, unavailable(e.Name(), fmt.Errorf("embedder is closed"))
	}

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	copy(e.tokenTypeIDs.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, unavailable(e.Name(), fmt.Errorf("inference failed: %w", err))
	}

	vec := make([]float32, e.dimensions)
	copy(vec, e.output.GetData())
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// Name returns "onnx".
func (e *ONNXEmbedder) Name() string { return "onnx" }

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDs != nil {
		_ = e.inputIDs.Destroy()
		e.inputIDs = nil
	}
	if e.attentionMask != nil {
		_ = e.attentionMask.Destroy()
		e.attentionMask = nil
	}
	if e.tokenTypeIDs != nil {
		_ = e.tokenTypeIDs.Destroy()
		e.tokenTypeIDs = nil
	}
	if e.output != nil {
		_ = e.output.Destroy()
		e.output = nil
	}
	return err
}
