package vector

import "errors"

var (
	// ErrDimensionMismatch means a vector's length differs from the matrix width.
	// It points at a configuration error and is never retried.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")

	// ErrCorrupt means a persisted matrix or id list could not be decoded or the
	// two disagree.
	ErrCorrupt = errors.New("vector: corrupt matrix data")
)
