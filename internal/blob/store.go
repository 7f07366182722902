// Package blob provides versioned whole-object storage with compare-and-swap
// writes. The embedding matrix and its id list live here.
package blob

import (
	"context"
	"errors"
)

// Version is an opaque token bound to one stored revision of a key.
// NoVersion means the key holds no data yet.
type Version string

// NoVersion is the precondition "only if absent".
const NoVersion Version = ""

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("blob: not found")

	// ErrPreconditionFailed is returned by Put when the stored version differs
	// from the expected one.
	ErrPreconditionFailed = errors.New("blob: precondition failed")

	// ErrTransient marks storage that is unreachable or failing in a way a
	// later attempt may not.
	ErrTransient = errors.New("blob: storage unavailable")
)

// Store is a key/value blob store with optimistic concurrency.
type Store interface {
	// Get returns the data and version stored at key.
	Get(ctx context.Context, key string) ([]byte, Version, error)
	// Put writes data only if the current version equals ifMatch.
	// ifMatch == NoVersion writes only if the key is absent.
	Put(ctx context.Context, key string, data []byte, ifMatch Version) (Version, error)
	// PutUnconditional overwrites key.
	PutUnconditional(ctx context.Context, key string, data []byte) (Version, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Name identifies the backend in logs and status output.
	Name() string
	Close() error
}

// IsRetryable reports whether err is a storage failure worth retrying later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
