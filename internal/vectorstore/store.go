// Package vectorstore persists the shared embedding matrix in a blob store and
// keeps it consistent across concurrent writers with compare-and-swap commits.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/promptrepo/internal/blob"
	"github.com/hyperjump/promptrepo/internal/vector"
)

var (
	// ErrConflict is returned when every attempt of a write lost to a
	// concurrent writer. The write did not happen.
	ErrConflict = errors.New("vectorstore: write lost to concurrent writers")

	// ErrEmptyID is returned for writes without a record id.
	ErrEmptyID = errors.New("vectorstore: empty id")

	errIDsMissing = errors.New("vectorstore: id list vanished during load")
)

// Snapshot is one committed (ids, matrix) pair and the version it was read at.
// Callers must treat it as read-only.
type Snapshot struct {
	vector.Snapshot
	Version blob.Version

	idsToken  [16]byte
	idsDigest [32]byte
}

// Store reads and writes the embedding matrix. It holds no state between
// calls beyond its configuration, so any number of Stores in any number of
// processes may share one blob store.
type Store struct {
	blobs  blob.Store
	dim    int
	layout layout
	retry  RetryPolicy
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetryPolicy sets the write retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPrefix sets the key prefix of the store's blobs. Default "embeddings/".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.layout.prefix = prefix }
}

// New returns a Store for vectors of the given width.
func New(blobs blob.Store, dimensions int, opts ...Option) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("vectorstore: blob store is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("vectorstore: dimensions must be positive, got %d", dimensions)
	}
	s := &Store{
		blobs:  blobs,
		dim:    dimensions,
		layout: layout{prefix: "embeddings/"},
		retry:  DefaultRetryPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dimensions returns the configured vector width.
func (s *Store) Dimensions() int { return s.dim }

// Backend returns the name of the underlying blob store.
func (s *Store) Backend() string { return s.blobs.Name() }

// Load returns the latest committed snapshot. With nothing stored it returns an
// empty snapshot of the configured width and blob.NoVersion.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	attempts := s.retry.attempts()
	for attempt := 1; ; attempt++ {
		snap, err := s.load(ctx)
		if !errors.Is(err, errIDsMissing) {
			return snap, err
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("%w: %w", blob.ErrTransient, err)
		}
		s.logger.Debug("id list replaced while loading, reloading", zap.Int("attempt", attempt))
		if err := s.retry.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	data, version, err := s.blobs.Get(ctx, s.layout.matrixKey())
	if errors.Is(err, blob.ErrNotFound) {
		return &Snapshot{Snapshot: *vector.EmptySnapshot(s.dim), Version: blob.NoVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load matrix: %w", err)
	}
	m, h, err := vector.DecodeMatrix(data)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load matrix: %w", err)
	}
	if m.Cols() != s.dim {
		return nil, fmt.Errorf("%w: stored matrix width is %d, configured %d", vector.ErrDimensionMismatch, m.Cols(), s.dim)
	}

	idsData, _, err := s.blobs.Get(ctx, s.layout.idsKey(h.IDsToken))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, errIDsMissing
	}
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load id list: %w", err)
	}
	ids, err := decodeIDs(idsData, h.IDsDigest)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: load id list: %w", err)
	}

	snap := &Snapshot{
		Snapshot:  vector.Snapshot{IDs: ids, Matrix: m},
		Version:   version,
		idsToken:  h.IDsToken,
		idsDigest: h.IDsDigest,
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("vectorstore: load: %w", err)
	}
	return snap, nil
}

// Upsert stores vec under id, replacing an existing row in place or appending
// a new one. The vector is normalised to unit length before it is stored.
// Upserting an identical vector writes nothing.
func (s *Store) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(vec) != s.dim {
		return fmt.Errorf("%w: vector has %d values, store width is %d", vector.ErrDimensionMismatch, len(vec), s.dim)
	}
	row := vector.Normalize(vec)
	return s.mutate(ctx, "upsert", id, func(snap *Snapshot) (bool, error) {
		if i := snap.IndexOf(id); i >= 0 {
			if slices.Equal(snap.Matrix.Row(i), row) {
				return false, nil
			}
			return true, snap.Matrix.SetRow(i, row)
		}
		snap.IDs = append(snap.IDs, id)
		return true, snap.Matrix.AppendRow(row)
	})
}

// Remove deletes the row for id. Removing an unknown id writes nothing.
func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return s.mutate(ctx, "remove", id, func(snap *Snapshot) (bool, error) {
		i := snap.IndexOf(id)
		if i < 0 {
			return false, nil
		}
		snap.IDs = slices.Delete(snap.IDs, i, i+1)
		snap.Matrix.DeleteRow(i)
		return true, nil
	})
}

// mutate runs load, apply, commit until a commit succeeds, apply reports no
// change, a non-conflict error occurs, or the retry budget is spent.
// apply receives a freshly loaded snapshot it may modify.
func (s *Store) mutate(ctx context.Context, op, id string, apply func(*Snapshot) (bool, error)) error {
	attempts := s.retry.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := s.Load(ctx)
		if err != nil {
			return err
		}
		changed, err := apply(snap)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		err = s.commit(ctx, snap)
		if err == nil {
			s.logger.Debug("vector store committed",
				zap.String("op", op),
				zap.String("id", id),
				zap.Int("rows", snap.Len()),
				zap.Int("attempt", attempt))
			return nil
		}
		if !errors.Is(err, blob.ErrPreconditionFailed) {
			return err
		}
		s.logger.Debug("vector store write conflict",
			zap.String("op", op),
			zap.String("id", id),
			zap.Int("attempt", attempt))
		if attempt < attempts {
			if err := s.retry.wait(ctx, attempt); err != nil {
				return err
			}
		}
	}
	s.logger.Warn("vector store write abandoned",
		zap.String("op", op),
		zap.String("id", id),
		zap.Int("attempts", attempts))
	return fmt.Errorf("%w: %s %q after %d attempts", ErrConflict, op, id, attempts)
}

// commit publishes snap with the version it was loaded at as precondition.
// A changed id list goes to a new document first; the matrix write then makes
// both visible at once.
func (s *Store) commit(ctx context.Context, snap *Snapshot) error {
	idsData, digest, err := encodeIDs(snap.IDs)
	if err != nil {
		return err
	}
	token := snap.idsToken
	fresh := snap.Version == blob.NoVersion || digest != snap.idsDigest
	if fresh {
		token = uuid.New()
		if _, err := s.blobs.PutUnconditional(ctx, s.layout.idsKey(token), idsData); err != nil {
			return fmt.Errorf("vectorstore: write id list: %w", err)
		}
	}

	data := vector.EncodeMatrix(snap.Matrix, token, digest)
	if _, err := s.blobs.Put(ctx, s.layout.matrixKey(), data, snap.Version); err != nil {
		if errors.Is(err, blob.ErrPreconditionFailed) {
			if fresh {
				s.deleteIDs(ctx, token)
			}
			return err
		}
		// The write may have landed; the new id list must stay.
		return fmt.Errorf("vectorstore: write matrix: %w", err)
	}
	if fresh && snap.Version != blob.NoVersion {
		s.deleteIDs(ctx, snap.idsToken)
	}
	return nil
}

func (s *Store) deleteIDs(ctx context.Context, token [16]byte) {
	key := s.layout.idsKey(token)
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete id list", zap.String("key", key), zap.Error(err))
	}
}
