// Package storage defines the persistence interface for prompts.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/promptrepo/internal/models"
)

// ErrNotFound is returned when a prompt does not exist.
var ErrNotFound = errors.New("prompt not found")

// Storage defines prompt persistence operations.
type Storage interface {
	CreatePrompt(ctx context.Context, p *models.Prompt) error
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error
	ListPrompts(ctx context.Context, offset, limit int) ([]*models.Prompt, error)
	// ForEachPrompt visits every prompt in creation order and stops at the
	// first error returned by fn.
	ForEachPrompt(ctx context.Context, fn func(*models.Prompt) error) error

	CountPrompts(ctx context.Context) (int64, error)

	Close() error
}
