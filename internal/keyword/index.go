// Package keyword provides the fallback text search used when semantic search
// is unavailable.
package keyword

import (
	"context"

	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/vector"
)

// FallbackScore is the score of every fallback hit. Fallback results carry no
// ranking signal.
const FallbackScore = 0.0

// FallbackIndex answers case-insensitive substring queries over prompt title,
// description and prompt text.
type FallbackIndex interface {
	Index(ctx context.Context, p *models.Prompt) error
	Delete(ctx context.Context, id string) error
	// Search returns at most limit prompts containing text, ordered by id.
	Search(ctx context.Context, text string, limit int) ([]vector.Result, error)
	// DocCount returns the total number of prompts in the index.
	DocCount() (uint64, error)
	Close() error
}
