package models

import (
	"fmt"
	"strings"
)

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise clamps limit to [1, maxLimit]
// and uses defaultLimit when none was given.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
