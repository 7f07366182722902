package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/promptrepo/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "prompts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	p := &models.Prompt{
		ID:          "p1",
		Title:       "SQL helper",
		Description: "Writes queries",
		ToolUsed:    []string{"ChatGPT"},
		PromptText:  "You write SQL.",
		Tags:        []string{"sql", "db"},
		Username:    "ana",
	}
	require.NoError(t, store.CreatePrompt(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())

	got, err := store.GetPrompt(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "SQL helper", got.Title)
	assert.Equal(t, "Writes queries", got.Description)
	assert.Equal(t, []string{"ChatGPT"}, got.ToolUsed)
	assert.Equal(t, []string{"sql", "db"}, got.Tags)
	assert.Equal(t, "ana", got.Username)
	assert.Equal(t, "You write SQL.", got.PromptText)

	require.NoError(t, store.DeletePrompt(ctx, "p1"))
	_, err = store.GetPrompt(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeletePrompt(ctx, "p1"), ErrNotFound)
}

func TestSQLiteStorage_NilListsRoundTripEmpty(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePrompt(ctx, &models.Prompt{ID: "p", Title: "T", PromptText: "x"}))
	got, err := store.GetPrompt(ctx, "p")
	require.NoError(t, err)
	assert.NotNil(t, got.ToolUsed)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestSQLiteStorage_DuplicateID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePrompt(ctx, &models.Prompt{ID: "dup", Title: "a", PromptText: "a"}))
	assert.Error(t, store.CreatePrompt(ctx, &models.Prompt{ID: "dup", Title: "b", PromptText: "b"}))
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	n, err := store.CountPrompts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	empty, err := store.ListPrompts(ctx, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, store.CreatePrompt(ctx, &models.Prompt{ID: id, Title: id, PromptText: "t"}))
	}

	n, err = store.CountPrompts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	page, err := store.ListPrompts(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p4", page[0].ID)
	assert.Equal(t, "p3", page[1].ID)

	page, err = store.ListPrompts(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p0", page[0].ID)

	var seen []string
	require.NoError(t, store.ForEachPrompt(ctx, func(p *models.Prompt) error {
		seen = append(seen, p.ID)
		return nil
	}))
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4"}, seen)
}

func TestSQLiteStorage_ForEachStopsOnError(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.CreatePrompt(ctx, &models.Prompt{ID: id, Title: id, PromptText: "t"}))
	}

	stop := fmt.Errorf("stop")
	visited := 0
	err := store.ForEachPrompt(ctx, func(*models.Prompt) error {
		visited++
		if visited == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.CreatePrompt(ctx, &models.Prompt{ID: "m", Title: "m", PromptText: "m"}))
	got, err := store.GetPrompt(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "m", got.ID)
}
