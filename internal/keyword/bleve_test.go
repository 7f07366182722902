package keyword

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/vector"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func ids(results []vector.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func seed(t *testing.T, idx *BleveIndex, prompts ...*models.Prompt) {
	t.Helper()
	for _, p := range prompts {
		require.NoError(t, idx.Index(context.Background(), p))
	}
}

func TestBleveIndex_SubstringAcrossFields(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx,
		&models.Prompt{ID: "c", Title: "Commit message writer", PromptText: "Summarise the diff."},
		&models.Prompt{ID: "a", Title: "SQL helper", Description: "Writes PostgreSQL queries", PromptText: "You are a DBA."},
		&models.Prompt{ID: "b", Title: "Poem", PromptText: "Write a haiku about sqlite."},
	)
	ctx := context.Background()

	got, err := idx.Search(ctx, "SQL", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	for _, r := range got {
		assert.Equal(t, FallbackScore, r.Score)
	}

	got, err = idx.Search(ctx, "greSQL q", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))

	got, err = idx.Search(ctx, "the diff", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))

	got, err = idx.Search(ctx, "kubernetes", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBleveIndex_TagsAndToolsNotSearched(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx, &models.Prompt{ID: "p", Title: "Title", PromptText: "text", Tags: []string{"golang"}, ToolUsed: []string{"Claude"}})

	got, err := idx.Search(context.Background(), "golang", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBleveIndex_LimitAndOrder(t *testing.T) {
	idx := newTestIndex(t)
	for i := 9; i >= 0; i-- {
		seed(t, idx, &models.Prompt{ID: fmt.Sprintf("p%02d", i), Title: "shared needle", PromptText: "x"})
	}
	ctx := context.Background()

	got, err := idx.Search(ctx, "needle", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"p00", "p01", "p02"}, ids(got))

	got, err = idx.Search(ctx, "needle", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBleveIndex_Paging(t *testing.T) {
	idx := newTestIndex(t)
	n := pageSize + 25
	for i := 0; i < n; i++ {
		seed(t, idx, &models.Prompt{ID: fmt.Sprintf("p%04d", i), Title: "bulk", PromptText: "x"})
	}
	got, err := idx.Search(context.Background(), "bulk", n+10)
	require.NoError(t, err)
	assert.Len(t, got, n)
	assert.Equal(t, "p0000", got[0].ID)
	assert.Equal(t, fmt.Sprintf("p%04d", n-1), got[n-1].ID)
}

func TestBleveIndex_SpecialCharacters(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx,
		&models.Prompt{ID: "star", Title: "Math", PromptText: "compute 5*3 quickly"},
		&models.Prompt{ID: "x", Title: "Math", PromptText: "compute 5x3 quickly"},
		&models.Prompt{ID: "cpp", Title: "C++ (modern) reviewer", PromptText: "review"},
	)
	ctx := context.Background()

	got, err := idx.Search(ctx, "5*3", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"star"}, ids(got))

	got, err = idx.Search(ctx, "c++ (mod", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpp"}, ids(got))
}

func TestBleveIndex_MultilineText(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx, &models.Prompt{ID: "m", Title: "T", PromptText: "first line\nsecond\tline"})

	got, err := idx.Search(context.Background(), "line second", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, ids(got))
}

func TestBleveIndex_ReplaceAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seed(t, idx, &models.Prompt{ID: "p", Title: "old title", PromptText: "x"})
	seed(t, idx, &models.Prompt{ID: "p", Title: "new title", PromptText: "x"})

	got, err := idx.Search(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, idx.Delete(ctx, "p"))
	require.NoError(t, idx.Delete(ctx, "missing"))
	got, err = idx.Search(ctx, "new", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBleveIndex_ReopenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.bleve")
	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(context.Background(), &models.Prompt{ID: "keep", Title: "Persisted Prompt", PromptText: "x"}))
	require.NoError(t, idx.Close())

	idx, err = NewBleveIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	got, err := idx.Search(context.Background(), "persisted", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids(got))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, " a b c ", collapseSpace("  a\n\nb\t c\r\n"))
	assert.Equal(t, "", collapseSpace(""))
}
