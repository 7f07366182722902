package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hyperjump/promptrepo/internal/blob"
	"github.com/hyperjump/promptrepo/internal/config"
	"github.com/hyperjump/promptrepo/internal/embedding"
	"github.com/hyperjump/promptrepo/internal/indexer"
	"github.com/hyperjump/promptrepo/internal/keyword"
	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/internal/storage"
	"github.com/hyperjump/promptrepo/internal/vector"
	"github.com/hyperjump/promptrepo/internal/vectorstore"
)

const testDims = 8

// switchableStore fails every call with a transient error while down is set.
type switchableStore struct {
	blob.Store
	down bool
}

func (s *switchableStore) Get(ctx context.Context, key string) ([]byte, blob.Version, error) {
	if s.down {
		return nil, blob.NoVersion, fmt.Errorf("%w: dial tcp: connection refused", blob.ErrTransient)
	}
	return s.Store.Get(ctx, key)
}

type fixture struct {
	engine  *Engine
	indexer *indexer.Indexer
	store   *storage.SQLiteStorage
	vectors *vectorstore.Store
	blobs   *switchableStore
}

func newFixture(t *testing.T, embedder embedding.Embedder) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "prompts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs := &switchableStore{Store: blob.NewMemoryStore()}
	vectors, err := vectorstore.New(blobs, testDims,
		vectorstore.WithRetryPolicy(vectorstore.RetryPolicy{MaxAttempts: 3, Backoff: vectorstore.NoBackoff{}}))
	require.NoError(t, err)

	fallback, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = fallback.Close() })

	cfg := &config.SearchConfig{DefaultLimit: 10, MaxLimit: 100, FallbackLimit: 2}
	logger := zaptest.NewLogger(t)
	return &fixture{
		engine:  NewEngine(store, embedder, vectors, fallback, cfg, WithLogger(logger)),
		indexer: indexer.NewIndexer(store, embedder, vectors, fallback, indexer.WithLogger(logger)),
		store:   store,
		vectors: vectors,
		blobs:   blobs,
	}
}

func (f *fixture) add(t *testing.T, title, text string) *models.Prompt {
	t.Helper()
	p, status, err := f.indexer.IndexPrompt(context.Background(), &models.PromptInput{Title: title, PromptText: text})
	require.NoError(t, err)
	require.Equal(t, models.VectorIndexed, status.Vector)
	return p
}

func TestEngine_SemanticSearch(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	sqlPrompt := f.add(t, "SQL helper", "Write PostgreSQL queries")
	f.add(t, "Poet", "Write a haiku")
	f.add(t, "Reviewer", "Review Go code")

	resp, err := f.engine.Search(ctx, &models.SearchQuery{Query: sqlPrompt.SearchableText(), Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSemantic, resp.Mode)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, sqlPrompt.ID, resp.Results[0].Prompt.ID)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-5)
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.LessOrEqual(t, r.Score, resp.Results[i-1].Score)
		}
	}
}

func TestEngine_QueryContract(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	ctx := context.Background()
	p := f.add(t, "Only", "one prompt")

	got, err := f.engine.Query(ctx, p.SearchableText(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)

	got, err = f.engine.Query(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_EmptyStore(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))

	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSemantic, resp.Mode)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestEngine_FallbackWhenEmbeddingUnavailable(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	f.add(t, "SQL helper", "Write PostgreSQL queries")
	f.add(t, "Poet", "Write a haiku")

	f.engine.embedder = embedding.Unavailable("gemini", testDims, errors.New("quota exceeded"))
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "postgresql"})
	require.NoError(t, err)
	assert.Equal(t, models.ModeFallback, resp.Mode)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "SQL helper", resp.Results[0].Prompt.Title)
	assert.Equal(t, keyword.FallbackScore, resp.Results[0].Score)
}

func TestEngine_FallbackWhenBlobStoreDown(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	for i := 0; i < 4; i++ {
		f.add(t, fmt.Sprintf("Write prompt %d", i), "body")
	}

	f.blobs.down = true
	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "write", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, models.ModeFallback, resp.Mode)
	assert.Len(t, resp.Results, 2, "fallback is capped by fallback_limit")
}

func TestEngine_DimensionMismatchIsNotMasked(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	f.add(t, "SQL helper", "Write PostgreSQL queries")

	f.engine.embedder = embedding.NewMockEmbedder(testDims / 2)
	_, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "sql"})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestEngine_ProviderWidthSkewIsNotMasked(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	f.add(t, "SQL helper", "Write PostgreSQL queries")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object": "list", "data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3, 0.4]}], "model": "m"}`)
	}))
	defer srv.Close()
	f.engine.embedder = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{APIKey: "sk-test", Model: "m", Dimensions: testDims, BaseURL: srv.URL})

	resp, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "sql"})
	require.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Nil(t, resp)
}

func TestEngine_CorruptStoreIsNotMasked(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	_, err := f.blobs.PutUnconditional(context.Background(), "embeddings/matrix.bin", []byte("garbage"))
	require.NoError(t, err)

	_, err = f.engine.Search(context.Background(), &models.SearchQuery{Query: "sql"})
	assert.ErrorIs(t, err, vector.ErrCorrupt)
}

func TestEngine_SkipsVectorsWithoutPrompt(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	ctx := context.Background()
	p := f.add(t, "Stored", "prompt")

	// another instance wrote a vector whose prompt this instance does not have
	orphan, err := embedding.NewMockEmbedder(testDims).Embed(ctx, p.SearchableText())
	require.NoError(t, err)
	require.NoError(t, f.vectors.Upsert(ctx, "elsewhere", orphan))

	resp, err := f.engine.Search(ctx, &models.SearchQuery{Query: p.SearchableText(), Limit: 5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, p.ID, resp.Results[0].Prompt.ID)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 1, resp.Total)
}

func TestEngine_InvalidQuery(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	_, err := f.engine.Search(context.Background(), &models.SearchQuery{Query: "  "})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}

func TestEngine_Stats(t *testing.T) {
	f := newFixture(t, embedding.NewMockEmbedder(testDims))
	ctx := context.Background()
	f.add(t, "One", "a")
	f.add(t, "Two", "b")

	st, err := f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Prompts)
	assert.Equal(t, 2, st.Vectors)
	assert.Equal(t, testDims, st.Dimensions)
	assert.Equal(t, "memory", st.BlobBackend)
	assert.Equal(t, "mock", st.Embedder)
	assert.Equal(t, uint64(2), st.FallbackDocs)
	assert.Empty(t, st.VectorError)

	f.blobs.down = true
	st, err = f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Vectors)
	assert.Contains(t, st.VectorError, "connection refused")
}
