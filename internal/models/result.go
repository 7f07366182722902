package models

// SearchMode says which path produced a search response.
type SearchMode string

const (
	// ModeSemantic results are ranked by cosine similarity.
	ModeSemantic SearchMode = "semantic"
	// ModeFallback results are unranked substring matches, used when
	// embeddings or the vector store are unavailable.
	ModeFallback SearchMode = "fallback"
)

// SearchResult represents a single search hit with its prompt and score.
type SearchResult struct {
	Prompt *Prompt `json:"prompt"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	Mode      SearchMode      `json:"mode"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// Index states reported after indexing a prompt.
const (
	VectorIndexed = "indexed"
	VectorFailed  = "failed"
)

// IndexStatus reports how far indexing of a prompt got. The prompt is stored
// even when either index failed; Reindex repairs both.
type IndexStatus struct {
	Vector        string `json:"vector"`
	Error         string `json:"error,omitempty"`
	Fallback      string `json:"fallback"`
	FallbackError string `json:"fallback_error,omitempty"`
}
