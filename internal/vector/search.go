package vector

import (
	"container/heap"
	"fmt"
	"sort"
)

// Result is a single search hit.
type Result struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}

type scoredRow struct {
	row   int
	score float64
}

// better reports whether a ranks ahead of b: higher score first, then lower row.
func better(a, b scoredRow) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.row < b.row
}

// topKHeap keeps the k best rows seen so far with the worst one on top.
type topKHeap []scoredRow

func (h topKHeap) Len() int            { return len(h) }
func (h topKHeap) Less(i, j int) bool  { return better(h[j], h[i]) }
func (h topKHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x interface{}) { *h = append(*h, x.(scoredRow)) }
func (h *topKHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search returns the k rows of snap most similar to query, best first.
// The query is normalised before scoring; ties keep ascending row order.
// An empty snapshot or k <= 0 yields an empty result.
func Search(snap *Snapshot, query []float32, k int) ([]Result, error) {
	n := snap.Len()
	if n == 0 || k <= 0 {
		return []Result{}, nil
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if len(query) != snap.Matrix.Cols() {
		return nil, fmt.Errorf("%w: query has %d values, matrix width is %d", ErrDimensionMismatch, len(query), snap.Matrix.Cols())
	}

	q := Normalize(query)
	if k > n {
		k = n
	}
	h := make(topKHeap, 0, k)
	for i := 0; i < n; i++ {
		s := scoredRow{row: i, score: Dot(q, snap.Matrix.Row(i))}
		if len(h) < k {
			heap.Push(&h, s)
			continue
		}
		if better(s, h[0]) {
			h[0] = s
			heap.Fix(&h, 0)
		}
	}

	sort.Slice(h, func(i, j int) bool { return better(h[i], h[j]) })
	results := make([]Result, len(h))
	for i, s := range h {
		results[i] = Result{ID: snap.IDs[s.row], Score: s.score}
	}
	return results, nil
}
