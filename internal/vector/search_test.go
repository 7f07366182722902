package vector

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"
)

func mustSnapshot(t *testing.T, cols int, ids []string, rows [][]float32) *Snapshot {
	t.Helper()
	normalized := make([][]float32, len(rows))
	for i, r := range rows {
		normalized[i] = Normalize(r)
	}
	m, err := MatrixFromRows(cols, normalized)
	if err != nil {
		t.Fatal(err)
	}
	return &Snapshot{IDs: ids, Matrix: m}
}

func TestSearch_TwoDimensionalScenario(t *testing.T) {
	snap := mustSnapshot(t, 2, []string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	results, err := Search(snap, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("first result = %+v, want a/1.0", results[0])
	}
	if results[1].ID != "c" || math.Abs(results[1].Score-math.Sqrt2/2) > 1e-6 {
		t.Errorf("second result = %+v, want c/0.707", results[1])
	}
}

func TestSearch_TiesKeepRowOrder(t *testing.T) {
	snap := mustSnapshot(t, 2, []string{"low", "x", "y", "z"}, [][]float32{{0, 1}, {1, 0}, {1, 0}, {1, 0}})

	results, err := Search(snap, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "x" || results[1].ID != "y" {
		t.Errorf("got %+v, want x then y", results)
	}

	all, err := Search(snap, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"x", "y", "z", "low"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, all[i].ID, id)
		}
	}
}

func TestSearch_KLargerThanRowsReturnsAllSorted(t *testing.T) {
	snap := mustSnapshot(t, 3, []string{"p", "q"}, [][]float32{{0, 1, 0}, {1, 0, 0}})
	results, err := Search(snap, []float32{1, 0, 0}, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "q" || results[1].ID != "p" {
		t.Errorf("got %+v", results)
	}
}

func TestSearch_EmptyAndZeroK(t *testing.T) {
	results, err := Search(EmptySnapshot(4), []float32{1, 2, 3, 4}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("empty store should yield an empty, non-nil result, got %#v", results)
	}

	snap := mustSnapshot(t, 2, []string{"a"}, [][]float32{{1, 0}})
	results, err = Search(snap, []float32{1, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("k=0 should return nothing, got %d", len(results))
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	snap := mustSnapshot(t, 3, []string{"a"}, [][]float32{{1, 0, 0}})
	for _, q := range [][]float32{{1, 0}, {1, 0, 0, 0}} {
		_, err := Search(snap, q, 1)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("query len %d: expected ErrDimensionMismatch, got %v", len(q), err)
		}
	}
}

func TestSearch_IDsRowsDisagree(t *testing.T) {
	m, _ := MatrixFromRows(2, [][]float32{{1, 0}, {0, 1}})
	_, err := Search(&Snapshot{IDs: []string{"only"}, Matrix: m}, []float32{1, 0}, 1)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestSearch_DuplicateIDsAreCorrupt(t *testing.T) {
	snap := mustSnapshot(t, 2, []string{"a", "b", "a"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err := snap.Validate(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Validate: expected ErrCorrupt, got %v", err)
	}
	if _, err := Search(snap, []float32{1, 0}, 3); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Search: expected ErrCorrupt, got %v", err)
	}
}

func TestSearch_ZeroQueryScoresZero(t *testing.T) {
	snap := mustSnapshot(t, 2, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	results, err := Search(snap, []float32{0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("%s scored %v against the zero vector", r.ID, r.Score)
		}
	}
	if results[0].ID != "a" {
		t.Errorf("ties should keep row order, got %s first", results[0].ID)
	}
}

func TestSearch_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n, d, k = 300, 16, 12
	ids := make([]string, n)
	rows := make([][]float32, n)
	for i := range rows {
		ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		rows[i] = make([]float32, d)
		for j := range rows[i] {
			rows[i][j] = float32(rng.NormFloat64())
		}
	}
	snap := mustSnapshot(t, d, ids, rows)
	query := make([]float32, d)
	for j := range query {
		query[j] = float32(rng.NormFloat64())
	}

	got, err := Search(snap, query, k)
	if err != nil {
		t.Fatal(err)
	}

	q := Normalize(query)
	all := make([]scoredRow, n)
	for i := 0; i < n; i++ {
		all[i] = scoredRow{row: i, score: Dot(q, snap.Matrix.Row(i))}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	for i := 0; i < k; i++ {
		if got[i].ID != ids[all[i].row] || got[i].Score != all[i].score {
			t.Fatalf("rank %d: got %+v, want %s/%v", i, got[i], ids[all[i].row], all[i].score)
		}
	}

	again, _ := Search(snap, query, k)
	for i := range got {
		if got[i] != again[i] {
			t.Fatalf("search is not deterministic at rank %d", i)
		}
	}
}

func TestNormalize(t *testing.T) {
	in := []float32{3, 4}
	out := Normalize(in)
	if math.Abs(L2Norm(out)-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", L2Norm(out))
	}
	if in[0] != 3 || in[1] != 4 {
		t.Error("Normalize modified its input")
	}

	zero := Normalize([]float32{0, 0, 0})
	for _, v := range zero {
		if v != 0 {
			t.Fatalf("zero vector changed: %v", zero)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := make([]float32, 32)
		for j := range v {
			v[j] = float32(rng.NormFloat64() * 100)
		}
		if n := L2Norm(Normalize(v)); math.Abs(n-1) > 1e-5 {
			t.Fatalf("norm %v after normalisation", n)
		}
	}
}

func TestMatrix_RowOps(t *testing.T) {
	m := NewMatrix(2)
	_ = m.AppendRow([]float32{1, 2})
	_ = m.AppendRow([]float32{3, 4})
	_ = m.AppendRow([]float32{5, 6})
	if err := m.AppendRow([]float32{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := m.SetRow(1, []float32{7, 8}); err != nil {
		t.Fatal(err)
	}
	m.DeleteRow(0)
	if m.Rows() != 2 {
		t.Fatalf("rows = %d", m.Rows())
	}
	if r := m.Row(0); r[0] != 7 || r[1] != 8 {
		t.Errorf("row 0 = %v", r)
	}
	if r := m.Row(1); r[0] != 5 || r[1] != 6 {
		t.Errorf("row 1 = %v", r)
	}

	c := m.Clone()
	_ = c.SetRow(0, []float32{0, 0})
	if m.Row(0)[0] != 7 {
		t.Error("Clone shares storage with the original")
	}
}
