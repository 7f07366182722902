package vector

import "fmt"

// Matrix is a dense row-major rows x cols float32 matrix. Row i holds the
// embedding named by ids[i] of the snapshot that owns it.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// NewMatrix returns an empty matrix with the given width.
func NewMatrix(cols int) *Matrix {
	return &Matrix{cols: cols}
}

// MatrixFromRows copies rows into a new matrix. All rows must have length cols.
func MatrixFromRows(cols int, rows [][]float32) (*Matrix, error) {
	m := &Matrix{cols: cols, data: make([]float32, 0, len(rows)*cols)}
	for _, r := range rows {
		if err := m.AppendRow(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the row width.
func (m *Matrix) Cols() int { return m.cols }

// Row returns row i. The slice aliases the matrix and must not be modified.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// AppendRow copies v onto the end of the matrix.
func (m *Matrix) AppendRow(v []float32) error {
	if len(v) != m.cols {
		return fmt.Errorf("%w: row has %d values, matrix width is %d", ErrDimensionMismatch, len(v), m.cols)
	}
	m.data = append(m.data, v...)
	m.rows++
	return nil
}

// SetRow overwrites row i with v.
func (m *Matrix) SetRow(i int, v []float32) error {
	if len(v) != m.cols {
		return fmt.Errorf("%w: row has %d values, matrix width is %d", ErrDimensionMismatch, len(v), m.cols)
	}
	if i < 0 || i >= m.rows {
		return fmt.Errorf("vector: row %d out of range [0,%d)", i, m.rows)
	}
	copy(m.data[i*m.cols:], v)
	return nil
}

// DeleteRow removes row i, shifting later rows up by one.
func (m *Matrix) DeleteRow(i int) {
	if i < 0 || i >= m.rows {
		return
	}
	m.data = append(m.data[:i*m.cols], m.data[(i+1)*m.cols:]...)
	m.rows--
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	data := make([]float32, len(m.data))
	copy(data, m.data)
	return &Matrix{rows: m.rows, cols: m.cols, data: data}
}

// Snapshot is one consistent (ids, matrix) pair as read from storage.
// A snapshot is never mutated after it is handed out.
type Snapshot struct {
	IDs    []string
	Matrix *Matrix
}

// EmptySnapshot returns a snapshot with no rows and the given width.
func EmptySnapshot(cols int) *Snapshot {
	return &Snapshot{IDs: []string{}, Matrix: NewMatrix(cols)}
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil || s.Matrix == nil {
		return 0
	}
	return s.Matrix.Rows()
}

// IndexOf returns the row of id, or -1.
func (s *Snapshot) IndexOf(id string) int {
	for i, v := range s.IDs {
		if v == id {
			return i
		}
	}
	return -1
}

// Validate checks that every row is named by exactly one id and no id names
// two rows.
func (s *Snapshot) Validate() error {
	if len(s.IDs) != s.Matrix.Rows() {
		return fmt.Errorf("%w: %d ids for %d rows", ErrCorrupt, len(s.IDs), s.Matrix.Rows())
	}
	seen := make(map[string]struct{}, len(s.IDs))
	for i, id := range s.IDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %q repeated at row %d", ErrCorrupt, id, i)
		}
		seen[id] = struct{}{}
	}
	return nil
}
