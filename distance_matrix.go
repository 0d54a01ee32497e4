package pointcluster

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix is a dense symmetric n×n matrix of pairwise distances.
// The diagonal is unused and always reads as 0.
//
// Rows are addressed by logical index. Reduce removes a row/column and
// shifts every higher logical index down by one, so the matrix shrinks
// monotonically during agglomeration while the backing storage stays put.
type DistanceMatrix struct {
	sym  *mat.SymDense // nil when the matrix was created empty
	rows []int         // logical index -> row in sym
}

// NewDistanceMatrix returns an n×n matrix with all off-diagonal entries 0.
func NewDistanceMatrix(n int) (*DistanceMatrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("pointcluster: matrix size must be >= 0, got %d: %w", n, ErrInvalidIndex)
	}
	m := &DistanceMatrix{rows: make([]int, n)}
	for i := range m.rows {
		m.rows[i] = i
	}
	if n > 0 {
		m.sym = mat.NewSymDense(n, nil)
	}
	return m, nil
}

// Len returns the current number of rows.
func (m *DistanceMatrix) Len() int { return len(m.rows) }

func (m *DistanceMatrix) checkIndex(i int) error {
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("pointcluster: matrix index %d out of range [0,%d): %w", i, len(m.rows), ErrInvalidIndex)
	}
	return nil
}

// Get returns the distance between rows i and j.
func (m *DistanceMatrix) Get(i, j int) (float64, error) {
	if err := m.checkIndex(i); err != nil {
		return 0, err
	}
	if err := m.checkIndex(j); err != nil {
		return 0, err
	}
	if i == j {
		return 0, nil
	}
	return m.sym.At(m.rows[i], m.rows[j]), nil
}

// at is Get without bounds checks, for callers that already validated i, j.
func (m *DistanceMatrix) at(i, j int) float64 {
	return m.sym.At(m.rows[i], m.rows[j])
}

// Set stores v at (i, j) and (j, i). Setting a diagonal entry or a NaN
// value is an error.
func (m *DistanceMatrix) Set(i, j int, v float64) error {
	if err := m.checkIndex(i); err != nil {
		return err
	}
	if err := m.checkIndex(j); err != nil {
		return err
	}
	if i == j {
		return fmt.Errorf("pointcluster: cannot set diagonal entry (%d,%d): %w", i, j, ErrInvalidIndex)
	}
	if math.IsNaN(v) {
		return fmt.Errorf("pointcluster: distance (%d,%d) is NaN", i, j)
	}
	m.sym.SetSym(m.rows[i], m.rows[j], v)
	return nil
}

func (m *DistanceMatrix) set(i, j int, v float64) {
	m.sym.SetSym(m.rows[i], m.rows[j], v)
}

// FindMin returns the smallest off-diagonal entry with i < j. Ties go to the
// smallest i, then the smallest j.
func (m *DistanceMatrix) FindMin() (i, j int, v float64, err error) {
	n := len(m.rows)
	if n < 2 {
		return 0, 0, 0, fmt.Errorf("pointcluster: FindMin needs at least 2 rows, have %d: %w", n, ErrInsufficientInput)
	}
	bi, bj := 0, 1
	best := m.at(0, 1)
	for r := 0; r < n; r++ {
		for c := r + 1; c < n; c++ {
			if d := m.at(r, c); d < best {
				best, bi, bj = d, r, c
			}
		}
	}
	return bi, bj, best, nil
}

// Reduce removes row and column i. Rows above i move down by one.
func (m *DistanceMatrix) Reduce(i int) error {
	if err := m.checkIndex(i); err != nil {
		return err
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	return nil
}

// Clone returns a compact copy of the current (possibly reduced) matrix.
func (m *DistanceMatrix) Clone() *DistanceMatrix {
	n := len(m.rows)
	c, _ := NewDistanceMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c.set(i, j, m.at(i, j))
		}
	}
	return c
}

// SymDense returns a copy of the current matrix as a gonum symmetric matrix,
// with zeros on the diagonal. It returns nil for an empty matrix.
func (m *DistanceMatrix) SymDense() *mat.SymDense {
	if len(m.rows) == 0 {
		return nil
	}
	return m.Clone().sym
}
