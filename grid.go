package pointcluster

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"
)

// maxCellsPerQuery bounds the number of cells a radius query enumerates
// directly. Larger queries scan the occupied cells instead.
const maxCellsPerQuery = 4096

// maxCellIndex bounds the magnitude of a quantized coordinate so that cell
// arithmetic stays well inside int64.
const maxCellIndex = 1 << 62

// cellCoord is the quantized position of a cell. Unused trailing axes are 0.
type cellCoord [MaxDims]int64

func compareCoords(a, b cellCoord) int {
	for d := range a {
		if c := cmp.Compare(a[d], b[d]); c != 0 {
			return c
		}
	}
	return 0
}

// CellKey identifies a grid cell. It is a 64-bit FNV-1a hash of the cell's
// quantized coordinates.
type CellKey uint64

func (c cellCoord) key() CellKey {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, v := range c {
		u := uint64(v)
		for b := 0; b < 8; b++ {
			h ^= u & 0xff
			h *= prime
			u >>= 8
		}
	}
	return CellKey(h)
}

type cell struct {
	coord   cellCoord
	indices []int
}

// Grid buckets points into cubic cells of a fixed size so that neighbour
// searches only visit nearby cells. It is built once, queried many times
// and then discarded. Queries may run concurrently with each other but not
// with Insert.
type Grid struct {
	dims     int
	cellSize float64
	cells    map[cellCoord]*cell
	pos      map[int][]float64 // point index -> copied coordinates

	mu    sync.Mutex
	order []*cell // cells sorted by coord; nil when stale
}

// NewGrid returns an empty grid for points of the given dimensionality.
func NewGrid(dims int, cellSize float64) (*Grid, error) {
	if dims < 1 || dims > MaxDims {
		return nil, fmt.Errorf("pointcluster: grid dimensionality must be 1..%d, got %d: %w", MaxDims, dims, ErrDimension)
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("pointcluster: grid cell size must be positive and finite, got %v: %w", cellSize, ErrInvalidConfig)
	}
	return &Grid{
		dims:     dims,
		cellSize: cellSize,
		cells:    make(map[cellCoord]*cell),
		pos:      make(map[int][]float64),
	}, nil
}

// Dims returns the dimensionality of the grid.
func (g *Grid) Dims() int { return g.dims }

// CellSize returns the edge length of a cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns the number of points in the grid.
func (g *Grid) Len() int { return len(g.pos) }

// NumCells returns the number of occupied cells.
func (g *Grid) NumCells() int { return len(g.cells) }

// quantize returns the cell index of x along one axis, clamped to
// [-maxCellIndex, maxCellIndex]. Stored points are always inside the range;
// only query bounds are clamped.
func (g *Grid) quantize(x float64) int64 {
	q := math.Floor(x / g.cellSize)
	return int64(max(-maxCellIndex, min(q, maxCellIndex)))
}

func (g *Grid) coordOf(coords []float64) cellCoord {
	var c cellCoord
	for d := 0; d < g.dims; d++ {
		c[d] = g.quantize(coords[d])
	}
	return c
}

// Key returns the key of the cell containing coords.
func (g *Grid) Key(coords []float64) (CellKey, error) {
	if err := g.checkCoords(coords); err != nil {
		return 0, err
	}
	return g.coordOf(coords).key(), nil
}

func (g *Grid) checkCoords(coords []float64) error {
	if len(coords) != g.dims {
		return fmt.Errorf("pointcluster: grid is %d-dimensional, got %d coordinates: %w", g.dims, len(coords), ErrDimension)
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("pointcluster: non-finite grid coordinate %v: %w", c, ErrDimension)
		}
		if math.Abs(c/g.cellSize) >= maxCellIndex {
			return fmt.Errorf("pointcluster: grid coordinate %v out of range for cell size %v: %w", c, g.cellSize, ErrDimension)
		}
	}
	return nil
}

// Insert adds p to the grid. The coordinates are copied.
func (g *Grid) Insert(p Point) error {
	if err := g.checkCoords(p.Coords); err != nil {
		return err
	}
	if p.Index < 0 {
		return fmt.Errorf("pointcluster: negative point index %d: %w", p.Index, ErrInvalidIndex)
	}
	if _, dup := g.pos[p.Index]; dup {
		return fmt.Errorf("pointcluster: point %d already in grid: %w", p.Index, ErrInvalidIndex)
	}

	g.pos[p.Index] = slices.Clone(p.Coords)
	cc := g.coordOf(p.Coords)
	c, ok := g.cells[cc]
	if !ok {
		c = &cell{coord: cc}
		g.cells[cc] = c
		g.mu.Lock()
		g.order = nil
		g.mu.Unlock()
	}
	c.indices = append(c.indices, p.Index)
	return nil
}

// Position returns the stored coordinates of the point with the given index.
func (g *Grid) Position(index int) ([]float64, error) {
	p, ok := g.pos[index]
	if !ok {
		return nil, fmt.Errorf("pointcluster: point %d not in grid: %w", index, ErrInvalidIndex)
	}
	return slices.Clone(p), nil
}

func (g *Grid) sortedCells() []*cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.order == nil {
		g.order = make([]*cell, 0, len(g.cells))
		for _, c := range g.cells {
			g.order = append(g.order, c)
		}
		slices.SortFunc(g.order, func(a, b *cell) int { return compareCoords(a.coord, b.coord) })
	}
	return g.order
}

// CellsInRadius returns the buckets of every occupied cell that overlaps the
// axis-aligned box of half-width radius around centre. The result is a
// superset of the points within radius under any metric bounded by the
// Chebyshev distance; callers must re-check the exact metric. Buckets come
// in ascending cell order and must not be modified.
func (g *Grid) CellsInRadius(centre []float64, radius float64) ([][]int, error) {
	if err := g.checkCoords(centre); err != nil {
		return nil, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("pointcluster: query radius must be >= 0, got %v: %w", radius, ErrInvalidConfig)
	}

	var lo, hi cellCoord
	span := 1.0
	for d := 0; d < g.dims; d++ {
		lo[d] = g.quantize(centre[d] - radius)
		hi[d] = g.quantize(centre[d] + radius)
		span *= float64(hi[d]) - float64(lo[d]) + 1
	}

	var buckets [][]int
	if span > maxCellsPerQuery || span > float64(len(g.cells)) {
		for _, c := range g.sortedCells() {
			if c.within(lo, hi, g.dims) {
				buckets = append(buckets, c.indices)
			}
		}
		return buckets, nil
	}

	cur := lo
	for {
		if c, ok := g.cells[cur]; ok {
			buckets = append(buckets, c.indices)
		}
		// Odometer increment, last axis fastest, so the walk is in
		// ascending coordinate order.
		d := g.dims - 1
		for ; d >= 0; d-- {
			if cur[d] < hi[d] {
				cur[d]++
				break
			}
			cur[d] = lo[d]
		}
		if d < 0 {
			return buckets, nil
		}
	}
}

func (c *cell) within(lo, hi cellCoord, dims int) bool {
	for d := 0; d < dims; d++ {
		if c.coord[d] < lo[d] || c.coord[d] > hi[d] {
			return false
		}
	}
	return true
}

// Neighbors returns the sorted indices of all points in cells within radius
// of the stored point index, excluding index itself.
func (g *Grid) Neighbors(index int, radius float64) ([]int, error) {
	p, ok := g.pos[index]
	if !ok {
		return nil, fmt.Errorf("pointcluster: point %d not in grid: %w", index, ErrInvalidIndex)
	}
	buckets, err := g.CellsInRadius(p, radius)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, b := range buckets {
		for _, j := range b {
			if j != index {
				out = append(out, j)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Cells iterates over all occupied cells in ascending cell-coordinate order.
// Buckets must not be modified.
func (g *Grid) Cells() iter.Seq2[CellKey, []int] {
	return func(yield func(CellKey, []int) bool) {
		for _, c := range g.sortedCells() {
			if !yield(c.coord.key(), c.indices) {
				return
			}
		}
	}
}
