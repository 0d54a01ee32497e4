package pointcluster

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGrid(t testing.TB, cellSize float64, pts []Point) *Grid {
	t.Helper()
	g, err := NewGrid(pts[0].Dims(), cellSize)
	require.NoError(t, err)
	for _, p := range pts {
		require.NoError(t, g.Insert(p))
	}
	return g
}

func chebyshev(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}

func TestNewGrid_Errors(t *testing.T) {
	_, err := NewGrid(0, 1)
	assert.ErrorIs(t, err, ErrDimension)
	_, err = NewGrid(4, 1)
	assert.ErrorIs(t, err, ErrDimension)
	for _, size := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = NewGrid(2, size)
		assert.ErrorIs(t, err, ErrInvalidConfig, "cell size %v", size)
	}
}

func TestGrid_Insert(t *testing.T) {
	g, err := NewGrid(2, 1)
	require.NoError(t, err)

	coords := []float64{0.5, 0.5}
	require.NoError(t, g.Insert(Point{Index: 7, Coords: coords}))
	coords[0] = 99

	pos, err := g.Position(7)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, pos, "grid must keep its own copy")

	assert.ErrorIs(t, g.Insert(Point{Index: 7, Coords: []float64{1, 1}}), ErrInvalidIndex)
	assert.ErrorIs(t, g.Insert(Point{Index: -1, Coords: []float64{1, 1}}), ErrInvalidIndex)
	assert.ErrorIs(t, g.Insert(Point{Index: 8, Coords: []float64{1}}), ErrDimension)
	assert.ErrorIs(t, g.Insert(Point{Index: 8, Coords: []float64{1, math.NaN()}}), ErrDimension)

	_, err = g.Position(8)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 1, g.NumCells())
}

func TestGrid_KeyQuantization(t *testing.T) {
	g, err := NewGrid(2, 2)
	require.NoError(t, err)

	k1, err := g.Key([]float64{0.1, 0.1})
	require.NoError(t, err)
	k2, err := g.Key([]float64{1.9, 1.9})
	require.NoError(t, err)
	k3, err := g.Key([]float64{2, 0.1})
	require.NoError(t, err)
	k4, err := g.Key([]float64{-0.1, 0.1})
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "same cell")
	assert.NotEqual(t, k1, k3, "cell boundary belongs to the upper cell")
	assert.NotEqual(t, k1, k4, "negative coordinates floor downwards")

	_, err = g.Key([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestGrid_CellsInRadiusSuperset(t *testing.T) {
	for dims := 1; dims <= MaxDims; dims++ {
		pts := randomPoints(300, dims, 20, int64(dims))
		for i := range pts {
			for d := range pts[i].Coords {
				pts[i].Coords[d] -= 10
			}
		}
		for _, cellSize := range []float64{0.7, 1.5, 4} {
			g := buildGrid(t, cellSize, pts)
			for _, radius := range []float64{0, 1, 2.5} {
				for _, p := range pts[:40] {
					got, err := g.Neighbors(p.Index, radius)
					require.NoError(t, err)
					require.True(t, slices.IsSorted(got))

					for _, q := range pts {
						if q.Index == p.Index || chebyshev(p.Coords, q.Coords) > radius {
							continue
						}
						_, found := slices.BinarySearch(got, q.Index)
						assert.True(t, found, "dims=%d cell=%v r=%v: %d missing from neighbours of %d",
							dims, cellSize, radius, q.Index, p.Index)
					}
					assert.NotContains(t, got, p.Index)
				}
			}
		}
	}
}

func TestGrid_CellsInRadiusOnlyNearbyCells(t *testing.T) {
	pts := []Point{
		{Index: 0, Coords: []float64{0.5, 0.5}},
		{Index: 1, Coords: []float64{1.5, 0.5}},
		{Index: 2, Coords: []float64{5.5, 5.5}},
		{Index: 3, Coords: []float64{0.6, 0.4}},
	}
	g := buildGrid(t, 1, pts)

	buckets, err := g.CellsInRadius([]float64{0.5, 0.5}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 3}, {1}}, buckets)

	nb, err := g.Neighbors(0, 0.6)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, nb)
}

func TestGrid_FallbackMatchesEnumeration(t *testing.T) {
	pts := randomPoints(50, 2, 10, 11)
	g := buildGrid(t, 1, pts)

	// A radius of 1 spans 9 cells, fewer than are occupied: enumerated.
	// A huge radius exceeds the occupied cell count: scanned.
	require.Greater(t, g.NumCells(), 9)
	centre := []float64{5, 5}
	enumerated, err := g.CellsInRadius(centre, 1)
	require.NoError(t, err)

	var lo, hi cellCoord
	for d := 0; d < 2; d++ {
		lo[d] = g.quantize(centre[d] - 1)
		hi[d] = g.quantize(centre[d] + 1)
	}
	var scanned [][]int
	for _, c := range g.sortedCells() {
		if c.within(lo, hi, 2) {
			scanned = append(scanned, c.indices)
		}
	}
	assert.Equal(t, scanned, enumerated)

	all, err := g.CellsInRadius(centre, 1e9)
	require.NoError(t, err)
	total := 0
	for _, b := range all {
		total += len(b)
	}
	assert.Equal(t, len(pts), total)
}

func TestGrid_CellsInRadiusErrors(t *testing.T) {
	g := buildGrid(t, 1, []Point{{Index: 0, Coords: []float64{0, 0}}})

	_, err := g.CellsInRadius([]float64{0, 0}, -1)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = g.CellsInRadius([]float64{0}, 1)
	assert.ErrorIs(t, err, ErrDimension)
	_, err = g.Neighbors(5, 1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestGrid_CoordinateRange(t *testing.T) {
	g, err := NewGrid(1, 1e-300)
	require.NoError(t, err)

	err = g.Insert(Point{Index: 0, Coords: []float64{1e10}})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = g.Key([]float64{-1e10})
	assert.ErrorIs(t, err, ErrDimension)
	assert.Zero(t, g.Len())

	// Query bounds far outside the cell range are clamped, not wrapped.
	g = buildGrid(t, 1, []Point{
		{Index: 0, Coords: []float64{-5}},
		{Index: 1, Coords: []float64{5}},
	})
	for _, radius := range []float64{1e300, math.Inf(1)} {
		nb, err := g.Neighbors(0, radius)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, nb, "radius %v", radius)
	}
}

func TestGrid_CellsOrdered(t *testing.T) {
	pts := []Point{
		{Index: 0, Coords: []float64{3.5, 0.5}},
		{Index: 1, Coords: []float64{-1.5, 2.5}},
		{Index: 2, Coords: []float64{0.5, 0.5}},
		{Index: 3, Coords: []float64{0.5, -0.5}},
		{Index: 4, Coords: []float64{0.7, 0.2}},
	}
	g := buildGrid(t, 1, pts)

	var got [][]int
	var keys []CellKey
	for key, bucket := range g.Cells() {
		keys = append(keys, key)
		got = append(got, bucket)
	}
	// Cells (-2,2), (0,-1), (0,0), (3,0).
	assert.Equal(t, [][]int{{1}, {3}, {2, 4}, {0}}, got)

	k, err := g.Key([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, k, keys[2])

	// Early break stops the iteration.
	n := 0
	for range g.Cells() {
		n++
		break
	}
	assert.Equal(t, 1, n)

	// Inserting into a new cell refreshes the order.
	require.NoError(t, g.Insert(Point{Index: 5, Coords: []float64{-5, -5}}))
	for _, bucket := range g.Cells() {
		assert.Equal(t, []int{5}, bucket)
		break
	}
}
