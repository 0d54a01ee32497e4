package pointcluster

import (
	"fmt"
	"math"
)

// MaxDims is the highest dimensionality supported by the grid and the
// cluster finders.
const MaxDims = 3

// Point is a single observation. Index refers into the caller's own point
// array and is what every result reports back; Coords is the position and
// Tag an opaque integer property (run number, charge state, ...).
type Point struct {
	Index  int
	Coords []float64
	Tag    int
}

// Dims returns the dimensionality of p.
func (p Point) Dims() int { return len(p.Coords) }

// clone returns a copy of p that shares no memory with the caller.
func (p Point) clone() Point {
	c := make([]float64, len(p.Coords))
	copy(c, p.Coords)
	return Point{Index: p.Index, Coords: c, Tag: p.Tag}
}

// validatePoints checks that all points share one dimensionality in
// [1, MaxDims], that every coordinate is finite and that the caller indices
// are non-negative and unique. It returns the common dimensionality.
func validatePoints(points []Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dims := len(points[0].Coords)
	if dims < 1 || dims > MaxDims {
		return 0, fmt.Errorf("pointcluster: point %d has %d dimensions, want 1..%d: %w",
			points[0].Index, dims, MaxDims, ErrDimension)
	}
	seen := make(map[int]struct{}, len(points))
	for pos, p := range points {
		if len(p.Coords) != dims {
			return 0, fmt.Errorf("pointcluster: point at position %d has %d dimensions, want %d: %w",
				pos, len(p.Coords), dims, ErrDimension)
		}
		for _, c := range p.Coords {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return 0, fmt.Errorf("pointcluster: point %d has non-finite coordinate: %w",
					p.Index, ErrDimension)
			}
		}
		if p.Index < 0 {
			return 0, fmt.Errorf("pointcluster: point at position %d has negative index %d: %w",
				pos, p.Index, ErrInvalidIndex)
		}
		if _, dup := seen[p.Index]; dup {
			return 0, fmt.Errorf("pointcluster: duplicate point index %d: %w", p.Index, ErrInvalidIndex)
		}
		seen[p.Index] = struct{}{}
	}
	return dims, nil
}
