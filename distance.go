package pointcluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric measures the raw distance between two coordinate vectors.
// It is the building block of [ScaledSimilarity].
type DistanceMetric interface {
	Distance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// ChebyshevMetric computes the Chebyshev (L-infinity) distance. Its unit
// ball is an axis-aligned box, which makes it a natural fit for the grid.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1. Panics if P < 1.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	if m.P < 1 {
		panic("MinkowskiMetric: P must be >= 1")
	}
	return floats.Distance(a, b, m.P)
}

// WeightedEuclideanMetric scales each axis before taking the Euclidean
// distance. Use it when axes have different units, e.g. retention time in
// seconds and m/z in Thomson. Weights must have one entry per dimension.
type WeightedEuclideanMetric struct {
	Weights []float64
}

// CheckDims returns ErrDimension unless there is one weight per axis.
func (m WeightedEuclideanMetric) CheckDims(dims int) error {
	if len(m.Weights) != dims {
		return fmt.Errorf("pointcluster: weighted metric has %d weights for %d-dimensional points: %w", len(m.Weights), dims, ErrDimension)
	}
	return nil
}

func (m WeightedEuclideanMetric) Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := (a[i] - b[i]) * m.Weights[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DimsChecker is implemented by metrics that only accept points of a fixed
// dimensionality. Cluster builders call CheckDims once the input is known,
// before any distance is computed.
type DimsChecker interface {
	CheckDims(dims int) error
}

func checkMetricDims(m any, dims int) error {
	if dc, ok := m.(DimsChecker); ok {
		return dc.CheckDims(dims)
	}
	return nil
}
