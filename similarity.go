package pointcluster

import (
	"fmt"
	"math"
)

// Metric maps a pair of points to a similarity in [0, 1], where 1 means
// identical positions and 0 means "too far apart to be the same entity".
//
// SelfSimilarity is defined as 0: comparing a point with itself carries no
// information about its neighbourhood.
type Metric interface {
	Similarity(a, b Point) float64
	SelfSimilarity(a Point) float64
}

// Scaler is implemented by metrics that have a maximum meaningful distance.
// Cluster finders use it to size their spatial grid.
type Scaler interface {
	Scale() float64
}

// Dissimilarity returns 1 - m.Similarity(a, b). It is the distance used by
// the linkage and quality-threshold algorithms.
func Dissimilarity(m Metric, a, b Point) float64 {
	return 1 - m.Similarity(a, b)
}

// ScaledSimilarity turns a DistanceMetric into a Metric by mapping
// distance 0 to similarity 1 and distances at or beyond the scale to 0.
type ScaledSimilarity struct {
	dist  DistanceMetric
	scale float64
}

// NewScaledSimilarity returns a similarity over dist with the given scale.
// A nil dist defaults to EuclideanMetric.
func NewScaledSimilarity(dist DistanceMetric, scale float64) (*ScaledSimilarity, error) {
	if dist == nil {
		dist = EuclideanMetric{}
	}
	s := &ScaledSimilarity{dist: dist}
	if err := s.SetScale(scale); err != nil {
		return nil, err
	}
	return s, nil
}

// NewEuclideanSimilarity is shorthand for NewScaledSimilarity(EuclideanMetric{}, scale).
func NewEuclideanSimilarity(scale float64) (*ScaledSimilarity, error) {
	return NewScaledSimilarity(EuclideanMetric{}, scale)
}

// SetScale sets the distance that maps to similarity 0. The previous scale is
// kept when x is rejected.
func (s *ScaledSimilarity) SetScale(x float64) error {
	if x == 0 {
		return fmt.Errorf("pointcluster: similarity scale must be non-zero: %w", ErrDivisionByZero)
	}
	if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("pointcluster: similarity scale must be positive and finite, got %v: %w", x, ErrInvalidScale)
	}
	s.scale = x
	return nil
}

// Scale returns the configured scale.
func (s *ScaledSimilarity) Scale() float64 { return s.scale }

// Distance returns the raw distance between a and b under the wrapped metric.
func (s *ScaledSimilarity) Distance(a, b Point) float64 {
	return s.dist.Distance(a.Coords, b.Coords)
}

// CheckDims forwards to the wrapped metric when it has a fixed
// dimensionality.
func (s *ScaledSimilarity) CheckDims(dims int) error { return checkMetricDims(s.dist, dims) }

func (s *ScaledSimilarity) Similarity(a, b Point) float64 {
	d := s.dist.Distance(a.Coords, b.Coords)
	if math.IsNaN(d) || d >= s.scale {
		return 0
	}
	return 1 - d/s.scale
}

func (s *ScaledSimilarity) SelfSimilarity(Point) float64 { return 0 }

// SimilarityFunc adapts an externally supplied pairwise similarity into a
// Metric. Results outside [0, 1] are clamped.
type SimilarityFunc func(a, b Point) float64

func (f SimilarityFunc) Similarity(a, b Point) float64 {
	v := f(a, b)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (f SimilarityFunc) SelfSimilarity(Point) float64 { return 0 }

// ScaledSimilarityFunc is a SimilarityFunc with a known support radius, so it
// can drive a cluster finder without an explicit grid radius.
type ScaledSimilarityFunc struct {
	Func   SimilarityFunc
	Radius float64
}

func (f ScaledSimilarityFunc) Similarity(a, b Point) float64 { return f.Func.Similarity(a, b) }
func (f ScaledSimilarityFunc) SelfSimilarity(Point) float64  { return 0 }
func (f ScaledSimilarityFunc) Scale() float64                { return f.Radius }
