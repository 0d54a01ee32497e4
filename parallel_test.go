package pointcluster

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomPoints(n, dims int, span float64, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]Point, n)
	for i := range pts {
		c := make([]float64, dims)
		for d := range c {
			c[d] = rng.Float64() * span
		}
		pts[i] = Point{Index: i, Coords: c}
	}
	return pts
}

func TestBuildDistanceMatrix_BitwiseIdentical(t *testing.T) {
	pts := randomPoints(23, 2, 10, 1)
	metric, err := NewEuclideanSimilarity(8)
	if err != nil {
		t.Fatal(err)
	}

	sequential, err := BuildDistanceMatrix(pts, metric, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{2, 4, 50} {
		parallel, err := BuildDistanceMatrix(pts, metric, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i := 0; i < len(pts); i++ {
			for j := 0; j < len(pts); j++ {
				a, _ := sequential.Get(i, j)
				b, _ := parallel.Get(i, j)
				if a != b {
					t.Errorf("workers=%d: (%d,%d) = %v, expected %v (bitwise)", workers, i, j, b, a)
				}
			}
		}
	}
}

func TestBuildDistanceMatrix_Dissimilarity(t *testing.T) {
	pts := []Point{
		{Index: 0, Coords: []float64{0, 0}},
		{Index: 1, Coords: []float64{3, 4}},
		{Index: 2, Coords: []float64{30, 40}},
	}
	metric, err := NewEuclideanSimilarity(10)
	if err != nil {
		t.Fatal(err)
	}
	m, err := BuildDistanceMatrix(pts, metric, 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	if v, _ := m.Get(0, 1); !almostEqual(v, 0.5, floatTol) {
		t.Errorf("(0,1) = %v, want 0.5", v)
	}
	// Out of scale: similarity 0, dissimilarity 1.
	if v, _ := m.Get(2, 0); v != 1 {
		t.Errorf("(2,0) = %v, want 1", v)
	}
}

func TestBuildDistanceMatrix_SmallInputs(t *testing.T) {
	metric, err := NewEuclideanSimilarity(1)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{0, 1} {
		m, err := BuildDistanceMatrix(randomPoints(n, 2, 1, 3), metric, 4)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if m.Len() != n {
			t.Errorf("n=%d: Len = %d", n, m.Len())
		}
	}
}

func TestBuildDistanceMatrix_Errors(t *testing.T) {
	pts := randomPoints(4, 2, 1, 5)

	if _, err := BuildDistanceMatrix(pts, nil, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil metric: got %v, want ErrInvalidConfig", err)
	}

	bad := SimilarityFunc(func(a, b Point) float64 { return 0.5 })
	pts[2].Coords = []float64{1}
	if _, err := BuildDistanceMatrix(pts, bad, 1); !errors.Is(err, ErrDimension) {
		t.Errorf("mixed dimensions: got %v, want ErrDimension", err)
	}
}

// nanMetric returns NaN without the clamping SimilarityFunc applies.
type nanMetric struct{}

func (nanMetric) Similarity(a, b Point) float64  { return math.NaN() }
func (nanMetric) SelfSimilarity(a Point) float64 { return 0 }

func TestBuildDistanceMatrix_NaNSimilarity(t *testing.T) {
	pts := randomPoints(6, 2, 1, 9)
	for _, workers := range []int{1, 3} {
		if _, err := BuildDistanceMatrix(pts, nanMetric{}, workers); !errors.Is(err, errNaNSimilarity) {
			t.Errorf("workers=%d: got %v, want errNaNSimilarity", workers, err)
		}
	}
}
