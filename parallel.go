package pointcluster

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// BuildDistanceMatrix fills a DistanceMatrix with the pairwise
// dissimilarities (1 - similarity) of points under metric. Row i of the
// matrix corresponds to points[i].
//
// workers controls the degree of parallelism; if <= 1 the matrix is built on
// the calling goroutine. The result is bitwise identical either way.
func BuildDistanceMatrix(points []Point, metric Metric, workers int) (*DistanceMatrix, error) {
	if metric == nil {
		return nil, fmt.Errorf("pointcluster: metric is required: %w", ErrInvalidConfig)
	}
	dims, err := validatePoints(points)
	if err != nil {
		return nil, err
	}

	n := len(points)
	if n > 0 {
		if err := checkMetricDims(metric, dims); err != nil {
			return nil, err
		}
	}

	m, err := NewDistanceMatrix(n)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return m, nil
	}

	if workers <= 1 {
		if err := fillRows(m, points, metric, 0, n); err != nil {
			return nil, err
		}
		return m, nil
	}

	// Split rows across workers. Each worker handles a contiguous range of
	// source rows and computes d(i,j) for all j > i. SymDense keeps only the
	// upper triangle, so the ranges write disjoint cells.
	var g errgroup.Group
	rowsPerWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, n)
		if start >= n {
			break
		}
		g.Go(func() error {
			return fillRows(m, points, metric, start, end)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

var errNaNSimilarity = errors.New("pointcluster: metric returned NaN")

func fillRows(m *DistanceMatrix, points []Point, metric Metric, start, end int) error {
	n := len(points)
	for i := start; i < end; i++ {
		for j := i + 1; j < n; j++ {
			d := Dissimilarity(metric, points[i], points[j])
			if math.IsNaN(d) {
				return fmt.Errorf("%w for points %d and %d", errNaNSimilarity, points[i].Index, points[j].Index)
			}
			m.set(i, j, d)
		}
	}
	return nil
}
