package pointcluster

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Linkage selects how the distance from a freshly merged cluster to every
// other cluster is derived from the two distances it replaces.
type Linkage int

const (
	// SingleLinkage keeps the smaller of the two distances.
	SingleLinkage Linkage = iota
	// CompleteLinkage keeps the larger of the two distances.
	CompleteLinkage
	// AverageLinkage takes the size-weighted mean (UPGMA).
	AverageLinkage
)

var linkageNames = [...]string{
	SingleLinkage:   "single",
	CompleteLinkage: "complete",
	AverageLinkage:  "average",
}

func (l Linkage) valid() bool { return l >= SingleLinkage && l <= AverageLinkage }

func (l Linkage) String() string {
	if !l.valid() {
		return fmt.Sprintf("Linkage(%d)", int(l))
	}
	return linkageNames[l]
}

// ParseLinkage parses "single", "complete" or "average" (case-insensitive).
func ParseLinkage(s string) (Linkage, error) {
	for l, name := range linkageNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Linkage(l), nil
		}
	}
	return 0, fmt.Errorf("pointcluster: unknown linkage %q: %w", s, ErrInvalidConfig)
}

func (l Linkage) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("pointcluster: invalid linkage %d: %w", int(l), ErrInvalidConfig)
	}
	return []byte(l.String()), nil
}

func (l *Linkage) UnmarshalText(text []byte) error {
	v, err := ParseLinkage(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Update returns the distance from the union of clusters 1 and 2 (of sizes
// size1 and size2) to a third cluster, given the distances d1 and d2 from
// each of them to that cluster.
func (l Linkage) Update(d1, d2 float64, size1, size2 int) float64 {
	switch l {
	case CompleteLinkage:
		return max(d1, d2)
	case AverageLinkage:
		s1, s2 := float64(size1), float64(size2)
		return (s1*d1 + s2*d2) / (s1 + s2)
	default:
		return min(d1, d2)
	}
}

// Agglomerate runs hierarchical agglomerative clustering over m and returns
// the n-1 merge steps in the order they happened. Children are reported as
// the smallest row index of each merged cluster.
//
// The matrix is consumed: it is reduced to a single row on return. Use
// [DistanceMatrix.Clone] to keep the original.
func Agglomerate(m *DistanceMatrix, l Linkage) ([]DendrogramNode, error) {
	ids := make([]int, m.Len())
	for i := range ids {
		ids[i] = i
	}
	return agglomerate(context.Background(), m, l, ids, nil)
}

// agglomerate is the merge loop. ids[k] is the label reported for row k.
func agglomerate(ctx context.Context, m *DistanceMatrix, l Linkage, ids []int, log *Logger) ([]DendrogramNode, error) {
	n := m.Len()
	if n < 2 {
		return nil, fmt.Errorf("pointcluster: linkage needs at least 2 points, have %d: %w", n, ErrInsufficientInput)
	}
	if !l.valid() {
		return nil, fmt.Errorf("pointcluster: invalid linkage %d: %w", int(l), ErrInvalidConfig)
	}
	if len(ids) != n {
		return nil, fmt.Errorf("pointcluster: %d labels for %d rows: %w", len(ids), n, ErrInvalidIndex)
	}
	log = log.orNoop()

	reps := slices.Clone(ids)
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = 1
	}

	nodes := make([]DendrogramNode, 0, n-1)
	for m.Len() > 1 {
		// FindMin returns i < j, so row i keeps its position after Reduce(j).
		i, j, d, err := m.FindMin()
		if err != nil {
			return nil, err
		}

		node := DendrogramNode{
			Left:     min(reps[i], reps[j]),
			Right:    max(reps[i], reps[j]),
			Distance: d,
		}
		log.LogMerge(ctx, len(nodes), node)
		nodes = append(nodes, node)

		for k := 0; k < m.Len(); k++ {
			if k == i || k == j {
				continue
			}
			m.set(i, k, l.Update(m.at(i, k), m.at(j, k), sizes[i], sizes[j]))
		}
		sizes[i] += sizes[j]
		reps[i] = node.Left

		if err := m.Reduce(j); err != nil {
			return nil, err
		}
		sizes = slices.Delete(sizes, j, j+1)
		reps = slices.Delete(reps, j, j+1)
	}
	return nodes, nil
}

// HierarchicalConfig controls a hierarchical clustering run.
// Start with [DefaultHierarchicalConfig] and override the fields you need.
type HierarchicalConfig struct {
	// Metric scores pairs of points. Matrix entries are 1 - similarity.
	// Required.
	Metric Metric

	// Linkage is the merge rule. Default: SingleLinkage.
	Linkage Linkage

	// Workers controls the number of goroutines used to fill the distance
	// matrix. 0 means runtime.NumCPU(). The merge loop itself is sequential.
	Workers int

	// Logger receives per-run and per-merge records. nil disables logging.
	Logger *Logger
}

// DefaultHierarchicalConfig returns a HierarchicalConfig with reasonable
// defaults. Metric still has to be set.
func DefaultHierarchicalConfig() HierarchicalConfig {
	return HierarchicalConfig{
		Linkage: SingleLinkage,
	}
}

func (cfg *HierarchicalConfig) applyDefaults() {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func (cfg *HierarchicalConfig) validate() error {
	if cfg.Metric == nil {
		return fmt.Errorf("pointcluster: Metric is required: %w", ErrInvalidConfig)
	}
	if !cfg.Linkage.valid() {
		return fmt.Errorf("pointcluster: invalid Linkage %d: %w", int(cfg.Linkage), ErrInvalidConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("pointcluster: Workers must be >= 0, got %d: %w", cfg.Workers, ErrInvalidConfig)
	}
	return nil
}

// Hierarchical clusters points with the configured metric and linkage.
// Node children are Point.Index values: each is the smallest caller index
// in one of the two merged clusters.
func Hierarchical(points []Point, cfg HierarchicalConfig) ([]DendrogramNode, error) {
	return HierarchicalContext(context.Background(), points, cfg)
}

// HierarchicalContext is Hierarchical with a context for log records. The
// run itself is not cancellable.
func HierarchicalContext(ctx context.Context, points []Point, cfg HierarchicalConfig) ([]DendrogramNode, error) {
	start := time.Now()
	log := cfg.Logger.orNoop().WithRun()

	nodes, err := hierarchical(ctx, points, cfg, log)
	log.LogRun(ctx, "hierarchical", len(points), len(nodes), time.Since(start), err)
	return nodes, err
}

func hierarchical(ctx context.Context, points []Point, cfg HierarchicalConfig, log *Logger) ([]DendrogramNode, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("pointcluster: linkage needs at least 2 points, have %d: %w", len(points), ErrInsufficientInput)
	}

	m, err := BuildDistanceMatrix(points, cfg.Metric, cfg.Workers)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(points))
	for i, p := range points {
		ids[i] = p.Index
	}
	return agglomerate(ctx, m, cfg.Linkage, ids, log)
}
