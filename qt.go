package pointcluster

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the smallest number of candidates worth spreading
// across goroutines.
const parallelThreshold = 64

// TagPolicy controls how point tags restrict cluster membership.
type TagPolicy int

const (
	// TagIgnore treats tags as opaque payload.
	TagIgnore TagPolicy = iota
	// TagMatch only admits members whose tag equals the centre's tag.
	TagMatch
	// TagUnique admits at most one member per tag, e.g. one observation
	// per run.
	TagUnique
)

var tagPolicyNames = [...]string{
	TagIgnore: "ignore",
	TagMatch:  "match",
	TagUnique: "unique",
}

func (t TagPolicy) valid() bool { return t >= TagIgnore && t <= TagUnique }

func (t TagPolicy) String() string {
	if !t.valid() {
		return fmt.Sprintf("TagPolicy(%d)", int(t))
	}
	return tagPolicyNames[t]
}

// ParseTagPolicy parses "ignore", "match" or "unique" (case-insensitive).
func ParseTagPolicy(s string) (TagPolicy, error) {
	for t, name := range tagPolicyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return TagPolicy(t), nil
		}
	}
	return 0, fmt.Errorf("pointcluster: unknown tag policy %q: %w", s, ErrInvalidConfig)
}

func (t TagPolicy) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("pointcluster: invalid tag policy %d: %w", int(t), ErrInvalidConfig)
	}
	return []byte(t.String()), nil
}

func (t *TagPolicy) UnmarshalText(text []byte) error {
	v, err := ParseTagPolicy(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// QTConfig controls quality-threshold clustering.
// Start with [DefaultQTConfig] and override the fields you need.
type QTConfig struct {
	// Metric scores pairs of points. Two points can only share a cluster
	// when their similarity is > 0. Required.
	Metric Metric

	// Radius is the neighbour search radius in coordinate units. It must
	// cover the support of Metric: every pair with similarity > 0 must lie
	// within Radius on each axis. 0 means Metric's Scale(); required when
	// Metric does not implement Scaler.
	Radius float64

	// CellSize is the edge length of the spatial grid cells. Cells much
	// smaller than Radius make each query visit many cells; much larger
	// cells degrade towards a linear scan. 0 means Radius.
	CellSize float64

	// MaxDiameter bounds the largest pairwise dissimilarity (1 - similarity)
	// inside a cluster. Must be in (0, 1]. 0 means 1, i.e. every pair only
	// has to be within the metric's scale.
	MaxDiameter float64

	// Quality orders candidate clusters. Default: QualitySize.
	Quality QualityCriterion

	// TagPolicy restricts membership by point tag. Default: TagIgnore.
	TagPolicy TagPolicy

	// Workers controls the number of goroutines used to evaluate candidate
	// clusters. 0 means runtime.NumCPU(). Output does not depend on it.
	Workers int

	// Logger receives per-run and per-cluster records. nil disables logging.
	Logger *Logger
}

// DefaultQTConfig returns a QTConfig for metric with every other field at
// its default.
func DefaultQTConfig(metric Metric) QTConfig {
	return QTConfig{
		Metric:      metric,
		MaxDiameter: 1,
		Quality:     QualitySize{},
		TagPolicy:   TagIgnore,
	}
}

func (cfg *QTConfig) applyDefaults() {
	if cfg.Radius == 0 {
		if s, ok := cfg.Metric.(Scaler); ok {
			cfg.Radius = s.Scale()
		}
	}
	if cfg.CellSize == 0 {
		cfg.CellSize = cfg.Radius
	}
	if cfg.MaxDiameter == 0 {
		cfg.MaxDiameter = 1
	}
	if cfg.Quality == nil {
		cfg.Quality = QualitySize{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func (cfg *QTConfig) validate() error {
	if cfg.Metric == nil {
		return fmt.Errorf("pointcluster: Metric is required: %w", ErrInvalidConfig)
	}
	if !(cfg.Radius > 0) || math.IsInf(cfg.Radius, 0) {
		return fmt.Errorf("pointcluster: Radius must be positive and finite (set it when Metric has no Scale), got %v: %w", cfg.Radius, ErrInvalidConfig)
	}
	if !(cfg.CellSize > 0) || math.IsInf(cfg.CellSize, 0) {
		return fmt.Errorf("pointcluster: CellSize must be positive and finite, got %v: %w", cfg.CellSize, ErrInvalidConfig)
	}
	if !(cfg.MaxDiameter > 0 && cfg.MaxDiameter <= 1) {
		return fmt.Errorf("pointcluster: MaxDiameter must be in (0,1], got %v: %w", cfg.MaxDiameter, ErrInvalidConfig)
	}
	if !cfg.TagPolicy.valid() {
		return fmt.Errorf("pointcluster: invalid TagPolicy %d: %w", int(cfg.TagPolicy), ErrInvalidConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("pointcluster: Workers must be >= 0, got %d: %w", cfg.Workers, ErrInvalidConfig)
	}
	return nil
}

// QTFinder extracts disjoint, bounded-diameter clusters from a point set
// using a spatial grid. A finder holds only configuration; each Find call
// builds and owns its own grid and pool.
type QTFinder struct {
	cfg QTConfig
}

// NewQTFinder validates cfg and returns a finder.
func NewQTFinder(cfg QTConfig) (*QTFinder, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &QTFinder{cfg: cfg}, nil
}

// Config returns the effective configuration, defaults applied.
func (f *QTFinder) Config() QTConfig { return f.cfg }

// FindClusters is shorthand for NewQTFinder(cfg) followed by Find(points).
func FindClusters(points []Point, cfg QTConfig) ([]GridCluster, error) {
	f, err := NewQTFinder(cfg)
	if err != nil {
		return nil, err
	}
	return f.Find(points)
}

// Find partitions points into clusters. Every Point.Index appears in exactly
// one cluster; a point without neighbours becomes a singleton. Clusters are
// returned in extraction order, best first.
func (f *QTFinder) Find(points []Point) ([]GridCluster, error) {
	return f.FindContext(context.Background(), points)
}

// FindContext is Find with a context for log records. The run itself is not
// cancellable.
func (f *QTFinder) FindContext(ctx context.Context, points []Point) ([]GridCluster, error) {
	start := time.Now()
	log := f.cfg.Logger.orNoop().WithRun()

	clusters, err := f.find(ctx, points, log)
	log.LogRun(ctx, "quality-threshold", len(points), len(clusters), time.Since(start), err)
	return clusters, err
}

// qtRun is the per-call state of a quality-threshold run.
type qtRun struct {
	cfg    *QTConfig
	points []Point
	// nbrs[i] are the input positions linked to points[i] by a similarity
	// > 0 in either direction, ascending; sims[i][k] is the similarity of
	// points[i] to nbrs[i][k].
	nbrs [][]int
	sims [][]float64
	pool *pool
}

// newRun validates points, buckets them into a grid and precomputes every
// neighbourhood. points must not be empty.
func (f *QTFinder) newRun(points []Point) (*qtRun, error) {
	dims, err := validatePoints(points)
	if err != nil {
		return nil, err
	}
	if err := checkMetricDims(f.cfg.Metric, dims); err != nil {
		return nil, err
	}
	grid, err := NewGrid(dims, f.cfg.CellSize)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		if err := grid.Insert(p); err != nil {
			return nil, err
		}
	}

	r := &qtRun{
		cfg:    &f.cfg,
		points: points,
		nbrs:   make([][]int, len(points)),
		sims:   make([][]float64, len(points)),
		pool:   newPool(len(points)),
	}
	r.buildNeighbourhoods(grid)
	return r, nil
}

func (f *QTFinder) find(ctx context.Context, points []Point, log *Logger) ([]GridCluster, error) {
	if len(points) == 0 {
		return []GridCluster{}, nil
	}
	r, err := f.newRun(points)
	if err != nil {
		return nil, err
	}

	// From here on nothing can fail.
	version := make([]int, len(points))
	all := make([]int, len(points))
	for i := range all {
		all[i] = i
	}
	h := candidateHeap(r.evaluate(all, version))
	heap.Init(&h)

	clusters := make([]GridCluster, 0)
	for !r.pool.empty() {
		best := heap.Pop(&h).(*scored)
		c := best.cand.Centre
		if !r.pool.contains(c) || best.version != version[c] {
			continue
		}
		if !r.pool.containsAll(best.cand.Members) {
			// A member went to a cluster whose neighbourhoods did not
			// reach c. Regrow from the current pool.
			version[c]++
			heap.Push(&h, r.evaluate([]int{c}, version)[0])
			continue
		}

		gc := newGridCluster(points, best.cand, best.score)
		r.pool.remove(best.cand.Members)
		clusters = append(clusters, gc)
		log.LogExtract(ctx, &gc, r.pool.len())

		affected := make([][]int, len(best.cand.Members))
		for i, m := range best.cand.Members {
			affected[i] = r.nbrs[m]
		}
		stale := r.pool.collect(affected...)
		for _, pos := range stale {
			version[pos]++
		}
		for _, s := range r.evaluate(stale, version) {
			heap.Push(&h, s)
		}
	}
	return clusters, nil
}

// forEach calls fn(k) for k in [0, n). Large batches are split into
// contiguous blocks across cfg.Workers goroutines; fn must only write to
// slots owned by k.
func (r *qtRun) forEach(n int, fn func(k int)) {
	workers := min(r.cfg.Workers, n)
	if n < parallelThreshold || workers <= 1 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}

	var g errgroup.Group
	perWorker := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := min(start+perWorker, n)
		if start >= n {
			break
		}
		g.Go(func() error {
			for k := start; k < end; k++ {
				fn(k)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// buildNeighbourhoods fills nbrs and sims from the grid. Neighbour lists
// are computed once; later rounds only filter them against the pool.
//
// The lists are symmetric: j is in nbrs[i] exactly when i is in nbrs[j].
// Extraction relies on this to find every candidate a removed point may
// have belonged to, even when the metric or the grid query is not
// symmetric. sims[i][k] is Similarity(points[i], points[nbrs[i][k]]) and
// may be 0 for a one-way link.
func (r *qtRun) buildNeighbourhoods(grid *Grid) {
	pos := make(map[int]int, len(r.points))
	for i, p := range r.points {
		pos[p.Index] = i
	}

	r.forEach(len(r.points), func(i int) {
		// Every point is in the grid, so the lookup cannot fail.
		cand, _ := grid.Neighbors(r.points[i].Index, r.cfg.Radius)
		nb := make([]int, 0, len(cand))
		for _, idx := range cand {
			nb = append(nb, pos[idx])
		}
		// Grid order is by caller index; candidates grow by input position.
		slices.Sort(nb)

		var keep []int
		var sims []float64
		for _, j := range nb {
			s := r.cfg.Metric.Similarity(r.points[i], r.points[j])
			if s > 0 || r.cfg.Metric.Similarity(r.points[j], r.points[i]) > 0 {
				keep = append(keep, j)
				sims = append(sims, s)
			}
		}
		r.nbrs[i], r.sims[i] = keep, sims
	})

	// Add the reverse of every link the grid query only found one way.
	missing := make([][]int, len(r.points))
	for i, nb := range r.nbrs {
		for _, j := range nb {
			if _, found := slices.BinarySearch(r.nbrs[j], i); !found {
				missing[j] = append(missing[j], i)
			}
		}
	}
	r.forEach(len(r.points), func(j int) {
		if len(missing[j]) == 0 {
			return
		}
		nb := append(slices.Clone(r.nbrs[j]), missing[j]...)
		slices.Sort(nb)
		sims := make([]float64, len(nb))
		for k, i := range nb {
			sims[k] = r.cfg.Metric.Similarity(r.points[j], r.points[i])
		}
		r.nbrs[j], r.sims[j] = nb, sims
	})
}

// evaluate computes fresh candidates for the given centres, stamped with
// their current version. The result is in the order of centres.
func (r *qtRun) evaluate(centres []int, version []int) []*scored {
	out := make([]*scored, len(centres))
	r.forEach(len(centres), func(k int) {
		c := centres[k]
		cand := r.grow(c)
		out[k] = &scored{cand: cand, score: r.cfg.Quality.Score(cand), version: version[c]}
	})
	return out
}

// grow builds the candidate cluster around centre c from the current pool.
// Each step admits the eligible neighbour whose largest dissimilarity to the
// members so far is smallest (ties to the smaller position), until that
// value would exceed MaxDiameter.
func (r *qtRun) grow(c int) *Candidate {
	centre := r.points[c]
	cand := &Candidate{Centre: c, Members: []int{c}}

	var opts []int
	var worst []float64 // worst[k]: max dissimilarity of opts[k] to members
	var sims []float64
	for k, j := range r.nbrs[c] {
		if !r.pool.contains(j) {
			continue
		}
		switch r.cfg.TagPolicy {
		case TagMatch:
			if r.points[j].Tag != centre.Tag {
				continue
			}
		case TagUnique:
			if r.points[j].Tag == centre.Tag {
				continue
			}
		}
		opts = append(opts, j)
		worst = append(worst, 1-r.sims[c][k])
		sims = append(sims, r.sims[c][k])
	}

	taken := make([]bool, len(opts))
	var usedTags map[int]struct{}
	if r.cfg.TagPolicy == TagUnique {
		usedTags = map[int]struct{}{centre.Tag: {}}
	}

	for {
		pick := -1
		for k := range opts {
			if taken[k] {
				continue
			}
			if usedTags != nil {
				if _, used := usedTags[r.points[opts[k]].Tag]; used {
					continue
				}
			}
			if pick < 0 || worst[k] < worst[pick] {
				pick = k
			}
		}
		if pick < 0 || worst[pick] > r.cfg.MaxDiameter || worst[pick] >= 1 {
			return cand
		}

		p := opts[pick]
		taken[pick] = true
		cand.Members = append(cand.Members, p)
		cand.Diameter = max(cand.Diameter, worst[pick])
		cand.SimilaritySum += sims[pick]
		if usedTags != nil {
			usedTags[r.points[p].Tag] = struct{}{}
		}

		for k := range opts {
			if taken[k] {
				continue
			}
			if d := Dissimilarity(r.cfg.Metric, r.points[p], r.points[opts[k]]); d > worst[k] {
				worst[k] = d
			}
		}
	}
}
