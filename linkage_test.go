package pointcluster

import (
	"bytes"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPairs is four points forming two tight pairs far apart.
func twoPairs() []Point {
	return []Point{
		pt(0, 0, 0),
		pt(1, 0, 1),
		pt(2, 5, 5),
		pt(3, 5, 6),
	}
}

func euclid(a, b []float64) float64 {
	return math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]))
}

func mustEuclidean(t testing.TB, scale float64) *ScaledSimilarity {
	t.Helper()
	m, err := NewEuclideanSimilarity(scale)
	require.NoError(t, err)
	return m
}

func TestLinkage_Update(t *testing.T) {
	assert.Equal(t, 2.0, SingleLinkage.Update(2, 5, 1, 3))
	assert.Equal(t, 5.0, CompleteLinkage.Update(2, 5, 1, 3))
	// (1*2 + 3*6) / 4 = 5
	assert.Equal(t, 5.0, AverageLinkage.Update(2, 6, 1, 3))
	assert.Equal(t, 4.0, AverageLinkage.Update(2, 6, 1, 1))
}

func TestLinkage_ParseAndText(t *testing.T) {
	for _, l := range []Linkage{SingleLinkage, CompleteLinkage, AverageLinkage} {
		text, err := l.MarshalText()
		require.NoError(t, err)

		var got Linkage
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, l, got)
	}

	l, err := ParseLinkage(" Complete ")
	require.NoError(t, err)
	assert.Equal(t, CompleteLinkage, l)

	_, err = ParseLinkage("ward")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "Linkage(7)", Linkage(7).String())
}

func TestHierarchical_TwoPairsFixture(t *testing.T) {
	pts := twoPairs()
	d := func(i, j int) float64 { return euclid(pts[i].Coords, pts[j].Coords) / 10 }

	tests := []struct {
		linkage Linkage
		last    float64
	}{
		{SingleLinkage, d(1, 2)},
		{CompleteLinkage, d(0, 3)},
		{AverageLinkage, (d(0, 2) + d(0, 3) + d(1, 2) + d(1, 3)) / 4},
	}
	for _, tt := range tests {
		t.Run(tt.linkage.String(), func(t *testing.T) {
			cfg := DefaultHierarchicalConfig()
			cfg.Metric = mustEuclidean(t, 10)
			cfg.Linkage = tt.linkage

			nodes, err := Hierarchical(pts, cfg)
			require.NoError(t, err)
			require.Len(t, nodes, 3)

			assert.Equal(t, 0, nodes[0].Left)
			assert.Equal(t, 1, nodes[0].Right)
			assert.InDelta(t, 0.1, nodes[0].Distance, 1e-9)

			assert.Equal(t, 2, nodes[1].Left)
			assert.Equal(t, 3, nodes[1].Right)
			assert.InDelta(t, 0.1, nodes[1].Distance, 1e-9)

			assert.Equal(t, 0, nodes[2].Left)
			assert.Equal(t, 2, nodes[2].Right)
			assert.InDelta(t, tt.last, nodes[2].Distance, 1e-9)
		})
	}
}

func TestAgglomerate_RuleAppliedToMatrix(t *testing.T) {
	table := [][]float64{
		{0, 1, 4, 8},
		{1, 0, 6, 2},
		{4, 6, 0, 9},
		{8, 2, 9, 0},
	}
	tests := []struct {
		linkage Linkage
		want    []DendrogramNode
	}{
		// Merge (0,1) at 1: row to 2 becomes min(4,6)=4, to 3 min(8,2)=2.
		// Then (01,3) at 2: to 2 becomes min(4,9)=4.
		{SingleLinkage, []DendrogramNode{{0, 1, 1}, {0, 3, 2}, {0, 2, 4}}},
		// Merge (0,1) at 1: to 2 max(4,6)=6, to 3 max(8,2)=8. Then (01,2)
		// at 6: to 3 max(8,9)=9.
		{CompleteLinkage, []DendrogramNode{{0, 1, 1}, {0, 2, 6}, {0, 3, 9}}},
		// Merge (0,1) at 1: to 2 mean(4,6)=5, to 3 mean(8,2)=5. Tie on
		// (01,2) and (01,3): smallest j wins. Then to 3: (2*5+1*9)/3.
		{AverageLinkage, []DendrogramNode{{0, 1, 1}, {0, 2, 5}, {0, 3, 19.0 / 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.linkage.String(), func(t *testing.T) {
			nodes, err := Agglomerate(fillMatrix(t, table), tt.linkage)
			require.NoError(t, err)
			require.Len(t, nodes, len(tt.want))
			for k := range tt.want {
				assert.Equal(t, tt.want[k].Left, nodes[k].Left, "node %d left", k)
				assert.Equal(t, tt.want[k].Right, nodes[k].Right, "node %d right", k)
				assert.InDelta(t, tt.want[k].Distance, nodes[k].Distance, floatTol, "node %d distance", k)
			}
		})
	}
}

func TestAgglomerate_ConsumesMatrix(t *testing.T) {
	m := fillMatrix(t, [][]float64{
		{0, 1, 2},
		{1, 0, 3},
		{2, 3, 0},
	})
	_, err := Agglomerate(m, SingleLinkage)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestAgglomerate_InsufficientInput(t *testing.T) {
	for _, n := range []int{0, 1} {
		m, err := NewDistanceMatrix(n)
		require.NoError(t, err)
		_, err = Agglomerate(m, SingleLinkage)
		assert.ErrorIs(t, err, ErrInsufficientInput)
		assert.Equal(t, n, m.Len())
	}
}

func TestAgglomerate_InvalidLinkageLeavesMatrix(t *testing.T) {
	m := fillMatrix(t, [][]float64{
		{0, 1, 2},
		{1, 0, 3},
		{2, 3, 0},
	})
	_, err := Agglomerate(m, Linkage(42))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 3, m.Len())
}

func TestHierarchical_SinglePoint(t *testing.T) {
	cfg := DefaultHierarchicalConfig()
	cfg.Metric = mustEuclidean(t, 1)
	_, err := Hierarchical([]Point{pt(0, 1, 1)}, cfg)
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestHierarchical_NMinusOneNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{2, 3, 10, 37} {
		pts := make([]Point, n)
		for i := range pts {
			pts[i] = pt(i, rng.Float64()*20, rng.Float64()*20)
		}
		for _, l := range []Linkage{SingleLinkage, CompleteLinkage, AverageLinkage} {
			cfg := DefaultHierarchicalConfig()
			cfg.Metric = mustEuclidean(t, 30)
			cfg.Linkage = l
			nodes, err := Hierarchical(pts, cfg)
			require.NoError(t, err)
			require.Len(t, nodes, n-1, "n=%d linkage=%v", n, l)

			for k, node := range nodes {
				assert.Less(t, node.Left, node.Right, "node %d", k)
			}
			groups, err := CutCount(nodes, n, 1)
			require.NoError(t, err)
			assert.Len(t, groups, 1, "all merges must end in one cluster")
		}
	}
}

func TestHierarchical_ReportsCallerIndices(t *testing.T) {
	pts := twoPairs()
	for i := range pts {
		pts[i].Index = 10 - i // 10, 9, 8, 7
	}
	cfg := DefaultHierarchicalConfig()
	cfg.Metric = mustEuclidean(t, 10)

	nodes, err := Hierarchical(pts, cfg)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, DendrogramNode{Left: 9, Right: 10, Distance: nodes[0].Distance}, nodes[0])
	assert.Equal(t, DendrogramNode{Left: 7, Right: 8, Distance: nodes[1].Distance}, nodes[1])
	assert.Equal(t, 7, nodes[2].Left)
	assert.Equal(t, 9, nodes[2].Right)
}

func TestHierarchical_Deterministic(t *testing.T) {
	// A square lattice is full of distance ties.
	var pts []Point
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			pts = append(pts, pt(len(pts), float64(x), float64(y)))
		}
	}
	run := func(workers int) []DendrogramNode {
		cfg := DefaultHierarchicalConfig()
		cfg.Metric = mustEuclidean(t, 10)
		cfg.Linkage = AverageLinkage
		cfg.Workers = workers
		nodes, err := Hierarchical(pts, cfg)
		require.NoError(t, err)
		return nodes
	}
	first := run(1)
	assert.Equal(t, first, run(1))
	assert.Equal(t, first, run(4))
}

func TestHierarchical_ConfigValidation(t *testing.T) {
	pts := twoPairs()

	cfg := DefaultHierarchicalConfig()
	_, err := Hierarchical(pts, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "missing metric")

	cfg.Metric = mustEuclidean(t, 1)
	cfg.Linkage = Linkage(-1)
	_, err = Hierarchical(pts, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Linkage = SingleLinkage
	cfg.Workers = -2
	_, err = Hierarchical(pts, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHierarchical_InvalidPoints(t *testing.T) {
	cfg := DefaultHierarchicalConfig()
	cfg.Metric = mustEuclidean(t, 1)

	_, err := Hierarchical([]Point{pt(0, 1, 2), pt(1, 1)}, cfg)
	assert.ErrorIs(t, err, ErrDimension)

	_, err = Hierarchical([]Point{pt(3, 1, 2), pt(3, 1, 1)}, cfg)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestHierarchical_WeightsMustMatchDims(t *testing.T) {
	metric, err := NewScaledSimilarity(WeightedEuclideanMetric{Weights: []float64{1}}, 2)
	require.NoError(t, err)
	cfg := DefaultHierarchicalConfig()
	cfg.Metric = metric

	for _, workers := range []int{1, 4} {
		cfg.Workers = workers
		_, err = Hierarchical(twoPairs(), cfg)
		assert.ErrorIs(t, err, ErrDimension)
	}
}

func TestHierarchical_LogsMerges(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultHierarchicalConfig()
	cfg.Metric = mustEuclidean(t, 10)
	cfg.Logger = NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Hierarchical(twoPairs(), cfg)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "msg=merge"))
	assert.Contains(t, out, "clustering run completed")
	assert.Contains(t, out, "mode=hierarchical")
}
