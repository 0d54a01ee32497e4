package pointcluster

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"
)

// BoundingBox is an axis-aligned box. Min and Max have one entry per
// dimension.
type BoundingBox struct {
	Min []float64
	Max []float64
}

// Contains reports whether coords lies inside the box, boundary included.
func (b BoundingBox) Contains(coords []float64) bool {
	if len(coords) != len(b.Min) {
		return false
	}
	for d, c := range coords {
		if c < b.Min[d] || c > b.Max[d] {
			return false
		}
	}
	return true
}

// Bound returns the box projected onto its first two axes. A
// one-dimensional box gets a zero second axis.
func (b BoundingBox) Bound() orb.Bound {
	var lo, hi orb.Point
	for d := 0; d < len(b.Min) && d < 2; d++ {
		lo[d], hi[d] = b.Min[d], b.Max[d]
	}
	return orb.Bound{Min: lo, Max: hi}
}

// GridCluster is one flat cluster produced by the quality-threshold finder.
// It is not modified after it is returned.
type GridCluster struct {
	// Centre is a copy of the seed point the cluster was grown around.
	Centre Point
	// Centroid is the per-axis mean of the member positions.
	Centroid []float64
	// Box is the bounding box of the member positions.
	Box BoundingBox
	// Members are caller indices in admission order, centre first.
	Members []int
	// MemberTags[i] is the tag of Members[i].
	MemberTags []int
	// Tag is the common tag of all members; valid only when Tagged is true.
	Tag    int
	Tagged bool
	// Diameter is the largest pairwise dissimilarity among members.
	Diameter float64
	// Quality is the criterion score the cluster was selected with.
	Quality float64
}

// Size returns the number of members.
func (c *GridCluster) Size() int { return len(c.Members) }

// newGridCluster materializes a candidate over the input points.
func newGridCluster(points []Point, cand *Candidate, score float64) GridCluster {
	dims := len(points[cand.Centre].Coords)
	n := len(cand.Members)

	gc := GridCluster{
		Centre:     points[cand.Centre].clone(),
		Centroid:   make([]float64, dims),
		Box:        BoundingBox{Min: make([]float64, dims), Max: make([]float64, dims)},
		Members:    make([]int, n),
		MemberTags: make([]int, n),
		Tag:        points[cand.Centre].Tag,
		Tagged:     true,
		Diameter:   cand.Diameter,
		Quality:    score,
	}

	axis := make([]float64, n)
	for d := 0; d < dims; d++ {
		for i, pos := range cand.Members {
			axis[i] = points[pos].Coords[d]
		}
		gc.Centroid[d] = stat.Mean(axis, nil)
		gc.Box.Min[d], gc.Box.Max[d] = axis[0], axis[0]
		for _, v := range axis[1:] {
			gc.Box.Min[d] = min(gc.Box.Min[d], v)
			gc.Box.Max[d] = max(gc.Box.Max[d], v)
		}
	}

	for i, pos := range cand.Members {
		p := points[pos]
		gc.Members[i] = p.Index
		gc.MemberTags[i] = p.Tag
		if p.Tag != gc.Tag {
			gc.Tagged = false
		}
	}
	if !gc.Tagged {
		gc.Tag = 0
	}
	return gc
}
