package pointcluster

import (
	"cmp"
	"fmt"
	"strings"
)

// Candidate is the best cluster that can currently be grown around one
// centre point. Positions refer to the input slice passed to the finder.
type Candidate struct {
	// Centre is the input position of the seed point.
	Centre int
	// Members are input positions in admission order, centre first.
	Members []int
	// Diameter is the largest pairwise dissimilarity among Members.
	Diameter float64
	// SimilaritySum is the summed similarity of every non-centre member to
	// the centre.
	SimilaritySum float64
}

// Size returns the number of members.
func (c *Candidate) Size() int { return len(c.Members) }

// QualityCriterion scores candidate clusters; higher scores are extracted
// first. Ties are broken by smaller diameter, then larger size, then smaller
// centre position, so any criterion yields a deterministic order.
type QualityCriterion interface {
	Score(c *Candidate) float64
}

// QualityFunc adapts a plain function into a QualityCriterion.
type QualityFunc func(c *Candidate) float64

func (f QualityFunc) Score(c *Candidate) float64 { return f(c) }

// QualitySize prefers the candidate with the most members. It is the
// default criterion. Among candidates of equal size the one with the smaller
// diameter wins, and only equally tight ones fall back to the smaller centre
// position, so a tight pair with a high centre index is extracted before a
// loose pair with a low one.
type QualitySize struct{}

func (QualitySize) Score(c *Candidate) float64 { return float64(len(c.Members)) }

// QualityDiameter prefers the tightest candidate; equally tight candidates
// are ordered by size.
type QualityDiameter struct{}

func (QualityDiameter) Score(c *Candidate) float64 { return -c.Diameter }

// QualityCompactness prefers the candidate whose members are, in total, most
// similar to its centre. It rewards both size and closeness.
type QualityCompactness struct{}

func (QualityCompactness) Score(c *Candidate) float64 { return c.SimilaritySum }

// ParseQuality returns the built-in criterion named "size", "diameter" or
// "compactness".
func ParseQuality(name string) (QualityCriterion, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "size":
		return QualitySize{}, nil
	case "diameter":
		return QualityDiameter{}, nil
	case "compactness":
		return QualityCompactness{}, nil
	}
	return nil, fmt.Errorf("pointcluster: unknown quality criterion %q: %w", name, ErrInvalidConfig)
}

// scored is a candidate with its score cached for ordering.
type scored struct {
	cand    *Candidate
	score   float64
	version int
}

// compareScored orders a before b when a is the better candidate: higher
// score, then smaller diameter, then more members, then smaller centre.
func compareScored(a, b *scored) int {
	if c := cmp.Compare(b.score, a.score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.cand.Diameter, b.cand.Diameter); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.cand.Members), len(a.cand.Members)); c != 0 {
		return c
	}
	return cmp.Compare(a.cand.Centre, b.cand.Centre)
}

// candidateHeap is a min-heap under compareScored with lazy deletion:
// entries whose version no longer matches are skipped on pop.
type candidateHeap []*scored

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return compareScored(h[i], h[j]) < 0 }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(*scored)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
