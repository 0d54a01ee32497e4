package pointcluster

import "github.com/RoaringBitmap/roaring/v2"

// pool tracks the input positions that have not been assigned to a cluster
// yet. Reads are safe for concurrent use; removals are not.
type pool struct {
	bm *roaring.Bitmap
}

func newPool(n int) *pool {
	bm := roaring.New()
	bm.AddRange(0, uint64(n))
	return &pool{bm: bm}
}

func (p *pool) contains(pos int) bool { return p.bm.Contains(uint32(pos)) }

// containsAll reports whether every position is still pooled.
func (p *pool) containsAll(positions []int) bool {
	for _, pos := range positions {
		if !p.contains(pos) {
			return false
		}
	}
	return true
}

func (p *pool) remove(positions []int) {
	for _, pos := range positions {
		p.bm.Remove(uint32(pos))
	}
}

func (p *pool) len() int { return int(p.bm.GetCardinality()) }

func (p *pool) empty() bool { return p.bm.IsEmpty() }

// collect returns the pooled positions among the given sets as a sorted,
// duplicate-free slice.
func (p *pool) collect(sets ...[]int) []int {
	acc := roaring.New()
	for _, s := range sets {
		for _, pos := range s {
			acc.Add(uint32(pos))
		}
	}
	acc.And(p.bm)
	out := make([]int, 0, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
