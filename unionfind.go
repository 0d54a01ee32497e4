package pointcluster

// UnionFind implements a disjoint-set data structure with path compression
// and union by size. It holds 2*n - 1 elements so that dendrogram cluster
// IDs (points 0..n-1, merged clusters n..2n-2) can live in the same forest.
type UnionFind struct {
	parent []int
	size   []int
	// nextLabel is the ID for the next merged cluster, starting at n.
	nextLabel int
}

// NewUnionFind creates a UnionFind for n initial elements.
func NewUnionFind(n int) *UnionFind {
	total := max(2*n-1, 1)
	parent := make([]int, total)
	size := make([]int, total)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
	}
	for i := 0; i < n; i++ {
		size[i] = 1
	}
	return &UnionFind{
		parent:    parent,
		size:      size,
		nextLabel: n,
	}
}

// Find returns the root of the set containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Union merges the sets containing x and y by attaching the smaller tree
// under the larger. Returns the new root.
func (uf *UnionFind) Union(x, y int) int {
	rootX := uf.Find(x)
	rootY := uf.Find(y)
	if rootX == rootY {
		return rootX
	}
	if uf.size[rootX] < uf.size[rootY] {
		rootX, rootY = rootY, rootX
	}
	uf.parent[rootY] = rootX
	uf.size[rootX] += uf.size[rootY]
	return rootX
}

// Merge joins the sets rooted at a and b under a fresh label (n, n+1, ...)
// and returns that label together with the merged size. a and b must be
// roots.
func (uf *UnionFind) Merge(a, b int) (label, size int) {
	label = uf.nextLabel
	size = uf.size[a] + uf.size[b]
	uf.size[label] = size
	uf.parent[a] = label
	uf.parent[b] = label
	uf.nextLabel++
	return label, size
}

// Size returns the size of the set containing x.
func (uf *UnionFind) Size(x int) int { return uf.size[uf.Find(x)] }

// Groups returns the partition of elements 0..n-1. Groups are ordered by
// their smallest member and members are ascending.
func (uf *UnionFind) Groups(n int) [][]int {
	slot := make(map[int]int)
	var groups [][]int
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		g, ok := slot[root]
		if !ok {
			g = len(groups)
			slot[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
