package pointcluster

import "fmt"

// DendrogramNode records one merge step of a hierarchical clustering.
//
// Node k of a dendrogram is merge step k. Left and Right are not tree
// pointers: each is the smallest original index contained in one of the two
// merged clusters, with Left < Right. A dendrogram over n points has exactly
// n-1 nodes.
type DendrogramNode struct {
	Left     int
	Right    int
	Distance float64
}

func validateNodes(nodes []DendrogramNode, n int) error {
	if n < 1 {
		return fmt.Errorf("pointcluster: dendrogram needs n >= 1, got %d: %w", n, ErrInsufficientInput)
	}
	if len(nodes) > n-1 {
		return fmt.Errorf("pointcluster: %d nodes for %d points: %w", len(nodes), n, ErrInvalidIndex)
	}
	for k, node := range nodes {
		if node.Left < 0 || node.Right >= n || node.Left >= node.Right {
			return fmt.Errorf("pointcluster: node %d (%d,%d) invalid for %d points: %w",
				k, node.Left, node.Right, n, ErrInvalidIndex)
		}
	}
	return nil
}

// CutDistance flattens a dendrogram over points 0..n-1 by applying every
// merge whose distance is at most threshold. Groups are ordered by their
// smallest member; members are ascending.
func CutDistance(nodes []DendrogramNode, n int, threshold float64) ([][]int, error) {
	if err := validateNodes(nodes, n); err != nil {
		return nil, err
	}
	uf := NewUnionFind(n)
	for _, node := range nodes {
		if node.Distance <= threshold {
			uf.Union(node.Left, node.Right)
		}
	}
	return uf.Groups(n), nil
}

// CutCount flattens a dendrogram into k groups by applying the first n-k
// merges in chronological order.
func CutCount(nodes []DendrogramNode, n, k int) ([][]int, error) {
	if err := validateNodes(nodes, n); err != nil {
		return nil, err
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("pointcluster: cluster count %d out of range [1,%d]: %w", k, n, ErrInvalidConfig)
	}
	if len(nodes) < n-k {
		return nil, fmt.Errorf("pointcluster: %d merges cannot yield %d groups from %d points: %w",
			len(nodes), k, n, ErrInsufficientInput)
	}
	uf := NewUnionFind(n)
	for _, node := range nodes[:n-k] {
		uf.Union(node.Left, node.Right)
	}
	return uf.Groups(n), nil
}

// LinkageMatrix converts a dendrogram over points 0..n-1 into scipy's linkage
// format: each row is [left, right, distance, size], where merged clusters
// get IDs n, n+1, ... in merge order.
func LinkageMatrix(nodes []DendrogramNode, n int) ([][4]float64, error) {
	if err := validateNodes(nodes, n); err != nil {
		return nil, err
	}
	uf := NewUnionFind(n)
	result := make([][4]float64, 0, len(nodes))
	for _, node := range nodes {
		a := uf.Find(node.Left)
		b := uf.Find(node.Right)
		if a == b {
			return nil, fmt.Errorf("pointcluster: node (%d,%d) merges a cluster with itself: %w",
				node.Left, node.Right, ErrInvalidIndex)
		}
		_, size := uf.Merge(a, b)
		result = append(result, [4]float64{float64(a), float64(b), node.Distance, float64(size)})
	}
	return result, nil
}
