// Package pointcluster groups point observations that describe the same
// underlying entity, for example the same analyte seen in several runs at
// slightly different retention time and m/z positions.
//
// Two clustering modes are provided.
//
// Hierarchical mode builds a dense distance matrix and agglomerates it with
// single, complete or average linkage. The result is a flat dendrogram: one
// [DendrogramNode] per merge step, whose children are the smallest original
// point index of each merged cluster.
//
//	cfg := pointcluster.DefaultHierarchicalConfig()
//	cfg.Metric, _ = pointcluster.NewEuclideanSimilarity(10)
//	cfg.Linkage = pointcluster.AverageLinkage
//	nodes, err := pointcluster.Hierarchical(points, cfg)
//	groups, err := pointcluster.CutDistance(nodes, len(points), 0.3)
//
// Flat mode runs quality-threshold clustering over a spatial hash grid and
// never materializes the full distance matrix. Every input index ends up in
// exactly one [GridCluster]:
//
//	metric, _ := pointcluster.NewEuclideanSimilarity(5)
//	clusters, err := pointcluster.FindClusters(points, pointcluster.DefaultQTConfig(metric))
//
// Both modes are deterministic: the same input in the same order produces
// identical output regardless of the number of workers.
package pointcluster
