package main

import (
	"github.com/spf13/cobra"

	"github.com/TrevorS/pointcluster"
	"github.com/TrevorS/pointcluster/internal/config"
)

var linkageCmd = &cobra.Command{
	Use:   "linkage [file|-]",
	Short: "Hierarchical clustering into a dendrogram",
	Long: `Agglomerate all points with single, complete or average linkage.

Without a cut section in the configuration the dendrogram is printed as
one merge record per step. With cut.threshold or cut.count the dendrogram
is flattened into groups of point indices.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLinkage,
}

var linkageName string

func init() {
	rootCmd.AddCommand(linkageCmd)
	linkageCmd.Flags().StringVarP(&linkageName, "linkage", "l", "", "single, complete or average (overrides config)")
}

type nodeJSON struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
}

func runLinkage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.ModeHierarchical)
	if err != nil {
		return err
	}
	if linkageName != "" {
		if cfg.Linkage, err = pointcluster.ParseLinkage(linkageName); err != nil {
			return err
		}
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	hCfg, err := cfg.HierarchicalConfig(logger)
	if err != nil {
		return err
	}

	points, err := readInput(args)
	if err != nil {
		return err
	}
	nodes, err := pointcluster.HierarchicalContext(cmd.Context(), points, hCfg)
	if err != nil {
		return err
	}

	switch {
	case cfg.Cut.Threshold != nil:
		groups, err := pointcluster.CutDistance(nodes, len(points), *cfg.Cut.Threshold)
		if err != nil {
			return err
		}
		return writeJSON(groups)
	case cfg.Cut.Count > 0:
		groups, err := pointcluster.CutCount(nodes, len(points), cfg.Cut.Count)
		if err != nil {
			return err
		}
		return writeJSON(groups)
	}

	out := make([]nodeJSON, len(nodes))
	for i, n := range nodes {
		out[i] = nodeJSON{Left: n.Left, Right: n.Right, Distance: n.Distance}
	}
	return writeJSON(out)
}
