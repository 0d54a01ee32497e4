package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/TrevorS/pointcluster"
	"github.com/TrevorS/pointcluster/internal/config"
)

var qtCmd = &cobra.Command{
	Use:   "qt [file|-]",
	Short: "Quality-threshold clustering into disjoint clusters",
	Long: `Partition all points into disjoint clusters of bounded diameter.

Every point ends up in exactly one cluster; points without neighbours
within the metric scale become singletons.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQT,
}

func init() {
	rootCmd.AddCommand(qtCmd)
}

type clusterJSON struct {
	Centre     int       `json:"centre"`
	Centroid   []float64 `json:"centroid"`
	Min        []float64 `json:"min"`
	Max        []float64 `json:"max"`
	Members    []int     `json:"members"`
	MemberTags []int     `json:"member_tags"`
	Tag        *int      `json:"tag,omitempty"`
	Diameter   float64   `json:"diameter"`
	Quality    float64   `json:"quality"`
}

func runQT(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, config.ModeQT)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	qtCfg, err := cfg.QTFinderConfig(logger)
	if err != nil {
		return err
	}
	finder, err := pointcluster.NewQTFinder(qtCfg)
	if err != nil {
		return err
	}

	points, err := readInput(args)
	if err != nil {
		return err
	}
	clusters, err := finder.FindContext(cmd.Context(), points)
	if err != nil {
		return err
	}

	out := make([]clusterJSON, len(clusters))
	for i, c := range clusters {
		out[i] = clusterJSON{
			Centre:     c.Centre.Index,
			Centroid:   c.Centroid,
			Min:        c.Box.Min,
			Max:        c.Box.Max,
			Members:    c.Members,
			MemberTags: c.MemberTags,
			Diameter:   c.Diameter,
			Quality:    c.Quality,
		}
		if c.Tagged {
			tag := c.Tag
			out[i].Tag = &tag
		}
	}
	return writeJSON(out)
}

func readInput(args []string) ([]pointcluster.Point, error) {
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	in, err := openInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return readPoints(in, dims)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
