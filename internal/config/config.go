// Package config loads clustering run settings from YAML and turns them into
// pointcluster configurations.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TrevorS/pointcluster"
)

// Mode names accepted in the mode field. An empty mode lets the file drive
// either subcommand.
const (
	ModeQT           = "qt"
	ModeHierarchical = "hierarchical"
)

// Config is the on-disk run configuration.
type Config struct {
	Mode     string               `yaml:"mode,omitempty"`
	Metric   MetricConfig         `yaml:"metric"`
	Linkage  pointcluster.Linkage `yaml:"linkage"`
	QT       QTConfig             `yaml:"qt"`
	Cut      CutConfig            `yaml:"cut"`
	Workers  int                  `yaml:"workers"`
	LogLevel string               `yaml:"log_level"`
}

// MetricConfig selects the similarity metric.
type MetricConfig struct {
	// Distance is euclidean, manhattan, chebyshev or weighted.
	Distance string    `yaml:"distance"`
	Scale    float64   `yaml:"scale"`
	Weights  []float64 `yaml:"weights,omitempty"`
}

// QTConfig holds the quality-threshold settings.
type QTConfig struct {
	Radius      float64                `yaml:"radius"`
	CellSize    float64                `yaml:"cell_size"`
	MaxDiameter float64                `yaml:"max_diameter"`
	Quality     string                 `yaml:"quality"`
	TagPolicy   pointcluster.TagPolicy `yaml:"tag_policy"`
}

// CutConfig flattens a dendrogram. Set at most one of Threshold and Count;
// with neither the raw dendrogram is reported.
type CutConfig struct {
	Threshold *float64 `yaml:"threshold,omitempty"`
	Count     int      `yaml:"count,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Metric: MetricConfig{
			Distance: "euclidean",
			Scale:    1,
		},
		Linkage:  pointcluster.SingleLinkage,
		QT:       QTConfig{MaxDiameter: 1, Quality: "size"},
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file. Fields missing from
// the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CheckMode returns an error when the file pins a mode other than mode.
func (c *Config) CheckMode(mode string) error {
	if c.Mode != "" && c.Mode != mode {
		return fmt.Errorf("config is for mode %q, cannot run %q", c.Mode, mode)
	}
	return nil
}

// Validate checks every field that can be checked without input data.
// A zero metric scale is reported as pointcluster.ErrDivisionByZero.
func (c *Config) Validate() error {
	switch c.Mode {
	case "", ModeQT, ModeHierarchical:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeQT, ModeHierarchical, c.Mode)
	}
	if _, err := c.NewMetric(); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	if _, err := pointcluster.ParseQuality(c.QT.Quality); err != nil {
		return fmt.Errorf("qt.quality: %w", err)
	}
	if c.Cut.Threshold != nil && c.Cut.Count != 0 {
		return fmt.Errorf("cut: set either threshold or count, not both")
	}
	if c.Cut.Count < 0 {
		return fmt.Errorf("cut.count must be >= 0, got %d", c.Cut.Count)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// NewMetric builds the configured similarity metric.
func (c *Config) NewMetric() (*pointcluster.ScaledSimilarity, error) {
	var dist pointcluster.DistanceMetric
	switch strings.ToLower(c.Metric.Distance) {
	case "", "euclidean":
		dist = pointcluster.EuclideanMetric{}
	case "manhattan":
		dist = pointcluster.ManhattanMetric{}
	case "chebyshev":
		dist = pointcluster.ChebyshevMetric{}
	case "weighted":
		if len(c.Metric.Weights) == 0 {
			return nil, fmt.Errorf("weighted distance needs weights")
		}
		dist = pointcluster.WeightedEuclideanMetric{Weights: c.Metric.Weights}
	default:
		return nil, fmt.Errorf("unknown distance %q", c.Metric.Distance)
	}
	return pointcluster.NewScaledSimilarity(dist, c.Metric.Scale)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// QTFinderConfig converts the file settings into a pointcluster.QTConfig.
func (c *Config) QTFinderConfig(logger *pointcluster.Logger) (pointcluster.QTConfig, error) {
	metric, err := c.NewMetric()
	if err != nil {
		return pointcluster.QTConfig{}, err
	}
	quality, err := pointcluster.ParseQuality(c.QT.Quality)
	if err != nil {
		return pointcluster.QTConfig{}, err
	}
	cfg := pointcluster.DefaultQTConfig(metric)
	cfg.Radius = c.QT.Radius
	cfg.CellSize = c.QT.CellSize
	cfg.MaxDiameter = c.QT.MaxDiameter
	cfg.Quality = quality
	cfg.TagPolicy = c.QT.TagPolicy
	cfg.Workers = c.Workers
	cfg.Logger = logger
	return cfg, nil
}

// HierarchicalConfig converts the file settings into a
// pointcluster.HierarchicalConfig.
func (c *Config) HierarchicalConfig(logger *pointcluster.Logger) (pointcluster.HierarchicalConfig, error) {
	metric, err := c.NewMetric()
	if err != nil {
		return pointcluster.HierarchicalConfig{}, err
	}
	cfg := pointcluster.DefaultHierarchicalConfig()
	cfg.Metric = metric
	cfg.Linkage = c.Linkage
	cfg.Workers = c.Workers
	cfg.Logger = logger
	return cfg, nil
}
