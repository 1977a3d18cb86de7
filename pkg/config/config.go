// Package config holds the YAML-backed settings of the kernel and the renderer.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Acceleration structure algorithms.
const (
	AlgorithmBVH  = "bvh"
	AlgorithmSBVH = "sbvh"
)

// Radiance estimator kinds.
const (
	EstimatorConstant   = "constant"
	EstimatorMonteCarlo = "monte_carlo"
)

// Multiple importance sampling heuristics.
const (
	HeuristicPower   = "power"
	HeuristicBalance = "balance"
)

// Config is the root configuration document.
type Config struct {
	LogLevel              string             `yaml:"log_level"`
	AccelerationStructure AccelerationConfig `yaml:"acceleration_structure"`
	AccessCache           AccessCacheConfig  `yaml:"access_cache"`
	LightSampler          LightSamplerConfig `yaml:"light_sampler"`
	Render                RenderConfig       `yaml:"render"`
}

// AccelerationConfig controls how triangle and patch trees are built.
type AccelerationConfig struct {
	Algorithm                 string  `yaml:"algorithm"`
	MaxLeafSize               int     `yaml:"max_leaf_size"`
	InteriorNodeTraversalCost float64 `yaml:"interior_node_traversal_cost"`
	ItemIntersectionCost      float64 `yaml:"item_intersection_cost"`
	Time                      float64 `yaml:"time"`
	MotionSteps               int     `yaml:"motion_steps"`
	ParallelBuildThreshold    int     `yaml:"parallel_build_threshold"`
}

// AccessCacheConfig sizes the set-associative child tree cache.
type AccessCacheConfig struct {
	Lines int `yaml:"lines"`
	Ways  int `yaml:"ways"`
}

// RadianceEstimatorConfig selects how emitting shapes are weighted.
type RadianceEstimatorConfig struct {
	Kind      string  `yaml:"kind"`
	Samples   int     `yaml:"samples"`
	Tolerance float64 `yaml:"tolerance"`
	Seed      int64   `yaml:"seed"`
}

// LightSamplerConfig controls light sampler construction.
type LightSamplerConfig struct {
	Algorithm         string                  `yaml:"algorithm"`
	RadianceEstimator RadianceEstimatorConfig `yaml:"radiance_estimator"`
}

// RenderConfig controls the direct lighting renderer.
type RenderConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Samples      int    `yaml:"samples"`
	LightSamples int    `yaml:"light_samples"`
	TileSize     int    `yaml:"tile_size"`
	Workers      int    `yaml:"workers"`
	Passes       int    `yaml:"passes"`
	Seed         int64  `yaml:"seed"`
	Output       string `yaml:"output"`
	MISHeuristic string `yaml:"mis_heuristic"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "notice",
		AccelerationStructure: AccelerationConfig{
			Algorithm:                 AlgorithmBVH,
			MaxLeafSize:               8,
			InteriorNodeTraversalCost: 1.0,
			ItemIntersectionCost:      1.0,
			Time:                      0.5,
			MotionSteps:               8,
			ParallelBuildThreshold:    4096,
		},
		AccessCache: AccessCacheConfig{
			Lines: 16,
			Ways:  4,
		},
		LightSampler: LightSamplerConfig{
			Algorithm: "cdf",
			RadianceEstimator: RadianceEstimatorConfig{
				Kind:      EstimatorConstant,
				Samples:   64,
				Tolerance: 0.01,
				Seed:      1,
			},
		},
		Render: RenderConfig{
			Width:        256,
			Height:       256,
			Samples:      16,
			LightSamples: 1,
			TileSize:     32,
			Workers:      0,
			Passes:       1,
			Seed:         42,
			Output:       "render.png",
			MISHeuristic: HeuristicPower,
		},
	}
}

// Parse decodes a YAML document on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: unable to decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: unable to read %q", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "while loading %q", path)
	}
	return cfg, nil
}

// Validate checks value ranges. Algorithm names are checked by the components that use them.
func (c *Config) Validate() error {
	if err := c.AccelerationStructure.Validate(); err != nil {
		return err
	}

	if c.AccessCache.Lines <= 0 || c.AccessCache.Ways <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "access_cache: lines (%d) and ways (%d) must be positive",
			c.AccessCache.Lines, c.AccessCache.Ways)
	}

	est := c.LightSampler.RadianceEstimator
	switch est.Kind {
	case EstimatorConstant:
	case EstimatorMonteCarlo:
		if est.Samples <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "radiance_estimator: samples must be positive, got %d", est.Samples)
		}
		if est.Tolerance < 0 {
			return errors.Wrapf(ErrInvalidConfig, "radiance_estimator: tolerance must be non-negative, got %f", est.Tolerance)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "radiance_estimator: unknown kind %q", est.Kind)
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "render: invalid resolution %dx%d", r.Width, r.Height)
	}
	if r.Samples <= 0 || r.LightSamples <= 0 || r.TileSize <= 0 || r.Passes <= 0 {
		return errors.Wrap(ErrInvalidConfig, "render: samples, light_samples, tile_size and passes must be positive")
	}
	if r.MISHeuristic != HeuristicPower && r.MISHeuristic != HeuristicBalance {
		return errors.Wrapf(ErrInvalidConfig, "render: unknown mis_heuristic %q", r.MISHeuristic)
	}
	if r.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "render: workers must be non-negative, got %d", r.Workers)
	}
	return nil
}

// Validate checks the numeric acceleration structure parameters.
func (a AccelerationConfig) Validate() error {
	if a.MaxLeafSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "acceleration_structure: max_leaf_size must be positive, got %d", a.MaxLeafSize)
	}
	if a.InteriorNodeTraversalCost < 0 || a.ItemIntersectionCost <= 0 {
		return errors.Wrap(ErrInvalidConfig, "acceleration_structure: costs must be positive")
	}
	if a.Time < 0 || a.Time > 1 {
		return errors.Wrapf(ErrInvalidConfig, "acceleration_structure: time must be in [0, 1], got %f", a.Time)
	}
	if a.MotionSteps < 1 {
		return errors.Wrapf(ErrInvalidConfig, "acceleration_structure: motion_steps must be at least 1, got %d", a.MotionSteps)
	}
	return nil
}

// Merge returns a copy of a with the non-zero fields of override applied.
func (a AccelerationConfig) Merge(override *AccelerationConfig) AccelerationConfig {
	if override == nil {
		return a
	}
	merged := a
	if override.Algorithm != "" {
		merged.Algorithm = override.Algorithm
	}
	if override.MaxLeafSize != 0 {
		merged.MaxLeafSize = override.MaxLeafSize
	}
	if override.InteriorNodeTraversalCost != 0 {
		merged.InteriorNodeTraversalCost = override.InteriorNodeTraversalCost
	}
	if override.ItemIntersectionCost != 0 {
		merged.ItemIntersectionCost = override.ItemIntersectionCost
	}
	if override.Time != 0 {
		merged.Time = override.Time
	}
	if override.MotionSteps != 0 {
		merged.MotionSteps = override.MotionSteps
	}
	if override.ParallelBuildThreshold != 0 {
		merged.ParallelBuildThreshold = override.ParallelBuildThreshold
	}
	return merged
}
