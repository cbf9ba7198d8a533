// Package config loads and validates the simulator configuration. The
// resulting record is immutable and threaded through constructors; there is
// no process-wide mutable state.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Dispatch   DispatchConfig   `json:"dispatch"`
	Scoring    ScoringConfig    `json:"scoring"`
	Bundling   BundlingConfig   `json:"bundling"`
	Oracle     OracleConfig     `json:"oracle"`
	Metrics    metrics.Config   `json:"metrics"`
	Data       DataConfig       `json:"data"`
}

// SimulationConfig bounds the clock and tick size.
type SimulationConfig struct {
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	TickMins  float64 `json:"tickMins"`
}

// DispatchConfig parameterizes the batching gate and the adaptive switch.
type DispatchConfig struct {
	BatchWindowMins         float64 `json:"batchWindowMins"`
	HighLoadThreshold       float64 `json:"highLoadThreshold"`
	CombinatorialWindowMins float64 `json:"combinatorialWindowMins"`
}

// ScoringConfig holds the bid cost weights and hard limits.
type ScoringConfig struct {
	WDistance              float64 `json:"wDistance"`
	WDelay                 float64 `json:"wDelay"`
	BundleDiscountPerOrder float64 `json:"bundleDiscountPerOrder"`
	MaxDeliveryTimeMins    float64 `json:"maxDeliveryTimeMins"`
	ServiceTimeMins        float64 `json:"serviceTimeMins"`
	PenaltyMotorbike       float64 `json:"penaltyMotorbike"`
	PenaltyBike            float64 `json:"penaltyBike"`
	PenaltyCar             float64 `json:"penaltyCar"`
}

// BundlingConfig parameterizes the bundle generator.
type BundlingConfig struct {
	MaxBundleSize       int     `json:"maxBundleSize"`
	MaxPickupDistanceKm float64 `json:"maxPickupDistanceKm"`
}

// OracleConfig selects the distance backend.
type OracleConfig struct {
	AvgSpeedKmh     float64 `json:"avgSpeedKmh"`
	UseRoadDistance bool    `json:"useRoadDistance"`
	OSRMURL         string  `json:"osrmUrl"`
	TimeoutSeconds  float64 `json:"timeoutSeconds"`
	CacheSize       int     `json:"cacheSize"`
	DetourFactor    float64 `json:"detourFactor"`
}

// DataConfig points at the dataset directory.
type DataConfig struct {
	Dir string `json:"dir"`
}

// Default returns the configuration with every knob at its documented
// default.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Simulation.StartTime == "" {
		c.Simulation.StartTime = "17:00:00"
	}
	if c.Simulation.EndTime == "" {
		c.Simulation.EndTime = "22:00:00"
	}
	if c.Simulation.TickMins == 0 {
		c.Simulation.TickMins = 1
	}
	if c.Dispatch.BatchWindowMins == 0 {
		c.Dispatch.BatchWindowMins = 1
	}
	if c.Dispatch.HighLoadThreshold == 0 {
		c.Dispatch.HighLoadThreshold = 2
	}
	if c.Dispatch.CombinatorialWindowMins == 0 {
		c.Dispatch.CombinatorialWindowMins = 5
	}
	if c.Scoring.WDistance == 0 {
		c.Scoring.WDistance = 1
	}
	if c.Scoring.WDelay == 0 {
		c.Scoring.WDelay = 1.5
	}
	if c.Scoring.BundleDiscountPerOrder == 0 {
		c.Scoring.BundleDiscountPerOrder = 0.25
	}
	if c.Scoring.MaxDeliveryTimeMins == 0 {
		c.Scoring.MaxDeliveryTimeMins = 52
	}
	if c.Scoring.ServiceTimeMins == 0 {
		c.Scoring.ServiceTimeMins = 5
	}
	if c.Scoring.PenaltyMotorbike == 0 {
		c.Scoring.PenaltyMotorbike = 1.0
	}
	if c.Scoring.PenaltyBike == 0 {
		c.Scoring.PenaltyBike = 1.2
	}
	if c.Scoring.PenaltyCar == 0 {
		c.Scoring.PenaltyCar = 1.4
	}
	if c.Bundling.MaxBundleSize == 0 {
		c.Bundling.MaxBundleSize = 2
	}
	if c.Bundling.MaxPickupDistanceKm == 0 {
		c.Bundling.MaxPickupDistanceKm = 5
	}
	if c.Oracle.AvgSpeedKmh == 0 {
		c.Oracle.AvgSpeedKmh = 35
	}
	if c.Oracle.OSRMURL == "" {
		c.Oracle.OSRMURL = "https://router.project-osrm.org"
	}
	if c.Oracle.TimeoutSeconds == 0 {
		c.Oracle.TimeoutSeconds = 5
	}
	if c.Oracle.CacheSize == 0 {
		c.Oracle.CacheSize = 10000
	}
	if c.Oracle.DetourFactor == 0 {
		c.Oracle.DetourFactor = 1.4
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
}

// Validate rejects configurations the simulator cannot run with.
func (c *Config) Validate() error {
	start, err := model.ParseClock(c.Simulation.StartTime)
	if err != nil {
		return fmt.Errorf("simulation.startTime: %w", err)
	}
	end, err := model.ParseClock(c.Simulation.EndTime)
	if err != nil {
		return fmt.Errorf("simulation.endTime: %w", err)
	}
	if end <= start {
		return fmt.Errorf("simulation: endTime %s not after startTime %s", c.Simulation.EndTime, c.Simulation.StartTime)
	}
	if c.Simulation.TickMins <= 0 {
		return fmt.Errorf("simulation.tickMins must be positive")
	}
	if c.Oracle.AvgSpeedKmh <= 0 {
		return fmt.Errorf("oracle.avgSpeedKmh must be positive")
	}
	if c.Bundling.MaxBundleSize < 1 {
		return fmt.Errorf("bundling.maxBundleSize must be at least 1")
	}
	if c.Scoring.BundleDiscountPerOrder < 0 || c.Scoring.BundleDiscountPerOrder > 1 {
		return fmt.Errorf("scoring.bundleDiscountPerOrder must be in [0,1]")
	}
	return nil
}

// Load reads a YAML or JSON configuration file, applies SNOONU_-prefixed
// environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("SNOONU_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "snoonu_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
