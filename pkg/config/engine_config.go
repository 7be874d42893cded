// Package config loads and validates the signal engine configuration from
// YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the complete configuration for the signal engine
type EngineConfig struct {
	System  SystemConfig  `yaml:"system"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Pairs   []PairConfig  `yaml:"pairs"`
}

// SystemConfig contains engine-level settings
type SystemConfig struct {
	Component         string        `yaml:"component"`          // name used in status/heartbeat messages
	WarmupBars        int           `yaml:"warmup_bars"`        // bars collected before filter init
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // background heartbeat cadence
}

// NATSConfig contains the messaging endpoints
type NATSConfig struct {
	URL           string `yaml:"url"`
	MarketSubject string `yaml:"market_subject"` // subject pattern for market data, e.g. md.%s
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // host:port for /metrics
}

// PairConfig describes one tracked instrument pair
type PairConfig struct {
	Name    string `yaml:"name"`
	SymbolA string `yaml:"symbol_a"`
	SymbolB string `yaml:"symbol_b"`

	// Filter noise parameters
	ObservationCovariance  float64 `yaml:"observation_covariance"`
	Delta                  float64 `yaml:"delta"`
	InitialStateCovariance float64 `yaml:"initial_state_covariance"`

	// Decision thresholds and gates
	EntryThreshold float64 `yaml:"entry_threshold"`
	ExitThreshold  float64 `yaml:"exit_threshold"`
	MaxHalfLife    float64 `yaml:"max_half_life"`
	MinConfidence  float64 `yaml:"min_confidence"`

	// Confidence normalization
	CovarianceNorm  float64 `yaml:"covariance_norm"`
	StabilityNorm   float64 `yaml:"stability_norm"`
	StabilityWindow int     `yaml:"stability_window"`

	// Half-life recomputation cadence in updates
	HalfLifeCadence int `yaml:"half_life_cadence"`
}

// LoadEngineConfig reads and validates the configuration file
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate applies defaults and rejects inconsistent settings
func (c *EngineConfig) Validate() error {
	if c.System.Component == "" {
		c.System.Component = "signal-engine"
	}
	if c.System.WarmupBars == 0 {
		c.System.WarmupBars = 50
	}
	if c.System.WarmupBars < 50 {
		return fmt.Errorf("warmup_bars must be at least 50, got %d", c.System.WarmupBars)
	}
	if c.System.HeartbeatInterval == 0 {
		c.System.HeartbeatInterval = 30 * time.Second
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.MarketSubject == "" {
		c.NATS.MarketSubject = "md.%s"
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9109"
	}

	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be configured")
	}
	seen := make(map[string]bool)
	for i := range c.Pairs {
		p := &c.Pairs[i]
		if err := p.validate(); err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pair name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// validate applies per-pair defaults and checks ranges
func (p *PairConfig) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.SymbolA == "" || p.SymbolB == "" {
		return fmt.Errorf("symbol_a and symbol_b are required")
	}
	if p.SymbolA == p.SymbolB {
		return fmt.Errorf("symbol_a and symbol_b must differ")
	}

	if p.ObservationCovariance == 0 {
		p.ObservationCovariance = 0.001
	}
	if p.Delta == 0 {
		p.Delta = 0.0001
	}
	if p.InitialStateCovariance == 0 {
		p.InitialStateCovariance = 1.0
	}
	if p.Delta < 0 || p.Delta >= 1 {
		return fmt.Errorf("delta must be in (0, 1), got %v", p.Delta)
	}
	if p.ObservationCovariance < 0 || p.InitialStateCovariance < 0 {
		return fmt.Errorf("covariances must be positive")
	}

	if p.EntryThreshold == 0 {
		p.EntryThreshold = 2.0
	}
	if p.ExitThreshold == 0 {
		p.ExitThreshold = 0.5
	}
	if p.EntryThreshold <= p.ExitThreshold {
		return fmt.Errorf("entry_threshold (%v) must exceed exit_threshold (%v)",
			p.EntryThreshold, p.ExitThreshold)
	}
	if p.MaxHalfLife == 0 {
		p.MaxHalfLife = 45.0
	}
	if p.MinConfidence == 0 {
		p.MinConfidence = 0.7
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", p.MinConfidence)
	}

	if p.CovarianceNorm == 0 {
		p.CovarianceNorm = 0.1
	}
	if p.StabilityNorm == 0 {
		p.StabilityNorm = 0.01
	}
	if p.StabilityWindow == 0 {
		p.StabilityWindow = 20
	}
	if p.HalfLifeCadence == 0 {
		p.HalfLifeCadence = 20
	}
	if p.HalfLifeCadence < 1 {
		return fmt.Errorf("half_life_cadence must be positive, got %d", p.HalfLifeCadence)
	}
	return nil
}
