package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
pairs:
  - name: gld-gdx
    symbol_a: GLD
    symbol_b: GDX
`

func TestLoadEngineConfigDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadEngineConfig failed: %v", err)
	}

	if cfg.System.Component != "signal-engine" {
		t.Errorf("component = %q", cfg.System.Component)
	}
	if cfg.System.WarmupBars != 50 {
		t.Errorf("warmup_bars = %d, want 50", cfg.System.WarmupBars)
	}
	if cfg.System.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat_interval = %v", cfg.System.HeartbeatInterval)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
	if cfg.NATS.MarketSubject != "md.%s" {
		t.Errorf("market subject = %q", cfg.NATS.MarketSubject)
	}

	p := cfg.Pairs[0]
	if p.ObservationCovariance != 0.001 || p.Delta != 0.0001 || p.InitialStateCovariance != 1.0 {
		t.Errorf("filter defaults not applied: %+v", p)
	}
	if p.EntryThreshold != 2.0 || p.ExitThreshold != 0.5 {
		t.Errorf("threshold defaults not applied: %+v", p)
	}
	if p.MaxHalfLife != 45.0 || p.MinConfidence != 0.7 {
		t.Errorf("gate defaults not applied: %+v", p)
	}
	if p.CovarianceNorm != 0.1 || p.StabilityNorm != 0.01 || p.StabilityWindow != 20 {
		t.Errorf("confidence defaults not applied: %+v", p)
	}
	if p.HalfLifeCadence != 20 {
		t.Errorf("half_life_cadence = %d, want 20", p.HalfLifeCadence)
	}
}

func TestLoadEngineConfigFull(t *testing.T) {
	cfg, err := LoadEngineConfig(writeConfig(t, `
system:
  component: stat-arb-1
  warmup_bars: 100
  heartbeat_interval: 10s
nats:
  url: nats://broker:4222
  market_subject: market.%s.trades
metrics:
  enabled: true
pairs:
  - name: ewa-ewc
    symbol_a: EWA
    symbol_b: EWC
    delta: 0.001
    entry_threshold: 2.5
    exit_threshold: 0.75
    max_half_life: 30
    min_confidence: 0.8
    half_life_cadence: 10
`))
	if err != nil {
		t.Fatalf("LoadEngineConfig failed: %v", err)
	}

	if cfg.System.Component != "stat-arb-1" || cfg.System.WarmupBars != 100 {
		t.Errorf("system section: %+v", cfg.System)
	}
	if cfg.System.HeartbeatInterval != 10*time.Second {
		t.Errorf("heartbeat_interval = %v", cfg.System.HeartbeatInterval)
	}
	if cfg.Metrics.Listen != ":9109" {
		t.Errorf("metrics listen default = %q", cfg.Metrics.Listen)
	}

	p := cfg.Pairs[0]
	if p.Delta != 0.001 || p.EntryThreshold != 2.5 || p.ExitThreshold != 0.75 {
		t.Errorf("pair overrides lost: %+v", p)
	}
	if p.MaxHalfLife != 30 || p.MinConfidence != 0.8 || p.HalfLifeCadence != 10 {
		t.Errorf("pair overrides lost: %+v", p)
	}
}

func TestLoadEngineConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no pairs", `system: {component: x}`},
		{"missing symbols", `
pairs:
  - name: p1
    symbol_a: GLD
`},
		{"same symbol twice", `
pairs:
  - name: p1
    symbol_a: GLD
    symbol_b: GLD
`},
		{"duplicate pair names", `
pairs:
  - name: p1
    symbol_a: GLD
    symbol_b: GDX
  - name: p1
    symbol_a: EWA
    symbol_b: EWC
`},
		{"entry below exit", `
pairs:
  - name: p1
    symbol_a: GLD
    symbol_b: GDX
    entry_threshold: 0.4
    exit_threshold: 0.5
`},
		{"delta out of range", `
pairs:
  - name: p1
    symbol_a: GLD
    symbol_b: GDX
    delta: 1.5
`},
		{"warmup too small", `
system: {warmup_bars: 10}
pairs:
  - name: p1
    symbol_a: GLD
    symbol_b: GDX
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadEngineConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	if _, err := LoadEngineConfig("/nonexistent/engine.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}
