package strategy

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/yourusername/pairsignal/pkg/kalman"
)

// DefaultHalfLifeCadence is how many updates pass between half-life
// recomputations.
const DefaultHalfLifeCadence = 20

// PairConfig fully describes one instrument pair
type PairConfig struct {
	Name    string
	SymbolA string
	SymbolB string

	Filter     kalman.Config
	Decision   DecisionConfig
	Confidence ConfidenceConfig

	// HalfLifeCadence is how many updates between half-life
	// recomputations; 0 means DefaultHalfLifeCadence
	HalfLifeCadence int
}

// UpdateResult is the fixed-shape output of one strategy tick
type UpdateResult struct {
	Pair       string
	Signal     Signal
	Position   Position
	HedgeRatio float64
	ZScore     float64
	Spread     float64
	Confidence float64
	HalfLife   float64
	Timestamp  time.Time
	// Degraded is set when the tick was served from the last known good
	// estimate after a numerical failure
	Degraded bool
}

// PairStrategy runs the full per-pair pipeline: state estimation, spread
// diagnostics, confidence scoring and the signal decision machine. All
// methods are safe for concurrent use.
type PairStrategy struct {
	mu sync.Mutex

	cfg     PairConfig
	cadence int

	filter  *kalman.Filter
	machine *DecisionMachine
	scorer  *ConfidenceScorer

	halfLife    float64
	updateCount int
}

// NewPairStrategy creates a strategy for one pair
func NewPairStrategy(cfg PairConfig) (*PairStrategy, error) {
	if cfg.Name == "" || cfg.SymbolA == "" || cfg.SymbolB == "" {
		return nil, fmt.Errorf("pair config requires name and both symbols")
	}
	if err := cfg.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("pair %s: %w", cfg.Name, err)
	}

	cadence := cfg.HalfLifeCadence
	if cadence <= 0 {
		cadence = DefaultHalfLifeCadence
	}

	return &PairStrategy{
		cfg:      cfg,
		cadence:  cadence,
		filter:   kalman.NewFilter(cfg.Filter),
		machine:  NewDecisionMachine(cfg.Decision),
		scorer:   NewConfidenceScorer(cfg.Confidence),
		halfLife: math.Inf(1),
	}, nil
}

// Name returns the pair name
func (p *PairStrategy) Name() string {
	return p.cfg.Name
}

// Symbols returns the pair's leg symbols
func (p *PairStrategy) Symbols() (a, b string) {
	return p.cfg.SymbolA, p.cfg.SymbolB
}

// Init primes the estimator with aligned historical prices and computes the
// initial half-life from the batch spread trajectory.
func (p *PairStrategy) Init(pricesA, pricesB []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.filter.Init(pricesA, pricesB); err != nil {
		return err
	}

	p.halfLife = kalman.HalfLife(p.filter.Spreads())
	p.updateCount = 0
	p.machine.Reset()

	log.Printf("[PairStrategy:%s] Initialized: %d points, half_life=%.2f",
		p.cfg.Name, p.filter.HistoryLen(), p.halfLife)
	return nil
}

// Update processes one aligned price pair and returns the full result
// record. The half-life is recomputed once every cadence updates; other
// ticks reuse the cached value.
//
// A numerical failure inside the estimator degrades the tick instead of
// killing it: the result carries the last known good estimate, Degraded is
// set, and ErrNumericalInstability is returned alongside the usable result.
func (p *PairStrategy) Update(priceA, priceB float64) (UpdateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hedge, z, spread, err := p.filter.Update(priceA, priceB)
	if err != nil && !errors.Is(err, kalman.ErrNumericalInstability) {
		return UpdateResult{}, err
	}
	degraded := err != nil
	if degraded {
		log.Printf("[PairStrategy:%s] Degraded tick, reset recommended: %v", p.cfg.Name, err)
	}

	p.updateCount++
	if p.updateCount%p.cadence == 0 {
		p.halfLife = kalman.HalfLife(p.filter.Spreads())
	}

	confidence := p.scorer.Score(p.filter.StateVariance(), p.filter.HedgeRatios())
	signal := p.machine.Evaluate(z, p.halfLife, confidence)

	if signal != SignalNone {
		log.Printf("[PairStrategy:%s] %s z=%.2f hedge=%.4f conf=%.2f position=%s",
			p.cfg.Name, signal, z, hedge, confidence, p.machine.Position())
	}

	return UpdateResult{
		Pair:       p.cfg.Name,
		Signal:     signal,
		Position:   p.machine.Position(),
		HedgeRatio: hedge,
		ZScore:     z,
		Spread:     spread,
		Confidence: confidence,
		HalfLife:   p.halfLife,
		Timestamp:  time.Now().UTC(),
		Degraded:   degraded,
	}, err
}

// PairState is a copy-on-read snapshot of a pair strategy
type PairState struct {
	Pair        string
	SymbolA     string
	SymbolB     string
	Initialized bool
	Position    Position
	HedgeRatio  float64
	ZScore      float64
	Spread      float64
	Confidence  float64
	HalfLife    float64
	UpdateCount int
	Failures    int
}

// State returns the current snapshot
func (p *PairStrategy) State() PairState {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs := p.filter.CurrentState()
	confidence := 0.0
	if fs.Initialized {
		confidence = p.scorer.Score(p.filter.StateVariance(), p.filter.HedgeRatios())
	}
	return PairState{
		Pair:        p.cfg.Name,
		SymbolA:     p.cfg.SymbolA,
		SymbolB:     p.cfg.SymbolB,
		Initialized: fs.Initialized,
		Position:    p.machine.Position(),
		HedgeRatio:  fs.HedgeRatio,
		ZScore:      fs.ZScore,
		Spread:      fs.Spread,
		Confidence:  confidence,
		HalfLife:    p.halfLife,
		UpdateCount: p.updateCount,
		Failures:    fs.FailureCount,
	}
}

// Reset clears the estimator and forces the machine flat. The pair must be
// re-initialized before the next Update.
func (p *PairStrategy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filter.Reset()
	p.machine.Reset()
	p.halfLife = math.Inf(1)
	p.updateCount = 0
	log.Printf("[PairStrategy:%s] Reset", p.cfg.Name)
}
