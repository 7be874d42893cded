package strategy

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// ErrPairNotFound is returned for operations on an unregistered pair
var ErrPairNotFound = errors.New("pair not found")

// ErrPairExists is returned when registering a duplicate pair name
var ErrPairExists = errors.New("pair already registered")

// Engine is the explicit registry of pair strategies. Every operation is
// addressed by pair name; there is no shared or ambient state between pairs.
type Engine struct {
	mu    sync.RWMutex
	pairs map[string]*PairStrategy
}

// NewEngine creates an empty engine
func NewEngine() *Engine {
	return &Engine{
		pairs: make(map[string]*PairStrategy),
	}
}

// Register adds a new pair strategy under its configured name
func (e *Engine) Register(cfg PairConfig) (*PairStrategy, error) {
	ps, err := NewPairStrategy(cfg)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pairs[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPairExists, cfg.Name)
	}
	e.pairs[cfg.Name] = ps
	registeredPairs.Inc()

	log.Printf("[Engine] Registered pair %s (%s/%s)", cfg.Name, cfg.SymbolA, cfg.SymbolB)
	return ps, nil
}

// Deregister removes a pair from the registry
func (e *Engine) Deregister(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pairs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrPairNotFound, name)
	}
	delete(e.pairs, name)
	registeredPairs.Dec()
	log.Printf("[Engine] Deregistered pair %s", name)
	return nil
}

// get looks up a pair under the read lock
func (e *Engine) get(name string) (*PairStrategy, error) {
	e.mu.RLock()
	ps, ok := e.pairs[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, name)
	}
	return ps, nil
}

// Pair returns the registered strategy for the given name
func (e *Engine) Pair(name string) (*PairStrategy, error) {
	return e.get(name)
}

// InitPair primes a registered pair with historical prices
func (e *Engine) InitPair(name string, pricesA, pricesB []float64) error {
	ps, err := e.get(name)
	if err != nil {
		return err
	}
	return ps.Init(pricesA, pricesB)
}

// Update feeds one aligned price pair and returns the result record. Updates
// on different pairs proceed concurrently; updates on the same pair are
// serialized by the pair's own lock.
func (e *Engine) Update(name string, priceA, priceB float64) (UpdateResult, error) {
	ps, err := e.get(name)
	if err != nil {
		return UpdateResult{}, err
	}

	start := time.Now()
	res, err := ps.Update(priceA, priceB)
	if err == nil || res.Degraded {
		updateLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
		observeUpdate(res)
	}
	return res, err
}

// GetState returns a snapshot of one pair
func (e *Engine) GetState(name string) (PairState, error) {
	ps, err := e.get(name)
	if err != nil {
		return PairState{}, err
	}
	return ps.State(), nil
}

// ResetPair clears one pair's estimator and position
func (e *Engine) ResetPair(name string) error {
	ps, err := e.get(name)
	if err != nil {
		return err
	}
	ps.Reset()
	return nil
}

// ListPairs returns the registered pair names, sorted
func (e *Engine) ListPairs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.pairs))
	for name := range e.pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// States returns snapshots of every registered pair, keyed by pair name
func (e *Engine) States() map[string]PairState {
	e.mu.RLock()
	pairs := make([]*PairStrategy, 0, len(e.pairs))
	for _, ps := range e.pairs {
		pairs = append(pairs, ps)
	}
	e.mu.RUnlock()

	out := make(map[string]PairState, len(pairs))
	for _, ps := range pairs {
		s := ps.State()
		out[s.Pair] = s
	}
	return out
}
