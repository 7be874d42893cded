package main

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/yourusername/pairsignal/pkg/client"
	"github.com/yourusername/pairsignal/pkg/comms"
	"github.com/yourusername/pairsignal/pkg/config"
	"github.com/yourusername/pairsignal/pkg/kalman"
	"github.com/yourusername/pairsignal/pkg/stats"
	"github.com/yourusername/pairsignal/pkg/strategy"
)

// pairRunner feeds one pair strategy from two symbol tick streams. It buffers
// warm-up bars, initializes the estimator once enough aligned prices exist,
// then drives one engine update per completed (a, b) price observation.
type pairRunner struct {
	mu sync.Mutex

	name    string
	symbolA string
	symbolB string
	warmup  int

	engine    *strategy.Engine
	publisher *comms.Publisher

	lastA, lastB float64
	warmA, warmB *stats.TimeSeries
	spreadHist   *stats.TimeSeries
	legCorr      float64
	initialized  bool
}

func newPairRunner(cfg config.PairConfig, warmup int, eng *strategy.Engine, pub *comms.Publisher) (*pairRunner, error) {
	_, err := eng.Register(strategy.PairConfig{
		Name:    cfg.Name,
		SymbolA: cfg.SymbolA,
		SymbolB: cfg.SymbolB,
		Filter: kalman.Config{
			ObservationCovariance:  cfg.ObservationCovariance,
			Delta:                  cfg.Delta,
			InitialStateCovariance: cfg.InitialStateCovariance,
		},
		Decision: strategy.DecisionConfig{
			EntryThreshold: cfg.EntryThreshold,
			ExitThreshold:  cfg.ExitThreshold,
			MaxHalfLife:    cfg.MaxHalfLife,
			MinConfidence:  cfg.MinConfidence,
		},
		Confidence: strategy.ConfidenceConfig{
			CovarianceNorm:  cfg.CovarianceNorm,
			StabilityNorm:   cfg.StabilityNorm,
			StabilityWindow: cfg.StabilityWindow,
		},
		HalfLifeCadence: cfg.HalfLifeCadence,
	})
	if err != nil {
		return nil, fmt.Errorf("register pair %s: %w", cfg.Name, err)
	}

	return &pairRunner{
		name:       cfg.Name,
		symbolA:    cfg.SymbolA,
		symbolB:    cfg.SymbolB,
		warmup:     warmup,
		engine:     eng,
		publisher:  pub,
		warmA:      stats.NewTimeSeries(cfg.SymbolA, warmup),
		warmB:      stats.NewTimeSeries(cfg.SymbolB, warmup),
		spreadHist: stats.NewTimeSeries(cfg.Name+".spread", warmup),
	}, nil
}

// onTick ingests one tick for either leg. A pair observation completes when
// both legs have a current price; the observation then either accumulates
// into the warm-up buffer or drives a live update.
func (r *pairRunner) onTick(md *client.MarketData) {
	if md.LastPrice <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch md.Symbol {
	case r.symbolA:
		r.lastA = md.LastPrice
	case r.symbolB:
		r.lastB = md.LastPrice
	default:
		return
	}
	if r.lastA <= 0 || r.lastB <= 0 {
		return
	}

	if !r.initialized {
		r.accumulate()
		return
	}
	r.update()
}

// accumulate buffers one aligned observation and initializes the pair once
// the warm-up target is reached.
func (r *pairRunner) accumulate() {
	r.warmA.AppendNow(r.lastA)
	r.warmB.AppendNow(r.lastB)
	if r.warmA.Len() < r.warmup {
		return
	}

	if err := r.engine.InitPair(r.name, r.warmA.GetAll(), r.warmB.GetAll()); err != nil {
		log.Printf("[Runner:%s] Init failed, rebuilding warm-up: %v", r.name, err)
		r.warmA.Clear()
		r.warmB.Clear()
		return
	}
	r.legCorr = stats.Correlation(r.warmA.GetAll(), r.warmB.GetAll())
	r.initialized = true
	r.warmA.Clear()
	r.warmB.Clear()
	log.Printf("[Runner:%s] Warm-up complete, live (leg correlation %.3f)", r.name, r.legCorr)
}

// update drives one engine tick and publishes any resulting signal
func (r *pairRunner) update() {
	res, err := r.engine.Update(r.name, r.lastA, r.lastB)
	if err != nil && !res.Degraded {
		log.Printf("[Runner:%s] Update failed: %v", r.name, err)
		return
	}
	if res.Degraded {
		r.reportError("warning", err)
	}
	r.spreadHist.AppendNow(res.Spread)

	if res.Signal == strategy.SignalNone {
		return
	}

	sig := comms.NewTradeSignal(r.name, r.symbolA, r.symbolB, string(res.Signal))
	sig.ZScore = res.ZScore
	sig.HedgeRatio = res.HedgeRatio
	sig.Confidence = res.Confidence
	sig.Volatility = stats.StdDev(r.spreadHist.GetAll())
	sig.Correlation = r.legCorr
	if !math.IsInf(res.HalfLife, 0) {
		sig.HalfLife = res.HalfLife
	}
	if err := r.publisher.PublishTradeSignal(sig); err != nil {
		log.Printf("[Runner:%s] Signal publish failed: %v", r.name, err)
		return
	}

	pu := comms.NewPositionUpdate(r.name, int(res.Position), res.ZScore)
	if err := r.publisher.PublishPositionUpdate(pu); err != nil {
		log.Printf("[Runner:%s] Position publish failed: %v", r.name, err)
	}
}

// reportError forwards a degraded-tick error to consumers
func (r *pairRunner) reportError(severity string, err error) {
	if pubErr := r.publisher.PublishError(severity, err.Error(), r.name); pubErr != nil {
		log.Printf("[Runner:%s] Error publish failed: %v", r.name, pubErr)
	}
}
