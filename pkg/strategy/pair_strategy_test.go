package strategy

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/yourusername/pairsignal/pkg/kalman"
)

// makeRevertingPair builds two price series whose log-spread follows a
// mean-reverting AR(1) process around log(a) = hedge*log(b).
func makeRevertingPair(n int, hedge, phi float64, seed int64) (pricesA, pricesB []float64) {
	rng := rand.New(rand.NewSource(seed))
	pricesA = make([]float64, n)
	pricesB = make([]float64, n)

	logB := math.Log(50.0)
	spread := 0.0
	for i := 0; i < n; i++ {
		logB += rng.NormFloat64() * 0.005
		spread = phi*spread + rng.NormFloat64()*0.003
		pricesA[i] = math.Exp(hedge*logB + spread)
		pricesB[i] = math.Exp(logB)
	}
	return pricesA, pricesB
}

func testPairConfig(name string) PairConfig {
	return PairConfig{
		Name:       name,
		SymbolA:    "GLD",
		SymbolB:    "GDX",
		Filter:     kalman.DefaultConfig(),
		Decision:   DefaultDecisionConfig(),
		Confidence: DefaultConfidenceConfig(),
	}
}

func TestPairStrategyConfigValidation(t *testing.T) {
	if _, err := NewPairStrategy(PairConfig{Name: "x", SymbolA: "A"}); err == nil {
		t.Error("missing symbol B accepted")
	}
	cfg := testPairConfig("bad-filter")
	cfg.Filter.Delta = 2.0
	if _, err := NewPairStrategy(cfg); err == nil {
		t.Error("invalid filter config accepted")
	}
}

func TestPairStrategyUpdateBeforeInit(t *testing.T) {
	ps, err := NewPairStrategy(testPairConfig("uninit"))
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if _, err := ps.Update(100.0, 50.0); !errors.Is(err, kalman.ErrNotInitialized) {
		t.Errorf("Update error = %v, want ErrNotInitialized", err)
	}
}

func TestPairStrategyEndToEnd(t *testing.T) {
	pricesA, pricesB := makeRevertingPair(200, 1.0, 0.8, 21)

	cfg := testPairConfig("gld-gdx")
	// Keep the z-score path under test independent of the confidence and
	// half-life gates; gate behavior has its own tests.
	cfg.Decision.MinConfidence = 0
	cfg.Decision.MaxHalfLife = math.Inf(1)

	ps, err := NewPairStrategy(cfg)
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if err := ps.Init(pricesA, pricesB); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Quiet ticks continuing the seeded relationship stay flat.
	for i := 0; i < 5; i++ {
		res, err := ps.Update(pricesA[199], pricesB[199])
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if res.Signal != SignalNone {
			t.Fatalf("quiet tick %d emitted %s (z=%.2f)", i, res.Signal, res.ZScore)
		}
	}

	// A 20% jump in leg A stretches the spread far above entry.
	res, err := ps.Update(pricesA[199]*1.20, pricesB[199])
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	t.Logf("jump tick: z=%.2f hedge=%.4f conf=%.2f half_life=%.2f",
		res.ZScore, res.HedgeRatio, res.Confidence, res.HalfLife)
	if res.Signal != SignalEnterShortSpread {
		t.Errorf("jump tick signal = %s, want ENTER_SHORT_SPREAD", res.Signal)
	}
	if res.Position != ShortSpread {
		t.Errorf("position = %s, want SHORT_SPREAD", res.Position)
	}

	// Reverting to the relationship closes the position.
	var exited bool
	for i := 0; i < 30 && !exited; i++ {
		res, err = ps.Update(pricesA[199], pricesB[199])
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		exited = res.Signal == SignalExitPosition
	}
	if !exited {
		t.Error("no exit after spread reverted")
	}
}

func TestPairStrategySeededTick(t *testing.T) {
	// 100 correlated points around (100, 52), then one live tick near the
	// relationship: the outputs must be finite and inside sane bounds.
	rng := rand.New(rand.NewSource(77))
	pricesA := make([]float64, 100)
	pricesB := make([]float64, 100)
	for i := range pricesA {
		b := 52.0 * math.Exp(rng.NormFloat64()*0.005)
		pricesB[i] = b
		pricesA[i] = (100.0 / 52.0) * b * math.Exp(rng.NormFloat64()*0.003)
	}

	ps, err := NewPairStrategy(testPairConfig("seeded"))
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if err := ps.Init(pricesA, pricesB); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	res, err := ps.Update(100.5, 52.0)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	t.Logf("seeded tick: z=%.3f hedge=%.4f conf=%.3f", res.ZScore, res.HedgeRatio, res.Confidence)
	if math.IsNaN(res.HedgeRatio) || math.IsInf(res.HedgeRatio, 0) {
		t.Errorf("hedge ratio not finite: %v", res.HedgeRatio)
	}
	if res.ZScore < -10 || res.ZScore > 10 {
		t.Errorf("z-score out of bounds: %v", res.ZScore)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence out of bounds: %v", res.Confidence)
	}
}

func TestPairStrategyHalfLifeCadence(t *testing.T) {
	pricesA, pricesB := makeRevertingPair(200, 1.0, 0.8, 33)

	cfg := testPairConfig("cadence")
	cfg.HalfLifeCadence = 5
	ps, err := NewPairStrategy(cfg)
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if err := ps.Init(pricesA[:150], pricesB[:150]); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	initial := ps.State().HalfLife
	t.Logf("initial half_life=%.2f", initial)

	// Four updates reuse the cached estimate, the fifth recomputes.
	var results []UpdateResult
	for i := 150; i < 155; i++ {
		res, err := ps.Update(pricesA[i], pricesB[i])
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		results = append(results, res)
	}
	for i := 0; i < 4; i++ {
		if results[i].HalfLife != initial {
			t.Errorf("update %d half_life = %v, want cached %v", i, results[i].HalfLife, initial)
		}
	}
	if ps.State().UpdateCount != 5 {
		t.Errorf("update count = %d, want 5", ps.State().UpdateCount)
	}
}

func TestPairStrategyDegradedTick(t *testing.T) {
	pricesA, pricesB := makeRevertingPair(100, 1.0, 0.8, 13)

	ps, err := NewPairStrategy(testPairConfig("degraded"))
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if err := ps.Init(pricesA, pricesB); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	good, err := ps.Update(pricesA[99], pricesB[99])
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	res, err := ps.Update(-1.0, pricesB[99])
	if !errors.Is(err, kalman.ErrNumericalInstability) {
		t.Fatalf("Update error = %v, want ErrNumericalInstability", err)
	}
	if !res.Degraded {
		t.Error("result not marked degraded")
	}
	if res.HedgeRatio != good.HedgeRatio || res.ZScore != good.ZScore || res.Spread != good.Spread {
		t.Error("degraded tick did not carry the last known good estimate")
	}
	if ps.State().Failures != 1 {
		t.Errorf("failure count = %d, want 1", ps.State().Failures)
	}
}

func TestPairStrategyReset(t *testing.T) {
	pricesA, pricesB := makeRevertingPair(100, 1.0, 0.8, 5)

	ps, err := NewPairStrategy(testPairConfig("reset"))
	if err != nil {
		t.Fatalf("NewPairStrategy failed: %v", err)
	}
	if err := ps.Init(pricesA, pricesB); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	ps.Reset()
	s := ps.State()
	if s.Initialized {
		t.Error("still initialized after Reset")
	}
	if s.Position != Flat {
		t.Errorf("position after Reset = %s, want FLAT", s.Position)
	}
	if !math.IsInf(s.HalfLife, 1) {
		t.Errorf("half_life after Reset = %v, want +Inf", s.HalfLife)
	}
	if _, err := ps.Update(100.0, 50.0); !errors.Is(err, kalman.ErrNotInitialized) {
		t.Errorf("Update after Reset error = %v, want ErrNotInitialized", err)
	}
}
