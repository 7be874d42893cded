// Package kalman implements the adaptive spread estimator for pairs trading:
// a 2-dimensional linear-Gaussian state-space filter tracking the intercept
// and hedge ratio of the relationship
//
//	log(price_a) ≈ intercept + hedge_ratio * log(price_b)
//
// The spread is the forecast error of that relationship and the z-score is
// the spread normalized by its model-implied standard deviation.
package kalman

import (
	"fmt"
	"log"
	"math"

	"github.com/yourusername/pairsignal/pkg/stats"
)

// MinInitPoints is the minimum number of aligned historical price points
// required to initialize the filter.
const MinInitPoints = 50

// Config holds the noise parameters of the filter
type Config struct {
	// ObservationCovariance is the variance of the observation noise
	ObservationCovariance float64

	// Delta controls how fast the state may drift tick-to-tick. The
	// transition covariance is delta / (1 - delta). Must be in (0, 1).
	Delta float64

	// InitialStateCovariance scales the identity prior on the state
	InitialStateCovariance float64
}

// DefaultConfig returns the reference filter parameters
func DefaultConfig() Config {
	return Config{
		ObservationCovariance:  0.001,
		Delta:                  0.0001,
		InitialStateCovariance: 1.0,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Delta <= 0 || c.Delta >= 1 {
		return fmt.Errorf("delta must be in (0, 1), got %v", c.Delta)
	}
	if c.ObservationCovariance <= 0 {
		return fmt.Errorf("observation_covariance must be positive, got %v", c.ObservationCovariance)
	}
	if c.InitialStateCovariance <= 0 {
		return fmt.Errorf("initial_state_covariance must be positive, got %v", c.InitialStateCovariance)
	}
	return nil
}

// vec2 is a 2-dimensional state vector [intercept, hedge_ratio]
type vec2 [2]float64

// mat2 is a 2x2 covariance matrix
type mat2 [2][2]float64

// trace returns the sum of the diagonal
func (m mat2) trace() float64 {
	return m[0][0] + m[1][1]
}

// det returns the determinant
func (m mat2) det() float64 {
	return m[0][0]*m[1][1] - m[0][1]*m[1][0]
}

// finite reports whether every entry is finite
func (m mat2) finite() bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// Filter is the recursive state estimator for one instrument pair.
//
// It is not internally synchronized: one pair has exactly one owner and the
// owner serializes Init/Update/Reset calls (see strategy.PairStrategy).
type Filter struct {
	cfg           Config
	transitionCov float64 // delta / (1 - delta)

	initialized bool
	mean        vec2
	cov         mat2

	// Aligned per-update history, grows by exactly one per update
	hedgeRatios []float64
	intercepts  []float64
	spreads     []float64
	zScores     []float64

	failureCount int
}

// NewFilter creates a filter with the given noise parameters
func NewFilter(cfg Config) *Filter {
	return &Filter{
		cfg:           cfg,
		transitionCov: cfg.Delta / (1 - cfg.Delta),
	}
}

// IsInitialized reports whether Init has completed successfully
func (f *Filter) IsInitialized() bool {
	return f.initialized
}

// Init runs the batch filter over aligned historical price series and primes
// the online state. Both series must have the same length, at least
// MinInitPoints points, and strictly positive prices.
//
// On failure the filter stays uninitialized.
func (f *Filter) Init(pricesA, pricesB []float64) error {
	if len(pricesA) != len(pricesB) {
		return fmt.Errorf("%w: series lengths differ (%d vs %d)",
			ErrInsufficientData, len(pricesA), len(pricesB))
	}
	if len(pricesA) < MinInitPoints {
		return fmt.Errorf("%w: need at least %d points, got %d",
			ErrInsufficientData, MinInitPoints, len(pricesA))
	}

	n := len(pricesA)
	logA := make([]float64, n)
	logB := make([]float64, n)
	for i := 0; i < n; i++ {
		if pricesA[i] <= 0 || pricesB[i] <= 0 {
			return fmt.Errorf("%w: non-positive price at index %d", ErrNumericalInstability, i)
		}
		logA[i] = math.Log(pricesA[i])
		logB[i] = math.Log(pricesB[i])
	}

	// Forward filter over the full history: zero initial mean, identity
	// prior scaled by the configured initial covariance.
	mean := vec2{}
	cov := mat2{
		{f.cfg.InitialStateCovariance, 0},
		{0, f.cfg.InitialStateCovariance},
	}

	hedgeRatios := make([]float64, n)
	intercepts := make([]float64, n)
	spreads := make([]float64, n)
	zScores := make([]float64, n)

	for t := 0; t < n; t++ {
		obs := vec2{1, logB[t]}

		var err error
		mean, cov, _, _, err = f.step(mean, cov, obs, logA[t])
		if err != nil {
			return fmt.Errorf("batch filter failed at index %d: %w", t, err)
		}

		intercepts[t] = mean[0]
		hedgeRatios[t] = mean[1]

		// Spread and z-score per historical point, derived from the
		// filtered (posterior) state at t.
		spreads[t] = logA[t] - (obs[0]*mean[0] + obs[1]*mean[1])
		variance := quadraticForm(obs, cov)
		if variance <= 0 {
			return fmt.Errorf("%w: non-positive forecast variance at index %d", ErrNumericalInstability, t)
		}
		zScores[t] = spreads[t] / math.Sqrt(variance)
	}

	if !stats.AllFinite(hedgeRatios) || !stats.AllFinite(intercepts) ||
		!stats.AllFinite(spreads) || !stats.AllFinite(zScores) || !cov.finite() {
		return fmt.Errorf("%w: non-finite value in state trajectory", ErrNumericalInstability)
	}

	f.mean = mean
	f.cov = cov
	f.hedgeRatios = hedgeRatios
	f.intercepts = intercepts
	f.spreads = spreads
	f.zScores = zScores
	f.failureCount = 0
	f.initialized = true

	log.Printf("[KalmanFilter] Initialized with %d data points, hedge_ratio=%.4f", n, mean[1])
	return nil
}

// Update advances the filter by one tick with a new aligned price pair and
// returns (hedge_ratio, z_score, spread). The recursion is O(1) in the
// history length.
//
// On numerical instability the previous state is kept, the last known good
// output is returned together with ErrNumericalInstability, and the caller
// should schedule a reset. The returned values remain usable either way.
func (f *Filter) Update(priceA, priceB float64) (hedgeRatio, zScore, spread float64, err error) {
	if !f.initialized {
		return 0, 0, 0, ErrNotInitialized
	}

	hedgeRatio, zScore, spread, err = f.updateStep(priceA, priceB)
	if err != nil {
		f.failureCount++
		log.Printf("[KalmanFilter] Update failed (%v), returning last known values", err)
		hedgeRatio, zScore, spread = f.lastKnown()
	}

	// History grows by exactly one per update, fallback or not
	f.hedgeRatios = append(f.hedgeRatios, hedgeRatio)
	f.intercepts = append(f.intercepts, f.mean[0])
	f.spreads = append(f.spreads, spread)
	f.zScores = append(f.zScores, zScore)

	return hedgeRatio, zScore, spread, err
}

// updateStep runs the single-step Kalman recursion. State is committed only
// when every derived quantity is finite and the covariance stays valid.
func (f *Filter) updateStep(priceA, priceB float64) (float64, float64, float64, error) {
	if priceA <= 0 || priceB <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: non-positive price (%v, %v)", ErrNumericalInstability, priceA, priceB)
	}

	logA := math.Log(priceA)
	logB := math.Log(priceB)
	obs := vec2{1, logB}

	mean, cov, innovation, s, err := f.step(f.mean, f.cov, obs, logA)
	if err != nil {
		return 0, 0, 0, err
	}

	// The spread is the one-step forecast error and the z-score is that
	// error normalized by the innovation standard deviation.
	spread := innovation
	zScore := spread / math.Sqrt(s)

	if math.IsNaN(spread) || math.IsInf(spread, 0) ||
		math.IsNaN(zScore) || math.IsInf(zScore, 0) {
		return 0, 0, 0, fmt.Errorf("%w: non-finite update output", ErrNumericalInstability)
	}

	f.mean = mean
	f.cov = cov

	return mean[1], zScore, spread, nil
}

// step runs one predict/update cycle of the recursion, returning the new
// state together with the innovation and its variance, and validates the
// resulting covariance.
func (f *Filter) step(mean vec2, cov mat2, obs vec2, observed float64) (vec2, mat2, float64, float64, error) {
	// Predict: random-walk transition leaves the mean unchanged and adds
	// process noise to the covariance diagonal.
	predCov := cov
	predCov[0][0] += f.transitionCov
	predCov[1][1] += f.transitionCov

	// Innovation and its variance: S = H P H^T + R
	innovation := observed - (obs[0]*mean[0] + obs[1]*mean[1])
	s := quadraticForm(obs, predCov) + f.cfg.ObservationCovariance
	if s <= 0 || math.IsNaN(s) {
		return mean, cov, 0, 0, fmt.Errorf("%w: innovation variance %v", ErrNumericalInstability, s)
	}

	// Kalman gain: K = P H^T / S
	ph0 := predCov[0][0]*obs[0] + predCov[0][1]*obs[1]
	ph1 := predCov[1][0]*obs[0] + predCov[1][1]*obs[1]
	gain := vec2{ph0 / s, ph1 / s}

	// State update
	newMean := vec2{
		mean[0] + gain[0]*innovation,
		mean[1] + gain[1]*innovation,
	}

	// Covariance update: P = (I - K H) P
	var kh mat2
	kh[0][0] = 1 - gain[0]*obs[0]
	kh[0][1] = -gain[0] * obs[1]
	kh[1][0] = -gain[1] * obs[0]
	kh[1][1] = 1 - gain[1]*obs[1]

	var newCov mat2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			newCov[i][j] = kh[i][0]*predCov[0][j] + kh[i][1]*predCov[1][j]
		}
	}

	// Force symmetry, then verify the matrix is still positive
	// semidefinite. A violation is a numerical bug, not a state to trade on.
	offDiag := (newCov[0][1] + newCov[1][0]) / 2
	newCov[0][1] = offDiag
	newCov[1][0] = offDiag

	if !newCov.finite() {
		return mean, cov, 0, 0, fmt.Errorf("%w: non-finite covariance", ErrNumericalInstability)
	}
	const psdTol = -1e-12
	if newCov[0][0] < psdTol || newCov[1][1] < psdTol || newCov.det() < psdTol {
		return mean, cov, 0, 0, fmt.Errorf("%w: covariance not positive semidefinite", ErrNumericalInstability)
	}

	return newMean, newCov, innovation, s, nil
}

// quadraticForm computes obs · m · obsᵗ
func quadraticForm(obs vec2, m mat2) float64 {
	return obs[0]*(m[0][0]*obs[0]+m[0][1]*obs[1]) +
		obs[1]*(m[1][0]*obs[0]+m[1][1]*obs[1])
}

// lastKnown returns the most recent valid (hedge_ratio, z_score, spread)
func (f *Filter) lastKnown() (float64, float64, float64) {
	n := len(f.hedgeRatios)
	if n == 0 {
		return 0, 0, 0
	}
	return f.hedgeRatios[n-1], f.zScores[n-1], f.spreads[n-1]
}

// Reset clears all derived state and returns the filter to uninitialized.
// Calling Reset on an uninitialized filter is a no-op.
func (f *Filter) Reset() {
	f.initialized = false
	f.mean = vec2{}
	f.cov = mat2{}
	f.hedgeRatios = nil
	f.intercepts = nil
	f.spreads = nil
	f.zScores = nil
	f.failureCount = 0
	log.Printf("[KalmanFilter] Reset")
}

// State is a copy-on-read snapshot of the filter
type State struct {
	Initialized   bool
	HedgeRatio    float64
	Intercept     float64
	ZScore        float64
	Spread        float64
	StateVariance float64 // trace of the state covariance
	HistoryLen    int
	FailureCount  int
}

// CurrentState returns a snapshot of the latest estimates
func (f *Filter) CurrentState() State {
	if !f.initialized {
		return State{}
	}

	n := len(f.hedgeRatios)
	return State{
		Initialized:   true,
		HedgeRatio:    f.hedgeRatios[n-1],
		Intercept:     f.mean[0],
		ZScore:        f.zScores[n-1],
		Spread:        f.spreads[n-1],
		StateVariance: f.cov.trace(),
		HistoryLen:    n,
		FailureCount:  f.failureCount,
	}
}

// Covariance returns a copy of the current 2x2 state covariance
func (f *Filter) Covariance() [2][2]float64 {
	return [2][2]float64(f.cov)
}

// StateVariance returns the trace of the current state covariance
func (f *Filter) StateVariance() float64 {
	return f.cov.trace()
}

// HistoryLen returns the number of (hedge_ratio, spread, z_score) points
func (f *Filter) HistoryLen() int {
	return len(f.hedgeRatios)
}

// HedgeRatios returns a copy of the hedge ratio history
func (f *Filter) HedgeRatios() []float64 {
	out := make([]float64, len(f.hedgeRatios))
	copy(out, f.hedgeRatios)
	return out
}

// RecentHedgeRatios returns a copy of the most recent n hedge ratios
func (f *Filter) RecentHedgeRatios(n int) []float64 {
	if n <= 0 || n > len(f.hedgeRatios) {
		n = len(f.hedgeRatios)
	}
	out := make([]float64, n)
	copy(out, f.hedgeRatios[len(f.hedgeRatios)-n:])
	return out
}

// Intercepts returns a copy of the intercept history
func (f *Filter) Intercepts() []float64 {
	out := make([]float64, len(f.intercepts))
	copy(out, f.intercepts)
	return out
}

// Spreads returns a copy of the spread history
func (f *Filter) Spreads() []float64 {
	out := make([]float64, len(f.spreads))
	copy(out, f.spreads)
	return out
}

// ZScores returns a copy of the z-score history
func (f *Filter) ZScores() []float64 {
	out := make([]float64, len(f.zScores))
	copy(out, f.zScores)
	return out
}
