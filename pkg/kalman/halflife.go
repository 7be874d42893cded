package kalman

import (
	"math"

	"github.com/yourusername/pairsignal/pkg/stats"
)

// MinHalfLifePoints is the minimum number of aligned (lagged, delta) pairs
// required for a half-life estimate.
const MinHalfLifePoints = 30

// HalfLife estimates the mean-reversion half-life of a spread series via an
// OLS fit of the one-step spread change on the lagged spread level:
//
//	spread[t] - spread[t-1] ≈ alpha + beta * spread[t-1]
//
// A negative beta means the spread reverts and the half-life is -ln(2)/beta.
// A non-negative beta means no measurable reversion; the result is +Inf so
// callers can gate on a maximum without a special case. Too-short input also
// returns +Inf.
func HalfLife(spreads []float64) float64 {
	if len(spreads) < MinHalfLifePoints+1 {
		return math.Inf(1)
	}

	n := len(spreads) - 1
	lagged := make([]float64, n)
	delta := make([]float64, n)
	for i := 0; i < n; i++ {
		lagged[i] = spreads[i]
		delta[i] = spreads[i+1] - spreads[i]
	}

	if !stats.AllFinite(lagged) || !stats.AllFinite(delta) {
		return math.Inf(1)
	}

	beta, _ := stats.LinearRegression(lagged, delta)
	if beta >= 0 {
		return math.Inf(1)
	}

	hl := -math.Ln2 / beta
	if math.IsNaN(hl) || math.IsInf(hl, 0) || hl <= 0 {
		return math.Inf(1)
	}
	return hl
}
