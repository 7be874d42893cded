package strategy

import (
	"github.com/yourusername/pairsignal/pkg/stats"
)

// ConfidenceConfig holds the normalization constants of the scorer
type ConfidenceConfig struct {
	// CovarianceNorm is the state covariance trace at which covariance
	// confidence hits zero
	CovarianceNorm float64
	// StabilityNorm is the hedge ratio variance at which stability
	// confidence hits zero
	StabilityNorm float64
	// StabilityWindow is how many recent hedge ratios the stability term
	// looks at
	StabilityWindow int
}

// DefaultConfidenceConfig returns the reference scorer constants
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		CovarianceNorm:  0.1,
		StabilityNorm:   0.01,
		StabilityWindow: 20,
	}
}

// ConfidenceScorer grades how settled the hedge ratio estimate is, on [0, 1].
// Two terms, equally weighted: how tight the filter's state covariance is,
// and how stable the recent hedge ratio trajectory has been.
type ConfidenceScorer struct {
	cfg ConfidenceConfig
}

// NewConfidenceScorer creates a scorer
func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg}
}

// Score computes the confidence from the filter's covariance trace and the
// hedge ratio history. A short history scores its variance over whatever is
// available; an empty history contributes full stability confidence.
func (s *ConfidenceScorer) Score(covarianceTrace float64, hedgeRatios []float64) float64 {
	covConfidence := clamp01(1 - covarianceTrace/s.cfg.CovarianceNorm)

	recent := hedgeRatios
	if len(recent) > s.cfg.StabilityWindow {
		recent = recent[len(recent)-s.cfg.StabilityWindow:]
	}
	var hedgeVariance float64
	if len(recent) > 1 {
		hedgeVariance = stats.Variance(recent)
	}
	stabilityConfidence := clamp01(1 - hedgeVariance/s.cfg.StabilityNorm)

	return (covConfidence + stabilityConfidence) / 2
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
