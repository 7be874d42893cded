package strategy

import "math"

// Position is the current spread position of a pair
type Position int

const (
	// Flat means no open spread position
	Flat Position = 0
	// LongSpread means long symbol A, short symbol B
	LongSpread Position = 1
	// ShortSpread means short symbol A, long symbol B
	ShortSpread Position = -1
)

// String returns the position name
func (p Position) String() string {
	switch p {
	case LongSpread:
		return "LONG_SPREAD"
	case ShortSpread:
		return "SHORT_SPREAD"
	default:
		return "FLAT"
	}
}

// Signal is an actionable trading decision
type Signal string

const (
	// SignalNone means no action this tick
	SignalNone Signal = "NO_SIGNAL"
	// SignalEnterLongSpread means open long A / short B
	SignalEnterLongSpread Signal = "ENTER_LONG_SPREAD"
	// SignalEnterShortSpread means open short A / long B
	SignalEnterShortSpread Signal = "ENTER_SHORT_SPREAD"
	// SignalExitPosition means close the open spread position
	SignalExitPosition Signal = "EXIT_POSITION"
)

// DecisionConfig holds the entry/exit thresholds and gates of the decision
// machine
type DecisionConfig struct {
	// EntryThreshold is the |z| level that opens a position
	EntryThreshold float64
	// ExitThreshold is the |z| level that closes one
	ExitThreshold float64
	// MaxHalfLife rejects pairs whose spread reverts too slowly (same time
	// unit as the input bars)
	MaxHalfLife float64
	// MinConfidence rejects entries when the estimate is not settled
	MinConfidence float64
}

// DefaultDecisionConfig returns the reference thresholds
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		EntryThreshold: 2.0,
		ExitThreshold:  0.5,
		MaxHalfLife:    45.0,
		MinConfidence:  0.7,
	}
}

// DecisionMachine turns (z_score, half_life, confidence) readings into
// signals while tracking the current position. Transitions and their signals
// are atomic: a signal is emitted if and only if the position changed.
//
// Not internally synchronized; the owning PairStrategy serializes access.
type DecisionMachine struct {
	cfg      DecisionConfig
	position Position
}

// NewDecisionMachine creates a machine in the flat state
func NewDecisionMachine(cfg DecisionConfig) *DecisionMachine {
	return &DecisionMachine{cfg: cfg}
}

// Position returns the current position
func (m *DecisionMachine) Position() Position {
	return m.position
}

// Reset forces the machine back to flat without emitting a signal
func (m *DecisionMachine) Reset() {
	m.position = Flat
}

// Evaluate applies one reading and returns the resulting signal.
//
// Gate order is fixed: the half-life gate runs first, then the confidence
// gate, then the position-dependent threshold checks.
func (m *DecisionMachine) Evaluate(zScore, halfLife, confidence float64) Signal {
	if math.IsNaN(zScore) {
		return SignalNone
	}
	if halfLife > m.cfg.MaxHalfLife {
		return SignalNone
	}
	if confidence < m.cfg.MinConfidence {
		return SignalNone
	}

	switch m.position {
	case Flat:
		if zScore <= -m.cfg.EntryThreshold {
			m.position = LongSpread
			return SignalEnterLongSpread
		}
		if zScore >= m.cfg.EntryThreshold {
			m.position = ShortSpread
			return SignalEnterShortSpread
		}

	case LongSpread:
		if zScore >= -m.cfg.ExitThreshold {
			m.position = Flat
			return SignalExitPosition
		}

	case ShortSpread:
		if zScore <= m.cfg.ExitThreshold {
			m.position = Flat
			return SignalExitPosition
		}
	}

	return SignalNone
}
