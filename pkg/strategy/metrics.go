package strategy

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registeredPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "registered_pairs",
		Help:      "Number of pairs currently registered in the engine",
	})

	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "updates_total",
		Help:      "Strategy updates processed, by pair",
	}, []string{"pair"})

	degradedUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "degraded_updates_total",
		Help:      "Updates served from the last known good estimate, by pair",
	}, []string{"pair"})

	signalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "signals_total",
		Help:      "Signals emitted, by pair and signal type",
	}, []string{"pair", "signal"})

	updateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "update_duration_seconds",
		Help:      "Strategy update latency, by pair",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	}, []string{"pair"})

	zScoreGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "z_score",
		Help:      "Latest spread z-score, by pair",
	}, []string{"pair"})

	hedgeRatioGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "hedge_ratio",
		Help:      "Latest hedge ratio estimate, by pair",
	}, []string{"pair"})

	confidenceGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "confidence",
		Help:      "Latest estimate confidence, by pair",
	}, []string{"pair"})

	halfLifeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pairsignal",
		Subsystem: "engine",
		Name:      "half_life",
		Help:      "Latest spread half-life estimate, by pair (+Inf when non-reverting)",
	}, []string{"pair"})
)

// observeUpdate records one processed tick
func observeUpdate(res UpdateResult) {
	updatesTotal.WithLabelValues(res.Pair).Inc()
	if res.Degraded {
		degradedUpdatesTotal.WithLabelValues(res.Pair).Inc()
	}
	if res.Signal != SignalNone {
		signalsTotal.WithLabelValues(res.Pair, string(res.Signal)).Inc()
	}

	zScoreGauge.WithLabelValues(res.Pair).Set(res.ZScore)
	hedgeRatioGauge.WithLabelValues(res.Pair).Set(res.HedgeRatio)
	confidenceGauge.WithLabelValues(res.Pair).Set(res.Confidence)
	if !math.IsInf(res.HalfLife, 0) {
		halfLifeGauge.WithLabelValues(res.Pair).Set(res.HalfLife)
	}
}
