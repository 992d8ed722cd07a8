package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pi-garden/irrigationd/internal/model"
	"github.com/pi-garden/irrigationd/internal/services/policy"
)

// Metrics exposes the engine's counters and the last fused score.
type Metrics struct {
	decisions *prometheus.CounterVec
	runs      *prometheus.CounterVec
	busy      prometheus.Counter
	score     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigationd_decisions_total",
			Help: "Decisions taken, by action and skip reason.",
		}, []string{"action", "reason"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigationd_runs_total",
			Help: "Actuation attempts, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		busy: f.NewCounter(prometheus.CounterOpts{
			Name: "irrigationd_busy_rejections_total",
			Help: "Run requests rejected because the zone was already active.",
		}),
		score: f.NewGauge(prometheus.GaugeOpts{
			Name: "irrigationd_hydration_score",
			Help: "Last fused hydration-need score (0 dry .. 10 oversaturated).",
		}),
	}
}

func (m *Metrics) CountDecision(d policy.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Action), d.Reason).Inc()
}

func (m *Metrics) CountRun(rec model.RunRecord) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(rec.Mode), string(rec.Outcome)).Inc()
}

func (m *Metrics) CountBusy() {
	if m == nil {
		return
	}
	m.busy.Inc()
}

func (m *Metrics) ObserveScore(v float64) {
	if m == nil {
		return
	}
	m.score.Set(v)
}
