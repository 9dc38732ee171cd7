package status

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "beatkeeper"

// Metrics holds the Prometheus collectors for the clock and actors
type Metrics struct {
	beats       *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	resets      *prometheus.CounterVec
	preTriggers *prometheus.CounterVec

	beatIndex     prometheus.Gauge
	timingValid   prometheus.Gauge
	invalidStreak prometheus.Gauge
	actors        *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates collectors on a private registry
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		beats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "beats_total",
				Help:      "Beats published, labelled by timing validity after the beat",
			},
			[]string{"timing"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timing_anomalies_total",
				Help:      "Beat intervals classified as anomalous",
			},
			[]string{"kind"},
		),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timing_resets_total",
				Help:      "Beat numbering restarts",
			},
			[]string{"reason"},
		),
		preTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pretriggers_total",
				Help:      "Animation pre-trigger evaluations",
			},
			[]string{"outcome"},
		),
		beatIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beat_index",
			Help:      "Last published beat index",
		}),
		timingValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timing_valid",
			Help:      "1 while beat timing is trusted",
		}),
		invalidStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invalid_beat_streak",
			Help:      "Consecutive invalid beats",
		}),
		actors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "actors",
				Help:      "Live actors by kind",
			},
			[]string{"kind"},
		),
	}

	collectors := []prometheus.Collector{
		m.beats, m.anomalies, m.resets, m.preTriggers,
		m.beatIndex, m.timingValid, m.invalidStreak, m.actors,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
