// Package telemetry exports dashboard interaction metrics to Prometheus.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keilerkonzept/matchdash/internal/dashboard"
)

// Metrics holds the collectors on a private registry. It implements
// dashboard.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Interactions       *prometheus.CounterVec
	InteractionLatency *prometheus.HistogramVec
	ReducerCalls       prometheus.Counter
	FilteredRecords    prometheus.Gauge
	TotalRecords       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchdash_interactions_total",
				Help: "Dashboard interactions by kind and facet.",
			},
			[]string{"kind", "facet"},
		),
		InteractionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchdash_interaction_duration_seconds",
				Help:    "Time to apply an interaction, including all group updates.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"kind"},
		),
		ReducerCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matchdash_reducer_calls_total",
				Help: "Reducer add/remove calls dispatched by filter changes.",
			},
		),
		FilteredRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchdash_filtered_records",
				Help: "Records passing every active filter.",
			},
		),
		TotalRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchdash_records",
				Help: "Records loaded into the session.",
			},
		),
	}
	m.registry.MustRegister(
		m.Interactions,
		m.InteractionLatency,
		m.ReducerCalls,
		m.FilteredRecords,
		m.TotalRecords,
	)
	return m
}

func (m *Metrics) Observe(ev dashboard.Event) {
	m.Interactions.WithLabelValues(ev.Kind, string(ev.Facet)).Inc()
	m.InteractionLatency.WithLabelValues(ev.Kind).Observe(ev.Elapsed.Seconds())
	m.ReducerCalls.Add(float64(ev.Dispatched))
	m.FilteredRecords.Set(float64(ev.Filtered))
	m.TotalRecords.Set(float64(ev.Total))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Chain fans events out to several observers; nil entries are skipped.
type Chain []dashboard.Observer

func (c Chain) Observe(ev dashboard.Event) {
	for _, o := range c {
		if o != nil {
			o.Observe(ev)
		}
	}
}
