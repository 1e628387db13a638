// Package metrics is the optional Prometheus collector Design Note 9
// calls out as a separate collaborator: the core never reads its own
// metrics back, and nothing in consensus/ or driver/ depends on this
// package. host.Loop calls the Observe* methods when built with
// host.WithMetrics and records nothing otherwise.
//
// Grounded on echenim-Bedrock's internal/telemetry.Metrics: a
// namespaced prometheus.Registry built once at startup, individual
// collectors exposed as exported struct fields, with a Nop variant for
// tests that don't want a real registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks the core's observable state: where it is (height,
// round), how it's spending time (round duration, per-timeout-kind
// firings), and how much traffic it is handling (votes, proposals,
// certificates).
type Metrics struct {
	Height        prometheus.Gauge
	Round         prometheus.Gauge
	RoundDuration prometheus.Histogram
	Decisions     prometheus.Counter

	VotesReceived      *prometheus.CounterVec
	ProposalsReceived  prometheus.Counter
	TimeoutsTriggered  *prometheus.CounterVec
	CertificatesSynced prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers every collector under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,

		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "height",
			Help: "Current consensus height.",
		}),
		Round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "round",
			Help: "Current round within the active height.",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "round_duration_seconds",
			Help:    "Wall-clock time from the start of a height to its decision.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Decisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "decisions_total",
			Help: "Total number of heights decided.",
		}),
		VotesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "votes_received_total",
			Help: "Total votes accepted by the driver, by kind (prevote/precommit).",
		}, []string{"kind"}),
		ProposalsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "proposals_received_total",
			Help: "Total proposals accepted by the driver.",
		}),
		TimeoutsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "timeouts_triggered_total",
			Help: "Total timeouts that elapsed, by kind (propose/prevote/precommit/finalize).",
		}, []string{"kind"}),
		CertificatesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "consensus", Name: "certificates_synced_total",
			Help: "Total externally-sourced commit certificates accepted via value-sync.",
		}),
	}

	reg.MustRegister(
		m.Height, m.Round, m.RoundDuration, m.Decisions,
		m.VotesReceived, m.ProposalsReceived, m.TimeoutsTriggered, m.CertificatesSynced,
	)
	return m
}

// Nop returns a Metrics instance registered against its own private
// registry, for callers (mainly tests) that want the Observe* call
// sites exercised without a real namespace collision risk.
func Nop() *Metrics {
	return New("nop")
}

// Registry exposes the underlying registry so a host can serve it over
// HTTP via [promhttp.Handler] or wire it into its own mux.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving this Metrics' registry at
// the standard Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDecision records a height having been decided d seconds of
// wall-clock time after the height started.
func (m *Metrics) ObserveDecision(d float64) {
	m.Decisions.Inc()
	m.RoundDuration.Observe(d)
}

// ObserveVote records a vote of the given kind ("prevote" or
// "precommit") having been accepted by the driver.
func (m *Metrics) ObserveVote(kind string) {
	m.VotesReceived.WithLabelValues(kind).Inc()
}

// ObserveProposal records a proposal having been accepted by the driver.
func (m *Metrics) ObserveProposal() {
	m.ProposalsReceived.Inc()
}

// ObserveTimeout records a timeout of the given kind having elapsed.
func (m *Metrics) ObserveTimeout(kind string) {
	m.TimeoutsTriggered.WithLabelValues(kind).Inc()
}

// ObserveCertificateSynced records an externally-sourced commit
// certificate having been accepted.
func (m *Metrics) ObserveCertificateSynced() {
	m.CertificatesSynced.Inc()
}

// SetHeightRound updates the current-position gauges.
func (m *Metrics) SetHeightRound(height, round float64) {
	m.Height.Set(height)
	m.Round.Set(round)
}
