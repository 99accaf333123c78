package remote

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verte-zerg/punchcall/internal/session"
)

// Stats holds the Prometheus collectors for a session.
type Stats struct {
	registry      *prometheus.Registry
	callouts      prometheus.Counter
	signals       *prometheus.CounterVec
	phases        *prometheus.CounterVec
	timeRemaining prometheus.Gauge
	round         prometheus.Gauge
	paused        prometheus.Gauge
	requests      *prometheus.CounterVec
}

// NewStats creates collectors on a private registry.
func NewStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		callouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "punchcall",
			Name:      "callouts_total",
			Help:      "Callouts announced.",
		}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchcall",
			Name:      "signals_total",
			Help:      "Signal sequences requested, by kind and whether they played.",
		}, []string{"kind", "played"}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchcall",
			Name:      "phase_transitions_total",
			Help:      "Phase entries, by phase.",
		}, []string{"phase"}),
		timeRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "punchcall",
			Name:      "time_remaining_seconds",
			Help:      "Seconds left in the current phase.",
		}),
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "punchcall",
			Name:      "current_round",
			Help:      "Current round number.",
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "punchcall",
			Name:      "paused",
			Help:      "1 while the session is paused.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchcall",
			Name:      "http_requests_total",
			Help:      "API requests, by status code and method.",
		}, []string{"code", "method"}),
	}
	s.registry.MustRegister(s.callouts, s.signals, s.phases, s.timeRemaining, s.round, s.paused, s.requests)
	return s
}

// Observe updates collectors from an engine event.
func (s *Stats) Observe(ev session.Event) {
	switch ev.Type {
	case session.EventCallout:
		s.callouts.Inc()
	case session.EventSignal:
		s.signals.WithLabelValues(string(ev.Signal), strconv.FormatBool(ev.Played)).Inc()
	case session.EventPhase:
		s.phases.WithLabelValues(string(ev.State.Phase)).Inc()
	}
	s.timeRemaining.Set(float64(ev.State.TimeRemainingSeconds))
	s.round.Set(float64(ev.State.CurrentRound))
	if ev.State.IsPaused {
		s.paused.Set(1)
	} else {
		s.paused.Set(0)
	}
}

// RecordRequest counts one API request.
func (s *Stats) RecordRequest(code int, method string) {
	s.requests.WithLabelValues(strconv.Itoa(code), method).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
