// Package metrics exposes the engine's operational counters through
// Prometheus collectors. All methods are nil-receiver safe so the engine
// can run with metrics disabled at zero cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the authentication core.
type Metrics struct {
	logins         *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	theftSignals   prometheus.Counter
	logouts        prometheus.Counter
	rateLimited    *prometheus.CounterVec
	actionIssued   *prometheus.CounterVec
	actionRedeemed *prometheus.CounterVec
	federated      *prometheus.CounterVec
	csrfFailures   prometheus.Counter
}

// New registers the collectors with reg (use
// prometheus.DefaultRegisterer for the process-global registry).
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "authcore"
	}

	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh-token rotations by outcome.",
		}, []string{"result"}),
		theftSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_theft_signals_total",
			Help:      "Refresh-token mismatches treated as possible theft.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Explicit logouts.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests denied by the attempt limiter, by action.",
		}, []string{"action"}),
		actionIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_tokens_issued_total",
			Help:      "Single-use action tokens issued, by purpose.",
		}, []string{"purpose"}),
		actionRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_tokens_redeemed_total",
			Help:      "Single-use action token redemptions, by purpose and outcome.",
		}, []string{"purpose", "result"}),
		federated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "federated_logins_total",
			Help:      "Federated identity resolutions, by outcome.",
		}, []string{"outcome"}),
		csrfFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csrf_failures_total",
			Help:      "State-changing requests rejected for CSRF mismatch.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.logins,
			m.refreshes,
			m.theftSignals,
			m.logouts,
			m.rateLimited,
			m.actionIssued,
			m.actionRedeemed,
			m.federated,
			m.csrfFailures,
		)
	}

	return m
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) TheftSignal() {
	if m == nil {
		return
	}
	m.theftSignals.Inc()
}

func (m *Metrics) Logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

func (m *Metrics) RateLimited(action string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(action).Inc()
}

func (m *Metrics) ActionIssued(purpose string) {
	if m == nil {
		return
	}
	m.actionIssued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) ActionRedeemed(purpose, result string) {
	if m == nil {
		return
	}
	m.actionRedeemed.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) Federated(outcome string) {
	if m == nil {
		return
	}
	m.federated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CsrfFailure() {
	if m == nil {
		return
	}
	m.csrfFailures.Inc()
}
