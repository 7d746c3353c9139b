// Package metrics provides Prometheus instrumentation for ballotbox.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ballotbox"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	VotesCast           prometheus.Counter
	VoteRejections      *prometheus.CounterVec
	Registrations       *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	AdminActions        *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	SessionsExpired     prometheus.Counter
	RegisteredUsers     prometheus.Gauge
	Candidates          prometheus.Gauge
	SaveDuration        prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes successfully recorded.",
		}),
		VoteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_rejections_total",
			Help:      "Vote attempts rejected, by reason.",
		}, []string{"reason"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts, by result.",
		}, []string{"result"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by role and result.",
		}, []string{"role", "result"}),
		AdminActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_actions_total",
			Help:      "Administrative operations, by action and result.",
		}, []string{"action", "result"}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed saves, log appends and artifact writes, by operation.",
		}, []string{"operation"}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Voter sessions ended by the idle timeout.",
		}),
		RegisteredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_users",
			Help:      "Registered voters.",
		}),
		Candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "candidates",
			Help:      "Candidates on the roster.",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_save_duration_seconds",
			Help:      "Time spent saving a snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.VotesCast,
		m.VoteRejections,
		m.Registrations,
		m.LoginAttempts,
		m.AdminActions,
		m.PersistenceFailures,
		m.SessionsExpired,
		m.RegisteredUsers,
		m.Candidates,
		m.SaveDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// =============================================================================
// Recording helpers
// =============================================================================

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordVote counts a vote attempt. reason is ignored on success.
func (m *Metrics) RecordVote(reason string, err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.VotesCast.Inc()
		return
	}
	m.VoteRejections.WithLabelValues(reason).Inc()
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(err error) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result(err)).Inc()
}

// RecordLogin counts a login attempt for role ("voter" or "admin").
func (m *Metrics) RecordLogin(role string, err error) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(role, result(err)).Inc()
}

// RecordAdminAction counts an administrative operation.
func (m *Metrics) RecordAdminAction(action string, err error) {
	if m == nil {
		return
	}
	m.AdminActions.WithLabelValues(action, result(err)).Inc()
}

// RecordPersistenceFailure counts a failed write for operation.
func (m *Metrics) RecordPersistenceFailure(operation string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(operation).Inc()
}

// RecordSessionExpired counts an idle-timeout logout.
func (m *Metrics) RecordSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

// RecordSave observes a snapshot save duration in seconds.
func (m *Metrics) RecordSave(seconds float64) {
	if m == nil {
		return
	}
	m.SaveDuration.Observe(seconds)
}

// SetSizes updates the collection gauges.
func (m *Metrics) SetSizes(users, candidates int) {
	if m == nil {
		return
	}
	m.RegisteredUsers.Set(float64(users))
	m.Candidates.Set(float64(candidates))
}
