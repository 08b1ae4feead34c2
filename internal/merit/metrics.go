package merit

import (
	"github.com/prometheus/client_golang/prometheus"

	"meritboard/internal/auth"
	"meritboard/internal/model"
)

// Metrics counts ledger mutations and login outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	assigned *prometheus.CounterVec
	points   *prometheus.CounterVec
	removed  *prometheus.CounterVec
	logins   *prometheus.CounterVec
}

// NewMetrics registers the service collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meritboard",
			Name:      "activities_assigned_total",
			Help:      "Activities appended to student ledgers.",
		}, []string{"type"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meritboard",
			Name:      "points_assigned_total",
			Help:      "Sum of points assigned, by activity type.",
		}, []string{"type"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meritboard",
			Name:      "activities_removed_total",
			Help:      "Activities removed from student ledgers.",
		}, []string{"type"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meritboard",
			Name:      "logins_total",
			Help:      "Login attempts by role and outcome.",
		}, []string{"role", "outcome"}),
	}
	reg.MustRegister(m.assigned, m.points, m.removed, m.logins)
	return m
}

func (m *Metrics) observeAssign(t model.ActivityType, points float64) {
	if m == nil {
		return
	}
	m.assigned.WithLabelValues(string(t)).Inc()
	m.points.WithLabelValues(string(t)).Add(points)
}

func (m *Metrics) observeRemove(t model.ActivityType) {
	if m == nil {
		return
	}
	m.removed.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) observeLogin(role auth.Role, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.logins.WithLabelValues(string(role), outcome).Inc()
}
