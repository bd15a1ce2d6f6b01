package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// staleDragAfter bounds how long an unfinished drag start is remembered.
const staleDragAfter = time.Hour

// Metrics holds the Prometheus collectors fed by engine lifecycle events.
type Metrics struct {
	DragsStarted    prometheus.Counter
	Commits         *prometheus.CounterVec // by kind: reparent, reorder
	Rejections      *prometheus.CounterVec // by reason
	Cancellations   prometheus.Counter
	Reconciliations *prometheus.CounterVec // by kind
	DragDuration    prometheus.Histogram

	gatherer prometheus.Gatherer

	mu      sync.Mutex
	started map[string]time.Time // SessionID -> drag start
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DragsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_drags_started_total",
			Help: "Total number of gestures that crossed the drag threshold",
		}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_commits_total",
			Help: "Total number of successful commits",
		}, []string{"kind"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_rejections_total",
			Help: "Total number of refused commits",
		}, []string{"reason"}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_drags_cancelled_total",
			Help: "Total number of cancelled gestures",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_reconciliations_total",
			Help: "Total number of reconciliations that changed the tree",
		}, []string{"kind"}),
		DragDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_drag_duration_seconds",
			Help:    "Time from drag start to drop or cancel",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		gatherer: reg,
		started:  make(map[string]time.Time),
	}
	reg.MustRegister(m.DragsStarted, m.Commits, m.Rejections, m.Cancellations, m.Reconciliations, m.DragDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDragStart: func(ctx context.Context, e *domain.DragEvent) {
			m.DragsStarted.Inc()
			m.mu.Lock()
			// Drops that change nothing end without an event; forget their starts eventually.
			for id, at := range m.started {
				if e.Timestamp.Sub(at) > staleDragAfter {
					delete(m.started, id)
				}
			}
			m.started[e.SessionID] = e.Timestamp
			m.mu.Unlock()
		},
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(commitKind(e.Move)).Inc()
			m.finish(e.SessionID, e.Timestamp)
		},
		OnReject: func(ctx context.Context, e *domain.RejectEvent) {
			m.Rejections.WithLabelValues(string(e.Reason)).Inc()
			m.finish(e.SessionID, e.Timestamp)
		},
		OnCancel: func(ctx context.Context, e *domain.DragEvent) {
			m.Cancellations.Inc()
			m.finish(e.SessionID, e.Timestamp)
		},
		OnReconcile: func(ctx context.Context, e *domain.ReconcileEvent) {
			m.Reconciliations.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}

// finish observes the drag duration of sessionID, if its start was seen.
func (m *Metrics) finish(sessionID string, at time.Time) {
	if sessionID == "" {
		return
	}
	m.mu.Lock()
	start, ok := m.started[sessionID]
	delete(m.started, sessionID)
	m.mu.Unlock()
	if ok {
		m.DragDuration.Observe(at.Sub(start).Seconds())
	}
}

func commitKind(move domain.Move) string {
	if move.OldParentID == move.NewParentID {
		return "reorder"
	}
	return "reparent"
}
