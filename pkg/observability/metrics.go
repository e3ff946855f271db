package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Apply modes reported by otec_operations_applied_total.
const (
	ModeCommitted = "committed"
	ModeTransient = "transient"
	ModeSkipped   = "skipped" // non-canon operations
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Applied       *prometheus.CounterVec
	ApplyFailures prometheus.Counter
	Transforms    prometheus.Counter
	Lineage       prometheus.Counter
	Revision      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Applied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otec_operations_applied_total",
				Help: "Total number of operations applied",
			},
			[]string{"mode"},
		),
		ApplyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otec_apply_failures_total",
			Help: "Total number of operations that failed to apply",
		}),
		Transforms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otec_transforms_total",
			Help: "Total number of pairwise transforms",
		}),
		Lineage: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otec_lineage_updates_total",
			Help: "Total number of outer path updates",
		}),
		Revision: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "otec_entity_revision",
				Help: "Current revision of each entity",
			},
			[]string{"entity"},
		),
	}
	reg.MustRegister(m.Applied, m.ApplyFailures, m.Transforms, m.Lineage, m.Revision)
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnApply: func(_ context.Context, e *domain.ApplyEvent) {
			m.Applied.WithLabelValues(applyMode(e)).Inc()
			m.Revision.WithLabelValues(strconv.Itoa(e.EntityID)).Set(float64(e.Revision))
		},
		OnApplyError: func(context.Context, *domain.ApplyEvent) {
			m.ApplyFailures.Inc()
		},
		OnTransform: func(context.Context, *domain.TransformEvent) {
			m.Transforms.Inc()
		},
		OnLineage: func(context.Context, *domain.LineageEvent) {
			m.Lineage.Inc()
		},
	}
}

func applyMode(e *domain.ApplyEvent) string {
	switch {
	case e.Committed:
		return ModeCommitted
	case e.Transient:
		return ModeTransient
	default:
		return ModeSkipped
	}
}
