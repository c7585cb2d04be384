package eav

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of a Store.
type Metrics struct {
	// Writes counts attribute writes by result (saved, rejected, skipped).
	Writes *prometheus.CounterVec
	// Retrievals counts member queries by mode (full, paged).
	Retrievals *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdata",
			Name:      "attribute_writes_total",
			Help:      "Total attribute writes by result",
		}, []string{"result"}),
		Retrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdata",
			Name:      "member_queries_total",
			Help:      "Total member queries by retrieval mode",
		}, []string{"mode"}),
	}
}
