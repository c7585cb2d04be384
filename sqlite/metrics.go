package sqlite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the statement collectors of an Executor.
type Metrics struct {
	// Statements counts statements by kind (SELECT, INSERT, ...) and result (ok, error).
	Statements *prometheus.CounterVec
	// Duration tracks statement latency by kind.
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Statements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdata",
			Name:      "sql_statements_total",
			Help:      "Total SQL statements by kind and result",
		}, []string{"kind", "result"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memberdata",
			Name:      "sql_statement_duration_seconds",
			Help:      "SQL statement duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"kind"}),
	}
}
