package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/asaidimu/go-memberdata/core/query"
	"go.uber.org/zap"
)

// Executor runs statements on a *sql.DB or *sql.Tx and records a log line
// and metrics for each of them.
type Executor struct {
	runner  query.Executor
	logger  *zap.Logger
	metrics *Metrics
}

// Ensure Executor can back a query.Builder.
var _ query.Executor = (*Executor)(nil)

// NewExecutor wraps runner. metrics may be nil.
func NewExecutor(runner query.Executor, logger *zap.Logger, metrics *Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		runner:  runner,
		logger:  logger,
		metrics: metrics,
	}
}

// statementKind returns the leading keyword of a statement.
func statementKind(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

func (e *Executor) observe(kind string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := "ok"
	if err != nil {
		result = "error"
		e.logger.Warn("Statement failed", zap.String("kind", kind), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		e.logger.Debug("Statement completed", zap.String("kind", kind), zap.Duration("elapsed", elapsed))
	}
	if e.metrics != nil {
		e.metrics.Statements.WithLabelValues(kind, result).Inc()
		e.metrics.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// QueryContext runs a statement that returns rows.
func (e *Executor) QueryContext(ctx context.Context, stmt string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := e.runner.QueryContext(ctx, stmt, args...)
	e.observe(statementKind(stmt), start, err)
	return rows, err
}

// ExecContext runs a statement that returns no rows.
func (e *Executor) ExecContext(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := e.runner.ExecContext(ctx, stmt, args...)
	e.observe(statementKind(stmt), start, err)
	return res, err
}
