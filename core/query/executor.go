package query

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

func (b *Builder) ready() error {
	if b.parent != nil {
		return configError("sub-builders cannot be executed, use Clause or End")
	}
	if b.err != nil {
		return b.err
	}
	if b.exec == nil {
		return configError("no executor configured")
	}
	return nil
}

// Count executes a COUNT(*) over the joins and where clauses.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	sql, params, err := b.CountSQL()
	if err != nil {
		return 0, err
	}
	rows, err := b.query(ctx, "COUNT", sql, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	count, _ := ToInt64(rows[0]["cnt"])
	return count, nil
}

// First executes the SELECT with LIMIT 1. It returns nil when nothing matches.
func (b *Builder) First(ctx context.Context) (Row, error) {
	limit := b.limit
	b.limit = 1
	defer func() { b.limit = limit }()

	rows, err := b.Get(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Get executes the SELECT and returns all matching rows.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	sql, params, err := b.SelectSQL()
	if err != nil {
		return nil, err
	}
	return b.query(ctx, "SELECT", sql, params)
}

// Insert executes the INSERT and returns the id of the new row.
func (b *Builder) Insert(ctx context.Context) (int64, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	sql, params, err := b.InsertSQL()
	if err != nil {
		return 0, err
	}
	res, err := b.execute(ctx, "INSERT", sql, params)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, databaseError(err, "failed to get last insert id")
	}
	return id, nil
}

// Update executes the UPDATE and returns the number of affected rows.
func (b *Builder) Update(ctx context.Context) (int64, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	sql, params, err := b.UpdateSQL()
	if err != nil {
		return 0, err
	}
	return b.affected(ctx, "UPDATE", sql, params)
}

// Delete executes the DELETE and returns the number of affected rows.
func (b *Builder) Delete(ctx context.Context) (int64, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	sql, params, err := b.DeleteSQL()
	if err != nil {
		return 0, err
	}
	return b.affected(ctx, "DELETE", sql, params)
}

func (b *Builder) affected(ctx context.Context, kind, sql string, params []any) (int64, error) {
	res, err := b.execute(ctx, kind, sql, params)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, databaseError(err, "failed to get rows affected")
	}
	return n, nil
}

func (b *Builder) execute(ctx context.Context, kind, query string, params []any) (sql.Result, error) {
	b.logger.Debug("Executing SQL "+kind, zap.String("sql", query), zap.Any("params", params))
	res, err := b.exec.ExecContext(ctx, query, params...)
	if err != nil {
		b.logger.Error("SQL "+kind+" failed", zap.String("sql", query), zap.Error(err))
		return nil, databaseError(err, "failed to execute %s", kind)
	}
	return res, nil
}

func (b *Builder) query(ctx context.Context, kind, query string, params []any) ([]Row, error) {
	b.logger.Debug("Executing SQL "+kind, zap.String("sql", query), zap.Any("params", params))
	rows, err := b.exec.QueryContext(ctx, query, params...)
	if err != nil {
		b.logger.Error("SQL "+kind+" failed", zap.String("sql", query), zap.Error(err))
		return nil, databaseError(err, "failed to execute %s", kind)
	}
	defer rows.Close()
	return readRows(rows)
}

// readRows scans every row into a Row. Byte slices are returned as strings.
func readRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, databaseError(err, "failed to get columns")
	}

	results := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, databaseError(err, "failed to scan row")
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if byteVal, ok := values[i].([]byte); ok {
				row[col] = string(byteVal)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError(err, "error iterating rows")
	}
	return results, nil
}
