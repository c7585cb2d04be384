package sqlite

import (
	"context"
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// quoteIdentifier safely quotes a SQL identifier to prevent injection.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func schemaStatements(t eav.Tables) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + quoteIdentifier(t.Sheet) + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			modified TEXT NOT NULL,
			modifier INTEGER NOT NULL,
			softdeleted TEXT NULL,
			deletor INTEGER NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + quoteIdentifier(t.Member) + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet_id INTEGER NOT NULL DEFAULT 0,
			modified TEXT NOT NULL,
			modifier INTEGER NOT NULL,
			softdeleted TEXT NULL,
			deletor INTEGER NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + quoteIdentifier(t.Member+"_sheet") + ` ON ` + quoteIdentifier(t.Member) + ` (sheet_id)`,
		`CREATE TABLE IF NOT EXISTS ` + quoteIdentifier(t.EVA) + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id INTEGER NOT NULL,
			attribute TEXT NOT NULL,
			value TEXT NULL,
			modified TEXT NOT NULL,
			modifier INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + quoteIdentifier(t.EVA+"_member_attribute") + ` ON ` + quoteIdentifier(t.EVA) + ` (member_id, attribute)`,
		`CREATE TABLE IF NOT EXISTS ` + quoteIdentifier(t.Config) + ` (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
}

// Migrate creates the tables and indexes of the store if they do not exist.
func Migrate(ctx context.Context, exec query.Executor, tables eav.Tables, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, stmt := range schemaStatements(tables) {
		logger.Debug("Executing SQL DDL", zap.String("sql", stmt))
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return errors.Mark(errors.Wrap(err, "failed to migrate schema"), query.ErrDatabase)
		}
	}
	logger.Info("Schema migrated", zap.String("eva_table", tables.EVA))
	return nil
}
