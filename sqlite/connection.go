// Package sqlite runs the member data store on SQLite: it opens databases with
// the pragmas the store relies on, creates the tables, and wraps the
// connection in an executor that logs and meters every statement.
package sqlite

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Open opens the SQLite database at path.
func Open(path string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Opening database", zap.String("path", path))

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	logger.Info("Database opened", zap.String("path", path), zap.Bool("wal_mode", true))
	return db, nil
}
