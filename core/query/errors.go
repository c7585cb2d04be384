package query

import "github.com/cockroachdb/errors"

var (
	// ErrConfiguration marks malformed builder usage, such as executing a
	// statement without a source table or passing an unknown operator.
	ErrConfiguration = errors.New("query configuration error")

	// ErrDatabase marks failures reported by the database while running a statement.
	ErrDatabase = errors.New("database error")
)

func configError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func databaseError(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDatabase)
}
