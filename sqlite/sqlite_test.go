package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	tables := eav.NewTables("club_")
	require.NoError(t, Migrate(ctx, db, tables, nil))
	require.NoError(t, Migrate(ctx, db, tables, nil), "migrating twice is a no-op")

	rows, err := query.New(db, nil).
		Select("name").
		From("sqlite_master").
		WhereIn("type", "table", "index").
		WhereOp("name", "like", "club_%").
		OrderBy("name", query.SortDirectionAsc).
		Get(ctx)
	require.NoError(t, err)

	var names []string
	for _, row := range rows {
		names = append(names, query.ToString(row["name"]))
	}
	assert.Equal(t, []string{
		"club_config",
		"club_eva",
		"club_eva_member_attribute",
		"club_member",
		"club_member_sheet",
		"club_sheet",
	}, names)

	insert := func() error {
		_, err := query.New(db, nil).
			From(tables.EVA).
			Set("member_id", 1).
			Set("attribute", "age").
			Set("value", "30").
			Set("modified", "2024-01-01 00:00:00").
			Set("modifier", 1).
			Insert(ctx)
		return err
	}
	require.NoError(t, insert())
	err = insert()
	require.Error(t, err, "one value row per member and attribute")
	assert.True(t, errors.Is(err, query.ErrDatabase))
}

func TestMigrate_Failure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk full"))

	err = Migrate(context.Background(), db, eav.NewTables(eav.DefaultPrefix), zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, query.ErrDatabase))
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewTables(t *testing.T) {
	tables := eav.NewTables(`x"; DROP TABLE y; --`)
	assert.Equal(t, "xDROPTABLEymember", tables.Member)
	assert.Equal(t, "xDROPTABLEyeva", tables.EVA)
	assert.Equal(t, `"a""b"`, quoteIdentifier(`a"b`))
}

func TestExecutor(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	exec := NewExecutor(db, zap.NewNop(), metrics)

	_, err = exec.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	id, err := query.New(exec, nil).From("t").Set("v", "a").Insert(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	row, err := query.New(exec, nil).From("t").Where("id", id).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", row["v"])

	_, err = query.New(exec, nil).From("missing").Get(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, query.ErrDatabase))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("CREATE", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("INSERT", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("SELECT", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Statements.WithLabelValues("SELECT", "error")))
}

func TestStatementKind(t *testing.T) {
	tests := map[string]string{
		"select * from t":         "SELECT",
		"  \n\tUPDATE t SET v = 1": "UPDATE",
		"":                        "UNKNOWN",
	}
	for stmt, expected := range tests {
		assert.Equal(t, expected, statementKind(stmt))
	}
}
