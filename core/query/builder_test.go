package query

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SelectSQL(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Builder
		sql    string
		params []any
	}{
		{
			name: "fields are deduplicated",
			build: func() *Builder {
				return New(nil, nil).Select("id", "name").Select("id").From("members")
			},
			sql:    "SELECT id, name FROM members",
			params: []any{},
		},
		{
			name: "reselect replaces the projection",
			build: func() *Builder {
				return New(nil, nil).Select("id", "name").From("members").Where("id", 7).Reselect("name", "name", "sheet_id")
			},
			sql:    "SELECT name, sheet_id FROM members WHERE id = ?",
			params: []any{7},
		},
		{
			name: "no fields selects everything",
			build: func() *Builder {
				return New(nil, nil).From("members")
			},
			sql:    "SELECT * FROM members",
			params: []any{},
		},
		{
			name: "where and operators",
			build: func() *Builder {
				return New(nil, nil).From("members").Where("sheet_id", 3).WhereOp("age", ">=", 18).OrWhereOp("name", "like", "%jo%")
			},
			sql:    "SELECT * FROM members WHERE sheet_id = ? AND age >= ? OR name LIKE ?",
			params: []any{3, 18, "%jo%"},
		},
		{
			name: "first connector is ignored",
			build: func() *Builder {
				return New(nil, nil).From("members").OrWhere("id", 1).Where("sheet_id", 2)
			},
			sql:    "SELECT * FROM members WHERE id = ? AND sheet_id = ?",
			params: []any{1, 2},
		},
		{
			name: "nil values compare with IS NULL",
			build: func() *Builder {
				var missing *string
				return New(nil, nil).From("members").Where("softdeleted", nil).WhereOp("deletor", "<>", nil).OrWhere("value", missing)
			},
			sql:    "SELECT * FROM members WHERE softdeleted IS NULL AND deletor IS NOT NULL OR value IS NULL",
			params: []any{},
		},
		{
			name: "nil with other operators compiles to NULL literal",
			build: func() *Builder {
				return New(nil, nil).From("members").WhereOp("age", ">", nil)
			},
			sql:    "SELECT * FROM members WHERE age > NULL",
			params: []any{},
		},
		{
			name: "where in",
			build: func() *Builder {
				return New(nil, nil).From("eva").WhereIn("member_id", 1, 2, 3)
			},
			sql:    "SELECT * FROM eva WHERE member_id IN (?, ?, ?)",
			params: []any{1, 2, 3},
		},
		{
			name: "empty where in matches nothing",
			build: func() *Builder {
				return New(nil, nil).From("eva").WhereIn("member_id")
			},
			sql:    "SELECT * FROM eva WHERE member_id IN (NULL)",
			params: []any{},
		},
		{
			name: "where in sub-select",
			build: func() *Builder {
				return New(nil, nil).From("eva").Where("attribute", "age").WhereInFunc("member_id", func(sub *Builder) {
					sub.Select("id").From("members").Where("sheet_id", 4)
				})
			},
			sql:    "SELECT * FROM eva WHERE attribute = ? AND member_id IN (SELECT id FROM members WHERE sheet_id = ?)",
			params: []any{"age", 4},
		},
		{
			name: "where exists",
			build: func() *Builder {
				return New(nil, nil).From("sheets").WhereExists(func(sub *Builder) {
					sub.Select("1").From("members").WhereRaw("members.sheet_id = sheets.id")
				})
			},
			sql:    "SELECT * FROM sheets WHERE EXISTS (SELECT 1 FROM members WHERE members.sheet_id = sheets.id)",
			params: []any{},
		},
		{
			name: "raw expressions bind their arguments",
			build: func() *Builder {
				return New(nil, nil).From("members").WhereRaw("id BETWEEN ? AND ?", 1, 9).OrWhereRaw("sheet_id IS NULL")
			},
			sql:    "SELECT * FROM members WHERE id BETWEEN ? AND ? OR sheet_id IS NULL",
			params: []any{1, 9},
		},
		{
			name: "grouped clause",
			build: func() *Builder {
				return New(nil, nil).From("members").Where("sheet_id", 1).WhereGroup(func(sub *Builder) {
					sub.Where("a", 1).OrWhere("b", 2)
				}).OrWhereGroup(func(sub *Builder) {
					sub.Where("c", 3)
				})
			},
			sql:    "SELECT * FROM members WHERE sheet_id = ? AND (a = ? OR b = ?) OR (c = ?)",
			params: []any{1, 1, 2, 3},
		},
		{
			name: "join against a sub-select",
			build: func() *Builder {
				return New(nil, nil).Select("members.id").From("members").
					JoinSub(JoinTypeLeft, func(sub *Builder) {
						sub.Select("member_id", "value").From("eva").Where("attribute", "age")
					}, "eva0", "eva0.member_id = members.id").
					Where("members.sheet_id", 2)
			},
			sql:    "SELECT members.id FROM members LEFT JOIN (SELECT member_id, value FROM eva WHERE attribute = ?) AS eva0 ON eva0.member_id = members.id WHERE members.sheet_id = ?",
			params: []any{"age", 2},
		},
		{
			name: "join shortcuts",
			build: func() *Builder {
				return New(nil, nil).From("members").InnerJoin("sheets", "s", "s.id = members.sheet_id").RightJoin("eva", "", "eva.member_id = members.id")
			},
			sql:    "SELECT * FROM members INNER JOIN sheets AS s ON s.id = members.sheet_id RIGHT JOIN eva ON eva.member_id = members.id",
			params: []any{},
		},
		{
			name: "grouping and having",
			build: func() *Builder {
				return New(nil, nil).Select("value", "COUNT(*) AS cnt").From("eva").GroupBy("value").Having("COUNT(*) >= ?", 2)
			},
			sql:    "SELECT value, COUNT(*) AS cnt FROM eva GROUP BY value HAVING COUNT(*) >= ?",
			params: []any{2},
		},
		{
			name: "ordering defaults to ascending",
			build: func() *Builder {
				return New(nil, nil).From("members").OrderBy("eva0.value IS NULL", SortDirectionAsc).OrderBy("eva0.value", "sideways").
					OrderByList(Order{Field: "id", Direction: SortDirectionDesc})
			},
			sql:    "SELECT * FROM members ORDER BY eva0.value IS NULL ASC, eva0.value ASC, id DESC",
			params: []any{},
		},
		{
			name: "limit and offset",
			build: func() *Builder {
				return New(nil, nil).From("members").Limit(10).Offset(20)
			},
			sql:    "SELECT * FROM members LIMIT 10 OFFSET 20",
			params: []any{},
		},
		{
			name: "offset without limit",
			build: func() *Builder {
				return New(nil, nil).From("members").Offset(5)
			},
			sql:    "SELECT * FROM members LIMIT -1 OFFSET 5",
			params: []any{},
		},
		{
			name: "page",
			build: func() *Builder {
				return New(nil, nil).From("members").Page(3, 25)
			},
			sql:    "SELECT * FROM members LIMIT 25 OFFSET 50",
			params: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := tt.build().SelectSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestBuilder_SubMergesIntoParent(t *testing.T) {
	b := New(nil, nil).Select("members.id").From("members")
	sub := b.Sub()
	assert.True(t, sub.IsSub())
	sub.OrWhereOp("LOWER(al0.value)", "like", "%jo%").OrWhere("al0.value", "30").OrWhere("al0.value", nil)

	clauseText, err := sub.Clause()
	require.NoError(t, err)
	assert.Contains(t, clauseText, "LOWER(al0.value) LIKE {")
	assert.NotContains(t, clauseText, "%jo%")

	parent := sub.End()
	assert.Same(t, b, parent)
	b.Where("members.softdeleted", nil)

	sql, params, err := b.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT members.id FROM members WHERE (LOWER(al0.value) LIKE ? OR al0.value = ? OR al0.value IS NULL) AND members.softdeleted IS NULL", sql)
	assert.Equal(t, []any{"%jo%", "30"}, params)
	assert.NotContains(t, sql, "jo")
}

func TestBuilder_OrSub(t *testing.T) {
	b := New(nil, nil).From("members").Where("sheet_id", 1)
	b.OrSub().Where("id", 5).Where("softdeleted", nil).End()

	sql, params, err := b.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM members WHERE sheet_id = ? OR (id = ? AND softdeleted IS NULL)", sql)
	assert.Equal(t, []any{1, 5}, params)
}

func TestBuilder_EmptySubLeavesParentUnchanged(t *testing.T) {
	b := New(nil, nil).From("members")
	b.Sub().End()

	sql, _, err := b.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM members", sql)
}

func TestBuilder_TokensDoNotCollide(t *testing.T) {
	a := New(nil, nil)
	b := New(nil, nil)
	assert.NotEqual(t, a.Bind(1), b.Bind(1))

	sub := a.Sub()
	assert.NotEqual(t, a.Bind("x"), sub.Bind("y"))
	assert.Regexp(t, tokenPattern, sub.Bind("z"))
}

func TestBuilder_CountSQL(t *testing.T) {
	b := New(nil, nil).Select("members.id").From("members").
		LeftJoin("eva", "eva0", "eva0.member_id = members.id").
		Where("members.softdeleted", nil).
		OrderBy("members.id", SortDirectionDesc).
		Limit(10)

	sql, params, err := b.CountSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS cnt FROM members LEFT JOIN eva AS eva0 ON eva0.member_id = members.id WHERE members.softdeleted IS NULL", sql)
	assert.Empty(t, params)

	grouped := New(nil, nil).Select("value").From("eva").Where("attribute", "age").GroupBy("value")
	sql, params, err = grouped.CountSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS cnt FROM (SELECT value FROM eva WHERE attribute = ? GROUP BY value) AS grouped", sql)
	assert.Equal(t, []any{"age"}, params)
}

func TestBuilder_WriteSQL(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		sql, params, err := New(nil, nil).From("eva").Set("member_id", 1).Set("attribute", "age").Set("value", nil).Set("attribute", "name").InsertSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO eva (member_id, attribute, value) VALUES (?, ?, NULL)", sql)
		assert.Equal(t, []any{1, "name"}, params)
	})

	t.Run("update", func(t *testing.T) {
		sql, params, err := New(nil, nil).From("members").SetMap(map[string]any{"modifier": 2, "deletor": 3}).Where("id", 9).UpdateSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE members SET deletor = ?, modifier = ? WHERE id = ?", sql)
		assert.Equal(t, []any{3, 2, 9}, params)
	})

	t.Run("delete", func(t *testing.T) {
		sql, params, err := New(nil, nil).From("eva").Where("member_id", 4).DeleteSQL()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM eva WHERE member_id = ?", sql)
		assert.Equal(t, []any{4}, params)
	})

	t.Run("insert without values", func(t *testing.T) {
		_, _, err := New(nil, nil).From("eva").InsertSQL()
		assert.True(t, errors.Is(err, ErrConfiguration))
	})

	t.Run("update without values", func(t *testing.T) {
		_, _, err := New(nil, nil).From("eva").Where("id", 1).UpdateSQL()
		assert.True(t, errors.Is(err, ErrConfiguration))
	})
}

func TestBuilder_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		name string
		run  func() error
	}{
		{"no source table", func() error {
			_, err := New(db, nil).Where("id", 1).First(ctx)
			return err
		}},
		{"invalid operator", func() error {
			_, err := New(db, nil).From("members").WhereOp("id", "~=", 1).Get(ctx)
			return err
		}},
		{"invalid join type", func() error {
			_, err := New(db, nil).From("members").Join("outer", "eva", "e", "e.id = members.id").Get(ctx)
			return err
		}},
		{"raw argument mismatch", func() error {
			_, err := New(db, nil).From("members").WhereRaw("id = ?").Count(ctx)
			return err
		}},
		{"executing a sub-builder", func() error {
			_, err := New(db, nil).From("members").Sub().Get(ctx)
			return err
		}},
		{"error inside a sub-select", func() error {
			_, err := New(db, nil).From("eva").WhereInFunc("member_id", func(sub *Builder) {
				sub.Select("id")
			}).Get(ctx)
			return err
		}},
		{"no executor", func() error {
			_, err := New(nil, nil).From("members").Get(ctx)
			return err
		}},
		{"end on root", func() error {
			return New(db, nil).End().Err()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			assert.False(t, errors.Is(err, ErrDatabase))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMock(t *testing.T) (*Builder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil), mock
}

func TestBuilder_Execution(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectQuery("SELECT id, name FROM members WHERE sheet_id = ?").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), []byte("Ann")).AddRow(int64(2), "Bob"))

		rows, err := b.Select("id", "name").From("members").Where("sheet_id", 1).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Row{{"id": int64(1), "name": "Ann"}, {"id": int64(2), "name": "Bob"}}, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectQuery("SELECT * FROM members WHERE id = ? LIMIT 1").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		row, err := b.From("members").Where("id", 7).First(ctx)
		require.NoError(t, err)
		assert.Equal(t, Row{"id": int64(7)}, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first without match", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectQuery("SELECT * FROM members WHERE id = ? LIMIT 1").
			WithArgs(8).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		row, err := b.From("members").Where("id", 8).First(ctx)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("count", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectQuery("SELECT COUNT(*) AS cnt FROM members WHERE softdeleted IS NULL").
			WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(int64(3)))

		n, err := b.Select("id").From("members").Where("softdeleted", nil).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("insert", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectExec("INSERT INTO members (sheet_id) VALUES (?)").
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(11, 1))

		id, err := b.From("members").Set("sheet_id", 2).Insert(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), id)
	})

	t.Run("update", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectExec("UPDATE eva SET value = ? WHERE member_id = ? AND attribute = ?").
			WithArgs("31", 1, "age").
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := b.From("eva").Set("value", "31").Where("member_id", 1).Where("attribute", "age").Update(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectExec("DELETE FROM eva WHERE member_id = ?").
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := b.From("eva").Where("member_id", 1).Delete(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("database failures are marked", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectQuery("SELECT * FROM members").WillReturnError(errors.New("disk I/O error"))

		_, err := b.From("members").Get(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDatabase))
		assert.False(t, errors.Is(err, ErrConfiguration))
		assert.Contains(t, err.Error(), "disk I/O error")
	})

	t.Run("exec failures are marked", func(t *testing.T) {
		b, mock := newMock(t)
		mock.ExpectExec("DELETE FROM members WHERE id = ?").WithArgs(1).WillReturnError(errors.New("locked"))

		_, err := b.From("members").Where("id", 1).Delete(ctx)
		assert.True(t, errors.Is(err, ErrDatabase))
	})
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want ComparisonOperator
		ok   bool
	}{
		{"=", ComparisonOperatorEq, true},
		{"!=", ComparisonOperatorNeq, true},
		{"LIKE", ComparisonOperatorLike, true},
		{"not  like", ComparisonOperatorNotLike, true},
		{"gte", ComparisonOperatorGte, true},
		{"between", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOperator(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSortDirection(t *testing.T) {
	assert.Equal(t, SortDirectionDesc, ParseSortDirection("DESC"))
	assert.Equal(t, SortDirectionAsc, ParseSortDirection("descending"))
	assert.Equal(t, SortDirectionAsc, ParseSortDirection(""))
}
