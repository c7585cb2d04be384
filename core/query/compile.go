package query

import (
	"strconv"
	"strings"
)

func renderClauses(clauses []clause) string {
	var sb strings.Builder
	for i, c := range clauses {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(string(c.conn))
			sb.WriteString(" ")
		}
		sb.WriteString(c.sql)
	}
	return sb.String()
}

func (b *Builder) requireTable() error {
	if b.err != nil {
		return b.err
	}
	if b.table == "" {
		return configError("no source table configured")
	}
	return nil
}

// sourceText renders FROM, JOIN and WHERE.
func (b *Builder) sourceText() string {
	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)
	for _, j := range b.joins {
		keyword, _ := j.kind.keyword()
		sb.WriteString(" ")
		sb.WriteString(keyword)
		sb.WriteString(" ")
		sb.WriteString(j.source)
		if j.alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(j.alias)
		}
		if j.on != "" {
			sb.WriteString(" ON ")
			sb.WriteString(j.on)
		}
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(renderClauses(b.where))
	}
	return sb.String()
}

func (b *Builder) groupText() string {
	var sb strings.Builder
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(renderClauses(b.having))
	}
	return sb.String()
}

// selectText renders the SELECT statement with placeholder tokens in place.
func (b *Builder) selectText() (string, error) {
	if err := b.requireTable(); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.fields) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.fields, ", "))
	}
	sb.WriteString(b.sourceText())
	sb.WriteString(b.groupText())
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	switch {
	case b.limit > 0:
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	case b.offset > 0:
		sb.WriteString(" LIMIT -1")
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(b.offset))
	}
	return sb.String(), nil
}

// resolve replaces placeholder tokens with positional parameters in the
// order they appear in text. Tokens bound to nil become a literal NULL.
func (b *Builder) resolve(text string) (string, []any) {
	params := []any{}
	sql := tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		value, ok := b.values[token]
		if !ok {
			return token
		}
		if value == nil {
			return "NULL"
		}
		params = append(params, value)
		return "?"
	})
	return sql, params
}

// SelectSQL compiles the SELECT statement and its parameters.
func (b *Builder) SelectSQL() (string, []any, error) {
	text, err := b.selectText()
	if err != nil {
		return "", nil, err
	}
	sql, params := b.resolve(text)
	return sql, params, nil
}

// CountSQL compiles a COUNT(*) over the joins and where clauses. The
// projection, ordering and paging are ignored; grouped statements are
// counted through a derived table.
func (b *Builder) CountSQL() (string, []any, error) {
	if err := b.requireTable(); err != nil {
		return "", nil, err
	}
	var text string
	if len(b.groupBy) > 0 {
		fields := "*"
		if len(b.fields) > 0 {
			fields = strings.Join(b.fields, ", ")
		}
		text = "SELECT COUNT(*) AS cnt FROM (SELECT " + fields + b.sourceText() + b.groupText() + ") AS grouped"
	} else {
		text = "SELECT COUNT(*) AS cnt" + b.sourceText()
	}
	sql, params := b.resolve(text)
	return sql, params, nil
}

// InsertSQL compiles an INSERT of the assigned values.
func (b *Builder) InsertSQL() (string, []any, error) {
	if err := b.requireTable(); err != nil {
		return "", nil, err
	}
	if len(b.sets) == 0 {
		return "", nil, configError("insert into %s without values", b.table)
	}
	fields := make([]string, len(b.sets))
	tokens := make([]string, len(b.sets))
	for i, s := range b.sets {
		fields[i] = s.field
		tokens[i] = s.token
	}
	sql, params := b.resolve("INSERT INTO " + b.table + " (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(tokens, ", ") + ")")
	return sql, params, nil
}

// UpdateSQL compiles an UPDATE of the assigned values restricted by the where clauses.
func (b *Builder) UpdateSQL() (string, []any, error) {
	if err := b.requireTable(); err != nil {
		return "", nil, err
	}
	if len(b.sets) == 0 {
		return "", nil, configError("update of %s without values", b.table)
	}
	assignments := make([]string, len(b.sets))
	for i, s := range b.sets {
		assignments[i] = s.field + " = " + s.token
	}
	text := "UPDATE " + b.table + " SET " + strings.Join(assignments, ", ")
	if len(b.where) > 0 {
		text += " WHERE " + renderClauses(b.where)
	}
	sql, params := b.resolve(text)
	return sql, params, nil
}

// DeleteSQL compiles a DELETE restricted by the where clauses.
func (b *Builder) DeleteSQL() (string, []any, error) {
	if err := b.requireTable(); err != nil {
		return "", nil, err
	}
	text := "DELETE FROM " + b.table
	if len(b.where) > 0 {
		text += " WHERE " + renderClauses(b.where)
	}
	sql, params := b.resolve(text)
	return sql, params, nil
}
