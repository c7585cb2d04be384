// Package query provides a fluent builder for parameterised SQL statements.
// Values handed to the builder are never written into the statement text:
// each one is bound to a placeholder token that is unique to the builder
// instance that minted it, and the tokens are turned into positional
// parameters only when the statement is compiled.
package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenPattern matches the placeholder tokens minted by Bind.
var tokenPattern = regexp.MustCompile(`\{p[0-9a-f]{12}_[0-9]+\}`)

type clause struct {
	conn Connector
	sql  string
}

type join struct {
	kind   JoinType
	source string
	alias  string
	on     string
}

type assignment struct {
	field string
	token string
}

// Builder accumulates the fragments of a single statement. A Builder is not
// safe for concurrent use; build one per logical query.
type Builder struct {
	exec   Executor
	logger *zap.Logger

	// parent is set for sub-builders, whose clauses and values are merged
	// back into the parent instead of being executed.
	parent *Builder
	conn   Connector

	ns     string
	seq    int
	values map[string]any

	fields  []string
	table   string
	joins   []join
	where   []clause
	groupBy []string
	having  []clause
	orderBy []string
	limit   int
	offset  int
	sets    []assignment

	err error
}

// New creates an empty builder that runs its statements on exec.
func New(exec Executor, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		exec:   exec,
		logger: logger,
		ns:     newNamespace(),
		values: make(map[string]any),
	}
}

func newNamespace() string {
	return "p" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// child creates a builder that shares the executor and logger of b and owns
// its own placeholder namespace.
func (b *Builder) child(conn Connector) *Builder {
	c := New(b.exec, b.logger)
	c.parent = b
	c.conn = conn
	return c
}

// fail records the first error raised while assembling the statement. It is
// reported by the execution and compile methods.
func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded while the statement was assembled.
func (b *Builder) Err() error {
	return b.err
}

// Bind registers value and returns the placeholder token standing in for it.
// A nil value compiles to a literal NULL.
func (b *Builder) Bind(value any) string {
	b.seq++
	token := "{" + b.ns + "_" + strconv.Itoa(b.seq) + "}"
	b.values[token] = normalizeValue(value)
	return token
}

// merge adopts the bound values of another builder.
func (b *Builder) merge(other *Builder) {
	for token, value := range other.values {
		b.values[token] = value
	}
	if other.err != nil {
		b.fail(other.err)
	}
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		return *v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	}
	return value
}

func isNull(value any) bool {
	return normalizeValue(value) == nil
}

// Select adds fields to the projection. Fields already selected are ignored.
func (b *Builder) Select(fields ...string) *Builder {
	for _, f := range fields {
		if f != "" && !slices.Contains(b.fields, f) {
			b.fields = append(b.fields, f)
		}
	}
	return b
}

// Reselect replaces the projection.
func (b *Builder) Reselect(fields ...string) *Builder {
	b.fields = nil
	return b.Select(fields...)
}

// From sets the source table.
func (b *Builder) From(table string) *Builder {
	b.table = table
	return b
}

// Where adds an equality predicate joined with AND. A nil value yields IS NULL.
func (b *Builder) Where(field string, value any) *Builder {
	return b.addWhere(ConnectorAnd, field, string(ComparisonOperatorEq), value)
}

// WhereOp adds a predicate using the given operator, joined with AND.
func (b *Builder) WhereOp(field, op string, value any) *Builder {
	return b.addWhere(ConnectorAnd, field, op, value)
}

// OrWhere adds an equality predicate joined with OR.
func (b *Builder) OrWhere(field string, value any) *Builder {
	return b.addWhere(ConnectorOr, field, string(ComparisonOperatorEq), value)
}

// OrWhereOp adds a predicate using the given operator, joined with OR.
func (b *Builder) OrWhereOp(field, op string, value any) *Builder {
	return b.addWhere(ConnectorOr, field, op, value)
}

func (b *Builder) addWhere(conn Connector, field, op string, value any) *Builder {
	operator, ok := ParseOperator(op)
	if !ok {
		return b.fail(configError("invalid operator %q for field %q", op, field))
	}
	if field == "" {
		return b.fail(configError("missing field for operator %q", op))
	}
	var sql string
	switch {
	case isNull(value) && operator == ComparisonOperatorEq:
		sql = field + " IS NULL"
	case isNull(value) && operator == ComparisonOperatorNeq:
		sql = field + " IS NOT NULL"
	default:
		sql = field + " " + string(operator) + " " + b.Bind(value)
	}
	b.where = append(b.where, clause{conn: conn, sql: sql})
	return b
}

// WhereRaw adds an expression joined with AND. Each '?' in expr is bound to
// the next argument.
func (b *Builder) WhereRaw(expr string, args ...any) *Builder {
	return b.addRaw(&b.where, ConnectorAnd, expr, args)
}

// OrWhereRaw adds an expression joined with OR.
func (b *Builder) OrWhereRaw(expr string, args ...any) *Builder {
	return b.addRaw(&b.where, ConnectorOr, expr, args)
}

func (b *Builder) addRaw(target *[]clause, conn Connector, expr string, args []any) *Builder {
	if strings.Count(expr, "?") != len(args) {
		return b.fail(configError("expression %q expects %d arguments, got %d", expr, strings.Count(expr, "?"), len(args)))
	}
	var sb strings.Builder
	next := 0
	for _, r := range expr {
		if r == '?' {
			sb.WriteString(b.Bind(args[next]))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	*target = append(*target, clause{conn: conn, sql: sb.String()})
	return b
}

// WhereGroup adds a parenthesised group built by fn, joined with AND.
func (b *Builder) WhereGroup(fn func(sub *Builder)) *Builder {
	sub := b.AndSub()
	fn(sub)
	return sub.End()
}

// OrWhereGroup adds a parenthesised group built by fn, joined with OR.
func (b *Builder) OrWhereGroup(fn func(sub *Builder)) *Builder {
	sub := b.OrSub()
	fn(sub)
	return sub.End()
}

// WhereIn adds a membership predicate. An empty list matches nothing.
func (b *Builder) WhereIn(field string, values ...any) *Builder {
	return b.addIn(ConnectorAnd, field, values)
}

// OrWhereIn adds a membership predicate joined with OR.
func (b *Builder) OrWhereIn(field string, values ...any) *Builder {
	return b.addIn(ConnectorOr, field, values)
}

func (b *Builder) addIn(conn Connector, field string, values []any) *Builder {
	if len(values) == 0 {
		b.where = append(b.where, clause{conn: conn, sql: field + " IN (NULL)"})
		return b
	}
	tokens := make([]string, len(values))
	for i, v := range values {
		tokens[i] = b.Bind(v)
	}
	b.where = append(b.where, clause{conn: conn, sql: field + " IN (" + strings.Join(tokens, ", ") + ")"})
	return b
}

// WhereInFunc adds a membership predicate against the sub-select built by fn.
func (b *Builder) WhereInFunc(field string, fn func(sub *Builder)) *Builder {
	text, ok := b.subSelect(fn)
	if !ok {
		return b
	}
	b.where = append(b.where, clause{conn: ConnectorAnd, sql: field + " IN (" + text + ")"})
	return b
}

// WhereExists adds an EXISTS predicate against the sub-select built by fn.
func (b *Builder) WhereExists(fn func(sub *Builder)) *Builder {
	text, ok := b.subSelect(fn)
	if !ok {
		return b
	}
	b.where = append(b.where, clause{conn: ConnectorAnd, sql: "EXISTS (" + text + ")"})
	return b
}

// subSelect builds a nested SELECT and merges its values into b. The
// returned text still carries placeholder tokens.
func (b *Builder) subSelect(fn func(sub *Builder)) (string, bool) {
	sub := b.child(ConnectorAnd)
	fn(sub)
	text, err := sub.selectText()
	b.merge(sub)
	if err != nil {
		b.fail(err)
		return "", false
	}
	return text, true
}

// Sub creates a nested builder whose clauses are merged into b with AND when
// End is called.
func (b *Builder) Sub() *Builder {
	return b.child(ConnectorAnd)
}

// AndSub is an alias for Sub.
func (b *Builder) AndSub() *Builder {
	return b.child(ConnectorAnd)
}

// OrSub creates a nested builder whose clauses are merged into b with OR.
func (b *Builder) OrSub() *Builder {
	return b.child(ConnectorOr)
}

// IsSub reports whether b was created by Sub, AndSub or OrSub.
func (b *Builder) IsSub() bool {
	return b.parent != nil
}

// Clause returns the compiled where clause of a sub-builder, with its
// placeholder tokens still in place.
func (b *Builder) Clause() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return renderClauses(b.where), nil
}

// End merges the clauses and bound values of a sub-builder into its parent
// as one parenthesised clause and returns the parent. A sub-builder without
// clauses leaves the parent unchanged.
func (b *Builder) End() *Builder {
	if b.parent == nil {
		return b.fail(configError("End called on a builder that is not a sub-builder"))
	}
	p := b.parent
	p.merge(b)
	if len(b.where) > 0 {
		p.where = append(p.where, clause{conn: b.conn, sql: "(" + renderClauses(b.where) + ")"})
	}
	return p
}

// Join registers a join against table under alias.
func (b *Builder) Join(kind JoinType, table, alias, on string) *Builder {
	if _, ok := kind.keyword(); !ok {
		return b.fail(configError("invalid join type %q", kind))
	}
	b.joins = append(b.joins, join{kind: kind, source: table, alias: alias, on: on})
	return b
}

// JoinSub registers a join against the parenthesised sub-select built by fn.
func (b *Builder) JoinSub(kind JoinType, fn func(sub *Builder), alias, on string) *Builder {
	text, ok := b.subSelect(fn)
	if !ok {
		return b
	}
	return b.Join(kind, "("+text+")", alias, on)
}

// LeftJoin is shorthand for Join(JoinTypeLeft, ...).
func (b *Builder) LeftJoin(table, alias, on string) *Builder {
	return b.Join(JoinTypeLeft, table, alias, on)
}

// InnerJoin is shorthand for Join(JoinTypeInner, ...).
func (b *Builder) InnerJoin(table, alias, on string) *Builder {
	return b.Join(JoinTypeInner, table, alias, on)
}

// RightJoin is shorthand for Join(JoinTypeRight, ...).
func (b *Builder) RightJoin(table, alias, on string) *Builder {
	return b.Join(JoinTypeRight, table, alias, on)
}

// GroupBy adds grouping fields.
func (b *Builder) GroupBy(fields ...string) *Builder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

// Having adds a HAVING expression joined with AND. Each '?' in expr is bound
// to the next argument.
func (b *Builder) Having(expr string, args ...any) *Builder {
	return b.addRaw(&b.having, ConnectorAnd, expr, args)
}

// OrderBy appends a sort instruction.
func (b *Builder) OrderBy(field string, dir SortDirection) *Builder {
	if dir != SortDirectionDesc {
		dir = SortDirectionAsc
	}
	b.orderBy = append(b.orderBy, field+" "+strings.ToUpper(string(dir)))
	return b
}

// OrderByList appends several sort instructions, keeping their order.
func (b *Builder) OrderByList(orders ...Order) *Builder {
	for _, o := range orders {
		b.OrderBy(o.Field, o.Direction)
	}
	return b
}

// Limit bounds the number of rows returned. Zero means unbounded.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.offset = n
	return b
}

// Page sets limit and offset for a 1-based page number.
func (b *Builder) Page(page, size int) *Builder {
	if page < 1 {
		page = 1
	}
	return b.Limit(size).Offset((page - 1) * size)
}

// Set assigns a column value for Insert and Update. Setting the same field
// twice keeps the last value.
func (b *Builder) Set(field string, value any) *Builder {
	token := b.Bind(value)
	for i := range b.sets {
		if b.sets[i].field == field {
			b.sets[i].token = token
			return b
		}
	}
	b.sets = append(b.sets, assignment{field: field, token: token})
	return b
}

// SetMap assigns several column values in key order.
func (b *Builder) SetMap(values map[string]any) *Builder {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.Set(k, values[k])
	}
	return b
}
