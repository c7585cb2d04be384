package query

import (
	"context"
	"database/sql"
	"strings"
)

// Row is a single record read back from the database, keyed by column name.
type Row map[string]any

// Executor is the part of *sql.DB and *sql.Tx the Builder needs to run statements.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Connector joins a where clause to the clauses before it.
type Connector string

// Supported connectors.
const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// ComparisonOperator defines the set of operators accepted by Where and its variants.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq      ComparisonOperator = "="
	ComparisonOperatorNeq     ComparisonOperator = "<>"
	ComparisonOperatorLt      ComparisonOperator = "<"
	ComparisonOperatorLte     ComparisonOperator = "<="
	ComparisonOperatorGt      ComparisonOperator = ">"
	ComparisonOperatorGte     ComparisonOperator = ">="
	ComparisonOperatorLike    ComparisonOperator = "LIKE"
	ComparisonOperatorNotLike ComparisonOperator = "NOT LIKE"
)

// operatorAliases maps every accepted spelling onto its canonical operator.
var operatorAliases = map[string]ComparisonOperator{
	"=":        ComparisonOperatorEq,
	"eq":       ComparisonOperatorEq,
	"<>":       ComparisonOperatorNeq,
	"!=":       ComparisonOperatorNeq,
	"neq":      ComparisonOperatorNeq,
	"<":        ComparisonOperatorLt,
	"lt":       ComparisonOperatorLt,
	"<=":       ComparisonOperatorLte,
	"lte":      ComparisonOperatorLte,
	">":        ComparisonOperatorGt,
	"gt":       ComparisonOperatorGt,
	">=":       ComparisonOperatorGte,
	"gte":      ComparisonOperatorGte,
	"like":     ComparisonOperatorLike,
	"not like": ComparisonOperatorNotLike,
}

// ParseOperator resolves an operator spelling (case-insensitive). The second
// return value is false for anything outside the supported set.
func ParseOperator(op string) (ComparisonOperator, bool) {
	canonical, ok := operatorAliases[strings.ToLower(strings.Join(strings.Fields(op), " "))]
	return canonical, ok
}

// SortDirection specifies the direction for sorting.
type SortDirection string

// Supported sort directions.
const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// ParseSortDirection returns SortDirectionDesc for the literal "desc" (any case)
// and SortDirectionAsc for everything else.
func ParseSortDirection(dir string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(dir), string(SortDirectionDesc)) {
		return SortDirectionDesc
	}
	return SortDirectionAsc
}

// Order is one entry of an ordered list of sort instructions.
type Order struct {
	Field     string
	Direction SortDirection
}

// JoinType specifies the type of join to be performed.
type JoinType string

// Supported join types.
const (
	JoinTypeInner JoinType = "inner"
	JoinTypeLeft  JoinType = "left"
	JoinTypeRight JoinType = "right"
)

func (j JoinType) keyword() (string, bool) {
	switch j {
	case JoinTypeInner:
		return "INNER JOIN", true
	case JoinTypeLeft, "":
		return "LEFT JOIN", true
	case JoinTypeRight:
		return "RIGHT JOIN", true
	}
	return "", false
}
