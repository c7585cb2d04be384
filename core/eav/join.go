package eav

import (
	"strconv"

	"github.com/asaidimu/go-memberdata/core/query"
)

// WithEva joins the value of attribute onto the member rows of b under alias.
// Members without a value for the attribute keep their row with a NULL value.
func (s *Store) WithEva(b *query.Builder, attribute, alias string) *query.Builder {
	return b.JoinSub(query.JoinTypeLeft, func(sub *query.Builder) {
		sub.Select("member_id", "value").
			From(s.tables.EVA).
			Where("attribute", attribute)
	}, alias, alias+".member_id = "+s.tables.Member+".id")
}

// joinContext hands out one join alias per attribute for the lifetime of a
// single query, so filtering and sorting on the same attribute share a join.
type joinContext struct {
	store   *Store
	builder *query.Builder
	aliases map[string]string
}

func (s *Store) newJoinContext(b *query.Builder) *joinContext {
	return &joinContext{
		store:   s,
		builder: b,
		aliases: make(map[string]string),
	}
}

// alias returns the alias under which attribute is joined, adding the join
// the first time the attribute is seen.
func (jc *joinContext) alias(attribute string) string {
	if a, ok := jc.aliases[attribute]; ok {
		return a
	}
	a := "eva" + strconv.Itoa(len(jc.aliases))
	jc.aliases[attribute] = a
	jc.store.WithEva(jc.builder, attribute, a)
	return a
}
