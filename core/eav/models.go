package eav

import (
	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/rules"
	"github.com/asaidimu/go-memberdata/core/schema"
)

// Record is a member flattened with its attribute values.
type Record map[string]any

// Sheet groups members that share one attribute schema.
type Sheet struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Modifier    int64   `json:"modifier"`
	Modified    string  `json:"modified"`
	Deletor     *int64  `json:"deletor,omitempty"`
	SoftDeleted *string `json:"softdeleted,omitempty"`
}

// IsNew reports whether the sheet has not been persisted yet.
func (s *Sheet) IsNew() bool {
	return s.ID == 0
}

// Fields implements rules.Model.
func (s *Sheet) Fields() []rules.Field {
	return []rules.Field{
		{Name: "name", Type: schema.AttributeTypeText, Rules: "required|trim|max=100"},
	}
}

// Get implements rules.Model.
func (s *Sheet) Get(field string) any {
	if field == "name" {
		return s.Name
	}
	return nil
}

// Set implements rules.Model.
func (s *Sheet) Set(field string, value any) {
	if field == "name" {
		s.Name = query.ToString(value)
	}
}

// Member is the base entity. Its domain data lives in EVA rows.
type Member struct {
	ID          int64   `json:"id"`
	SheetID     int64   `json:"sheet_id"`
	Modifier    int64   `json:"modifier"`
	Modified    string  `json:"modified"`
	Deletor     *int64  `json:"deletor,omitempty"`
	SoftDeleted *string `json:"softdeleted,omitempty"`
}

// IsNew reports whether the member has not been persisted yet.
func (m *Member) IsNew() bool {
	return m.ID == 0
}

// Value is one EVA row: the value of one attribute of one member.
type Value struct {
	ID        int64   `json:"id"`
	MemberID  int64   `json:"member_id"`
	Attribute string  `json:"attribute"`
	Value     *string `json:"value"`
	Modifier  int64   `json:"modifier"`
	Modified  string  `json:"modified"`
}

func optionalInt(v any) *int64 {
	if v == nil {
		return nil
	}
	i, ok := query.ToInt64(v)
	if !ok {
		return nil
	}
	return &i
}

func optionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := query.ToString(v)
	return &s
}

func intOf(v any) int64 {
	i, _ := query.ToInt64(v)
	return i
}

func sheetFromRow(row query.Row) *Sheet {
	return &Sheet{
		ID:          intOf(row["id"]),
		Name:        query.ToString(row["name"]),
		Modifier:    intOf(row["modifier"]),
		Modified:    query.ToString(row["modified"]),
		Deletor:     optionalInt(row["deletor"]),
		SoftDeleted: optionalString(row["softdeleted"]),
	}
}

func memberFromRow(row query.Row) *Member {
	return &Member{
		ID:          intOf(row["id"]),
		SheetID:     intOf(row["sheet_id"]),
		Modifier:    intOf(row["modifier"]),
		Modified:    query.ToString(row["modified"]),
		Deletor:     optionalInt(row["deletor"]),
		SoftDeleted: optionalString(row["softdeleted"]),
	}
}
