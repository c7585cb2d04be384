package schema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		fallback string
		want     string
	}{
		{"plain", "age", "int", "age"},
		{"trimmed", "  first_name  ", "text", "first_name"},
		{"strips punctuation", "e-mail (work)!", "email", "e-mailwork"},
		{"keeps unicode letters", "größe", "number", "größe"},
		{"empty falls back", " !! ", "text", "text"},
		{"invalid utf8 falls back", "a\xffb", "text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in, tt.fallback))
		})
	}
}

func TestSanitize(t *testing.T) {
	in := Schema{
		{Name: "Age!", Type: AttributeTypeInt, Rules: "required", Filter: true},
		{Name: "colour", Type: "colour"},
		{Name: "", Type: AttributeTypeEmail},
		{Name: "Age", Type: AttributeTypeText},
	}
	out := Sanitize(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Age", out[0].Name)
	assert.Equal(t, "required", out[0].Rules)
	assert.True(t, out[0].Filter)
	assert.Equal(t, "email", out[1].Name)
}

func TestSchema_FindAndFilterable(t *testing.T) {
	s := Schema{
		{Name: "name", Type: AttributeTypeText},
		{Name: "age", Type: AttributeTypeInt, Filter: true},
	}
	require.NotNil(t, s.Find("age"))
	assert.Equal(t, AttributeTypeInt, s.Find("age").Type)
	assert.Nil(t, s.Find("missing"))
	assert.Equal(t, []string{"age"}, s.Filterable().Names())
	assert.Equal(t, []string{"name", "age"}, s.Names())
}

func TestAttribute_Options(t *testing.T) {
	enum := Attribute{Name: "size", Type: AttributeTypeEnum, Options: "S| M |L||"}
	assert.Equal(t, []string{"S", "M", "L"}, enum.EnumOptions())

	money := Attribute{Name: "fee", Type: AttributeTypeMoney}
	assert.Equal(t, "%.2f", money.OptionsOrDefault())
	assert.Empty(t, Attribute{Type: AttributeTypeText}.OptionsOrDefault())

	assert.True(t, Attribute{Name: "b", OriginalName: "a"}.Renamed())
	assert.False(t, Attribute{Name: "a", OriginalName: "a"}.Renamed())
	assert.False(t, Attribute{Name: "a"}.Renamed())
}

func TestTypes(t *testing.T) {
	all := Types()
	require.Len(t, all, 8)
	assert.Equal(t, AttributeTypeText, all[0].Type)

	ti, ok := LookupType(AttributeTypeDateTime)
	require.True(t, ok)
	assert.Equal(t, "Date + Time", ti.Label)
	assert.Equal(t, "datetime", ti.Rules)

	_, ok = LookupType("colour")
	assert.False(t, ok)

	assert.True(t, AttributeTypeMoney.IsNumeric())
	assert.False(t, AttributeTypeEnum.IsNumeric())
	assert.True(t, AttributeTypeDate.IsTemporal())
}

func TestLayoutFromPattern(t *testing.T) {
	assert.Equal(t, "2006-01-02", LayoutFromPattern("Y-m-d"))
	assert.Equal(t, "2006-01-02 15:04:05", LayoutFromPattern("Y-m-d H:i:s"))
	assert.Equal(t, "02/01/06", LayoutFromPattern("d/m/y"))
	assert.Equal(t, "2 January 2006 at 15:04", LayoutFromPattern(`j F Y \a\t H:i`))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		format  string
		want    time.Time
		wantErr bool
	}{
		{"iso", "2024-02-29", "", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"configured format", "29/02/2024", "d/m/Y", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"datetime truncates", "2024-03-01 13:45:00", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"invalid day", "2023-02-29", "", time.Time{}, true},
		{"garbage", "yesterday-ish", "", time.Time{}, true},
		{"empty", "  ", "", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("2024-03-01 13:45:10", "")
	require.NoError(t, err)
	assert.Equal(t, 13, got.Hour())

	got, err = ParseDateTime("2024-03-01T08:00", "")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())

	_, err = ParseDateTime("13:45", "")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `sheets:
  Members:
    - name: " Full name "
      type: text
      rules: required|trim|max=100
    - name: age
      type: int
      rules: int
      filter: true
    - name: shoe
      type: shoe
  Volunteers:
    - name: email
      type: email
      rules: required|email
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	members := f.Sheets["Members"]
	require.Len(t, members, 2)
	assert.Equal(t, "Fullname", members[0].Name)
	assert.Equal(t, "required|trim|max=100", members[0].Rules)
	assert.True(t, members[1].Filter)
	assert.Equal(t, "email", f.Sheets["Volunteers"][0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("sheets: [not, a, map"))
	assert.Error(t, err)
}

func TestAttribute_EffectiveRules(t *testing.T) {
	tests := []struct {
		name string
		attr Attribute
		want string
	}{
		{"text has no defaults", Attribute{Type: AttributeTypeText, Rules: "required|max=20"}, "required|max=20"},
		{"defaults appended", Attribute{Type: AttributeTypeInt, Rules: "required|int"}, "required|int|min=0"},
		{"configured rule wins", Attribute{Type: AttributeTypeNumber, Rules: "min=5"}, "min=5"},
		{"no duplicate email", Attribute{Type: AttributeTypeEmail, Rules: "required|email"}, "required|email"},
		{"empty configuration", Attribute{Type: AttributeTypeDate}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.attr.EffectiveRules())
		})
	}
}
