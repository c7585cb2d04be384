// Package schema describes the per-sheet attribute configuration: the closed
// set of attribute types, the default rules each type carries, and the
// sanitisation applied before a configuration is stored.
package schema

import "strings"

// AttributeType is the declared type of an attribute. Values are stored as
// text; the type decides how they compare and which rules apply by default.
type AttributeType string

const (
	AttributeTypeText     AttributeType = "text"
	AttributeTypeInt      AttributeType = "int"
	AttributeTypeNumber   AttributeType = "number"
	AttributeTypeEmail    AttributeType = "email"
	AttributeTypeMoney    AttributeType = "money"
	AttributeTypeDate     AttributeType = "date"
	AttributeTypeDateTime AttributeType = "datetime"
	AttributeTypeEnum     AttributeType = "enum"
)

// IsNumeric reports whether values of this type order numerically.
func (t AttributeType) IsNumeric() bool {
	switch t {
	case AttributeTypeInt, AttributeTypeNumber, AttributeTypeMoney:
		return true
	}
	return false
}

// IsTemporal reports whether values of this type are calendar dates.
func (t AttributeType) IsTemporal() bool {
	return t == AttributeTypeDate || t == AttributeTypeDateTime
}

// Attribute is one schema entry of a sheet.
type Attribute struct {
	Name    string        `json:"name" yaml:"name"`
	Type    AttributeType `json:"type" yaml:"type"`
	Rules   string        `json:"rules" yaml:"rules"`
	Options string        `json:"options,omitempty" yaml:"options,omitempty"`
	Filter  bool          `json:"filter,omitempty" yaml:"filter,omitempty"`

	// OriginalName is only present on incoming configuration and requests a
	// rename of the stored values from OriginalName to Name.
	OriginalName string `json:"originalName,omitempty" yaml:"originalName,omitempty"`
}

// EnumOptions returns the accepted values of an enum attribute. Options are
// separated by '|'.
func (a Attribute) EnumOptions() []string {
	if a.Options == "" {
		return nil
	}
	parts := strings.Split(a.Options, "|")
	opts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return opts
}

// Renamed reports whether the entry requests a rename of stored values.
func (a Attribute) Renamed() bool {
	return a.OriginalName != "" && a.OriginalName != a.Name
}

// Schema is the ordered attribute list of one sheet.
type Schema []Attribute

// Find returns the attribute with the given name, or nil.
func (s Schema) Find(name string) *Attribute {
	for i := range s {
		if s[i].Name == name {
			return &s[i]
		}
	}
	return nil
}

// Filterable returns the attributes flagged as filterable, in schema order.
func (s Schema) Filterable() Schema {
	var out Schema
	for _, a := range s {
		if a.Filter {
			out = append(out, a)
		}
	}
	return out
}

// Names returns the attribute names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}
