package schema

import (
	"slices"
	"strings"
)

// TypeInfo describes an attribute type as offered to operators.
type TypeInfo struct {
	Type  AttributeType `json:"type" yaml:"type"`
	Label string        `json:"label" yaml:"label"`
	// Rules are applied in addition to the rules configured on the attribute.
	Rules string `json:"rules" yaml:"rules"`
	// HasOptions is set for types that take a free-text options value.
	HasOptions bool `json:"options" yaml:"options"`
	// OptionsDefault is used when an attribute of this type has no options.
	OptionsDefault string `json:"optdefault,omitempty" yaml:"optdefault,omitempty"`
}

var types = []TypeInfo{
	{Type: AttributeTypeText, Label: "Text"},
	{Type: AttributeTypeInt, Label: "Integer", Rules: "min=0"},
	{Type: AttributeTypeNumber, Label: "Number", Rules: "min=0"},
	{Type: AttributeTypeEmail, Label: "E-mail", Rules: "email"},
	{Type: AttributeTypeMoney, Label: "Money", Rules: "min=0", HasOptions: true, OptionsDefault: "%.2f"},
	{Type: AttributeTypeDate, Label: "Date", Rules: "date", HasOptions: true, OptionsDefault: "Y-m-d"},
	{Type: AttributeTypeDateTime, Label: "Date + Time", Rules: "datetime", HasOptions: true, OptionsDefault: "Y-m-d H:i:s"},
	{Type: AttributeTypeEnum, Label: "Enumeration", Rules: "enum", HasOptions: true, OptionsDefault: "opt1|opt2"},
}

// Types returns the supported attribute types in display order.
func Types() []TypeInfo {
	return slices.Clone(types)
}

// LookupType returns the description of t.
func LookupType(t AttributeType) (TypeInfo, bool) {
	for _, ti := range types {
		if ti.Type == t {
			return ti, true
		}
	}
	return TypeInfo{}, false
}

// OptionsOrDefault returns the configured options of a, or the default of its type.
func (a Attribute) OptionsOrDefault() string {
	if a.Options != "" {
		return a.Options
	}
	ti, _ := LookupType(a.Type)
	return ti.OptionsDefault
}

// EffectiveRules returns the configured rules of a followed by the default
// rules of its type that the configuration does not already name.
func (a Attribute) EffectiveRules() string {
	ti, _ := LookupType(a.Type)
	if ti.Rules == "" {
		return a.Rules
	}
	present := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Split(a.Rules, "|") {
		if tok = strings.TrimSpace(tok); tok != "" {
			present[ruleName(tok)] = true
			tokens = append(tokens, tok)
		}
	}
	for _, tok := range strings.Split(ti.Rules, "|") {
		if !present[ruleName(tok)] {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, "|")
}

func ruleName(token string) string {
	name, _, _ := strings.Cut(token, "=")
	return strings.TrimSpace(name)
}
