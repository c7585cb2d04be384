// Package rules interprets declarative rule specifications such as
// "required|trim|max=100" against attribute values and models. Rules may
// coerce the value they are applied to; failures are reported as rendered
// message strings, never as Go errors.
package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaidimu/go-memberdata/core/schema"
)

// Invocation is one parsed token of a rule specification.
type Invocation struct {
	Name   string
	Params []string
}

// Param returns the i-th parameter, or "" when it was not supplied.
func (i Invocation) Param(n int) string {
	if n < len(i.Params) {
		return i.Params[n]
	}
	return ""
}

// Parse splits a rule specification into invocations. Tokens are separated
// by '|'; a token of the form name=p1,p2 carries parameters.
func Parse(spec string) []Invocation {
	var out []Invocation
	for _, tok := range strings.Split(spec, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		name, params, hasParams := strings.Cut(tok, "=")
		inv := Invocation{Name: strings.TrimSpace(name)}
		if hasParams {
			for _, p := range strings.Split(params, ",") {
				inv.Params = append(inv.Params, strings.TrimSpace(p))
			}
		}
		out = append(out, inv)
	}
	return out
}

// Field describes one value to validate.
type Field struct {
	Name string
	// Label replaces {label} in messages. Defaults to Name.
	Label string
	// Message, when set, replaces the default template of every failing rule.
	Message string
	Rules   string
	// Type selects how comparison rules interpret the value. When empty the
	// runtime shape of the value decides.
	Type schema.AttributeType
	// Options carries the type-specific configuration, e.g. a date format or
	// the '|' separated values of an enum.
	Options string
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// FieldFor builds the Field used to validate values of a schema attribute.
func FieldFor(a schema.Attribute) Field {
	return Field{
		Name:    a.Name,
		Label:   a.Name,
		Rules:   a.EffectiveRules(),
		Type:    a.Type,
		Options: a.OptionsOrDefault(),
	}
}

// Check is handed to a RuleFunc and carries everything it may need besides
// the value itself.
type Check struct {
	Field      Field
	Invocation Invocation
	// Model is the model being validated, nil for standalone fields.
	Model Model

	ctx       context.Context
	validator *Validator
	messages  []string
}

// Context returns the context of the validation call.
func (c *Check) Context() context.Context {
	return c.ctx
}

// Validator returns the validator running the check.
func (c *Check) Validator() *Validator {
	return c.validator
}

// Fail records a message rendered from template and returns false. The
// field's custom message, when present, takes precedence over template.
func (c *Check) Fail(template string, p1, p2 any) bool {
	if c.Field.Message != "" {
		template = c.Field.Message
	}
	c.messages = append(c.messages, c.render(template, p1, p2))
	return false
}

// Append adds already rendered messages, e.g. those of a nested model.
func (c *Check) Append(messages ...string) {
	c.messages = append(c.messages, messages...)
}

func (c *Check) render(template string, p1, p2 any) string {
	return strings.NewReplacer(
		"{label}", c.Field.label(),
		"{rule}", c.Invocation.Name,
		"{p1}", placeholder(p1),
		"{p2}", placeholder(p2),
	).Replace(template)
}

func placeholder(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// RuleFunc applies one rule to value. It may replace *value and returns
// false after recording a message through c.Fail when the rule fails.
type RuleFunc func(c *Check, value *any) bool

// Model is a target of whole-model validation.
type Model interface {
	// Fields returns the validated fields with their rule specifications.
	Fields() []Field
	Get(field string) any
	Set(field string, value any)
}

// RuleProvider is implemented by models that define business rules of
// their own. A rule name found here takes precedence over the registry.
type RuleProvider interface {
	ModelRules() map[string]RuleFunc
}

// ModelFactory creates an empty model for the contains rule.
type ModelFactory func() Model

// Resolver answers existence checks for the model rule.
type Resolver interface {
	Exists(ctx context.Context, model string, id int64) (bool, error)
}
