package rules

import (
	"context"
	"reflect"

	"go.uber.org/zap"
)

// Result is the outcome of validating one field.
type Result struct {
	// Value is the value after coercion rules ran.
	Value    any
	Messages []string
	// Skipped is set when the rule spec contains skip; the value must not be persisted.
	Skipped bool
	OK      bool
}

// Validator runs rule specifications against fields and models.
type Validator struct {
	registry *Registry
	resolver Resolver
	logger   *zap.Logger
}

// NewValidator creates a validator. The resolver backs the model rule and may be nil.
func NewValidator(registry *Registry, resolver Resolver, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry(logger)
	}
	return &Validator{
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

// Registry returns the registry the validator resolves rules from.
func (v *Validator) Registry() *Registry {
	return v.registry
}

// ValidateField validates a standalone value.
func (v *Validator) ValidateField(ctx context.Context, field Field, value any) Result {
	return v.validateField(ctx, nil, field, value)
}

// ValidateModel validates every field declared by m and writes coerced values
// back into it. All fields are evaluated even after a failure.
func (v *Validator) ValidateModel(ctx context.Context, m Model) (bool, []string) {
	if m == nil || (reflect.ValueOf(m).Kind() == reflect.Ptr && reflect.ValueOf(m).IsNil()) {
		return false, []string{"No object found"}
	}

	ok := true
	var messages []string
	for _, field := range m.Fields() {
		res := v.validateField(ctx, m, field, m.Get(field.Name))
		if res.Skipped {
			continue
		}
		m.Set(field.Name, res.Value)
		messages = append(messages, res.Messages...)
		ok = res.OK && ok
	}
	if !ok && len(messages) == 0 {
		messages = []string{"There were errors"}
	}
	return ok, messages
}

func (v *Validator) validateField(ctx context.Context, m Model, field Field, value any) Result {
	invocations := Parse(field.Rules)
	for _, inv := range invocations {
		if inv.Name == "skip" {
			return Result{Value: value, Skipped: true, OK: true}
		}
	}

	var modelRules map[string]RuleFunc
	if provider, ok := m.(RuleProvider); ok {
		modelRules = provider.ModelRules()
	}

	check := &Check{Field: field, Model: m, ctx: ctx, validator: v}
	ok := true
	for _, inv := range invocations {
		if inv.Name != "required" && IsEmpty(value) {
			continue
		}
		check.Invocation = inv

		fn, found := modelRules[inv.Name]
		if !found {
			fn, found = v.registry.Lookup(inv.Name)
		}
		if !found {
			v.logger.Warn("Unsupported rule", zap.String("rule", inv.Name), zap.String("field", field.Name))
			ok = check.Fail("{label} uses unsupported rule {rule}", nil, nil) && ok
			continue
		}
		ok = fn(check, &value) && ok
	}

	return Result{Value: value, Messages: check.messages, OK: ok}
}

// IsEmpty reports whether value counts as absent. Only nil, the empty string
// and empty lists or maps are empty; "0", 0 and false are values.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
