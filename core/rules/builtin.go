package rules

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/schema"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func builtins() map[string]RuleFunc {
	m := map[string]RuleFunc{
		"required": requiredRule,
		"nullable": passRule,
		"skip":     passRule,
		"fail":     failRule,
		"int":      intRule,
		"float":    floatRule,
		"bool":     boolRule,
		"trim":     trimRule,
		"upper":    upperRule,
		"lower":    lowerRule,
		"ucfirst":  ucfirstRule,
		"json":     jsonRule,
		"email":    emailRule,
		"url":      urlRule,
		"date":     dateRule,
		"datetime": dateTimeRule,
		"enum":     enumRule,
		"model":    modelRule,
		"contains": containsRule,
	}
	for name, cmp := range comparisons {
		m[name] = compareRule(cmp)
	}
	return m
}

func requiredRule(c *Check, value *any) bool {
	if IsEmpty(*value) {
		return c.Fail("{label} is a required field", nil, nil)
	}
	return true
}

func passRule(*Check, *any) bool {
	return true
}

func failRule(c *Check, _ *any) bool {
	return c.Fail("{label} is an unsupported field", nil, nil)
}

func intRule(_ *Check, value *any) bool {
	s := strings.TrimSpace(query.ToString(*value))
	if i, ok := query.ToInt64(s); ok {
		*value = i
	} else if f, ok := query.ToFloat64(s); ok {
		*value = int64(f)
	} else {
		*value = int64(0)
	}
	return true
}

func floatRule(c *Check, value *any) bool {
	f, ok := query.ToFloat64(strings.TrimSpace(query.ToString(*value)))
	if !ok {
		f = 0
	}
	if format := c.Invocation.Param(0); format != "" {
		if formatted, err := strconv.ParseFloat(fmt.Sprintf(format, f), 64); err == nil {
			f = formatted
		}
	}
	*value = f
	return true
}

func boolRule(_ *Check, value *any) bool {
	if b, ok := (*value).(bool); ok {
		*value = "N"
		if b {
			*value = "Y"
		}
		return true
	}
	switch strings.ToLower(strings.TrimSpace(query.ToString(*value))) {
	case "y", "t", "yes", "true", "on":
		*value = "Y"
	default:
		*value = "N"
	}
	return true
}

func trimRule(_ *Check, value *any) bool {
	*value = strings.TrimSpace(query.ToString(*value))
	return true
}

func upperRule(_ *Check, value *any) bool {
	*value = cases.Upper(language.Und).String(query.ToString(*value))
	return true
}

func lowerRule(_ *Check, value *any) bool {
	*value = cases.Lower(language.Und).String(query.ToString(*value))
	return true
}

func ucfirstRule(_ *Check, value *any) bool {
	s := query.ToString(*value)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return true
	}
	*value = cases.Upper(language.Und).String(string(r)) + s[size:]
	return true
}

func jsonRule(c *Check, value *any) bool {
	data, err := json.Marshal(*value)
	if err != nil {
		return c.Fail("{label} cannot be encoded", nil, nil)
	}
	*value = string(data)
	return true
}

// formats checks the string formats backing the email and url rules.
var formats = validator.New()

func emailRule(c *Check, value *any) bool {
	if formats.Var(strings.TrimSpace(query.ToString(*value)), "email") != nil {
		return c.Fail("{label} is not a correct e-mail address", nil, nil)
	}
	return true
}

func urlRule(c *Check, value *any) bool {
	if formats.Var(strings.TrimSpace(query.ToString(*value)), "url") != nil {
		return c.Fail("{label} is not a correct website", nil, nil)
	}
	return true
}

// dateFormat returns the configured date format when the field is a temporal attribute.
func dateFormat(c *Check) string {
	if c.Field.Type.IsTemporal() {
		return c.Field.Options
	}
	return ""
}

func dateRule(c *Check, value *any) bool {
	if _, err := schema.ParseDate(query.ToString(*value), dateFormat(c)); err != nil {
		return c.Fail("{label} is not a date", nil, nil)
	}
	return true
}

func dateTimeRule(c *Check, value *any) bool {
	if _, err := schema.ParseDateTime(query.ToString(*value), dateFormat(c)); err != nil {
		return c.Fail("{label} is not a date + time", nil, nil)
	}
	return true
}

func enumRule(c *Check, value *any) bool {
	options := c.Invocation.Params
	if len(options) == 0 {
		options = schema.Attribute{Options: c.Field.Options}.EnumOptions()
	}
	if !slices.Contains(options, query.ToString(*value)) {
		encoded, _ := json.Marshal(options)
		return c.Fail("{label} should be one of {p1}", string(encoded), nil)
	}
	return true
}

// modelRule accepts the id of an existing entity of the model named by the
// first parameter and replaces the value with that id.
func modelRule(c *Check, value *any) bool {
	name := c.Invocation.Param(0)
	resolver := c.validator.resolver
	if name == "" || resolver == nil {
		return c.Fail("{label} caused internal model error", nil, nil)
	}
	id, ok := query.ToInt64(strings.TrimSpace(query.ToString(*value)))
	if !ok || id <= 0 {
		return c.Fail("Please select a valid value for {label}", nil, nil)
	}
	exists, err := resolver.Exists(c.Context(), name, id)
	if err != nil {
		c.validator.logger.Error("Model lookup failed", zap.String("model", name), zap.Int64("id", id), zap.Error(err))
		return c.Fail("{label} caused internal model error", nil, nil)
	}
	if !exists {
		return c.Fail("Please select a valid value for {label}", nil, nil)
	}
	*value = id
	return true
}

// containsRule validates each entry of a list against the model named by the
// first parameter. The validated models are stored on the parent model under
// the second parameter, "sublist" by default.
func containsRule(c *Check, value *any) bool {
	name := c.Invocation.Param(0)
	target := c.Invocation.Param(1)
	if target == "" {
		target = "sublist"
	}
	entries, isList := listOfMaps(*value)
	if name == "" || !isList {
		return c.Fail("{label} should be a list of {p1}", name, nil)
	}

	ok := true
	models := make([]Model, 0, len(entries))
	for _, entry := range entries {
		m, found := c.validator.registry.NewModel(name)
		if !found {
			return c.Fail("{label} caused internal model error", nil, nil)
		}
		for k, v := range entry {
			m.Set(k, v)
		}
		valid, messages := c.validator.ValidateModel(c.Context(), m)
		if !valid {
			c.Append(messages...)
			ok = false
		}
		models = append(models, m)
	}
	if c.Model != nil {
		c.Model.Set(target, models)
	}
	return ok
}

func listOfMaps(value any) ([]map[string]any, bool) {
	switch v := value.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}
