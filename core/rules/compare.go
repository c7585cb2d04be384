package rules

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/schema"
	"github.com/shopspring/decimal"
)

// comparison describes one of the ordering rules. accept receives the sign of
// value compared to the parameter.
type comparison struct {
	accept func(sign int) bool
	value  string
	length string
	date   string
}

var comparisons = map[string]comparison{
	"lt": {
		accept: func(s int) bool { return s < 0 },
		value:  "{label} should be less than {p1}",
		length: "{label} should contain less than {p1} characters",
		date:   "{label} should be before {p1}",
	},
	"lte": lte,
	"max": lte,
	"eq": {
		accept: func(s int) bool { return s == 0 },
		value:  "{label} should be equal to {p1}",
		length: "{label} should contain exactly {p1} characters",
		date:   "{label} should be at {p1}",
	},
	"gt": {
		accept: func(s int) bool { return s > 0 },
		value:  "{label} should be greater than {p1}",
		length: "{label} should contain more than {p1} characters",
		date:   "{label} should be after {p1}",
	},
	"gte": gte,
	"min": gte,
}

var (
	lte = comparison{
		accept: func(s int) bool { return s <= 0 },
		value:  "{label} should be less than or equal to {p1}",
		length: "{label} should contain no more than {p1} characters",
		date:   "{label} should be at or before {p1}",
	}
	gte = comparison{
		accept: func(s int) bool { return s >= 0 },
		value:  "{label} should be greater than or equal to {p1}",
		length: "{label} should contain no less than {p1} characters",
		date:   "{label} should be at or after {p1}",
	}
)

// floatTolerance is the distance below which two numbers compare as equal.
const floatTolerance = 0.0001

type shape int

const (
	shapeNumber shape = iota
	shapeMoney
	shapeDate
	shapeLength
)

// shapeOf picks the comparison domain from the declared type, falling back to
// the runtime shape of the value for untyped fields.
func shapeOf(t schema.AttributeType, value any) shape {
	switch t {
	case schema.AttributeTypeMoney:
		return shapeMoney
	case schema.AttributeTypeInt, schema.AttributeTypeNumber:
		return shapeNumber
	case schema.AttributeTypeDate, schema.AttributeTypeDateTime:
		return shapeDate
	case schema.AttributeTypeText, schema.AttributeTypeEmail, schema.AttributeTypeEnum:
		return shapeLength
	}
	switch v := value.(type) {
	case time.Time:
		return shapeDate
	case decimal.Decimal:
		return shapeMoney
	case string:
		if _, ok := query.ToFloat64(strings.TrimSpace(v)); ok {
			return shapeNumber
		}
		return shapeLength
	}
	return shapeNumber
}

func compareRule(cmp comparison) RuleFunc {
	return func(c *Check, value *any) bool {
		if len(c.Invocation.Params) != 1 || c.Invocation.Params[0] == "" {
			return c.Fail("{label} has an invalid {rule} rule", nil, nil)
		}
		param := c.Invocation.Params[0]

		switch shapeOf(c.Field.Type, *value) {
		case shapeMoney:
			return compareMoney(c, cmp, *value, param)
		case shapeDate:
			return compareDate(c, cmp, *value, param)
		case shapeLength:
			return compareLength(c, cmp, *value, param)
		default:
			return compareNumber(c, cmp, *value, param)
		}
	}
}

func compareNumber(c *Check, cmp comparison, value any, param string) bool {
	p, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return c.Fail("{label} has an invalid {rule} rule", nil, nil)
	}
	v, ok := query.ToFloat64(value)
	if s, isString := value.(string); isString {
		v, ok = query.ToFloat64(strings.TrimSpace(s))
	}
	if !ok {
		return c.Fail("{label} is not a number", nil, nil)
	}
	sign := 0
	if math.Abs(v-p) >= floatTolerance {
		sign = 1
		if v < p {
			sign = -1
		}
	}
	if !cmp.accept(sign) {
		return c.Fail(cmp.value, strconv.FormatFloat(p, 'f', -1, 64), nil)
	}
	return true
}

func compareMoney(c *Check, cmp comparison, value any, param string) bool {
	p, err := decimal.NewFromString(param)
	if err != nil {
		return c.Fail("{label} has an invalid {rule} rule", nil, nil)
	}
	var v decimal.Decimal
	switch val := value.(type) {
	case decimal.Decimal:
		v = val
	case float64:
		v = decimal.NewFromFloat(val)
	default:
		v, err = decimal.NewFromString(strings.TrimSpace(query.ToString(value)))
		if err != nil {
			return c.Fail("{label} is not an amount", nil, nil)
		}
	}
	if !cmp.accept(v.Cmp(p)) {
		return c.Fail(cmp.value, p.String(), nil)
	}
	return true
}

func compareDate(c *Check, cmp comparison, value any, param string) bool {
	p, err := schema.ParseDate(param, dateFormat(c))
	if err != nil {
		return c.Fail("{label} has an invalid {rule} rule", nil, nil)
	}
	var v time.Time
	if t, ok := value.(time.Time); ok {
		v = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	} else if v, err = schema.ParseDate(query.ToString(value), dateFormat(c)); err != nil {
		return c.Fail("{label} is not a date", nil, nil)
	}
	if !cmp.accept(v.Compare(p)) {
		return c.Fail(cmp.date, p.Format("2006-01-02"), nil)
	}
	return true
}

func compareLength(c *Check, cmp comparison, value any, param string) bool {
	p, err := strconv.Atoi(param)
	if err != nil {
		return c.Fail("{label} has an invalid {rule} rule", nil, nil)
	}
	n := utf8.RuneCountInString(query.ToString(value))
	sign := 0
	if n < p {
		sign = -1
	} else if n > p {
		sign = 1
	}
	if !cmp.accept(sign) {
		return c.Fail(cmp.length, p, nil)
	}
	return true
}
