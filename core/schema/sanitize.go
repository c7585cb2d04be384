package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeName trims name and strips everything except letters, digits,
// dashes and underscores. Invalid UTF-8 or an empty result yields fallback.
func SanitizeName(name, fallback string) string {
	if !utf8.ValidString(name) {
		return fallback
	}
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	return name
}

// Sanitize drops entries of an unknown type and cleans attribute names. When
// two entries end up with the same name, the first one wins.
func Sanitize(in Schema) Schema {
	out := make(Schema, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		if _, ok := LookupType(a.Type); !ok {
			continue
		}
		a.Name = SanitizeName(a.Name, string(a.Type))
		a.OriginalName = strings.TrimSpace(a.OriginalName)
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}
	return out
}
