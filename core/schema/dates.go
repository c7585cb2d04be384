package schema

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"02-01-2006",
		"2 January 2006",
		"January 2, 2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}

	dateTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		time.RFC3339,
		"2006-01-02",
	}

	// patternLayout maps letter pattern characters onto Go reference layout fragments.
	patternLayout = map[rune]string{
		'Y': "2006", 'y': "06",
		'm': "01", 'n': "1",
		'd': "02", 'j': "2",
		'M': "Jan", 'F': "January",
		'D': "Mon", 'l': "Monday",
		'H': "15", 'G': "15",
		'h': "03", 'g': "3",
		'i': "04", 's': "05",
		'A': "PM", 'a': "pm",
		'T': "MST", 'P': "-07:00", 'O': "-0700",
	}
)

// LayoutFromPattern converts a letter pattern such as "Y-m-d H:i:s", the form
// stored in attribute options, into a Go time layout. Unknown letters are copied verbatim; '\' escapes the next character.
func LayoutFromPattern(format string) string {
	var sb strings.Builder
	escaped := false
	for _, r := range format {
		if escaped {
			sb.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if frag, ok := patternLayout[r]; ok {
			sb.WriteString(frag)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseDate parses s as a calendar date. The letter pattern, when given, is
// tried before the built-in layouts. The result is truncated to midnight UTC.
func ParseDate(s, format string) (time.Time, error) {
	t, err := parseWith(s, format, dateLayouts)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseDateTime parses s as a date with a time of day.
func ParseDateTime(s, format string) (time.Time, error) {
	return parseWith(s, format, dateTimeLayouts)
}

func parseWith(s, format string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("invalid date: empty")
	}
	if format != "" {
		if t, err := time.Parse(LayoutFromPattern(format), s); err == nil {
			return t, nil
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("invalid date: %q", s)
}
