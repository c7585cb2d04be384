package eav

import (
	"strings"
	"unicode"
)

// DefaultPrefix is prepended to every table name unless configured otherwise.
const DefaultPrefix = "memberdata_"

// DefaultCutoff is the total below which retrieval ignores paging.
const DefaultCutoff = 100

// Tables holds the table names of one store.
type Tables struct {
	Member string
	EVA    string
	Sheet  string
	Config string
}

// NewTables derives the table names from prefix. Characters other than
// letters, digits and underscores are dropped from the prefix.
func NewTables(prefix string) Tables {
	prefix = strings.Map(func(r rune) rune {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return r
		}
		return -1
	}, prefix)
	return Tables{
		Member: prefix + "member",
		EVA:    prefix + "eva",
		Sheet:  prefix + "sheet",
		Config: prefix + "config",
	}
}

// TrashPolicy decides whether soft-deleted entities are visible.
type TrashPolicy int

const (
	// ExcludeTrashed hides soft-deleted entities.
	ExcludeTrashed TrashPolicy = iota
	// IncludeTrashed shows soft-deleted entities alongside live ones.
	IncludeTrashed
)

// Options configures a Store.
type Options struct {
	// Prefix is prepended to table names. Nil options use DefaultPrefix.
	Prefix string
	// Cutoff applies to queries that do not set one. Zero means DefaultCutoff.
	Cutoff int
	// FilterMinCount is the minimum number of members that must share a
	// value before it is offered as a filter option. Zero means 1.
	FilterMinCount int
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() *Options {
	return &Options{
		Prefix:         DefaultPrefix,
		Cutoff:         DefaultCutoff,
		FilterMinCount: 1,
	}
}

func (o *Options) normalize() {
	if o.Cutoff <= 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.FilterMinCount <= 0 {
		o.FilterMinCount = 1
	}
}
