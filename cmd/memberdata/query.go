package main

import (
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	searches []string
	values   []string
	sorter   string
	desc     bool
	offset   int
	pageSize int
	cutoff   int
	trashed  bool
}

// spec converts the flags into a query specification. A --value with an
// empty right-hand side matches members without a value.
func (f *queryFlags) spec(sheetID int64) (eav.QuerySpec, error) {
	spec := eav.QuerySpec{
		SheetID:  sheetID,
		Offset:   f.offset,
		PageSize: f.pageSize,
		Filter:   make(map[string]eav.AttributeFilter),
		Sorter:   f.sorter,
		Cutoff:   f.cutoff,
	}
	if f.desc {
		spec.SortDirection = "desc"
	}
	if f.trashed {
		spec.Trashed = eav.IncludeTrashed
	}

	for _, s := range f.searches {
		attr, term, ok := strings.Cut(s, "=")
		if !ok || attr == "" {
			return spec, errors.Newf("invalid search %q, expected name=term", s)
		}
		filter := spec.Filter[attr]
		filter.Search = &term
		spec.Filter[attr] = filter
	}
	for _, v := range f.values {
		attr, value, ok := strings.Cut(v, "=")
		if !ok || attr == "" {
			return spec, errors.Newf("invalid value %q, expected name=value", v)
		}
		filter := spec.Filter[attr]
		if value == "" {
			filter.Values = append(filter.Values, nil)
		} else {
			filter.Values = append(filter.Values, &value)
		}
		spec.Filter[attr] = filter
	}
	return spec, nil
}

func newQueryCmd(a *app) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query SHEET_ID",
		Short: "Filter, sort and page the members of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheetID, err := parseID(args[0])
			if err != nil {
				return err
			}
			spec, err := f.spec(sheetID)
			if err != nil {
				return err
			}
			res, err := a.request().Retrieve(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&f.searches, "search", nil, "substring search as name=term, repeatable")
	flags.StringArrayVar(&f.values, "value", nil, "accepted value as name=value, repeatable")
	flags.StringVar(&f.sorter, "sort", "", "attribute to sort by, or id")
	flags.BoolVar(&f.desc, "desc", false, "sort descending")
	flags.IntVar(&f.offset, "offset", 0, "rows to skip when paging")
	flags.IntVar(&f.pageSize, "pagesize", 0, "page size, 0 disables paging")
	flags.IntVar(&f.cutoff, "cutoff", 0, "total up to which paging is ignored (default from config)")
	flags.BoolVar(&f.trashed, "trashed", false, "include deleted members")
	return cmd
}
