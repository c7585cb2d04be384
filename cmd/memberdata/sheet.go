package main

import (
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newSheetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "List, add, rename and delete sheets",
	}

	var trashed bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List sheets ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy := eav.ExcludeTrashed
			if trashed {
				policy = eav.IncludeTrashed
			}
			sheets, err := a.store.Sheets(cmd.Context(), policy)
			if err != nil {
				return err
			}
			return writeJSON(cmd, sheets)
		},
	}
	list.Flags().BoolVar(&trashed, "trashed", false, "include deleted sheets")

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveSheet(cmd, a, &eav.Sheet{Name: args[0]})
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sheet, err := a.store.LoadSheet(cmd.Context(), id)
			if err != nil {
				return err
			}
			if sheet == nil {
				return errors.Wrapf(eav.ErrNotFound, "sheet %d", id)
			}
			sheet.Name = args[1]
			return saveSheet(cmd, a, sheet)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Soft-delete a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.request().DeleteSheet(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, add, rename, del)
	return cmd
}

func saveSheet(cmd *cobra.Command, a *app, sheet *eav.Sheet) error {
	messages, err := a.request().SaveSheet(cmd.Context(), sheet)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		return errors.Newf("sheet rejected: %s", strings.Join(messages, "; "))
	}
	return writeJSON(cmd, sheet)
}
