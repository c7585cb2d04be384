package main

import (
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("attribute values rejected")

// parseAssignments turns key=value arguments into attribute values. An empty
// value clears the attribute.
func parseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Newf("invalid assignment %q, expected name=value", arg)
		}
		if value == "" {
			values[key] = nil
			continue
		}
		values[key] = value
	}
	return values, nil
}

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Add, update, show and delete members",
	}

	add := &cobra.Command{
		Use:   "add SHEET_ID [name=value ...]",
		Short: "Create a member and store its attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheetID, err := parseID(args[0])
			if err != nil {
				return err
			}
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			m, err := a.request().CreateMember(cmd.Context(), sheetID)
			if err != nil {
				return err
			}
			return saveAttributes(cmd, a, m.ID, values)
		},
	}

	set := &cobra.Command{
		Use:   "set ID name=value [name=value ...]",
		Short: "Store attributes of a member",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return saveAttributes(cmd, a, id, values)
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a member with its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			record, err := a.store.LoadRecord(cmd.Context(), id)
			if err != nil {
				return err
			}
			if record == nil {
				return errors.Wrapf(eav.ErrNotFound, "member %d", id)
			}
			return writeJSON(cmd, record)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Soft-delete a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.request().DeleteMember(cmd.Context(), id)
		},
	}

	cmd.AddCommand(add, set, show, del)
	return cmd
}

func saveAttributes(cmd *cobra.Command, a *app, id int64, values map[string]any) error {
	r := a.request()
	if len(values) == 0 {
		record, err := a.store.LoadRecord(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeJSON(cmd, eav.WriteResult{Record: record})
	}
	res, err := r.SaveAttributes(cmd.Context(), id, values)
	if err != nil {
		return err
	}
	if err := writeJSON(cmd, res); err != nil {
		return err
	}
	if !res.OK() {
		return errRejected
	}
	return nil
}
