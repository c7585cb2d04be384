package main

import (
	"sort"
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/asaidimu/go-memberdata/core/schema"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show and load attribute schemas",
	}

	types := &cobra.Command{
		Use:   "types",
		Short: "List the attribute types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd, schema.Types())
		},
	}

	show := &cobra.Command{
		Use:   "show SHEET_ID",
		Short: "Print the schema of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			attrs, err := a.request().Schema(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, attrs)
		},
	}

	load := &cobra.Command{
		Use:   "load FILE",
		Short: "Store the schemas of a YAML file, creating missing sheets by name",
		Long: `Store the schemas of a YAML file. The file maps sheet names to attribute lists:

  sheets:
    Chess club:
      - name: rating
        type: int
        rules: required
        filter: true
      - name: full-name
        originalName: name
        type: text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			return loadSchemas(cmd, a, file)
		},
	}

	cmd.AddCommand(types, show, load)
	return cmd
}

func loadSchemas(cmd *cobra.Command, a *app, file *schema.File) error {
	ctx := cmd.Context()
	r := a.request()

	sheets, err := a.store.Sheets(ctx, eav.ExcludeTrashed)
	if err != nil {
		return err
	}
	byName := make(map[string]*eav.Sheet, len(sheets))
	for _, s := range sheets {
		byName[s.Name] = s
	}

	names := make([]string, 0, len(file.Sheets))
	for name := range file.Sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	stored := make(map[string]schema.Schema, len(names))
	for _, name := range names {
		sheet, ok := byName[name]
		if !ok {
			sheet = &eav.Sheet{Name: name}
			messages, err := r.SaveSheet(ctx, sheet)
			if err != nil {
				return err
			}
			if len(messages) > 0 {
				return errors.Newf("sheet %q rejected: %s", name, strings.Join(messages, "; "))
			}
		}
		attrs, err := r.SaveConfiguration(ctx, sheet.ID, file.Sheets[name])
		if err != nil {
			return err
		}
		a.logger.Info("Schema loaded", zap.String("sheet", name), zap.Int64("sheet_id", sheet.ID), zap.Int("attributes", len(attrs)))
		stored[name] = attrs
	}
	return writeJSON(cmd, stored)
}
