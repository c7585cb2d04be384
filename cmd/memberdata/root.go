package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/asaidimu/go-memberdata/sqlite"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what the subcommands share once the root command has opened
// the database.
type app struct {
	v        *viper.Viper
	cfgPath  string
	cfg      *Config
	logger   *zap.Logger
	db       *sql.DB
	store    *eav.Store
	registry *prometheus.Registry
}

func newApp() *app {
	return &app{v: newViper()}
}

// newRootCmd builds the command tree. The caller closes a once the command
// has run.
func newRootCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:   "memberdata",
		Short: "Manage sheets, attribute schemas and members",
		Long: `memberdata manages member records whose attributes are configured per sheet.

Examples:
  memberdata sheet add "Chess club"
  memberdata schema load club.yaml
  memberdata member add 1 name="Alice Smith" age=30
  memberdata query 1 --search name=smith --sort age --desc`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (yaml, toml or json)")
	flags.String("database", "memberdata.db", "path of the SQLite database")
	flags.String("prefix", eav.DefaultPrefix, "table name prefix")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Int64("actor", 0, "user id recorded on writes")
	for key, flag := range map[string]string{
		"database":  "database",
		"prefix":    "prefix",
		"log_level": "log-level",
		"actor":     "actor",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newMigrateCmd(a),
		newSheetCmd(a),
		newSchemaCmd(a),
		newMemberCmd(a),
		newQueryCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logger, err = newLogger(cfg); err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	if a.db, err = sqlite.Open(cfg.Database, a.logger); err != nil {
		return err
	}
	exec := sqlite.NewExecutor(a.db, a.logger, sqlite.NewMetrics(a.registry))
	if a.store, err = eav.NewStore(exec, cfg.StoreOptions(), a.logger, eav.NewMetrics(a.registry)); err != nil {
		return err
	}
	return sqlite.Migrate(cmd.Context(), a.db, a.store.Tables(), a.logger)
}

func (a *app) close() {
	if a.registry != nil {
		a.logMetrics()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) logMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("Failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			fields := []zap.Field{
				zap.String("metric", mf.GetName()),
				zap.Float64("value", m.GetCounter().GetValue()),
			}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			a.logger.Debug("Metric", fields...)
		}
	}
}

func (a *app) request() *eav.Request {
	return a.store.NewRequest(a.cfg.Actor)
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Tables ready in %s\n", a.cfg.Database)
			return err
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid id %q", s)
	}
	return id, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
