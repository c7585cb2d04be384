package main

import (
	"strings"

	"github.com/asaidimu/go-memberdata/core/eav"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the CLI configuration. Values come from flags, MEMBERDATA_*
// environment variables (a .env file is honoured) and an optional config
// file, in that order of precedence.
type Config struct {
	Database       string `mapstructure:"database"`
	Prefix         string `mapstructure:"prefix"`
	Cutoff         int    `mapstructure:"cutoff"`
	FilterMinCount int    `mapstructure:"filter_min_count"`
	LogLevel       string `mapstructure:"log_level"`
	Development    bool   `mapstructure:"development"`
	// Actor is recorded as modifier or deletor of every write.
	Actor int64 `mapstructure:"actor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "memberdata.db")
	v.SetDefault("prefix", eav.DefaultPrefix)
	v.SetDefault("cutoff", eav.DefaultCutoff)
	v.SetDefault("filter_min_count", 1)
	v.SetDefault("log_level", "warn")
	v.SetDefault("development", false)
	v.SetDefault("actor", 0)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MEMBERDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// loadConfig reads the config file, when one is set, and decodes v.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	return &cfg, nil
}

// StoreOptions converts the configuration into store options.
func (c *Config) StoreOptions() *eav.Options {
	return &eav.Options{
		Prefix:         c.Prefix,
		Cutoff:         c.Cutoff,
		FilterMinCount: c.FilterMinCount,
	}
}

func newLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
