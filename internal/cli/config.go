package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/relq/internal/cmdcache"
	"github.com/roach88/relq/internal/engine"
	"github.com/roach88/relq/internal/querysql"
)

const (
	flagDialect         = "dialect"
	flagRelationalNulls = "relational-nulls"
)

// Config is the resolved compiler configuration.
type Config struct {
	Dialect         string `mapstructure:"dialect"`
	RelationalNulls bool   `mapstructure:"relational_nulls"`
	CacheSize       int    `mapstructure:"cache_size"`
}

// loadConfig merges defaults, the config file, RELQ_* environment
// variables and flags, later sources winning. A missing relq.yaml is not an
// error; a missing --config file is.
func loadConfig(opts *RootOptions, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault("dialect", querysql.Standard{}.Name())
	v.SetDefault("relational_nulls", false)
	v.SetDefault("cache_size", cmdcache.DefaultMaxEntries)

	v.SetEnvPrefix("RELQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("relq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range map[string]string{
			"dialect":          flagDialect,
			"relational_nulls": flagRelationalNulls,
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := querysql.DialectByName(cfg.Dialect); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newEngine builds an engine from cfg. Logs go to w at Debug level when
// verbose, Warn otherwise.
func newEngine(cfg *Config, verbose bool, w io.Writer, opts ...engine.Option) (*engine.Engine, error) {
	d, err := querysql.DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	base := []engine.Option{
		engine.WithLogger(newLogger(verbose, w)),
		engine.WithRelationalNulls(cfg.RelationalNulls),
		engine.WithCache(cmdcache.New(cfg.CacheSize)),
	}
	return engine.New(d, append(base, opts...)...), nil
}

func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
