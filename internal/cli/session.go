package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/tabula/internal/config"
	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/metrics"
)

// Environment variables that override configuration file values.
const (
	EnvPrefix = "TABULA"
	EnvStrict = "TABULA_STRICT"
	EnvDriver = "TABULA_DRIVER"
)

// SessionOptions holds the flags shared by commands that open a driver.
type SessionOptions struct {
	Strict   bool
	Driver   string
	Database string
	Metrics  bool
}

// addSessionFlags registers the driver override flags on cmd.
func addSessionFlags(cmd *cobra.Command, opts *SessionOptions) {
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "strict mode: missing records raise NOT_FOUND (env "+EnvStrict+")")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "driver override: memory|sqlite (env "+EnvDriver+")")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path override")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print operation counters to stderr")
}

// resolveConfig loads the configuration file and applies overrides in
// viper's precedence: changed flag, then environment, then file value.
func resolveConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetDefault("strict", cfg.StrictMode)
	v.SetDefault("driver", cfg.Driver)
	v.SetDefault("db", cfg.Database)
	for _, key := range []string{"strict", "driver", "db"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
		if f := cmd.Flags().Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg.StrictMode = v.GetBool("strict")
	cfg.Driver = v.GetString("driver")
	cfg.Database = v.GetString("db")
	if cfg.Driver != config.DriverMemory && cfg.Driver != config.DriverSQLite {
		return nil, &config.Error{Field: "driver", Message: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
	return cfg, nil
}

// session is an open, instrumented driver for one command invocation.
type session struct {
	driver   driver.Driver
	config   *config.Config
	registry *prometheus.Registry
}

// openDriver builds the configured driver. Tests replace it.
var openDriver = func(cfg *config.Config) (driver.Driver, error) {
	return cfg.Open(driver.WithLogger(slog.Default()))
}

// openSession resolves the configuration at path and connects its driver.
func openSession(ctx context.Context, cmd *cobra.Command, path string) (*session, error) {
	cfg, err := resolveConfig(cmd, path)
	if err != nil {
		return nil, err
	}

	d, err := openDriver(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	s := &session{
		driver:   metrics.Instrument(d, metrics.New(reg)),
		config:   cfg,
		registry: reg,
	}
	if err := s.driver.Connect(ctx); err != nil {
		if derr := d.Disconnect(ctx); derr != nil {
			slog.Default().Warn("disconnect failed", "driver", cfg.Driver, "error", derr)
		}
		return nil, fmt.Errorf("connect %s driver: %w", cfg.Driver, err)
	}
	return s, nil
}

// close disconnects the driver and, when requested, prints the counters.
func (s *session) close(ctx context.Context, opts *SessionOptions, w io.Writer) {
	if opts.Metrics {
		writeMetrics(w, s.registry)
	}
	if err := s.driver.Disconnect(ctx); err != nil {
		slog.Default().Warn("disconnect failed", "driver", s.config.Driver, "error", err)
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) {
	samples, err := metrics.Summary(g)
	if err != nil {
		fmt.Fprintf(w, "metrics unavailable: %v\n", err)
		return
	}
	for _, s := range samples {
		fmt.Fprintf(w, "%s{%s} %g\n", s.Name, s.Labels, s.Value)
	}
}

// checkPath reports a missing file as a command error.
func checkPath(formatter *OutputFormatter, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("config not found: %s", path))
	}
	return nil
}
