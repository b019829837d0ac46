package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sipico/vssv/internal/api"
	"github.com/sipico/vssv/internal/config"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"database-driver":    config.KeyDatabaseDriver,
	"database-url":       config.KeyDatabaseURL,
	"db-max-connections": config.KeyDBMaxConnections,
	"listen":             config.KeyListen,
	"metrics-listen":     config.KeyMetricsListen,
	"log-format":         config.KeyLogFormat,
	"log-level":          config.KeyLogLevel,
	"use-x-real-ip":      config.KeyUseXRealIP,
	"max-secret-size":    config.KeyMaxSecretSize,
	"shutdown-timeout":   config.KeyShutdownTimeout,
}

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:           "vssv",
		Short:         "A very simple secret vault",
		Version:       version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd, rf)
		},
	}

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.StringVarP(&rf.configFile, "config", "c", "", "config file (.toml, .yaml or .yml)")
	pf.StringVar(&rf.envFile, "env-file", ".env", "dotenv file merged into the environment if present")
	pf.String("database-driver", defaults.DatabaseDriver, "database driver: sqlite or postgres")
	pf.String("database-url", defaults.DatabaseURL, "SQLite file path or PostgreSQL connection URL")
	pf.Int("db-max-connections", defaults.DBMaxConnections, "connection pool size (0 = driver default)")
	pf.String("listen", defaults.Listen, "API listen address")
	pf.String("metrics-listen", defaults.MetricsListen, "metrics listen address (empty disables)")
	pf.String("log-format", defaults.LogFormat, "log format: text, text-color or json")
	pf.String("log-level", defaults.LogLevel, "log level: trace, debug, info, warn or error")
	pf.Bool("use-x-real-ip", defaults.UseXRealIP, "take audit client addresses from X-Real-IP")
	pf.Int64("max-secret-size", defaults.MaxSecretSize, "maximum secret upload size in bytes")
	pf.Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the vault server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd, rf)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database schema and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := migrate(loadOptions(cmd, rf)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				info := api.NewVersionInfo(version)
				fmt.Fprintf(cmd.OutOrStdout(), "vssv %s (git %s)\n", info.Version, info.Git)
			},
		},
	)

	return root
}

func serve(cmd *cobra.Command, rf rootFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, loadOptions(cmd, rf))
}

// loadOptions turns the flags the user actually set into config overrides,
// so unset flags do not mask file or environment values.
func loadOptions(cmd *cobra.Command, rf rootFlags) config.LoadOptions {
	opts := config.LoadOptions{
		File:      rf.configFile,
		EnvFile:   rf.envFile,
		Overrides: map[string]any{},
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			opts.Overrides[key] = f.Value.String()
		}
	})
	return opts
}
