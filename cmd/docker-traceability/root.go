package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auto-dns/docker-traceability/internal/app"
	"github.com/auto-dns/docker-traceability/internal/config"
	"github.com/auto-dns/docker-traceability/internal/logger"
)

type contextKey string

const configKey = contextKey("config")

// newApplication is swapped in tests.
var newApplication = func(cfg *config.Config, log zerolog.Logger) (application, error) {
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "docker-traceability",
	Short: "Record Docker containers and images as build references",
	Long:  "Watches the Docker daemon and records a reference run for every container and image it observes, using etcd as a backend.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if err := config.InitConfig(configFile); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		cmd.SetContext(ctx)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cmd.Context().Value(configKey).(*config.Config)
		logInstance := logger.SetupLogger(&cfg.Logging)

		application, err := newApplication(cfg, logInstance)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer func() {
			if err := application.Close(); err != nil {
				logInstance.Error().Err(err).Msg("Error closing application")
			}
		}()

		// Create a context with cancellation for graceful shutdown.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case sig := <-sigCh:
				logInstance.Info().Msgf("Received signal: %v", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		// Run the application. When context is canceled, Run returns.
		if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	},
}

// withApplication builds the application for one-shot subcommands.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, a application) error) error {
	cfg := cmd.Context().Value(configKey).(*config.Config)
	logInstance := logger.SetupLogger(&cfg.Logging)

	application, err := newApplication(cfg, logInstance)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logInstance.Error().Err(err).Msg("Error closing application")
		}
	}()
	return fn(cmd.Context(), application)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "INFO", "set log level (e.g. INFO, DEBUG, WARN)")
	cobra.CheckErr(viper.BindPFlag("log.log_level", rootCmd.PersistentFlags().Lookup("log-level")))

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	rootCmd.AddCommand(newRecordCmd(), newRunsCmd())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}
