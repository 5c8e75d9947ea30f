package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dittoiod",
	Short: "dittoiod - group management for versioned object containers",
	Long: `dittoiod creates, opens and links groups inside a versioned object
container. Groups are stored as key-value objects with a metadata store and
an attribute store each, and every mutation is tagged with a transaction
number.

The container and its backend are selected by the configuration file
(see "dittoiod config init").`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/dittoiod/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(groupCmd)
}

// loadConfig loads the configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetFormat(cfg.Logging.Format); err != nil {
		return nil, err
	}
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	return cfg, nil
}

// withRuntime builds the runtime for cfg, starts the metrics server if it
// is enabled, runs fn and tears everything down.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *config.Runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := config.InitializeRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to close runtime: %v", err)
		}
	}()

	if srv := rt.Metrics.Server; srv != nil {
		srvCtx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Start(srvCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		defer func() {
			stop()
			<-done
		}()
	}

	return fn(ctx, rt)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
