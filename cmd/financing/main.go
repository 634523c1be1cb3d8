// Command financing runs the vehicle financing API and its Zeebe job
// workers, and manages the database schema and demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle-financing/internal/common/config"
	"vehicle-financing/internal/common/database"
	"vehicle-financing/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev" // set by the linker

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds a fresh command tree so tests can run it in isolation.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "financing",
		Short:        "Vehicle financing API, loan workers and tooling",
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/config.yaml)")

	load := func() (*config.Config, error) {
		if cfgFile != "" {
			return config.LoadFromFile(cfgFile)
		}
		return config.Load()
	}

	cmd.AddCommand(newServeCmd(load), newMigrateCmd(load), newSeedCmd(load))
	return cmd
}

type configLoader func() (*config.Config, error)

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*zap.Logger, logger.Logger) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	return zapLog, logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": version,
	})
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	err = retryWithBackoff(ctx, func() error {
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		pg.Close()
		return nil, err
	}
	log.Info("PostgreSQL connected successfully", nil)
	return pg, nil
}
