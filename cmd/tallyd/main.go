// Command tallyd serves the tally engine over HTTP on the in-memory store.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/api"
	audithook "github.com/xraph/tally/audit_hook"
	"github.com/xraph/tally/events/kafka"
	"github.com/xraph/tally/store/memory"
)

func main() {
	if err := run(); err != nil {
		slog.Error("tallyd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))

	eng := tally.New(memory.New(), engineOptions(cfg, logger)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	app := api.NewApp(eng)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = app.ShutdownWithContext(shutdownCtx)
	}

	if stopErr := eng.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// engineOptions turns cfg into engine options.
func engineOptions(cfg *Config, logger *slog.Logger) []tally.Option {
	opts := []tally.Option{
		tally.WithLogger(logger),
		tally.WithTolerance(cfg.tolerance()),
		tally.WithPageSize(cfg.PageSize),
		tally.WithSweepInterval(cfg.SweepInterval),
	}

	if len(cfg.KafkaBrokers) > 0 {
		opts = append(opts, tally.WithPlugin(kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic,
			kafka.WithLogger(logger),
		)))
	}

	if cfg.Audit {
		opts = append(opts, tally.WithPlugin(audithook.New(
			audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
				logger.Info("audit",
					"action", evt.Action,
					"resource", evt.Resource,
					"resource_id", evt.ResourceID,
					"outcome", evt.Outcome,
					"severity", evt.Severity,
				)
				return nil
			}),
			audithook.WithLogger(logger),
		)))
	}

	return opts
}
