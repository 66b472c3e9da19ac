package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deusflow/ofertas/internal/app"
	"github.com/deusflow/ofertas/internal/logger"
)

func newRunCommand() *cobra.Command {
	var continuous, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one selection cycle, or keep running on SCHEDULE with --continuous",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logger.Logger

			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			runner, err := buildApp(cfg, store, dryRun, log)
			if err != nil {
				return err
			}

			if cfg.EnableHTTPMonitoring {
				logger.Info("HTTP monitoring enabled", "port", cfg.MonitoringPort)
				go startMonitoringServer(ctx, cfg.MonitoringPort, log)
			}

			if !continuous {
				_, err := runner.RunCycle(ctx)
				return err
			}
			return runContinuous(ctx, runner, cfg.Schedule, log)
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep running and start a cycle on every SCHEDULE tick")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "select a deal without publishing it or saving the state")
	return cmd
}

// runContinuous runs a cycle right away and then on every schedule tick until
// ctx is done. A tick that arrives while a cycle is still running is dropped.
func runContinuous(ctx context.Context, runner *app.App, schedule string, log zerolog.Logger) error {
	cl := cronLogger{log: log.With().Str("component", "scheduler").Logger()}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		if _, err := runner.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("Selection cycle failed")
		}
	}))

	c := cron.New(cron.WithLogger(cl))
	if _, err := c.AddJob(schedule, job); err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", schedule, err)
	}

	log.Info().Str("schedule", schedule).Msg("Continuous mode started")
	job.Run()
	c.Start()

	<-ctx.Done()
	log.Info().Msg("Shutting down, waiting for the running cycle")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
