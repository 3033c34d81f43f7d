package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/windshadow-calendar/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/windshadow-calendar/internal/adapter/kafka"
	"github.com/couchcryptid/windshadow-calendar/internal/adapter/shapefile"
	"github.com/couchcryptid/windshadow-calendar/internal/adapter/sqlite"
	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/jobs"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
	"github.com/couchcryptid/windshadow-calendar/internal/render"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	metrics := observability.NewMetrics()

	opts := jobs.Options{
		LoadAOI:      shapefile.LoadAOI,
		ProjectsRoot: cfg.ProjectsRoot,
		Location:     cfg.Location,
		Year:         cfg.Year,
		Step:         cfg.Step,
		Workers:      cfg.Workers,
	}

	// Job persistence (disabled with JOBS_DB_PATH="").
	if cfg.JobsDBPath != "" {
		store, err := sqlite.Open(cfg.JobsDBPath)
		if err != nil {
			return fmt.Errorf("open job store: %w", err)
		}
		defer store.Close()
		opts.Store = store
		logger.Info("job store enabled", "path", cfg.JobsDBPath)
	} else {
		logger.Info("job store disabled, jobs are kept in memory")
	}

	// Job completion events (enabled by KAFKA_BROKERS).
	if cfg.EventsEnabled() {
		publisher := kafkaadapter.NewPublisher(cfg, logger, metrics)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts.Publisher = publisher
		logger.Info("job events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaJobTopic)
	} else {
		logger.Info("job events disabled")
	}

	manager := jobs.New(calendar.NewRunner(logger, metrics), logger, metrics, opts)
	if err := manager.Start(parent); err != nil {
		return err
	}

	frames := render.NewFrameCache(cfg.FrameCacheSize, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, manager, frames, metrics, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Error("http server error", "error", runErr)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("job manager shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
