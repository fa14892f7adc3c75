package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"

	"migration-harness/internal/api"
	"migration-harness/internal/config"
	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/pipeline"
	"migration-harness/internal/store"
)

func main() {
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Getenv, log)
	stop()
	if err != nil {
		log.Errorf("Harness failed: %v", err)
		os.Exit(1)
	}
}

// run resolves the configuration and drives one harness run. Everything it
// opens is released before it returns.
func run(ctx context.Context, args []string, getenv func(string) string, log *logger.Logger) error {
	cfg, err := config.FromArgs(args, getenv)
	if err != nil {
		return errors.Annotate(err, "invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	l, err := layout.New(cfg.Root)
	if err != nil {
		return errors.Annotate(err, "invalid root")
	}

	// The tracking database is optional: a run goes on without it.
	var tracker pipeline.Tracker = pipeline.NopTracker{}
	var db *store.Store
	if err := os.MkdirAll(l.ArtifactsDir, 0755); err != nil {
		log.WithError(err).Warn("Tracking disabled")
	} else if db, err = store.Open(l.Resolve(cfg.TrackingDB)); err != nil {
		log.WithError(err).Warn("Tracking disabled")
		db = nil
	} else {
		defer func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("Closing tracking database")
			}
		}()
		tracker = db
	}

	o, err := pipeline.New(cfg, engine.NewContainers(cfg, log), log, pipeline.Options{
		Tracker: tracker,
		Console: os.Stdout,
		Hold:    holdFunc(cfg, db, log),
	})
	if err != nil {
		return errors.Annotate(err, "invalid configuration")
	}

	_, err = o.Run(ctx)
	return errors.Trace(err)
}

// holdFunc serves the inspection API while the document engine is held,
// when an address is configured and tracking is available.
func holdFunc(cfg config.Config, db *store.Store, log *logger.Logger) pipeline.HoldFunc {
	if cfg.StatusAddr == "" || db == nil {
		return pipeline.WaitForCancel
	}
	return func(ctx context.Context, runID string, _ engine.DocumentStore) error {
		r := api.NewRouter(db, log)
		addr, err := r.Start(cfg.StatusAddr)
		if err != nil {
			return err
		}
		log.Infof("Inspection API: http://%s/api/v1/runs/%s", addr, runID)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return r.Shutdown(shutdownCtx)
	}
}
