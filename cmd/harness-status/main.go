package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/gnuflag"

	"migration-harness/internal/api"
	"migration-harness/internal/logger"
	"migration-harness/internal/store"
)

func main() {
	log := logger.New()

	fs := gnuflag.NewFlagSet("harness-status", gnuflag.ExitOnError)
	dbPath := fs.String("db", "artifacts/harness.db", "path to the tracking database")
	addr := fs.String("addr", ":8080", "listen address")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Parse(true, os.Args[1:])
	log.SetLevel(*level)

	// Init DB
	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Opening tracking database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := api.NewRouter(db, log)
	if _, err := r.Start(*addr); err != nil {
		db.Close()
		log.Fatalf("Starting server: %v", err)
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown")
	}
}
