package engine

import (
	"context"

	"migration-harness/internal/config"
	"migration-harness/internal/logger"
)

// Containers provisions both engines as local containers.
type Containers struct {
	cfg   config.Config
	log   *logger.Logger
	retry RetryConfig
}

var _ Provisioner = (*Containers)(nil)

// NewContainers returns a provisioner for the engines described by cfg.
func NewContainers(cfg config.Config, log *logger.Logger) *Containers {
	return &Containers{cfg: cfg, log: log, retry: StartRetry(cfg.StartAttempts)}
}

// StartRelational implements Provisioner.
func (p *Containers) StartRelational(ctx context.Context) (RelationalEngine, error) {
	p.log.Infof("🐘 Starting relational engine (%s)", p.cfg.Relational.Image)
	pg, err := retry(ctx, p.retry, p.log, "starting relational engine", func(ctx context.Context) (*Postgres, error) {
		return StartPostgres(ctx, p.cfg.Relational)
	})
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// StartDocument implements Provisioner.
func (p *Containers) StartDocument(ctx context.Context) (DocumentEngine, error) {
	p.log.Infof("🍃 Starting document engine (%s)", p.cfg.Document.Image)
	m, err := retry(ctx, p.retry, p.log, "starting document engine", func(ctx context.Context) (*Mongo, error) {
		return StartMongo(ctx, p.cfg.Document)
	})
	if err != nil {
		return nil, err
	}
	p.log.WithField("uri", m.ConnectionURI()).Info("Document engine ready")
	return m, nil
}
