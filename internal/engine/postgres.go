package engine

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"migration-harness/internal/config"
)

// Postgres is a relational engine running in a container.
type Postgres struct {
	container testcontainers.Container
	inst      instance
	cfg       config.RelationalConfig
}

var _ RelationalEngine = (*Postgres)(nil)

// StartPostgres starts a PostgreSQL container with an empty database.
func StartPostgres(ctx context.Context, cfg config.RelationalConfig) (*Postgres, error) {
	c, err := postgres.Run(ctx, cfg.Image,
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute)),
	)
	if err != nil {
		if c != nil && c.Container != nil {
			_ = c.Terminate(context.WithoutCancel(ctx))
		}
		return nil, errors.Annotatef(err, "starting %s", cfg.Image)
	}

	pg := &Postgres{container: c, inst: c, cfg: cfg}
	if err := mustRun(ctx, c, "preparing export directory",
		[]string{"sh", "-c", "rm -rf " + containerExports + " && mkdir -p " + containerExports}); err != nil {
		_ = c.Terminate(context.WithoutCancel(ctx))
		return nil, errors.Trace(err)
	}
	return pg, nil
}

// StageDump implements RelationalStore.
func (p *Postgres) StageDump(ctx context.Context, hostPath string) error {
	if err := p.inst.CopyFileToContainer(ctx, hostPath, containerDump, 0644); err != nil {
		return errors.Annotate(err, "copying dump into the instance")
	}
	return nil
}

// Restore implements RelationalStore.
func (p *Postgres) Restore(ctx context.Context, format DumpFormat) (ExecResult, error) {
	return runCaptured(ctx, p.inst, restoreCommand(format, p.cfg.Username, p.cfg.Database), p.passwordEnv())
}

// ExportTable implements RelationalStore.
func (p *Postgres) ExportTable(ctx context.Context, table, hostPath string) (ExecResult, error) {
	out := containerPath(containerExports, hostPath)
	res, err := run(ctx, p.inst, exportTableCommand(p.cfg.Username, p.cfg.Database, table, out), p.passwordEnv())
	if err != nil || res.Failed() {
		return res, err
	}
	return res, copyOut(ctx, p.inst, out, hostPath)
}

// Terminate stops and removes the container.
func (p *Postgres) Terminate(ctx context.Context) error {
	return errors.Annotate(p.container.Terminate(ctx), "terminating relational engine")
}

func (p *Postgres) passwordEnv() tcexec.ProcessOption {
	return tcexec.WithEnv([]string{"PGPASSWORD=" + p.cfg.Password})
}
