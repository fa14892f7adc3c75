package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"migration-harness/internal/config"
	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
)

// HoldFunc blocks while the document engine is held open and returns
// once ctx is done.
type HoldFunc func(ctx context.Context, runID string, store engine.DocumentStore) error

// WaitForCancel is the default HoldFunc.
func WaitForCancel(ctx context.Context, _ string, _ engine.DocumentStore) error {
	<-ctx.Done()
	return nil
}

// Options are the optional collaborators of an Orchestrator.
type Options struct {
	Catalog model.Catalog // defaults to model.DefaultCatalog()
	Tracker Tracker       // defaults to NopTracker
	Console io.Writer     // script output and report echo, defaults to io.Discard
	Hold    HoldFunc      // defaults to WaitForCancel
}

// Result summarizes a run.
type Result struct {
	RunID     string
	Exports   []model.TableExport
	Imports   []model.CollectionImport
	Phase1    []string
	Phase2    []string
	Report    *model.RunReport
	Artifacts []model.ArtifactExport
	Held      bool
}

// Orchestrator drives one harness run through its stages.
type Orchestrator struct {
	cfg     config.Config
	layout  layout.Layout
	catalog model.Catalog
	prov    engine.Provisioner
	tracker Tracker
	log     *logger.Logger
	console io.Writer
	hold    HoldFunc
}

// New creates an orchestrator for cfg.
func New(cfg config.Config, prov engine.Provisioner, log *logger.Logger, opts Options) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	l, err := layout.New(cfg.Root)
	if err != nil {
		return nil, errors.Trace(err)
	}
	o := &Orchestrator{
		cfg:     cfg,
		layout:  l,
		catalog: opts.Catalog,
		prov:    prov,
		tracker: opts.Tracker,
		log:     log,
		console: opts.Console,
		hold:    opts.Hold,
	}
	if o.catalog == nil {
		o.catalog = model.DefaultCatalog()
	}
	if err := o.catalog.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if o.tracker == nil {
		o.tracker = NopTracker{}
	}
	if o.console == nil {
		o.console = io.Discard
	}
	if o.hold == nil {
		o.hold = WaitForCancel
	}
	return o, nil
}

// Layout returns the host layout of the run.
func (o *Orchestrator) Layout() layout.Layout {
	return o.layout
}

// Run executes the pipeline. On failure every engine started so far is
// torn down and the error names the failing stage. With Hold set, Run
// returns only once ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) (res *Result, err error) {
	rt := NewRunTracker(uuid.New().String(), o.tracker, o.log)
	res = &Result{RunID: rt.RunID}
	cfgJSON, _ := json.Marshal(o.cfg)
	rt.Start(cfgJSON)
	o.log.WithField("run", rt.RunID).Info("🚀 Starting harness run")

	defer func() {
		if err != nil {
			rt.SetStatus(model.StatusFailed)
			o.log.Stage(string(model.StageFailed)).WithError(err).Error("❌ Harness run failed")
		}
	}()

	err = o.stage(rt, model.StageInit, func() (string, error) {
		return "", o.layout.Prepare(!o.cfg.SkipRelational)
	})
	if err != nil {
		return res, err
	}

	if o.cfg.SkipRelational {
		err = o.stage(rt, model.StageSkipped, func() (string, error) {
			o.log.Info("SKIP_PG=1 -> reusing ./data/*.json")
			return "reusing data/", nil
		})
	} else {
		err = o.stage(rt, model.StageRestoreExport, func() (string, error) {
			exports, err := NewRelationalExport(o.catalog, o.layout, o.log).Run(ctx, o.prov)
			res.Exports = exports
			return fmt.Sprintf("%d tables exported", len(exports)), err
		})
	}
	if err != nil {
		return res, err
	}

	docs := NewDocumentImport(o.catalog, o.layout, o.log, o.console)
	var doc engine.DocumentEngine
	err = o.stage(rt, model.StageImport, func() (string, error) {
		if err := docs.CheckInputs(); err != nil {
			return "", err
		}
		started, err := o.prov.StartDocument(ctx)
		if err != nil {
			return "", errors.Annotate(err, "provisioning document engine")
		}
		doc = started
		imports, err := docs.Import(ctx, doc)
		res.Imports = imports
		return fmt.Sprintf("%d collections imported", len(imports)), err
	})
	defer func() {
		if doc != nil {
			o.teardown(ctx, rt, doc)
		}
	}()
	if err != nil {
		return res, err
	}

	err = o.stage(rt, model.StageTransformPhase1, func() (string, error) {
		ran, err := docs.RunScripts(ctx, doc, o.cfg.Phase1Scripts)
		res.Phase1 = ran
		return fmt.Sprintf("%d scripts run", len(ran)), err
	})
	if err != nil {
		return res, err
	}

	err = o.stage(rt, model.StageReport, func() (string, error) {
		report, err := NewReporter(o.catalog, o.layout, o.log, o.console).Write(ctx, doc)
		if err != nil {
			return "", err
		}
		res.Report = report
		rt.SetReport(report)
		return o.layout.ReportFile(), nil
	})
	if err != nil {
		return res, err
	}

	err = o.stage(rt, model.StageTransformPhase2, func() (string, error) {
		ran, err := docs.RunScripts(ctx, doc, o.cfg.Phase2Scripts)
		res.Phase2 = ran
		return fmt.Sprintf("%d scripts run", len(ran)), err
	})
	if err != nil {
		return res, err
	}

	err = o.stage(rt, model.StageExportArtifacts, func() (string, error) {
		artifacts, err := NewArtifactExporter(o.cfg.ExportPrefix, o.layout, o.log).Export(ctx, doc)
		res.Artifacts = artifacts
		return fmt.Sprintf("%d collections exported", len(artifacts)), err
	})
	if err != nil {
		return res, err
	}

	if o.cfg.Hold {
		res.Held = true
		err = o.stage(rt, model.StageHold, func() (string, error) {
			return "", o.holdOpen(ctx, rt, doc)
		})
		if err != nil {
			return res, err
		}
	}

	// An operator ending the hold releases the engine as well.
	o.teardown(ctx, rt, doc)
	doc = nil

	rt.StartStage(model.StageDone)
	rt.EndStage(model.StageDone, "")
	rt.SetStatus(model.StatusCompleted)
	o.log.WithField("run", rt.RunID).Info("✅ Harness run completed")
	return res, nil
}

// stage runs fn as stage, recording its progress. A failure is annotated
// with the stage name.
func (o *Orchestrator) stage(rt *RunTracker, stage model.Stage, fn func() (string, error)) error {
	o.log.Stage(string(stage)).Infof("== %s", stage)
	rt.StartStage(stage)
	detail, err := fn()
	if err != nil {
		err = errors.Annotatef(err, "stage %s", stage)
		rt.FailStage(stage, err)
		return err
	}
	rt.EndStage(stage, detail)
	return nil
}

func (o *Orchestrator) holdOpen(ctx context.Context, rt *RunTracker, doc engine.DocumentStore) error {
	rt.SetStatus(model.StatusHolding)
	uri := doc.ConnectionURI()
	fmt.Fprintf(o.console, "\nHOLD=1 -> document engine kept running\nMongoDB URI: %s\n", uri)
	o.log.WithField("uri", uri).Info("⏸ Holding document engine open, interrupt to stop")
	return o.hold(ctx, rt.RunID, doc)
}

func (o *Orchestrator) teardown(ctx context.Context, rt *RunTracker, doc engine.DocumentEngine) {
	if doc == nil {
		return
	}
	entry := o.log.Stage(string(model.StageTeardown))
	rt.StartStage(model.StageTeardown)
	if err := doc.Terminate(context.WithoutCancel(ctx)); err != nil {
		entry.WithError(err).Warn("Document engine teardown failed")
		rt.FailStage(model.StageTeardown, errors.Annotate(err, "stage TEARDOWN"))
		return
	}
	rt.EndStage(model.StageTeardown, "")
	entry.Info("Document engine stopped")
}
