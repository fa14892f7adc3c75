package pipeline

import (
	"context"

	"github.com/juju/errors"

	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
	"migration-harness/pkg/utils"
)

// restoreOrder is tried in order until one strategy succeeds.
var restoreOrder = []engine.DumpFormat{engine.DumpCustom, engine.DumpPlain}

// RelationalExport restores the dump into a fresh relational engine and
// writes one record file per catalog table.
type RelationalExport struct {
	catalog model.Catalog
	layout  layout.Layout
	log     *logger.Logger
}

// NewRelationalExport creates the relational export stage.
func NewRelationalExport(catalog model.Catalog, l layout.Layout, log *logger.Logger) *RelationalExport {
	return &RelationalExport{catalog: catalog, layout: l, log: log}
}

// Run checks the dump, provisions the engine, restores and exports. The
// engine is terminated before Run returns, whatever the outcome.
func (s *RelationalExport) Run(ctx context.Context, prov engine.Provisioner) ([]model.TableExport, error) {
	ok, err := layout.Exists(s.layout.DumpFile)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !ok {
		return nil, &MissingInputError{Path: s.layout.DumpFile}
	}

	eng, err := prov.StartRelational(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "provisioning relational engine")
	}
	defer func() {
		if err := eng.Terminate(context.WithoutCancel(ctx)); err != nil {
			s.log.WithError(err).Warn("Relational engine teardown failed")
		}
	}()

	if err := s.Restore(ctx, eng); err != nil {
		return nil, err
	}
	return s.Export(ctx, eng)
}

// Restore stages the dump and restores it, falling back from the custom
// archive format to a plain SQL load.
func (s *RelationalExport) Restore(ctx context.Context, store engine.RelationalStore) error {
	if err := store.StageDump(ctx, s.layout.DumpFile); err != nil {
		return errors.Trace(err)
	}

	var attempts []RestoreAttempt
	for _, format := range restoreOrder {
		s.log.Infof(">> Restoring dump (%s format)", format)
		res, err := store.Restore(ctx, format)
		if err != nil {
			return errors.Annotatef(err, "%s restore", format)
		}
		if !res.Failed() {
			s.log.WithField("format", format).Info(">> Restore OK")
			return nil
		}
		attempts = append(attempts, RestoreAttempt{Format: format, Result: res})
		s.log.WithField("format", format).Warnf("Restore attempt failed:\n%s", res.Diagnostic())
	}
	return &RestoreFailure{Attempts: attempts}
}

// Export writes every catalog table to its hand-off file. The first
// failing table aborts the export.
func (s *RelationalExport) Export(ctx context.Context, store engine.RelationalStore) ([]model.TableExport, error) {
	exports := make([]model.TableExport, 0, len(s.catalog))
	for _, m := range s.catalog {
		path := s.layout.ExportFile(m.Dest)
		res, err := store.ExportTable(ctx, m.Source, path)
		if err != nil {
			return exports, errors.Annotatef(err, "exporting %s", m.Source)
		}
		if res.Failed() {
			return exports, &ExportFailure{Entity: m.Source, Result: res}
		}
		records, err := utils.CountRecords(path)
		if err != nil {
			return exports, errors.Annotatef(err, "reading export of %s", m.Source)
		}
		s.log.WithField("table", m.Source).Infof("   - %s -> data/%s.json (%d records)", m.Source, m.Dest, records)
		exports = append(exports, model.TableExport{Table: m.Source, File: path, Records: records})
	}
	s.log.Info("JSON exports written to ./data")
	return exports, nil
}
