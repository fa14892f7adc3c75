package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/juju/errors"

	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
	"migration-harness/pkg/utils"
)

// DocumentImport loads the hand-off files into the document engine and
// runs the transformation scripts against it.
type DocumentImport struct {
	catalog model.Catalog
	layout  layout.Layout
	log     *logger.Logger
	console io.Writer
}

// NewDocumentImport creates the document import stage. Script output is
// echoed to console.
func NewDocumentImport(catalog model.Catalog, l layout.Layout, log *logger.Logger, console io.Writer) *DocumentImport {
	if console == nil {
		console = io.Discard
	}
	return &DocumentImport{catalog: catalog, layout: l, log: log, console: console}
}

// CheckInputs verifies that every catalog table has its export file.
func (s *DocumentImport) CheckInputs() error {
	for _, m := range s.catalog {
		if err := s.checkFile(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentImport) checkFile(m model.TableMapping) error {
	path := s.layout.ExportFile(m.Dest)
	ok, err := layout.Exists(path)
	if err != nil {
		return errors.Trace(err)
	}
	if !ok {
		return &MissingExportFileError{Table: m.Source, Path: path}
	}
	return nil
}

// Import loads every export file into its collection, replacing what the
// collection held. Count mismatches are reported, not fatal.
func (s *DocumentImport) Import(ctx context.Context, store engine.DocumentStore) ([]model.CollectionImport, error) {
	imports := make([]model.CollectionImport, 0, len(s.catalog))
	for _, m := range s.catalog {
		if err := s.checkFile(m); err != nil {
			return imports, err
		}
		path := s.layout.ExportFile(m.Dest)
		records, err := utils.CountRecords(path)
		if err != nil {
			return imports, errors.Annotatef(err, "reading %s", path)
		}

		res, err := store.LoadCollection(ctx, m.Dest, path)
		if err != nil {
			return imports, errors.Annotatef(err, "importing %s", m.Dest)
		}
		if res.Failed() {
			return imports, &ImportFailure{Entity: m.Dest, Result: res}
		}

		docs, err := store.CountDocuments(ctx, m.Dest)
		if err != nil {
			return imports, errors.Annotatef(err, "verifying %s", m.Dest)
		}
		imp := model.CollectionImport{Collection: m.Dest, Records: records, Documents: docs}
		entry := s.log.WithField("collection", m.Dest)
		if !imp.Matches() {
			entry.Warnf("   - %s: %d records exported but %d documents loaded", m.Dest, records, docs)
		} else {
			entry.Infof("   - %s <- data/%s.json (%d documents)", m.Dest, m.Dest, docs)
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

// RunScripts runs the named scripts in order. A script absent from the
// scripts directory is skipped with a warning; a script exiting non-zero
// stops the phase. It returns the names of the scripts that ran.
func (s *DocumentImport) RunScripts(ctx context.Context, store engine.DocumentStore, scripts []string) ([]string, error) {
	var ran []string
	for _, name := range scripts {
		entry := s.log.WithField("script", name)
		path := s.layout.ScriptFile(name)
		ok, err := layout.Exists(path)
		if err != nil {
			return ran, errors.Trace(err)
		}
		if !ok {
			entry.Warnf("Script not found, skipping: scripts/%s", name)
			continue
		}

		entry.Infof(">> Running %s", name)
		res, err := store.RunScript(ctx, path)
		if err != nil {
			return ran, errors.Annotatef(err, "running %s", name)
		}
		if out := strings.TrimSpace(StripPrompts(res.Stdout)); out != "" {
			fmt.Fprintln(s.console, out)
		}
		if res.Failed() {
			return ran, &ScriptFailure{Name: name, Result: res}
		}
		ran = append(ran, name)
	}
	return ran, nil
}
