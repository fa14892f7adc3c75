package pipeline

import (
	"context"
	"os"

	"github.com/juju/errors"

	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
)

// ArtifactExporter exports every collection carrying the export prefix
// to a CSV file under artifacts/csv.
type ArtifactExporter struct {
	prefix string
	layout layout.Layout
	log    *logger.Logger
}

// NewArtifactExporter creates the exporter for collections named prefix*.
func NewArtifactExporter(prefix string, l layout.Layout, log *logger.Logger) *ArtifactExporter {
	return &ArtifactExporter{prefix: prefix, layout: l, log: log}
}

// Export writes one CSV file per marked collection. Finding none is not
// an error.
func (a *ArtifactExporter) Export(ctx context.Context, store engine.DocumentStore) ([]model.ArtifactExport, error) {
	colls, err := store.CollectionsWithPrefix(ctx, a.prefix)
	if err != nil {
		return nil, errors.Annotatef(err, "discovering %s* collections", a.prefix)
	}
	if len(colls) == 0 {
		a.log.Infof("No %s* collections to export", a.prefix)
		return nil, nil
	}

	exports := make([]model.ArtifactExport, 0, len(colls))
	for _, coll := range colls {
		path := a.layout.CSVFile(coll, a.prefix)
		fields, err := store.SampleFields(ctx, coll)
		if err != nil {
			return exports, errors.Annotatef(err, "sampling %s", coll)
		}

		entry := a.log.WithField("collection", coll)
		if len(fields) == 0 {
			if err := os.WriteFile(path, nil, 0644); err != nil {
				return exports, errors.Annotatef(err, "writing %s", path)
			}
			entry.Infof("   - %s is empty -> %s", coll, a.relative(path))
		} else {
			res, err := store.ExportCSV(ctx, coll, fields, path)
			if err != nil {
				return exports, errors.Annotatef(err, "exporting %s", coll)
			}
			if res.Failed() {
				return exports, &ExportFailure{Entity: coll, Result: res}
			}
			entry.Infof("   - %s -> %s", coll, a.relative(path))
		}
		exports = append(exports, model.ArtifactExport{Collection: coll, File: path, Fields: fields})
	}
	return exports, nil
}

func (a *ArtifactExporter) relative(path string) string {
	if rel, ok := a.layout.Relative(path); ok {
		return rel
	}
	return path
}
