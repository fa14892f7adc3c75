package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"

	"migration-harness/internal/engine"
	"migration-harness/internal/layout"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
	"migration-harness/pkg/utils"
)

// Reporter builds the verification report between the two script phases.
type Reporter struct {
	catalog model.Catalog
	modeled []string
	layout  layout.Layout
	log     *logger.Logger
	console io.Writer
	now     func() time.Time
}

// NewReporter creates a reporter over the catalog collections and the
// modeled collections.
func NewReporter(catalog model.Catalog, l layout.Layout, log *logger.Logger, console io.Writer) *Reporter {
	if console == nil {
		console = io.Discard
	}
	return &Reporter{
		catalog: catalog,
		modeled: model.ModeledCollections,
		layout:  l,
		log:     log,
		console: console,
		now:     time.Now,
	}
}

// Generate queries the document store for counts and index listings.
func (r *Reporter) Generate(ctx context.Context, store engine.DocumentStore) (*model.RunReport, error) {
	report := &model.RunReport{
		GeneratedAt:   r.now(),
		ConnectionURI: store.ConnectionURI(),
	}
	for _, coll := range r.catalog.Collections() {
		n, err := store.CountDocuments(ctx, coll)
		if err != nil {
			return nil, &ReportQueryFailure{Collection: coll, Err: err}
		}
		report.RawCounts = append(report.RawCounts, model.Count{Collection: coll, Documents: n})
	}
	for _, coll := range r.modeled {
		n, err := store.CountDocuments(ctx, coll)
		if err != nil {
			return nil, &ReportQueryFailure{Collection: coll, Err: err}
		}
		report.DerivedCounts = append(report.DerivedCounts, model.Count{Collection: coll, Documents: n})
	}
	for _, coll := range r.modeled {
		names, err := store.IndexNames(ctx, coll)
		if err != nil {
			return nil, &ReportQueryFailure{Collection: coll, Err: err}
		}
		if names == nil {
			names = []string{}
		}
		report.Indexes = append(report.Indexes, model.IndexListing{Collection: coll, Indexes: names})
	}
	return report, nil
}

// Write generates the report, writes it to the report file and echoes it.
func (r *Reporter) Write(ctx context.Context, store engine.DocumentStore) (*model.RunReport, error) {
	report, err := r.Generate(ctx, store)
	if err != nil {
		return nil, err
	}
	text := Render(report)
	path := r.layout.ReportFile()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, errors.Annotatef(err, "writing %s", path)
	}
	fmt.Fprintln(r.console)
	fmt.Fprint(r.console, text)
	r.log.Infof("Report written to %s", path)
	return report, nil
}

// Render formats a report as text.
func Render(report *model.RunReport) string {
	var b strings.Builder
	b.WriteString("# Rapport harness\n")
	fmt.Fprintf(&b, "Date: %s\n", report.GeneratedAt.Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, "URI Compass: %s\n", report.ConnectionURI)
	b.WriteString("\nCounts (brutes) - après IMPORT:\n")
	b.WriteString(countBlock(report.RawCounts))
	b.WriteString("\n\nCounts (modélisées):\n")
	b.WriteString(countBlock(report.DerivedCounts))
	b.WriteString("\n\nIndexes:\n")
	for i, l := range report.Indexes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", l.Collection)
		for _, name := range l.Indexes {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	return b.String()
}

func countBlock(counts []model.Count) string {
	keys := make([]string, len(counts))
	values := make([]string, len(counts))
	for i, c := range counts {
		keys[i] = c.Collection
		values[i] = utils.FormatCount(c.Documents)
	}
	return utils.AlignBlock(keys, values)
}
