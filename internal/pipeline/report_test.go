package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"migration-harness/internal/layout"
	"migration-harness/internal/model"
)

func TestRender(t *testing.T) {
	c := qt.New(t)
	report := &model.RunReport{
		GeneratedAt:   time.Date(2025, 10, 3, 14, 5, 9, 0, time.UTC),
		ConnectionURI: "mongodb://localhost:32768/tp2_ind500?directConnection=true",
		RawCounts: []model.Count{
			{Collection: "orders", Documents: 99441},
			{Collection: "customers", Documents: 99441},
			{Collection: "sellers", Documents: 3095},
		},
		DerivedCounts: []model.Count{
			{Collection: "tp2_orders", Documents: 1234567},
			{Collection: "tp2_leads", Documents: 0},
		},
		Indexes: []model.IndexListing{
			{Collection: "tp2_orders", Indexes: []string{"_id_", "order_id_1"}},
			{Collection: "tp2_leads", Indexes: []string{}},
		},
	}
	c.Assert(Render(report), qt.Equals, ""+
		"# Rapport harness\n"+
		"Date: 2025-10-03T14:05:09\n"+
		"URI Compass: mongodb://localhost:32768/tp2_ind500?directConnection=true\n"+
		"\n"+
		"Counts (brutes) - après IMPORT:\n"+
		"orders     : 99\u00a0441\n"+
		"customers  : 99\u00a0441\n"+
		"sellers    : 3\u00a0095\n"+
		"\n"+
		"Counts (modélisées):\n"+
		"tp2_orders  : 1\u00a0234\u00a0567\n"+
		"tp2_leads   : 0\n"+
		"\n"+
		"Indexes:\n"+
		"tp2_orders:\n"+
		"  - _id_\n"+
		"  - order_id_1\n"+
		"\n"+
		"tp2_leads:\n")
}

func TestReporterGenerate(t *testing.T) {
	c := qt.New(t)
	l, err := layout.New(c.TempDir())
	c.Assert(err, qt.IsNil)
	doc := newFakeDocument(&events{})
	doc.counts["orders"] = 10
	doc.counts["tp2_orders"] = 10
	doc.counts["__csv_q1"] = 4
	doc.indexes["tp2_orders"] = []string{"_id_", "order_id_1"}

	r := NewReporter(model.DefaultCatalog(), l, quietLogger(), nil)
	r.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	report, err := r.Generate(context.Background(), doc)
	c.Assert(err, qt.IsNil)

	c.Assert(report.RawCounts, qt.HasLen, 11)
	c.Assert(report.RawCounts[0], qt.Equals, model.Count{Collection: "orders", Documents: 10})
	c.Assert(report.DerivedCounts, qt.HasLen, len(model.ModeledCollections))
	_, ok := report.DerivedCount("__csv_q1")
	c.Assert(ok, qt.IsFalse)
	c.Assert(report.IndexesOf("tp2_orders"), qt.DeepEquals, []string{"_id_", "order_id_1"})
	// Missing collections list no indexes.
	c.Assert(report.IndexesOf("tp2_leads"), qt.DeepEquals, []string{})
	c.Assert(report.ConnectionURI, qt.Equals, doc.ConnectionURI())
}

type failingCounts struct {
	*fakeDocument
	coll string
}

func (f failingCounts) CountDocuments(ctx context.Context, collection string) (int64, error) {
	if collection == f.coll {
		return 0, errors.New("connection reset by peer")
	}
	return f.fakeDocument.CountDocuments(ctx, collection)
}

func TestReporterQueryFailure(t *testing.T) {
	c := qt.New(t)
	l, err := layout.New(c.TempDir())
	c.Assert(err, qt.IsNil)
	doc := failingCounts{fakeDocument: newFakeDocument(&events{}), coll: "tp2_products"}

	_, err = NewReporter(model.DefaultCatalog(), l, quietLogger(), nil).Write(context.Background(), doc)
	var failure *ReportQueryFailure
	c.Assert(errors.As(err, &failure), qt.IsTrue)
	c.Assert(failure.Collection, qt.Equals, "tp2_products")
	c.Assert(err, qt.ErrorMatches, "report query on tp2_products failed: connection reset by peer")
	_, err = os.Stat(l.ReportFile())
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestReporterWriteOverwrites(t *testing.T) {
	c := qt.New(t)
	l, err := layout.New(c.TempDir())
	c.Assert(err, qt.IsNil)
	c.Assert(l.Prepare(true), qt.IsNil)
	c.Assert(os.WriteFile(l.ReportFile(), []byte("old report"), 0644), qt.IsNil)
	var console bytes.Buffer

	report, err := NewReporter(model.DefaultCatalog(), l, quietLogger(), &console).Write(context.Background(), newFakeDocument(&events{}))
	c.Assert(err, qt.IsNil)
	data, err := os.ReadFile(l.ReportFile())
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, Render(report))
	c.Assert(console.String(), qt.Equals, "\n"+Render(report))
}
