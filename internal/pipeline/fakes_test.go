package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	qt "github.com/frankban/quicktest"

	"migration-harness/internal/config"
	"migration-harness/internal/engine"
	"migration-harness/internal/logger"
	"migration-harness/internal/model"
	"migration-harness/pkg/utils"
)

// events is the shared call log of the fakes, in call order.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

func (e *events) index(event string) int {
	for i, ev := range e.all() {
		if ev == event {
			return i
		}
	}
	return -1
}

type fakeRelational struct {
	ev *events

	restore    map[engine.DumpFormat]engine.ExecResult
	rows       int
	failTable  string
	terminated int
	staged     string
}

func (f *fakeRelational) StageDump(ctx context.Context, hostPath string) error {
	f.staged = hostPath
	f.ev.add("pg:stage")
	return nil
}

func (f *fakeRelational) Restore(ctx context.Context, format engine.DumpFormat) (engine.ExecResult, error) {
	f.ev.add("pg:restore:%s", format)
	return f.restore[format], nil
}

func (f *fakeRelational) ExportTable(ctx context.Context, table, hostPath string) (engine.ExecResult, error) {
	f.ev.add("pg:export:%s", table)
	if table == f.failTable {
		return engine.ExecResult{ExitCode: 1, Stderr: fmt.Sprintf("ERROR:  relation \"public.%s\" does not exist", table)}, nil
	}
	var b strings.Builder
	for i := 0; i < f.rows; i++ {
		fmt.Fprintf(&b, "{\"id\":%d}\n", i)
	}
	if err := os.WriteFile(hostPath, []byte(b.String()), 0644); err != nil {
		return engine.ExecResult{}, err
	}
	return engine.ExecResult{}, nil
}

func (f *fakeRelational) Terminate(ctx context.Context) error {
	f.terminated++
	f.ev.add("pg:terminate")
	return nil
}

// scriptFunc simulates a transformation script against the fake store.
type scriptFunc func(d *fakeDocument) engine.ExecResult

type fakeDocument struct {
	ev *events

	counts     map[string]int64
	indexes    map[string][]string
	fields     map[string][]string
	scripts    map[string]scriptFunc
	loadLoss   map[string]int64
	failLoad   string
	terminated int
}

func newFakeDocument(ev *events) *fakeDocument {
	return &fakeDocument{
		ev:      ev,
		counts:  make(map[string]int64),
		indexes: make(map[string][]string),
		fields:  make(map[string][]string),
		scripts: defaultScripts(),
	}
}

func (d *fakeDocument) LoadCollection(ctx context.Context, collection, hostPath string) (engine.ExecResult, error) {
	d.ev.add("mongo:load:%s", collection)
	if collection == d.failLoad {
		return engine.ExecResult{ExitCode: 1, Stderr: "Failed: cannot decode JSON"}, nil
	}
	n, err := utils.CountRecords(hostPath)
	if err != nil {
		return engine.ExecResult{}, err
	}
	d.counts[collection] = int64(n) - d.loadLoss[collection]
	d.indexes[collection] = []string{"_id_"}
	return engine.ExecResult{Stdout: fmt.Sprintf("%d document(s) imported successfully.", n)}, nil
}

func (d *fakeDocument) RunScript(ctx context.Context, hostPath string) (engine.ExecResult, error) {
	name := filepath.Base(hostPath)
	d.ev.add("mongo:script:%s", name)
	if fn, ok := d.scripts[name]; ok {
		return fn(d), nil
	}
	return engine.ExecResult{}, nil
}

func (d *fakeDocument) CountDocuments(ctx context.Context, collection string) (int64, error) {
	d.ev.add("mongo:count:%s", collection)
	return d.counts[collection], nil
}

func (d *fakeDocument) IndexNames(ctx context.Context, collection string) ([]string, error) {
	d.ev.add("mongo:indexes:%s", collection)
	return d.indexes[collection], nil
}

func (d *fakeDocument) CollectionsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range d.counts {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *fakeDocument) SampleFields(ctx context.Context, collection string) ([]string, error) {
	if d.counts[collection] == 0 {
		return nil, nil
	}
	return d.fields[collection], nil
}

func (d *fakeDocument) ExportCSV(ctx context.Context, collection string, fields []string, hostPath string) (engine.ExecResult, error) {
	d.ev.add("mongo:csv:%s", collection)
	content := strings.Join(fields, ",") + "\n"
	if err := os.WriteFile(hostPath, []byte(content), 0644); err != nil {
		return engine.ExecResult{}, err
	}
	return engine.ExecResult{}, nil
}

func (d *fakeDocument) ConnectionURI() string {
	return "mongodb://localhost:32768/tp2_ind500?directConnection=true"
}

func (d *fakeDocument) Terminate(ctx context.Context) error {
	d.terminated++
	d.ev.add("mongo:terminate")
	return nil
}

const prompt = "docker-rs [direct: primary] tp2_ind500> "

// defaultScripts builds the modeled collections in phase 1 and a query
// artifact in phase 2.
func defaultScripts() map[string]scriptFunc {
	return map[string]scriptFunc{
		"build-modeled.js": func(d *fakeDocument) engine.ExecResult {
			for _, coll := range model.ModeledCollections {
				d.counts[coll] = d.counts["orders"]
				d.indexes[coll] = []string{"_id_"}
			}
			return engine.ExecResult{Stdout: prompt + "\n>>> Build tp2_orders\n" + prompt + "\n"}
		},
		"create-indexes.js": func(d *fakeDocument) engine.ExecResult {
			d.indexes["tp2_orders"] = append(d.indexes["tp2_orders"], "order_id_1", "customer_id_1")
			d.indexes["tp2_products"] = append(d.indexes["tp2_products"], "product_id_1")
			d.indexes["tp2_sellers_geo"] = append(d.indexes["tp2_sellers_geo"], "seller_id_1")
			d.indexes["tp2_leads"] = append(d.indexes["tp2_leads"], "mql_id_1")
			return engine.ExecResult{Stdout: prompt + "OK : Indexes créés\n"}
		},
		"all-queries.js": func(d *fakeDocument) engine.ExecResult {
			d.counts["__csv_q1_top_states"] = 3
			d.fields["__csv_q1_top_states"] = []string{"state", "orders"}
			return engine.ExecResult{Stdout: "[ { state: 'SP', orders: 41746 } ]\n"}
		},
	}
}

type fakeProvisioner struct {
	rel *fakeRelational
	doc *fakeDocument

	relStarts int
	docStarts int
}

func newFakeProvisioner() *fakeProvisioner {
	ev := &events{}
	return &fakeProvisioner{
		rel: &fakeRelational{
			ev:      ev,
			restore: map[engine.DumpFormat]engine.ExecResult{},
			rows:    2,
		},
		doc: newFakeDocument(ev),
	}
}

func (p *fakeProvisioner) events() *events {
	return p.rel.ev
}

func (p *fakeProvisioner) StartRelational(ctx context.Context) (engine.RelationalEngine, error) {
	p.relStarts++
	p.rel.ev.add("pg:start")
	return p.rel, nil
}

func (p *fakeProvisioner) StartDocument(ctx context.Context) (engine.DocumentEngine, error) {
	p.docStarts++
	p.doc.ev.add("mongo:start")
	return p.doc, nil
}

// newRoot creates a harness root holding a dump and the named scripts.
func newRoot(c *qt.C, scripts ...string) string {
	root := c.TempDir()
	c.Assert(os.MkdirAll(filepath.Join(root, "dump"), 0755), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(root, "dump", "dump_tp1_orig.sql"), []byte("-- dump\n"), 0644), qt.IsNil)
	c.Assert(os.MkdirAll(filepath.Join(root, "scripts"), 0755), qt.IsNil)
	for _, s := range scripts {
		c.Assert(os.WriteFile(filepath.Join(root, "scripts", s), []byte("// "+s+"\n"), 0644), qt.IsNil)
	}
	return root
}

// allScripts are the default scripts minus normalize.js, which the
// scripts directory ships under another name.
var allScripts = []string{"build-modeled.js", "create-indexes.js", "all-queries.js", "advanced-queries.js"}

func testConfig(root string) config.Config {
	cfg := config.Default()
	cfg.Root = root
	return cfg
}

// writeExports fills data/ the way a previous run would have.
func writeExports(c *qt.C, root string, skip ...string) {
	dir := filepath.Join(root, "data")
	c.Assert(os.MkdirAll(dir, 0755), qt.IsNil)
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for _, m := range model.DefaultCatalog() {
		if skipped[m.Dest] {
			continue
		}
		c.Assert(os.WriteFile(filepath.Join(dir, m.Dest+".json"), []byte("{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n"), 0644), qt.IsNil)
	}
}

type recordingTracker struct {
	mu       sync.Mutex
	runs     []string
	statuses []string
	stages   []model.StageRecord
	errs     []string
	reports  int
	fail     error
}

func (r *recordingTracker) StartRun(runID string, cfg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, runID)
	return r.fail
}

func (r *recordingTracker) UpdateRunStatus(runID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return r.fail
}

func (r *recordingTracker) SaveStage(runID string, stage model.StageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	return r.fail
}

func (r *recordingTracker) SaveRunError(runID string, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err.Error())
	return r.fail
}

func (r *recordingTracker) SaveReport(runID string, report *model.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports++
	return r.fail
}

// completed returns the stages recorded as completed, in order.
func (r *recordingTracker) completed() []model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Stage
	for _, s := range r.stages {
		if s.Status == model.StageCompleted {
			out = append(out, s.Stage)
		}
	}
	return out
}

func quietLogger() *logger.Logger {
	return logger.Discard()
}
