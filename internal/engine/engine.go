// Package engine abstracts the relational and document engines the
// pipeline drives. Stages depend only on the interfaces in this file; the
// container-backed implementations live alongside them.
package engine

import (
	"context"
	"fmt"
	"strings"
)

// ExecResult is the outcome of one external command.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Failed reports whether the command exited non-zero.
func (r ExecResult) Failed() bool {
	return r.ExitCode != 0
}

// Diagnostic renders the captured output for error messages.
func (r ExecResult) Diagnostic() string {
	return fmt.Sprintf("exit code %d\nSTDOUT:\n%s\nSTDERR:\n%s",
		r.ExitCode, strings.TrimRight(r.Stdout, "\n"), strings.TrimRight(r.Stderr, "\n"))
}

// DumpFormat selects a restore strategy.
type DumpFormat string

const (
	// DumpCustom is the pg_dump custom (binary) archive format.
	DumpCustom DumpFormat = "custom"
	// DumpPlain is a plain SQL script.
	DumpPlain DumpFormat = "plain"
)

// RelationalStore is the capability set the relational export stage needs.
type RelationalStore interface {
	// StageDump copies the host dump file into the engine instance.
	StageDump(ctx context.Context, hostPath string) error
	// Restore loads the staged dump with the given strategy.
	Restore(ctx context.Context, format DumpFormat) (ExecResult, error)
	// ExportTable writes every row of table as one JSON record per line
	// to hostPath, overwriting it.
	ExportTable(ctx context.Context, table, hostPath string) (ExecResult, error)
}

// DocumentStore is the capability set the document stages need.
type DocumentStore interface {
	// LoadCollection replaces collection with the records of hostPath.
	LoadCollection(ctx context.Context, collection, hostPath string) (ExecResult, error)
	// RunScript runs a query-shell script file.
	RunScript(ctx context.Context, hostPath string) (ExecResult, error)
	// CountDocuments counts the documents of a collection. A missing
	// collection counts zero.
	CountDocuments(ctx context.Context, collection string) (int64, error)
	// IndexNames lists the index names of a collection. A missing
	// collection has none.
	IndexNames(ctx context.Context, collection string) ([]string, error)
	// CollectionsWithPrefix lists collections whose name starts with prefix.
	CollectionsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	// SampleFields returns the field names of one document of collection,
	// in document order, without the identity field. Empty collections
	// return no fields.
	SampleFields(ctx context.Context, collection string) ([]string, error)
	// ExportCSV writes collection as CSV with the given columns to hostPath.
	ExportCSV(ctx context.Context, collection string, fields []string, hostPath string) (ExecResult, error)
	// ConnectionURI is the endpoint external tooling can use to inspect
	// the store.
	ConnectionURI() string
}

// RelationalEngine is a running relational engine instance.
type RelationalEngine interface {
	RelationalStore
	Terminate(ctx context.Context) error
}

// DocumentEngine is a running document engine instance.
type DocumentEngine interface {
	DocumentStore
	Terminate(ctx context.Context) error
}

// Provisioner starts engine instances.
type Provisioner interface {
	StartRelational(ctx context.Context) (RelationalEngine, error)
	StartDocument(ctx context.Context) (DocumentEngine, error)
}
