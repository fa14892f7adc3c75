package pipeline

import (
	"fmt"
	"strings"

	"migration-harness/internal/engine"
)

// MissingInputError reports a required host file absent before a stage.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Path)
}

// RestoreAttempt is one restore strategy and what it printed.
type RestoreAttempt struct {
	Format engine.DumpFormat
	Result engine.ExecResult
}

// RestoreFailure reports that every restore strategy failed. Each
// attempt's output is kept for diagnosis.
type RestoreFailure struct {
	Attempts []RestoreAttempt
}

func (e *RestoreFailure) Error() string {
	var b strings.Builder
	b.WriteString("restore failed")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n--- %s restore: %s", a.Format, a.Result.Diagnostic())
	}
	return b.String()
}

// ExportFailure reports a per-entity export command exiting non-zero.
// Entity is a source table or a derived collection.
type ExportFailure struct {
	Entity string
	Result engine.ExecResult
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export of %s failed: %s", e.Entity, e.Result.Diagnostic())
}

// ImportFailure reports a collection load exiting non-zero.
type ImportFailure struct {
	Entity string
	Result engine.ExecResult
}

func (e *ImportFailure) Error() string {
	return fmt.Sprintf("import of %s failed: %s", e.Entity, e.Result.Diagnostic())
}

// MissingExportFileError reports an absent per-table hand-off file. It
// unwraps to a MissingInputError for the same path.
type MissingExportFileError struct {
	Table string
	Path  string
}

func (e *MissingExportFileError) Error() string {
	return fmt.Sprintf("missing export file for %s: %s", e.Table, e.Path)
}

func (e *MissingExportFileError) Unwrap() error {
	return &MissingInputError{Path: e.Path}
}

// ScriptFailure reports a present transformation script exiting non-zero.
type ScriptFailure struct {
	Name   string
	Result engine.ExecResult
}

func (e *ScriptFailure) Error() string {
	return fmt.Sprintf("script %s failed: %s", e.Name, e.Result.Diagnostic())
}

// ReportQueryFailure reports a verification query error.
type ReportQueryFailure struct {
	Collection string
	Err        error
}

func (e *ReportQueryFailure) Error() string {
	return fmt.Sprintf("report query on %s failed: %v", e.Collection, e.Err)
}

func (e *ReportQueryFailure) Unwrap() error {
	return e.Err
}
