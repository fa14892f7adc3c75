package layout

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
)

// Layout handles the host directories shared between stages.
//
//	<root>/dump/dump_tp1_orig.sql   relational dump (input)
//	<root>/data/<collection>.json   per-table export files (hand-off)
//	<root>/scripts/*.js             transformation scripts (input)
//	<root>/artifacts/report.txt     verification report (output)
//	<root>/artifacts/csv/*.csv      derived collection exports (output)
type Layout struct {
	Root         string
	DumpFile     string
	DataDir      string
	ScriptsDir   string
	ArtifactsDir string
	CSVDir       string
}

// New returns the layout rooted at root.
func New(root string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, errors.Annotatef(err, "resolving root %q", root)
	}
	artifacts := filepath.Join(abs, "artifacts")
	return Layout{
		Root:         abs,
		DumpFile:     filepath.Join(abs, "dump", "dump_tp1_orig.sql"),
		DataDir:      filepath.Join(abs, "data"),
		ScriptsDir:   filepath.Join(abs, "scripts"),
		ArtifactsDir: artifacts,
		CSVDir:       filepath.Join(artifacts, "csv"),
	}, nil
}

// Prepare creates the artifact directories and the staging directory.
// When fresh is true the staging directory is wiped first so no export
// file from a previous run survives.
func (l Layout) Prepare(fresh bool) error {
	for _, dir := range []string{l.ArtifactsDir, l.CSVDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Annotatef(err, "creating %s", dir)
		}
	}
	if fresh {
		if err := os.RemoveAll(l.DataDir); err != nil {
			return errors.Annotatef(err, "wiping %s", l.DataDir)
		}
	}
	if err := os.MkdirAll(l.DataDir, 0755); err != nil {
		return errors.Annotatef(err, "creating %s", l.DataDir)
	}
	return nil
}

// ExportFile is the hand-off file of a destination collection.
func (l Layout) ExportFile(collection string) string {
	return filepath.Join(l.DataDir, filepath.Base(collection)+".json")
}

// ScriptFile is the host path of a transformation script.
func (l Layout) ScriptFile(name string) string {
	return filepath.Join(l.ScriptsDir, filepath.Base(name))
}

// ReportFile is where the verification report is written.
func (l Layout) ReportFile() string {
	return filepath.Join(l.ArtifactsDir, "report.txt")
}

// CSVFile is the artifact file of a derived collection, named after the
// collection with the export prefix removed. A collection named exactly
// after the prefix keeps its full name.
func (l Layout) CSVFile(collection, prefix string) string {
	base := filepath.Base(strings.TrimPrefix(collection, prefix))
	if base == "." || base == string(filepath.Separator) {
		base = filepath.Base(collection)
	}
	return filepath.Join(l.CSVDir, base+".csv")
}

// Resolve returns path unchanged when absolute, otherwise joined to the root.
func (l Layout) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Root, path)
}

// Relative returns path relative to the root, with forward slashes. It
// reports false when path lies outside the root.
func (l Layout) Relative(path string) (string, bool) {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Exists reports whether a regular file exists at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Trace(err)
	}
	return !info.IsDir(), nil
}
