package model

import "time"

// Count is one named document count of a report block.
type Count struct {
	Collection string `json:"collection"`
	Documents  int64  `json:"documents"`
}

// IndexListing holds the index names of one collection.
type IndexListing struct {
	Collection string   `json:"collection"`
	Indexes    []string `json:"indexes"`
}

// RunReport is the verification snapshot taken after index creation.
// Slices keep the declared order so rendering is deterministic.
type RunReport struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	ConnectionURI string         `json:"connection_uri"`
	RawCounts     []Count        `json:"raw_counts"`
	DerivedCounts []Count        `json:"derived_counts"`
	Indexes       []IndexListing `json:"indexes"`
}

// RawCount returns the raw count of a collection and whether it was reported.
func (r *RunReport) RawCount(collection string) (int64, bool) {
	return findCount(r.RawCounts, collection)
}

// DerivedCount returns the derived count of a collection and whether it
// was reported.
func (r *RunReport) DerivedCount(collection string) (int64, bool) {
	return findCount(r.DerivedCounts, collection)
}

// IndexesOf returns the index names reported for a collection.
func (r *RunReport) IndexesOf(collection string) []string {
	for _, l := range r.Indexes {
		if l.Collection == collection {
			return l.Indexes
		}
	}
	return nil
}

func findCount(counts []Count, collection string) (int64, bool) {
	for _, c := range counts {
		if c.Collection == collection {
			return c.Documents, true
		}
	}
	return 0, false
}

// TableExport is the outcome of exporting one relational table.
type TableExport struct {
	Table   string `json:"table"`
	File    string `json:"file"`
	Records int    `json:"records"`
}

// CollectionImport is the outcome of loading one export file.
type CollectionImport struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Documents  int64  `json:"documents"`
}

// Matches reports whether every exported record became a document.
func (c CollectionImport) Matches() bool {
	return int64(c.Records) == c.Documents
}

// ArtifactExport is the outcome of exporting one derived collection.
type ArtifactExport struct {
	Collection string   `json:"collection"`
	File       string   `json:"file"`
	Fields     []string `json:"fields"`
}
