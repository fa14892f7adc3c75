package utils

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFormatCount(t *testing.T) {
	c := qt.New(t)
	c.Assert(FormatCount(0), qt.Equals, "0")
	c.Assert(FormatCount(999), qt.Equals, "999")
	c.Assert(FormatCount(1000), qt.Equals, "1\u00a0000")
	c.Assert(FormatCount(1234567), qt.Equals, "1\u00a0234\u00a0567")
	// fr-CA groups with U+00A0, not the narrow U+202F of fr-FR.
	c.Assert(FormatCount(99441), qt.Not(qt.Contains), "\u202f")
}

func TestAlignBlock(t *testing.T) {
	c := qt.New(t)
	got := AlignBlock([]string{"orders", "sellers", "geolocation"}, []string{"1", "22", "333"})
	c.Assert(got, qt.Equals, ""+
		"orders       : 1\n"+
		"sellers      : 22\n"+
		"geolocation  : 333")
}

func TestCountRecords(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "orders.json")
	c.Assert(os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2}\n\n{\"a\":3}"), 0644), qt.IsNil)
	n, err := CountRecords(path)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	_, err = CountRecords(filepath.Join(c.TempDir(), "missing.json"))
	c.Assert(err, qt.Not(qt.IsNil))
}
