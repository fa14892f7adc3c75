package utils

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// countFormat groups thousands with a no-break space (U+00A0), the way
// fr-CA renders integers.
const countFormat = "#\u00a0###."

// FormatCount renders a document count for the report.
func FormatCount(n int64) string {
	return humanize.FormatInteger(countFormat, int(n))
}

// AlignBlock renders "key  : value" lines with keys left-aligned to the
// widest key of the block.
func AlignBlock(keys, values []string) string {
	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + strings.Repeat(" ", width-len(k)) + "  : " + values[i]
	}
	return strings.Join(lines, "\n")
}

// CountRecords counts the non-blank lines of a newline-delimited record file.
func CountRecords(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	return n, scanner.Err()
}
