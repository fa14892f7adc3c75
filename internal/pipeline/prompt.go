package pipeline

import (
	"regexp"
	"strings"
)

// promptPrefix matches a query-shell prompt such as
// "docker-rs [direct: primary] tp2_ind500> ", possibly repeated when the
// shell echoes several prompts on one line.
var promptPrefix = regexp.MustCompile(`^(?:[\w.-]+ \[[^\]\r\n]+\] [\w.-]+> ?)+`)

// StripPrompts removes shell prompts from script output. Lines holding
// only a prompt are dropped; output that follows a prompt on the same
// line is kept as is, and every other line passes through untouched.
func StripPrompts(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, line := range lines {
		loc := promptPrefix.FindStringIndex(line)
		if loc == nil {
			b.WriteString(line)
			continue
		}
		rest := line[loc[1]:]
		if strings.TrimSpace(rest) == "" {
			continue
		}
		b.WriteString(rest)
	}
	return b.String()
}
