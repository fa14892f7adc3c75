package logger

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"verbose": logrus.InfoLevel,
	}
	for level, want := range tests {
		c := qt.New(t)
		l := Discard()
		l.SetLevel(level)
		c.Assert(l.GetLevel(), qt.Equals, want, qt.Commentf("level %q", level))
	}
}

func TestStageField(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	l := NewWithOutput(&buf)
	l.Stage("IMPORT").Info("loading")
	c.Assert(buf.String(), qt.Contains, "stage=IMPORT")
	c.Assert(buf.String(), qt.Contains, "msg=loading")
}
