package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbsDoNotPanicOnAnyLevel(t *testing.T) {
	l := New(os.Stderr, slog.LevelDebug)
	assert.NotPanics(t, func() {
		l.Debug("debug %d", 1)
		l.Info("info %s", "x")
		l.Warn("warn")
		l.Error("error %v", assert.AnError)
		l.Success("done")
		l.Section("startup")
		l.Banner("nautilus-sockets", "1.0.0")
	})
}

func TestPackageLevelVerbsDelegateToDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("hello %s", "world")
		Warn("careful")
	})
}

func TestSectionWritesBothBorders(t *testing.T) {
	var buf bytes.Buffer
	old := os.Stderr
	r, w, err := os.Pipe()
	assert.NoError(t, err)
	os.Stderr = w

	Default.Section("phase one")

	w.Close()
	os.Stderr = old
	buf.ReadFrom(r)

	assert.Contains(t, buf.String(), "phase one")
	assert.Equal(t, 2, strings.Count(buf.String(), "=\n"), "a border line above and below the title")
}
