package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesConsoleAndJSONFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := New(Config{Level: "info", Dir: dir, Console: &console})
	require.NoError(t, err)

	l.Debug("hidden on console")
	l.WithField("test", "test_search").Info("step done", "action", "click")
	l.WithFields(map[string]any{"suite": "awesomeqa"}).Warn("healed")
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "step done")
	assert.NotContains(t, console.String(), "hidden on console")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "file keeps debug entries")
	assert.Contains(t, lines[1], `"test":"test_search"`)
	assert.Contains(t, lines[1], `"action":"click"`)
	assert.Contains(t, lines[2], `"suite":"awesomeqa"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "info", lvl.String())

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "debug", lvl.String())

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing", "k", "v")
	assert.NoError(t, l.Close())
}
