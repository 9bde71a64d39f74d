package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for logging:
// - Records at or above the level reach stderr as text
// - Records below the level are dropped
// - The log file receives the same records as JSON lines
// - SetLevel changes every handler at once
// - ParseLevel accepts known names and rejects others

func TestNew_StderrOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Stderr: &buf})
	require.NoError(t, err)
	defer l.Close()

	l.Debug("hidden")
	l.Info("scanned", "files", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=scanned")
	assert.Contains(t, out, "files=3")
}

func TestNew_WithFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "structscan.log")
	l, err := New(Options{Level: "warn", File: path, Stderr: &buf})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("slow file", "path", "a.rs")

	l.SetLevel(slog.LevelDebug)
	assert.Equal(t, slog.LevelDebug, l.Level())
	l.Debug("now visible")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "slow file", rec["msg"])
	assert.Equal(t, "a.rs", rec["path"])
	assert.Equal(t, "WARN", rec["level"])

	assert.Contains(t, buf.String(), "now visible")
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.ErrorContains(t, err, "failed to open log file")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	l := Discard()
	l.Error("nothing happens")
	assert.NoError(t, l.Close())
}
