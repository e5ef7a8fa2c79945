package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, false)
	l.SetOutput(&buf)

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown")
}

func TestTextFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, false)
	l.SetOutput(&buf)

	l.WithField("run_id", "abc").Info("tick", Fields{"distance": 0.5, "box": "CAIXA02"})

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasSuffix(line, "tick box=CAIXA02 distance=0.5 run_id=abc"), line)
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewComponentLogger("navigator", DEBUG, true, "")
	require.NoError(t, err)
	l.SetOutput(&buf)

	l.WithFields(Fields{"state": "SEARCHING"}).Error("boom")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "navigator", entry.Component)
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, "SEARCHING", entry.Fields["state"])
}

func TestDerivedLoggerSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(INFO, false)
	child := parent.WithField("k", 1)
	parent.SetOutput(&buf)

	child.Info("from child")
	assert.Contains(t, buf.String(), "from child")
}

func TestComponentLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewComponentLogger("reporter", INFO, false, dir)
	require.NoError(t, err)

	l.Info("hello file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "reporter.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

// redirect points the process stream at a temp file for the test
func redirect(t *testing.T, stream **os.File) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stream")
	require.NoError(t, err)
	orig := *stream
	*stream = f
	t.Cleanup(func() {
		*stream = orig
		f.Close()
	})
	return f
}

func TestComponentLoggerWritesStderr(t *testing.T) {
	for _, withDir := range []bool{false, true} {
		stdout := redirect(t, &os.Stdout)
		stderr := redirect(t, &os.Stderr)

		dir := ""
		if withDir {
			dir = t.TempDir()
		}
		l, err := NewComponentLogger("navigator", INFO, false, dir)
		require.NoError(t, err)
		l.Info("state changed")
		require.NoError(t, l.Close())

		errData, err := os.ReadFile(stderr.Name())
		require.NoError(t, err)
		assert.Contains(t, string(errData), "state changed", "dir=%q", dir)

		outData, err := os.ReadFile(stdout.Name())
		require.NoError(t, err)
		assert.Empty(t, outData, "dir=%q", dir)

		if withDir {
			fileData, err := os.ReadFile(filepath.Join(dir, "navigator.log"))
			require.NoError(t, err)
			assert.Contains(t, string(fileData), "state changed")
		}
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	l := NewLogger(INFO, false)
	l.SetOutput(&buf)
	l.exit = func(c int) { code = c }

	l.Fatal("stop")
	assert.Equal(t, 1, code)
}
