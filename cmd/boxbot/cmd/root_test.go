package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psantana5/boxbot/internal/config"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/psantana5/boxbot/pkg/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestWorldShow(t *testing.T) {
	out := execute(t, "world", "show")

	assert.Contains(t, out, "World arena")
	assert.Contains(t, out, "CAIXA01")
	assert.Contains(t, out, "CAIXA20")
	assert.Contains(t, out, "0.25kg")
	assert.Contains(t, row(out, "CAIXA14"), "*")
	assert.NotContains(t, row(out, "CAIXA01"), "*")
}

// row returns the first output line mentioning name
func row(out, name string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, name) {
			return line
		}
	}
	return ""
}

func TestConfigShowJSON(t *testing.T) {
	out := execute(t, "config", "show", "-o", "json")

	var values map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &values))

	nav, ok := values["navigation"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 6.28, nav["max_speed"])
	assert.Equal(t, "64ms", nav["time_step"])
}

func TestNavigateRecordsRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	out := execute(t, "navigate", "--max-duration", "20s", "--record", dbPath)

	assert.Contains(t, out, "CAIXA14")
	assert.Contains(t, out, string(models.StateSpinning))

	db, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "navigator", runs[0].Controller)
	assert.Equal(t, "CAIXA14", runs[0].Target)
	assert.Equal(t, models.StateSpinning, runs[0].FinalState)
	assert.False(t, runs[0].EndedAt.IsZero())

	transitions, err := db.GetTransitions(runs[0].ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(transitions), 2)
	assert.Equal(t, models.StateApproaching, transitions[0].To)
	assert.Equal(t, models.StateSpinning, transitions[len(transitions)-1].To)
}

func TestWorldFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
boxes:
  - {def: CAIXA01, position: [0.3, 0.025, 0], size: [0.05, 0.05, 0.05], mass: 1.5}
`), 0o644))

	out := execute(t, "world", "show", "--world", path)
	assert.Contains(t, out, "World tiny")
	assert.Contains(t, out, "Pesada")

	// Reset the persistent flag for the other tests
	require.NoError(t, rootCmd.PersistentFlags().Set("world", ""))
}

func TestWorldShowMarksNavigatorTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: extra
boxes:
  - {def: CAIXA01, position: [0.3, 0.025, 0], size: [0.05, 0.05, 0.05], mass: 2.0}
  - {def: CAIXA21, position: [-0.3, 0.025, 0], size: [0.05, 0.05, 0.05], mass: 0.1}
`), 0o644))
	t.Cleanup(func() { rootCmd.PersistentFlags().Set("world", "") })

	// CAIXA21 is past the configured box count, so the navigator never loads it
	out := execute(t, "world", "show", "--world", path)
	assert.Contains(t, row(out, "CAIXA01"), "*")
	assert.Contains(t, row(out, "CAIXA21"), "0.10kg")
	assert.NotContains(t, row(out, "CAIXA21"), "*")
}

func TestRunsListAndShow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Set("record", "")
		runsCmd.PersistentFlags().Set("output", "table")
		runsListCmd.Flags().Set("state", "")
	})
	execute(t, "navigate", "--max-duration", "20s", "--record", dbPath)

	out := execute(t, "runs", "list", "--record", dbPath, "-o", "json")
	var list runsListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Equal(t, 1, list.Count)
	run := list.Runs[0]
	assert.Equal(t, "navigator", run.Controller)
	assert.Equal(t, "CAIXA14", run.Target)
	assert.Equal(t, "SPINNING", run.FinalState)
	assert.NotNil(t, run.EndedAt)

	out = execute(t, "runs", "list", "--record", dbPath, "-o", "json", "--state", "searching")
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Zero(t, list.Count)

	out = execute(t, "runs", "show", run.ID, "--record", dbPath, "-o", "table")
	assert.Contains(t, out, run.ID)
	assert.Contains(t, row(out, "Target"), "CAIXA14")
	assert.Contains(t, out, "APPROACHING")
	assert.Contains(t, out, "SPINNING")

	out = execute(t, "runs", "show", run.ID, "--record", dbPath, "-o", "json")
	var detail runDetailResponse
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, run.ID, detail.ID)
	require.NotEmpty(t, detail.Transitions)
	assert.Equal(t, "SPINNING", detail.Transitions[len(detail.Transitions)-1].To)
}

func TestRunsRejectsBadInput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.PersistentFlags().Set("record", "")
		runsListCmd.Flags().Set("state", "")
	})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	rootCmd.SetArgs([]string{"runs", "list", "--record", ""})
	assert.ErrorContains(t, rootCmd.Execute(), "no run database configured")

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	rootCmd.SetArgs([]string{"runs", "list", "--record", dbPath, "--state", "DANCING"})
	assert.ErrorContains(t, rootCmd.Execute(), "unknown robot state")

	rootCmd.SetArgs([]string{"runs", "show", "missing", "--record", dbPath})
	assert.ErrorIs(t, rootCmd.Execute(), store.ErrRunNotFound)
}

func TestSessionAbortCancelsContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loaded, err := config.Load(config.New(), "")
	require.NoError(t, err)
	loaded.Log.Level = "error"
	prev := cfg
	cfg = loaded
	t.Cleanup(func() { cfg = prev })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	s, err := newSession(cmd, "navigator")
	require.NoError(t, err)

	s.abort()
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}
