//go:build basic

// Package integration contains integration tests for svncoord.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWorkflowWithSQLite runs a commit and merge round trip and checks the
// journal and merge-info queries against it.
func TestWorkflowWithSQLite(t *testing.T) {
	dir := t.TempDir()
	env := []string{
		"SVNCOORD_JOURNAL_BACKEND=sqlite",
		"SVNCOORD_JOURNAL_DB_CONNECT=" + filepath.Join(dir, "journal.db"),
	}
	seedWorkflow(t, dir, env)

	out, err := runCommand(t, dir, env, "mergeinfo", "merged", "/br", "sandbox://repo/trunk", "--output", "json")
	require.NoError(t, err)
	var report struct {
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "sandbox://repo/trunk", report.Source)

	out, err = runCommand(t, dir, env, "journal", "list", "--output", "json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)

	out, err = runCommand(t, dir, env, "journal", "snapshots", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "/trunk:3")

	_, err = runCommand(t, dir, env, "journal", "status")
	require.NoError(t, err)
}

// TestDiffAfterEdit checks that local modifications show up in a summary.
func TestDiffAfterEdit(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{
		{"sandbox", "init", "sandbox://repo"},
		{"sandbox", "import", "sandbox://repo", "trunk/a.txt=one", "-m", "Initial import"},
		{"sandbox", "checkout", "sandbox://repo/trunk", "/wc"},
		{"sandbox", "write", "/wc/a.txt", "two"},
	} {
		_, err := runCommand(t, dir, nil, args...)
		require.NoError(t, err)
	}

	out, err := runCommand(t, dir, nil, "diff", "/wc", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt,file,modified")
}
