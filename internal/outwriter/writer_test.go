package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/svncoord/core/diff"
	"github.com/huangsam/svncoord/core/mergeinfo"
	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render runs write with output sent to a temp file and returns what was written.
func render(t *testing.T, mode schema.OutputMode, write func(cfg *contract.Config) error) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	cfg := &contract.Config{Output: mode, OutputFile: out, Width: 120}
	require.NoError(t, write(cfg))
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	return string(content)
}

func readCSV(t *testing.T, content string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

var sampleDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleCommits() []schema.CommitInfo {
	return []schema.CommitInfo{
		{TxnID: "txn-1", NewRevision: 5, Date: sampleDate, Author: "alice", BaseURL: "sandbox://repo/trunk", ItemCount: 2},
		{TxnID: "txn-2", NewRevision: schema.InvalidRevision, BaseURL: "sandbox://repo/branches/b", ItemCount: 1,
			Err: contract.CommitFailed(contract.NewError(contract.ValidationError, contract.CodeTxnOutOfDate, "out of date"))},
	}
}

func TestWriteCommitResults(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error {
			return WriteCommitResults(sampleCommits(), cfg, time.Second)
		}))
		require.Len(t, records, 3)
		assert.Equal(t, "txn_id", records[0][0])
		assert.Equal(t, []string{"txn-1", "sandbox://repo/trunk", "5", "2", "alice", "2024-03-01T12:00:00Z", "committed", ""}, records[1])
		assert.Equal(t, "-1", records[2][2])
		assert.Equal(t, "failed", records[2][6])
		assert.NotEmpty(t, records[2][7])
	})

	t.Run("json", func(t *testing.T) {
		var result []map[string]any
		require.NoError(t, json.Unmarshal([]byte(render(t, schema.JSONOut, func(cfg *contract.Config) error {
			return WriteCommitResults(sampleCommits(), cfg, time.Second)
		})), &result))
		require.Len(t, result, 2)
		assert.Equal(t, "committed", result[0]["status"])
		assert.Equal(t, float64(5), result[0]["new_revision"])
		assert.NotContains(t, result[0], "error")
		assert.Equal(t, "failed", result[1]["status"])
		assert.Equal(t, contract.CodeTxnOutOfDate, result[1]["code"])
	})

	t.Run("text", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error {
			return WriteCommitResults(sampleCommits(), cfg, time.Second)
		})
		assert.Contains(t, out, "sandbox://repo/trunk")
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, "Committed 1 of 2 transactions in 1s")
	})
}

func TestCommitStatus(t *testing.T) {
	assert.Equal(t, schema.TxnCommitted, commitStatus(schema.CommitInfo{NewRevision: 3}))
	assert.Equal(t, schema.TxnSkipped, commitStatus(schema.NullCommitInfo))
	assert.Equal(t, schema.TxnFailed, commitStatus(schema.CommitInfo{NewRevision: -1, Err: assert.AnError}))
}

func sampleChanges() []schema.TreeChange {
	value := "native"
	return []schema.TreeChange{
		{Path: "a.txt", Kind: schema.FileKind, Action: schema.ChangeModified, OldRevision: 1, NewRevision: 2,
			OldText: []byte("one\n"), NewText: []byte("two\n"),
			PropChanges: map[string]schema.PropChange{"svn:eol-style": {New: &value}, "owner": {}}},
		{Path: "n.txt", Kind: schema.FileKind, Action: schema.ChangeAdded, OldRevision: -1, NewRevision: 2, NewText: []byte("n\n")},
	}
}

func TestWriteDiff(t *testing.T) {
	t.Run("text is a unified diff", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteDiff(sampleChanges(), cfg) })
		assert.Contains(t, out, "Index: a.txt\n")
		assert.Contains(t, out, "-one\n+two\n")
		assert.Contains(t, out, "Index: n.txt\n")
	})

	t.Run("csv", func(t *testing.T) {
		records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteDiff(sampleChanges(), cfg) }))
		require.Len(t, records, 3)
		assert.Equal(t, []string{"a.txt", "file", "modified", "1", "2", "owner|svn:eol-style"}, records[1])
		assert.Equal(t, "added", records[2][2])
	})

	t.Run("json carries the patch", func(t *testing.T) {
		var result []map[string]any
		require.NoError(t, json.Unmarshal([]byte(render(t, schema.JSONOut, func(cfg *contract.Config) error {
			return WriteDiff(sampleChanges(), cfg)
		})), &result))
		require.Len(t, result, 2)
		assert.Equal(t, "a.txt", result[0]["path"])
		assert.Contains(t, result[0]["patch"], "+two\n")
	})
}

func TestWriteDiffSummary(t *testing.T) {
	summaries := []schema.DiffSummary{
		{Path: "a.txt", Kind: schema.FileKind, Action: schema.ChangeModified, PropsChanged: true},
		{Path: "dir", Kind: schema.DirKind, Action: schema.ChangeDeleted},
	}
	records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteDiffSummary(summaries, cfg) }))
	assert.Equal(t, [][]string{
		{"path", "kind", "action", "props_changed"},
		{"a.txt", "file", "modified", "true"},
		{"dir", "dir", "deleted", "false"},
	}, records)

	out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteDiffSummary(summaries, cfg) })
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "dir")
}

func sampleMerge() diff.MergeResult {
	return diff.MergeResult{
		Source:    "sandbox://repo/trunk",
		Target:    "/br",
		Merged:    rangelist.MustParse("3-4"),
		Applied:   sampleChanges(),
		Conflicts: []string{"c.txt"},
		MergeInfo: "/trunk:3-4",
	}
}

func TestWriteMergeResult(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteMergeResult(sampleMerge(), cfg) })
		assert.Contains(t, out, "Merged 3-4 from sandbox://repo/trunk into /br\n")
		assert.NotContains(t, out, "Reverted")
		assert.Contains(t, out, "c.txt")
		assert.Contains(t, out, "conflict")
		assert.Contains(t, out, "Recorded svn:mergeinfo: /trunk:3-4\n")
	})

	t.Run("text with unrecorded ranges", func(t *testing.T) {
		result := sampleMerge()
		result.Unrecorded = rangelist.MustParse("5")
		out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteMergeResult(result, cfg) })
		assert.Contains(t, out, "Not recorded 5 of sandbox://repo/trunk: resolve the conflicts and merge again\n")
	})

	t.Run("text without merge-info", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error {
			return WriteMergeResult(diff.MergeResult{Source: "s", Target: "t"}, cfg)
		})
		assert.Equal(t, "Recorded svn:mergeinfo: (none)\n", out)
	})

	t.Run("csv", func(t *testing.T) {
		records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteMergeResult(sampleMerge(), cfg) }))
		assert.Equal(t, [][]string{
			{"path", "kind", "action", "status"},
			{"a.txt", "file", "modified", "applied"},
			{"n.txt", "file", "added", "applied"},
			{"c.txt", "", "", "conflict"},
		}, records)
	})
}

func sampleReport() diff.MergeInfoReport {
	return diff.MergeInfoReport{
		Source:    "sandbox://repo/trunk",
		Selection: mergeinfo.Selection{Ranges: rangelist.MustParse("2-4"), LogTarget: "/trunk"},
		Log: []schema.LogEntry{
			{Revision: 3, Author: "bob", Date: sampleDate, Message: "edit a\n\nlonger body"},
			{Revision: 4, Author: "bob", Date: sampleDate, Message: "add c"},
		},
	}
}

func TestWriteMergeInfoReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteMergeInfoReport(sampleReport(), cfg) })
		assert.Contains(t, out, "Source: sandbox://repo/trunk\nRevisions: 2-4\n")
		assert.Contains(t, out, "r3")
		assert.Contains(t, out, "edit a")
		assert.NotContains(t, out, "longer body")
	})

	t.Run("empty selection", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error {
			return WriteMergeInfoReport(diff.MergeInfoReport{Source: "s"}, cfg)
		})
		assert.Equal(t, "Source: s\nRevisions: (none)\n", out)
	})

	t.Run("csv", func(t *testing.T) {
		records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteMergeInfoReport(sampleReport(), cfg) }))
		require.Len(t, records, 3)
		assert.Equal(t, []string{"sandbox://repo/trunk", "4", "bob", "2024-03-01T12:00:00Z", "add c"}, records[2])
	})
}

func TestWriteMergeSources(t *testing.T) {
	sources := []string{"sandbox://repo/trunk", "sandbox://repo/branches/other"}
	out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteMergeSources(sources, cfg) })
	assert.Equal(t, "sandbox://repo/trunk\nsandbox://repo/branches/other\n", out)

	records := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteMergeSources(sources, cfg) }))
	assert.Equal(t, []string{"2", "sandbox://repo/branches/other"}, records[2])

	var decoded []string
	require.NoError(t, json.Unmarshal([]byte(render(t, schema.JSONOut, func(cfg *contract.Config) error {
		return WriteMergeSources(sources, cfg)
	})), &decoded))
	assert.Equal(t, sources, decoded)
}

func TestWriteJournal(t *testing.T) {
	records := []schema.JournalRecord{
		{TxnID: "0123456789abcdef", Status: schema.TxnCommitted, BaseURL: "sandbox://repo/trunk", Revision: 7, ItemCount: 3,
			StartTime: sampleDate, EndTime: sampleDate.Add(time.Second), DurationMs: 1000},
		{TxnID: "short", Status: schema.TxnFailed, BaseURL: "sandbox://repo/trunk", Revision: -1, ErrorText: "out of date"},
	}

	t.Run("text", func(t *testing.T) {
		out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteJournal(records, cfg) })
		assert.Contains(t, out, "01234567")
		assert.NotContains(t, out, "0123456789abcdef")
		assert.Contains(t, out, "Showing 2 journal entries")
	})

	t.Run("csv", func(t *testing.T) {
		rows := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteJournal(records, cfg) }))
		require.Len(t, rows, 3)
		assert.Equal(t, "0123456789abcdef", rows[1][0])
		assert.Equal(t, "1000", rows[1][11])
		assert.Equal(t, "out of date", rows[2][8])
		assert.Equal(t, "", rows[2][9])
	})
}

func TestWriteJournalItemsAndSnapshots(t *testing.T) {
	items := []schema.JournalItemRecord{{TxnID: "t1", Path: "a.txt", Kind: schema.FileKind, Actions: "M"}}
	rows := readCSV(t, render(t, schema.CSVOut, func(cfg *contract.Config) error { return WriteJournalItems(items, cfg) }))
	assert.Equal(t, [][]string{{"txn_id", "path", "kind", "actions"}, {"t1", "a.txt", "file", "M"}}, rows)

	snapshots := []schema.MergeInfoRecord{{Target: "/br", MergeInfo: "/trunk:3-4\n/branches/x:5", Revision: 4, UpdatedAt: sampleDate}}
	out := render(t, schema.TextOut, func(cfg *contract.Config) error { return WriteMergeInfoSnapshots(snapshots, cfg) })
	assert.Contains(t, out, "/trunk:3-4, /branches/x:5")

	var decoded []schema.MergeInfoRecord
	require.NoError(t, json.Unmarshal([]byte(render(t, schema.JSONOut, func(cfg *contract.Config) error {
		return WriteMergeInfoSnapshots(snapshots, cfg)
	})), &decoded))
	assert.Equal(t, snapshots, decoded)
}

func TestOutWriter(t *testing.T) {
	ow := NewOutWriter()
	out := render(t, schema.TextOut, func(cfg *contract.Config) error { return ow.WriteSources([]string{"x"}, cfg) })
	assert.Equal(t, "x\n", out)

	cfg := &contract.Config{Output: schema.ParquetOut}
	assert.Error(t, ow.WriteMerge(sampleMerge(), cfg))
	assert.Error(t, ow.WriteJournal(nil, cfg))
}
