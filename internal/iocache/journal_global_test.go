package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClearJournal(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "journal.db")
		require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o600))
		require.NoError(t, ClearJournal(schema.SQLiteBackend, dbPath, ""))
		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file is fine", func(t *testing.T) {
		assert.NoError(t, ClearJournal(schema.SQLiteBackend, filepath.Join(t.TempDir(), "nope.db"), ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearJournal(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearJournal(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ClearJournal("oracle", "", ""))
	})
}

func TestJournalStoreManager(t *testing.T) {
	mgr := &JournalStoreManager{}
	assert.Nil(t, mgr.GetJournalStore())

	store := &contract.MockJournalStore{}
	mgr.journal = store
	assert.Same(t, store, mgr.GetJournalStore())
}

func TestPrintJournalStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintJournalStatus(&buf, schema.JournalStatus{Backend: "none"})
	assert.Equal(t, "Journal Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	when := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	PrintJournalStatus(&buf, schema.JournalStatus{
		Backend:          "sqlite",
		Connected:        true,
		TotalCommits:     2,
		FailedCommits:    1,
		LastRevision:     6,
		LastCommitTime:   when,
		OldestCommitTime: when,
		MergeInfoTargets: 1,
		TableSizes:       map[string]int64{commitsTable: 2, itemsTable: 3},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Revision: r6\n")
	assert.Contains(t, out, "Last Commit: 2024-05-01T09:00:00Z\n")
	assert.Contains(t, out, "  svncoord_commit_items: 3 rows\n  svncoord_commits: 2 rows\n")
}

func TestExecuteJournalExport(t *testing.T) {
	var buf bytes.Buffer

	t.Run("requires an output file", func(t *testing.T) {
		assert.Error(t, ExecuteJournalExport(&buf, &contract.MockJournalStore{}, ""))
	})

	t.Run("requires a journal", func(t *testing.T) {
		assert.Error(t, ExecuteJournalExport(&buf, nil, "out"))
	})

	t.Run("empty journal", func(t *testing.T) {
		store := &contract.MockJournalStore{}
		store.On("GetStatus").Return(schema.JournalStatus{Backend: "sqlite", Connected: true}, nil)
		err := ExecuteJournalExport(&buf, store, "out")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no journal data")
	})

	t.Run("writes three files", func(t *testing.T) {
		store := newMemoryStore(t)
		start := time.Now()
		require.NoError(t, store.RecordCommit(commitRecord("t1", schema.TxnCommitted, 3, start),
			[]schema.JournalItemRecord{{TxnID: "t1", Path: "a.txt", Kind: schema.FileKind, Actions: "M"}}))
		require.NoError(t, store.PutMergeInfo(schema.MergeInfoRecord{Target: "/br", MergeInfo: "/trunk:3", Revision: 3, UpdatedAt: start}))

		base := filepath.Join(t.TempDir(), "journal")
		buf.Reset()
		require.NoError(t, ExecuteJournalExport(&buf, store, base))
		for _, suffix := range []string{".commits.parquet", ".commit_items.parquet", ".mergeinfo.parquet"} {
			_, err := os.Stat(base + suffix)
			assert.NoError(t, err, suffix)
		}
		assert.Contains(t, buf.String(), "Exported 1 commits")
	})

	t.Run("store failure", func(t *testing.T) {
		store := &contract.MockJournalStore{}
		store.On("GetStatus").Return(schema.JournalStatus{TotalCommits: 1}, nil)
		store.On("ListCommits", 0).Return([]schema.JournalRecord(nil), assert.AnError)
		err := ExecuteJournalExport(&buf, store, filepath.Join(t.TempDir(), "x"))
		assert.ErrorIs(t, err, assert.AnError)
		store.AssertCalled(t, "ListCommits", mock.Anything)
	})
}
