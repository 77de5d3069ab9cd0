package diff

import (
	"context"
	"testing"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const trunkURL = repoURL + "/trunk"

// newBranchFixture branches trunk in r2, edits trunk in r3 and r4 and checks the
// branch out into /br.
func newBranchFixture(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t)
	_, err := f.repo.Copy("alice", "branch", "trunk", 1, "branches/b")
	require.NoError(t, err)
	_, err = f.repo.Import("bob", "edit a", map[string]string{"trunk/a.txt": "one\ntwo\n"})
	require.NoError(t, err)
	_, err = f.repo.Import("bob", "add c", map[string]string{"trunk/c.txt": "sea\n"})
	require.NoError(t, err)
	require.Equal(t, int64(4), f.repo.Head())
	f.wc, err = f.sb.Checkout(context.Background(), repoURL+"/branches/b", -1, "/br")
	require.NoError(t, err)
	return f
}

func (f fixture) mergeInfo(t *testing.T) string {
	t.Helper()
	access, err := f.sb.Store().Open(context.Background(), "/br", false, 0)
	require.NoError(t, err)
	defer access.Close()
	props, err := access.Properties("")
	require.NoError(t, err)
	return props[schema.MergeInfoProperty]
}

func forward(start, end int64) rangelist.List {
	return rangelist.List{{Start: start, End: end, Inheritable: true}}
}

func TestMerge(t *testing.T) {
	t.Run("forward range", func(t *testing.T) {
		f := newBranchFixture(t)
		sink := &collector{}
		d := New(f.sb.Connector(), f.sb.Store(), WithEvents(sink))

		result, err := d.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Equal(t, "3-4", result.Merged.String())
		assert.Empty(t, result.Reverted)
		assert.Empty(t, result.Conflicts)
		assert.Equal(t, []string{"a.txt", "c.txt"}, paths(result.Applied))
		assert.Equal(t, "/trunk:3-4", result.MergeInfo)
		assert.Equal(t, "/trunk:3-4", f.mergeInfo(t))

		text, err := f.wc.Read("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", text)
		entry, err := f.wc.Entry("c.txt")
		require.NoError(t, err)
		assert.Equal(t, schema.ScheduleAdd, entry.Schedule)
		assert.Equal(t, []schema.EventAction{schema.EventMergeBegin, schema.EventMergeApplied, schema.EventMergeApplied}, sink.actions())
		assert.False(t, f.wc.Locked())

		again, err := d.Merge(context.Background(), trunkURL, -1, forward(1, 4), "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Equal(t, "2", again.Merged.String())
		assert.Empty(t, again.Applied)
		assert.Equal(t, "/trunk:2-4", f.mergeInfo(t))
	})

	t.Run("reverse range undoes recorded revisions", func(t *testing.T) {
		f := newBranchFixture(t)
		d := New(f.sb.Connector(), f.sb.Store())
		_, err := d.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{})
		require.NoError(t, err)

		result, err := d.Merge(context.Background(), trunkURL, -1, rangelist.List{{Start: 4, End: 2, Inheritable: true}}, "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Equal(t, "3-4", result.Reverted.String())
		assert.Empty(t, result.Merged)
		assert.Equal(t, []schema.ChangeAction{schema.ChangeModified, schema.ChangeDeleted}, actions(result.Applied))
		assert.Equal(t, "", result.MergeInfo)
		assert.Equal(t, "", f.mergeInfo(t))

		text, err := f.wc.Read("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "one\n", text)
		_, err = f.wc.Entry("c.txt")
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("reverse range without recorded revisions", func(t *testing.T) {
		f := newBranchFixture(t)
		result, err := f.driver.Merge(context.Background(), trunkURL, -1, rangelist.List{{Start: 4, End: 2, Inheritable: true}}, "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Empty(t, result.Reverted)
		assert.Empty(t, result.Applied)
	})

	t.Run("dry run leaves the working copy alone", func(t *testing.T) {
		f := newBranchFixture(t)
		result, err := f.driver.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "c.txt"}, paths(result.Applied))
		assert.Equal(t, "/trunk:3-4", result.MergeInfo)
		assert.Equal(t, "", f.mergeInfo(t))
		text, err := f.wc.Read("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "one\n", text)
	})

	t.Run("record only", func(t *testing.T) {
		f := newBranchFixture(t)
		result, err := f.driver.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{RecordOnly: true})
		require.NoError(t, err)
		assert.Empty(t, result.Applied)
		assert.Equal(t, "/trunk:3-4", f.mergeInfo(t))
		text, err := f.wc.Read("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "one\n", text)
	})

	t.Run("local edits conflict", func(t *testing.T) {
		f := newBranchFixture(t)
		require.NoError(t, f.wc.Write("a.txt", "mine\n"))
		sink := &collector{}
		d := New(f.sb.Connector(), f.sb.Store(), WithEvents(sink))

		result, err := d.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt"}, result.Conflicts)
		assert.Equal(t, []string{"c.txt"}, paths(result.Applied))
		assert.Empty(t, result.Merged)
		assert.Equal(t, "3-4", result.Unrecorded.String())
		assert.Empty(t, result.MergeInfo)
		assert.Empty(t, f.mergeInfo(t))
		text, err := f.wc.Read("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "mine\n", text)

		var skipped *schema.Event
		for i, e := range sink.events {
			if e.Action == schema.EventSkipped {
				skipped = &sink.events[i]
			}
		}
		require.NotNil(t, skipped)
		assert.Equal(t, "a.txt", skipped.Path)
		assert.Equal(t, contract.CodeWCFoundConflict, contract.CodeOf(skipped.Err))
	})

	t.Run("only clean ranges are recorded", func(t *testing.T) {
		f := newBranchFixture(t)
		require.NoError(t, f.wc.Write("a.txt", "mine\n"))
		ranges := append(forward(2, 3), forward(3, 4)...)

		result, err := f.driver.Merge(context.Background(), trunkURL, -1, ranges, "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt"}, result.Conflicts)
		assert.Equal(t, "4", result.Merged.String())
		assert.Equal(t, "3", result.Unrecorded.String())
		assert.Equal(t, "/trunk:4", result.MergeInfo)
		assert.Equal(t, "/trunk:4", f.mergeInfo(t))

		require.NoError(t, f.wc.Write("a.txt", "one\n"))
		again, err := f.driver.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{})
		require.NoError(t, err)
		assert.Empty(t, again.Conflicts)
		assert.Equal(t, []string{"a.txt"}, paths(again.Applied))
		assert.Equal(t, "/trunk:3-4", f.mergeInfo(t))
	})

	t.Run("journal snapshot", func(t *testing.T) {
		f := newBranchFixture(t)
		journal := &contract.MockJournalStore{}
		journal.On("PutMergeInfo", mock.MatchedBy(func(rec schema.MergeInfoRecord) bool {
			return rec.Target == "/br" && rec.MergeInfo == "/trunk:3-4" && rec.Revision == 4
		})).Return(nil).Once()
		d := New(f.sb.Connector(), f.sb.Store(), WithJournal(journal))
		_, err := d.Merge(context.Background(), trunkURL, -1, forward(2, 4), "/br", MergeOptions{})
		require.NoError(t, err)
		journal.AssertExpectations(t)
	})

	t.Run("invalid range", func(t *testing.T) {
		f := newBranchFixture(t)
		_, err := f.driver.Merge(context.Background(), trunkURL, -1, forward(3, 3), "/br", MergeOptions{})
		require.Error(t, err)
		assert.Equal(t, contract.CodeMergeInfoParse, contract.CodeOf(err))
	})

	t.Run("source from another repository", func(t *testing.T) {
		f := newBranchFixture(t)
		other, err := f.sb.CreateRepository("sandbox://other")
		require.NoError(t, err)
		_, err = other.Import("alice", "x", map[string]string{"trunk/x.txt": "x\n"})
		require.NoError(t, err)
		_, err = f.driver.Merge(context.Background(), "sandbox://other/trunk", -1, forward(0, 1), "/br", MergeOptions{})
		require.Error(t, err)
		assert.Equal(t, contract.CodeIllegalTarget, contract.CodeOf(err))
	})
}

func TestMergePieces(t *testing.T) {
	recorded := rangelist.MustParse("3-4,8")
	pieces := mergePieces(rangelist.List{
		{Start: 1, End: 9, Inheritable: true},
		{Start: 9, End: 2, Inheritable: true},
	}, recorded)
	assert.Equal(t, []mergePiece{
		{from: 1, to: 2},
		{from: 4, to: 7},
		{from: 8, to: 9},
		{from: 8, to: 7, reverse: true},
		{from: 4, to: 2, reverse: true},
	}, pieces)
}
