package commit

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/huangsam/svncoord/core/harvest"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/sandbox"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const repoURL = "sandbox://repo"

type fixture struct {
	sb   *sandbox.Sandbox
	repo *sandbox.Repository
	wc   *sandbox.WorkingCopy
}

// newFixture checks out a three-level trunk of repoURL into /wc.
func newFixture(t *testing.T) fixture {
	t.Helper()
	sb := sandbox.New("alice", nil)
	repo := importTrunk(t, sb, repoURL)
	wc, err := sb.Checkout(context.Background(), repoURL+"/trunk", -1, "/wc")
	require.NoError(t, err)
	return fixture{sb: sb, repo: repo, wc: wc}
}

func importTrunk(t *testing.T, sb *sandbox.Sandbox, url string) *sandbox.Repository {
	t.Helper()
	repo, err := sb.CreateRepository(url)
	require.NoError(t, err)
	_, err = repo.Import("alice", "initial import", map[string]string{
		"trunk/a.txt":         "a\n",
		"trunk/dir/b.txt":     "b\n",
		"trunk/dir/sub/c.txt": "c\n",
		"branches/":           "",
	})
	require.NoError(t, err)
	return repo
}

func (f fixture) harvest(t *testing.T, paths ...string) *harvest.Packet {
	t.Helper()
	packet, err := harvest.New(f.sb.Store()).CollectPacket(context.Background(), paths, harvest.Options{})
	require.NoError(t, err)
	require.False(t, packet.IsEmpty())
	return packet
}

func (f fixture) headFile(t *testing.T, path string) string {
	t.Helper()
	session, err := f.sb.Connector().Open(context.Background(), repoURL)
	require.NoError(t, err)
	defer session.Close()
	data, _, err := session.GetFile(context.Background(), path, -1)
	require.NoError(t, err)
	return string(data)
}

func (f fixture) headKind(t *testing.T, path string) schema.NodeKind {
	t.Helper()
	session, err := f.sb.Connector().Open(context.Background(), repoURL)
	require.NoError(t, err)
	defer session.Close()
	kind, err := session.CheckPath(context.Background(), path, -1)
	require.NoError(t, err)
	return kind
}

// collector is an EventSink keeping every event.
type collector struct {
	events []schema.Event
}

func (c *collector) Handle(_ context.Context, event schema.Event) {
	c.events = append(c.events, event)
}

func (c *collector) actions() []schema.EventAction {
	out := make([]schema.EventAction, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

type messageFunc func(ctx context.Context, items []schema.CommitItem) (string, bool, error)

func (f messageFunc) CommitMessage(ctx context.Context, items []schema.CommitItem) (string, bool, error) {
	return f(ctx, items)
}

func TestCommit_Sandbox(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Write("a.txt", "a changed\n"))
	require.NoError(t, f.wc.Add("dir/new.txt", schema.FileKind, "new\n"))
	require.NoError(t, f.wc.Remove("dir/sub"))
	ignore := "*.o"
	require.NoError(t, f.wc.SetProperty("dir", "svn:ignore", &ignore))
	packet := f.harvest(t, "/wc")

	journal := &contract.MockJournalStore{}
	journal.On("RecordCommit", mock.MatchedBy(func(rec schema.JournalRecord) bool {
		return rec.Status == schema.TxnCommitted && rec.Revision == 2 &&
			rec.BaseURL == repoURL+"/trunk" && rec.Message == "first line\nsecond line" && rec.UUID == f.repo.UUID()
	}), mock.MatchedBy(func(items []schema.JournalItemRecord) bool {
		return len(items) == 4 && items[0].Path == "/wc/a.txt" && items[0].Actions == "M"
	})).Return(nil).Once()
	sink := &collector{}

	c := New(f.sb.Connector(), StaticMessage("first line\r\nsecond line"), WithEvents(sink), WithJournal(journal), WithFs(afero.NewMemMapFs()))
	infos, err := c.Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.Len(t, infos, 1)

	info := infos[0]
	require.NoError(t, info.Err)
	assert.Equal(t, int64(2), info.NewRevision)
	assert.Equal(t, "alice", info.Author)
	assert.Equal(t, repoURL+"/trunk", info.BaseURL)
	assert.Equal(t, 4, info.ItemCount)
	assert.NotEmpty(t, info.TxnID)
	journal.AssertExpectations(t)

	assert.Equal(t, int64(2), f.repo.Head())
	log := f.repo.Log()
	assert.Equal(t, "first line\nsecond line", log[len(log)-1].Message)
	assert.Equal(t, map[string]string{
		"/trunk/a.txt":       "M",
		"/trunk/dir":         "M",
		"/trunk/dir/new.txt": "A",
		"/trunk/dir/sub":     "D",
	}, log[len(log)-1].ChangedPaths)
	assert.Equal(t, "a changed\n", f.headFile(t, "trunk/a.txt"))
	assert.Equal(t, "new\n", f.headFile(t, "trunk/dir/new.txt"))
	assert.Equal(t, schema.NoneKind, f.headKind(t, "trunk/dir/sub"))

	for _, p := range []string{"a.txt", "dir", "dir/new.txt"} {
		entry, err := f.wc.Entry(p)
		require.NoError(t, err, p)
		assert.Equal(t, int64(2), entry.Revision, p)
		assert.Equal(t, schema.ScheduleNormal, entry.Schedule, p)
	}
	root, err := f.wc.Entry("")
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.Revision, "the anchor was not part of the commit")
	_, err = f.wc.Entry("dir/sub")
	assert.Error(t, err)
	assert.Empty(t, f.wc.Status())
	assert.False(t, f.wc.Locked())

	assert.Equal(t, []schema.EventAction{
		schema.EventCommitModified,
		schema.EventCommitModified,
		schema.EventCommitAdded,
		schema.EventCommitDeleted,
		schema.EventCommitDelta,
		schema.EventCommitDelta,
		schema.EventCommitCompleted,
	}, sink.actions())
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, int64(2), last.Revision)
	assert.Equal(t, info.TxnID, last.TxnID)
}

// orderAccess records the paths passed to PostCommit.
type orderAccess struct {
	contract.WCAccess
	order []string
}

func (a *orderAccess) PostCommit(path string, update schema.PostCommitUpdate) error {
	a.order = append(a.order, path)
	return a.WCAccess.PostCommit(path, update)
}

func TestCommit_PostCommitChildrenFirst(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Add("x", schema.DirKind, ""))
	require.NoError(t, f.wc.Add("x/y", schema.DirKind, ""))
	require.NoError(t, f.wc.Add("x/y/z.txt", schema.FileKind, "z\n"))
	require.NoError(t, f.wc.Write("a.txt", "changed\n"))
	packet := f.harvest(t, "/wc")
	recorder := &orderAccess{WCAccess: packet.Access}
	packet.Access = recorder

	infos, err := New(f.sb.Connector(), StaticMessage("nested add")).Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.NoError(t, infos[0].Err)
	assert.Equal(t, []string{"x/y/z.txt", "x/y", "x", "a.txt"}, recorder.order)
	assert.Equal(t, "z\n", f.headFile(t, "trunk/x/y/z.txt"))
}

func TestCommit_Locks(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(map[bool]string{false: "released", true: "kept"}[keep], func(t *testing.T) {
			f := newFixture(t)
			lock, err := f.sb.Lock(context.Background(), "/wc/a.txt", "editing")
			require.NoError(t, err)
			require.NoError(t, f.wc.Write("a.txt", "locked edit\n"))
			packet := f.harvest(t, "/wc")
			require.Equal(t, map[string]string{repoURL + "/trunk/a.txt": lock.Token}, packet.LockTokens)

			infos, err := New(f.sb.Connector(), StaticMessage("edit")).Commit(context.Background(), []*harvest.Packet{packet}, Options{KeepLocks: keep})
			require.NoError(t, err)
			require.NoError(t, infos[0].Err)

			entry, err := f.wc.Entry("a.txt")
			require.NoError(t, err)
			state := f.sb.Snapshot()
			if keep {
				assert.Equal(t, lock.Token, entry.LockToken)
				assert.Len(t, state.Repositories[0].Locks, 1)
			} else {
				assert.Empty(t, entry.LockToken)
				assert.Empty(t, state.Repositories[0].Locks)
			}
		})
	}
}

func TestCommit_LockedByOtherWithoutToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.sb.Lock(context.Background(), "/wc/a.txt", "")
	require.NoError(t, err)
	// Forget the token locally so the commit cannot present it.
	require.NoError(t, f.wc.Update("a.txt", func(e *schema.Entry) { e.LockToken = "" }))
	require.NoError(t, f.wc.Write("a.txt", "x\n"))

	infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(context.Background(), []*harvest.Packet{f.harvest(t, "/wc")}, Options{})
	require.NoError(t, err)
	require.Error(t, infos[0].Err)
	assert.Equal(t, contract.CodeNoLockToken, contract.CodeOf(infos[0].Err))
	assert.Equal(t, contract.LockError, contract.KindOf(infos[0].Err))
	assert.Equal(t, int64(1), f.repo.Head())
}

// uuidAccess serves entries carrying fixed repository UUIDs.
type uuidAccess struct {
	contract.WCAccess
	uuids map[string]string
}

func (a *uuidAccess) Anchor() string { return "/wc" }
func (a *uuidAccess) Close() error   { return nil }
func (a *uuidAccess) Entry(path string) (*schema.Entry, error) {
	return &schema.Entry{Path: path, Kind: schema.FileKind, RepositoryUUID: a.uuids[path]}, nil
}

func TestCommit_DifferentRepositoriesFailBeforeNetwork(t *testing.T) {
	packet := &harvest.Packet{
		Access: &uuidAccess{uuids: map[string]string{"one.txt": "uuid-1", "two.txt": "uuid-2"}},
		Items: []schema.CommitItem{
			{Path: "one.txt", LocalPath: "/wc/one.txt", URL: repoURL + "/one.txt", Kind: schema.FileKind, ContentsModified: true},
			{Path: "two.txt", LocalPath: "/wc/two.txt", URL: repoURL + "/two.txt", Kind: schema.FileKind, ContentsModified: true},
		},
		URL: repoURL,
	}
	connector := &contract.MockRepositoryConnector{}
	messages := &contract.MockMessageProvider{}

	infos, err := New(connector, messages).Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, schema.InvalidRevision, infos[0].NewRevision)
	require.Error(t, infos[0].Err)
	assert.Equal(t, contract.ValidationError, contract.KindOf(infos[0].Err))
	assert.Equal(t, contract.CodeIllegalTarget, contract.CodeOf(infos[0].Err))
	assert.Contains(t, infos[0].Err.Error(), "Commit failed (details follow)")
	assert.Contains(t, infos[0].Err.Error(), "different repositories")
	connector.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "CommitMessage", mock.Anything, mock.Anything)
}

// closeAccess counts how often it is released.
type closeAccess struct {
	contract.WCAccess
	closed int
}

func (a *closeAccess) Anchor() string { return "/wc" }
func (a *closeAccess) Close() error   { a.closed++; return nil }

func TestCommit_EmptyPacketReleasesAccess(t *testing.T) {
	access := &closeAccess{}
	packets := []*harvest.Packet{harvest.Empty, {Access: access, URL: repoURL}}
	connector := &contract.MockRepositoryConnector{}

	infos, err := New(connector, StaticMessage("")).Commit(context.Background(), packets, Options{})
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Equal(t, 1, access.closed)
	connector.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

// failingConnector makes CloseEdit fail on every editor it hands out.
type failingConnector struct {
	contract.RepositoryConnector
	closeErr error
	aborted  int
}

type failingTransport struct {
	contract.RepositoryTransport
	c *failingConnector
}

type failingEditor struct {
	contract.Editor
	c *failingConnector
}

func (f *failingConnector) Open(ctx context.Context, url string) (contract.RepositoryTransport, error) {
	t, err := f.RepositoryConnector.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return &failingTransport{RepositoryTransport: t, c: f}, nil
}

func (t *failingTransport) CommitEditor(ctx context.Context, opts contract.CommitEditorOptions) (contract.Editor, error) {
	e, err := t.RepositoryTransport.CommitEditor(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &failingEditor{Editor: e, c: t.c}, nil
}

func (e *failingEditor) CloseEdit(context.Context) (schema.CommitInfo, error) {
	return schema.NullCommitInfo, e.c.closeErr
}

func (e *failingEditor) AbortEdit(ctx context.Context) error {
	e.c.aborted++
	return e.Editor.AbortEdit(ctx)
}

func TestCommit_CloseFailureAborts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Write("a.txt", "never committed\n"))
	packet := f.harvest(t, "/wc")
	closeErr := contract.NewError(contract.FailureError, "", "connection reset while closing")
	connector := &failingConnector{RepositoryConnector: f.sb.Connector(), closeErr: closeErr}

	journal := &contract.MockJournalStore{}
	journal.On("RecordCommit", mock.MatchedBy(func(rec schema.JournalRecord) bool {
		return rec.Status == schema.TxnAborted && rec.Revision == schema.InvalidRevision && rec.ErrorText == closeErr.Error()
	}), mock.Anything).Return(nil).Once()
	sink := &collector{}

	infos, err := New(connector, StaticMessage("msg"), WithJournal(journal), WithEvents(sink)).
		Commit(context.Background(), []*harvest.Packet{packet}, Options{RevProps: map[string]string{"custom:ticket": "42"}})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Error(t, infos[0].Err)
	assert.ErrorIs(t, infos[0].Err, closeErr)
	assert.Equal(t, "Commit failed (details follow)", infos[0].Err.(*contract.Error).Message)
	assert.Equal(t, contract.CodeCommitFailed, contract.CodeOf(infos[0].Err))
	assert.Equal(t, 1, connector.aborted)
	journal.AssertExpectations(t)

	assert.Equal(t, int64(1), f.repo.Head())
	for _, entry := range f.repo.Log() {
		assert.Empty(t, entry.RevProps)
	}
	entry, err := f.wc.Entry("a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Revision)
	assert.Equal(t, []string{"M   /wc/a.txt"}, f.wc.Status())
	assert.False(t, f.wc.Locked())

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, schema.EventCommitCompleted, last.Action)
	assert.ErrorIs(t, last.Err, closeErr)
}

func TestCommit_AbortFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Write("a.txt", "x\n"))
	packet := f.harvest(t, "/wc")

	closeErr := errors.New("close failed")
	abortErr := errors.New("abort failed")
	editor := &contract.MockEditor{}
	editor.On("OpenRoot", mock.Anything, schema.InvalidRevision).Return(nil)
	editor.On("OpenFile", mock.Anything, "a.txt", int64(1)).Return(nil)
	editor.On("CloseDir", mock.Anything).Return(nil)
	editor.On("ApplyText", mock.Anything, "a.txt", contract.Checksum([]byte("a\n")), mock.Anything).
		Run(func(args mock.Arguments) { _, _ = io.ReadAll(args.Get(3).(io.Reader)) }).
		Return(nil)
	editor.On("CloseFile", mock.Anything, "a.txt", contract.Checksum([]byte("x\n"))).Return(nil)
	editor.On("CloseEdit", mock.Anything).Return(schema.NullCommitInfo, closeErr)
	editor.On("AbortEdit", mock.Anything).Return(abortErr)

	transport := &contract.MockRepositoryTransport{}
	transport.On("Info", mock.Anything).Return(schema.RepositoryInfo{UUID: f.repo.UUID(), RootURL: repoURL}, nil)
	transport.On("CommitEditor", mock.Anything, mock.MatchedBy(func(opts contract.CommitEditorOptions) bool {
		return opts.Message == "msg" && !opts.KeepLocks
	})).Return(editor, nil)
	transport.On("Close").Return(nil)

	connector := &contract.MockRepositoryConnector{}
	connector.On("Open", mock.Anything, repoURL+"/trunk").Return(transport, nil)
	sink := &collector{}

	infos, err := New(connector, StaticMessage("msg"), WithEvents(sink)).Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.Error(t, infos[0].Err)
	assert.ErrorIs(t, infos[0].Err, closeErr)
	assert.NotErrorIs(t, infos[0].Err, abortErr)
	editor.AssertExpectations(t)
	transport.AssertExpectations(t)
	assert.Contains(t, sink.actions(), schema.EventAbortFailed)
	assert.False(t, f.wc.Locked())
}

func TestCommit_ContinuesAfterFailedPacket(t *testing.T) {
	sb := sandbox.New("alice", nil)
	stale := importTrunk(t, sb, "sandbox://stale")
	fresh := importTrunk(t, sb, "sandbox://fresh")
	wc1, err := sb.Checkout(context.Background(), "sandbox://stale/trunk", -1, "/wc1")
	require.NoError(t, err)
	wc2, err := sb.Checkout(context.Background(), "sandbox://fresh/trunk", -1, "/wc2")
	require.NoError(t, err)

	_, err = stale.Import("bob", "concurrent edit", map[string]string{"trunk/a.txt": "bob\n"})
	require.NoError(t, err)
	require.NoError(t, wc1.Write("a.txt", "alice\n"))
	require.NoError(t, wc2.Write("a.txt", "alice\n"))

	packets, err := harvest.New(sb.Store()).CollectPackets(context.Background(), []string{"/wc1", "/wc2"}, harvest.Options{}, true)
	require.NoError(t, err)
	require.Len(t, packets, 2)

	infos, err := New(sb.Connector(), StaticMessage("both")).Commit(context.Background(), packets, Options{})
	require.NoError(t, err)
	require.Len(t, infos, 2)

	require.Error(t, infos[0].Err)
	assert.Equal(t, contract.CodeTxnOutOfDate, contract.CodeOf(infos[0].Err))
	assert.Equal(t, schema.InvalidRevision, infos[0].NewRevision)
	assert.Equal(t, int64(2), stale.Head())

	require.NoError(t, infos[1].Err)
	assert.Equal(t, int64(2), infos[1].NewRevision)
	assert.Equal(t, int64(2), fresh.Head())

	assert.False(t, wc1.Locked())
	assert.False(t, wc2.Locked())
}

func TestCommit_Cancellation(t *testing.T) {
	t.Run("before the first packet", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.wc.Write("a.txt", "x\n"))
		packet := f.harvest(t, "/wc")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(ctx, []*harvest.Packet{packet}, Options{})
		require.Error(t, err)
		assert.True(t, contract.IsCancelled(err))
		assert.Empty(t, infos)
		assert.False(t, f.wc.Locked())
	})

	t.Run("while committing stops the batch", func(t *testing.T) {
		sb := sandbox.New("alice", nil)
		one := importTrunk(t, sb, "sandbox://one")
		two := importTrunk(t, sb, "sandbox://two")
		wc1, err := sb.Checkout(context.Background(), "sandbox://one/trunk", -1, "/wc1")
		require.NoError(t, err)
		wc2, err := sb.Checkout(context.Background(), "sandbox://two/trunk", -1, "/wc2")
		require.NoError(t, err)
		require.NoError(t, wc1.Write("a.txt", "1\n"))
		require.NoError(t, wc2.Write("a.txt", "2\n"))
		packets, err := harvest.New(sb.Store()).CollectPackets(context.Background(), []string{"/wc1", "/wc2"}, harvest.Options{}, false)
		require.NoError(t, err)
		require.Len(t, packets, 2)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		calls := 0
		messages := messageFunc(func(context.Context, []schema.CommitItem) (string, bool, error) {
			calls++
			cancel()
			return "cancelled", true, nil
		})

		infos, err := New(sb.Connector(), messages).Commit(ctx, packets, Options{})
		require.Error(t, err)
		assert.Equal(t, contract.CancelledError, contract.KindOf(err))
		assert.Empty(t, infos)
		assert.Equal(t, 1, calls)
		assert.Equal(t, int64(1), one.Head())
		assert.Equal(t, int64(1), two.Head())
		assert.False(t, wc1.Locked())
		assert.False(t, wc2.Locked())
	})
}

func TestCommit_MessageCancelled(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Write("a.txt", "x\n"))
	packet := f.harvest(t, "/wc")
	messages := &contract.MockMessageProvider{}
	messages.On("CommitMessage", mock.Anything, packet.Items).Return("", false, nil).Once()

	infos, err := New(f.sb.Connector(), messages).Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].IsNull())
	assert.Equal(t, int64(1), f.repo.Head())
	assert.False(t, f.wc.Locked())
	messages.AssertExpectations(t)
}

func TestCommit_RevProps(t *testing.T) {
	t.Run("reserved name", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.wc.Write("a.txt", "x\n"))
		infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(context.Background(),
			[]*harvest.Packet{f.harvest(t, "/wc")}, Options{RevProps: map[string]string{"svn:log": "sneaky"}})
		require.NoError(t, err)
		assert.Equal(t, contract.CodePropertyName, contract.CodeOf(infos[0].Err))
		assert.Equal(t, contract.ValidationError, contract.KindOf(infos[0].Err))
	})

	t.Run("recorded with the revision", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.wc.Write("a.txt", "x\n"))
		infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(context.Background(),
			[]*harvest.Packet{f.harvest(t, "/wc")}, Options{RevProps: map[string]string{"custom:ticket": "42"}})
		require.NoError(t, err)
		require.NoError(t, infos[0].Err)
		log := f.repo.Log()
		assert.Equal(t, map[string]string{"custom:ticket": "42"}, log[len(log)-1].RevProps)
	})

	t.Run("unsupported by the server", func(t *testing.T) {
		f := newFixture(t)
		f.repo.DisableCapability(contract.CapabilityCommitRevProps)
		require.NoError(t, f.wc.Write("a.txt", "x\n"))
		infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(context.Background(),
			[]*harvest.Packet{f.harvest(t, "/wc")}, Options{RevProps: map[string]string{"custom:ticket": "42"}})
		require.NoError(t, err)
		assert.Equal(t, contract.UnsupportedError, contract.KindOf(infos[0].Err))
		assert.Equal(t, int64(1), f.repo.Head())
	})
}

func TestCommit_SkippedItems(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Write("a.txt", "x\n"))
	require.NoError(t, f.wc.Write("dir/b.txt", "y\n"))
	packet := f.harvest(t, "/wc")

	skipAll := func(schema.CommitItem) bool { return true }
	infos, err := New(f.sb.Connector(), StaticMessage("")).Commit(context.Background(), []*harvest.Packet{packet}, Options{Skipped: skipAll})
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.False(t, f.wc.Locked())
	assert.Equal(t, int64(1), f.repo.Head())
}

func TestCommit_CopiedDirectory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.wc.Copy("dir", "dircopy"))
	require.NoError(t, f.wc.Write("dircopy/b.txt", "b in copy\n"))
	packet, err := harvest.New(f.sb.Store()).CollectPacket(context.Background(), []string{"/wc"}, harvest.Options{})
	require.NoError(t, err)

	infos, err := New(f.sb.Connector(), StaticMessage("copy")).Commit(context.Background(), []*harvest.Packet{packet}, Options{})
	require.NoError(t, err)
	require.NoError(t, infos[0].Err)
	assert.Equal(t, "b in copy\n", f.headFile(t, "trunk/dircopy/b.txt"))
	assert.Equal(t, "c\n", f.headFile(t, "trunk/dircopy/sub/c.txt"))

	for _, p := range []string{"dircopy", "dircopy/b.txt", "dircopy/sub/c.txt"} {
		entry, err := f.wc.Entry(p)
		require.NoError(t, err, p)
		assert.Equal(t, int64(2), entry.Revision, p)
		assert.False(t, entry.Copied, p)
		assert.Empty(t, entry.CopyFromURL, p)
	}
	assert.Empty(t, f.wc.Status())
}

func TestCommit_TranslatedText(t *testing.T) {
	f := newFixture(t)
	native, keywords := "native", "Id"
	require.NoError(t, f.wc.SetProperty("a.txt", schema.EOLStyleProperty, &native))
	require.NoError(t, f.wc.SetProperty("a.txt", schema.KeywordsProperty, &keywords))
	require.NoError(t, f.wc.Write("a.txt", "a\r\n$Id: a.txt 1 alice $\r\n"))
	fs := afero.NewMemMapFs()

	infos, err := New(f.sb.Connector(), StaticMessage("eol"), WithFs(fs)).Commit(context.Background(), []*harvest.Packet{f.harvest(t, "/wc")}, Options{})
	require.NoError(t, err)
	require.NoError(t, infos[0].Err)
	assert.Equal(t, "a\n$Id$\n", f.headFile(t, "trunk/a.txt"))

	files := 0
	require.NoError(t, afero.Walk(fs, "/", func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files++
		}
		return nil
	}))
	assert.Zero(t, files, "temp files are removed after the commit")
}
