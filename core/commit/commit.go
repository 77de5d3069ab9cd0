// Package commit drives commit transactions: it turns harvested packets into
// editor calls against a repository and updates the working copies afterwards.
package commit

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/svncoord/core/harvest"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/afero"
)

// Options controls one commit operation.
type Options struct {
	KeepLocks bool
	RevProps  map[string]string
	Author    string

	// Skipped drops items from a packet before it is committed.
	Skipped func(schema.CommitItem) bool
}

// StaticMessage is a MessageProvider that always answers with the same message.
type StaticMessage string

// CommitMessage implements contract.MessageProvider.
func (m StaticMessage) CommitMessage(context.Context, []schema.CommitItem) (string, bool, error) {
	return string(m), true, nil
}

// Committer commits packets through a repository connector.
type Committer struct {
	connector contract.RepositoryConnector
	messages  contract.MessageProvider
	events    contract.EventSink
	journal   contract.JournalStore
	fs        afero.Fs
	clock     func() time.Time
}

// Option configures a Committer.
type Option func(*Committer)

// WithEvents sets the sink receiving progress events.
func WithEvents(sink contract.EventSink) Option {
	return func(c *Committer) { c.events = sink }
}

// WithJournal records every attempted transaction in store.
func WithJournal(store contract.JournalStore) Option {
	return func(c *Committer) { c.journal = store }
}

// WithFs sets the filesystem used for translated temp files.
func WithFs(fs afero.Fs) Option {
	return func(c *Committer) { c.fs = fs }
}

// WithClock sets the clock used for journal timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Committer) { c.clock = clock }
}

// New creates a Committer. A nil message provider commits with an empty message.
func New(connector contract.RepositoryConnector, messages contract.MessageProvider, opts ...Option) *Committer {
	if messages == nil {
		messages = StaticMessage("")
	}
	c := &Committer{
		connector: connector,
		messages:  messages,
		fs:        afero.NewOsFs(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Committer) dispatch(ctx context.Context, event schema.Event) {
	if c.events != nil {
		c.events.Handle(ctx, event)
	}
}

// Commit commits every packet as its own transaction, in order. A failing packet
// yields a CommitInfo carrying the error and the next packet still runs.
// Cancellation stops the batch and is returned as the error. Every packet is
// disposed before Commit returns.
func (c *Committer) Commit(ctx context.Context, packets []*harvest.Packet, opts Options) ([]schema.CommitInfo, error) {
	infos := make([]schema.CommitInfo, 0, len(packets))
	for i, packet := range packets {
		if err := contract.CheckCancelled(ctx); err != nil {
			_ = harvest.DisposeAll(packets[i:])
			return infos, err
		}
		packet.RemoveSkippedItems(opts.Skipped)
		if packet.IsEmpty() {
			if err := packet.Dispose(); err != nil {
				contract.LogWarn("Failed to release working copy", err)
			}
			continue
		}

		info, err := c.commitPacket(ctx, packet, opts)
		if err == nil {
			infos = append(infos, info)
			continue
		}
		if contract.IsCancelled(err) {
			_ = harvest.DisposeAll(packets[i+1:])
			return infos, err
		}
		info.NewRevision = schema.InvalidRevision
		info.Err = contract.CommitFailed(err)
		c.dispatch(ctx, schema.Event{Action: schema.EventCommitCompleted, Path: packet.URL, Revision: schema.InvalidRevision, TxnID: info.TxnID, Err: info.Err})
		infos = append(infos, info)
	}
	return infos, nil
}

// attempt is the journal view of one transaction.
type attempt struct {
	rec   schema.JournalRecord
	items []schema.CommitItem
}

func (c *Committer) begin(baseURL, repoUUID string, items []schema.CommitItem) *attempt {
	return &attempt{
		rec: schema.JournalRecord{
			TxnID:     newTxnID(),
			BaseURL:   baseURL,
			UUID:      repoUUID,
			Revision:  schema.InvalidRevision,
			ItemCount: len(items),
			StartTime: c.clock(),
		},
		items: items,
	}
}

func newTxnID() string {
	return uuid.NewString()
}

func (c *Committer) record(a *attempt, status schema.TxnStatus, err error) {
	if c.journal == nil {
		return
	}
	a.rec.Status = status
	a.rec.EndTime = c.clock()
	a.rec.DurationMs = a.rec.EndTime.Sub(a.rec.StartTime).Milliseconds()
	if err != nil {
		a.rec.ErrorText = err.Error()
	}
	items := make([]schema.JournalItemRecord, 0, len(a.items))
	for _, item := range a.items {
		path := item.LocalPath
		if path == "" {
			path = item.URL
		}
		items = append(items, schema.JournalItemRecord{
			TxnID:   a.rec.TxnID,
			Path:    path,
			Kind:    item.Kind,
			Actions: contract.GetPlainActions(item),
		})
	}
	if err := c.journal.RecordCommit(a.rec, items); err != nil {
		contract.LogWarn("Failed to record commit in journal", err)
	}
}

func (c *Committer) commitPacket(ctx context.Context, packet *harvest.Packet, opts Options) (info schema.CommitInfo, err error) {
	defer func() {
		if derr := packet.Dispose(); derr != nil {
			contract.LogWarn("Failed to release working copy", derr)
		}
	}()

	a := c.begin(packet.URL, packet.UUID, packet.Items)
	info = schema.CommitInfo{TxnID: a.rec.TxnID, NewRevision: schema.InvalidRevision, ItemCount: len(packet.Items)}
	defer func() {
		switch {
		case err == nil && info.NewRevision < 0:
			c.record(a, schema.TxnSkipped, nil)
		case err == nil:
			c.record(a, schema.TxnCommitted, info.Err)
		case a.rec.Status == schema.TxnAborted:
			c.record(a, schema.TxnAborted, err)
		default:
			c.record(a, schema.TxnFailed, err)
		}
	}()

	repoUUID, err := packetUUID(packet)
	if err != nil {
		return info, err
	}
	a.rec.UUID = repoUUID
	baseURL, commitables, err := TranslateCommitables(packet.Items)
	if err != nil {
		return info, err
	}
	a.rec.BaseURL = baseURL
	info.BaseURL = baseURL
	tokens := TranslateLockTokens(packet.LockTokens, baseURL)
	if err := ValidateRevProps(opts.RevProps); err != nil {
		return info, err
	}

	message, ok, err := c.messages.CommitMessage(ctx, packet.Items)
	if err != nil {
		return info, err
	}
	if !ok {
		info.ItemCount = 0
		return info, nil
	}
	a.rec.Message = ValidateMessage(message)
	if err := contract.CheckCancelled(ctx); err != nil {
		return info, err
	}

	transport, err := c.connector.Open(ctx, baseURL)
	if err != nil {
		return info, err
	}
	defer func() { _ = transport.Close() }()
	if repoUUID != "" {
		repo, err := transport.Info(ctx)
		if err != nil {
			return info, err
		}
		if repo.UUID != repoUUID {
			return info, contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"Repository UUID '%s' doesn't match expected UUID '%s'", repo.UUID, repoUUID)
		}
	}
	if len(opts.RevProps) > 0 && !transport.HasCapability(contract.CapabilityCommitRevProps) {
		return info, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
			"Server doesn't support setting arbitrary revision properties during commit")
	}

	editor, err := transport.CommitEditor(ctx, contract.CommitEditorOptions{
		Message:    a.rec.Message,
		Author:     opts.Author,
		LockTokens: tokens,
		KeepLocks:  opts.KeepLocks,
		RevProps:   opts.RevProps,
	})
	if err != nil {
		return info, err
	}

	temps := newTempFiles(c.fs)
	defer func() {
		if cerr := temps.cleanup(); cerr != nil {
			contract.LogWarn("Failed to remove temporary files", cerr)
		}
	}()

	result, err := c.drive(ctx, editor, packet, commitables, a.rec.TxnID, temps)
	if err != nil {
		a.rec.Status = schema.TxnAborted
		c.abort(ctx, editor, baseURL, a.rec.TxnID)
		return info, err
	}

	info.NewRevision = result.NewRevision
	info.Date = result.Date
	info.Author = result.Author
	a.rec.Revision = result.NewRevision
	a.rec.Author = result.Author
	if result.NewRevision < 0 {
		return info, nil
	}

	if err := postCommit(packet, commitables, result, opts.KeepLocks); err != nil {
		contract.LogWarn("Failed to update working copy after commit", err)
		info.Err = err
	}
	c.dispatch(ctx, schema.Event{Action: schema.EventCommitCompleted, Path: baseURL, Revision: result.NewRevision, TxnID: a.rec.TxnID})
	return info, nil
}

// drive streams the packet and closes the edit.
func (c *Committer) drive(ctx context.Context, editor contract.Editor, packet *harvest.Packet, commitables Commitables,
	txnID string, temps *tempFiles,
) (schema.CommitInfo, error) {
	s := newStream(packet, commitables, txnID, temps, c.dispatch)
	if err := DriveEditor(ctx, editor, commitables.Paths(), schema.InvalidRevision, s.handle); err != nil {
		return schema.CommitInfo{}, err
	}
	if err := s.sendTextDeltas(ctx, editor); err != nil {
		return schema.CommitInfo{}, err
	}
	if err := contract.CheckCancelled(ctx); err != nil {
		return schema.CommitInfo{}, err
	}
	return editor.CloseEdit(ctx)
}

// abort aborts the edit. Failures are reported but never replace the original error.
func (c *Committer) abort(ctx context.Context, editor contract.Editor, baseURL, txnID string) {
	ctx = context.WithoutCancel(ctx)
	if err := editor.AbortEdit(ctx); err != nil {
		contract.LogWarn("Failed to abort commit", err)
		c.dispatch(ctx, schema.Event{Action: schema.EventAbortFailed, Path: baseURL, TxnID: txnID, Err: err})
	}
}

// packetUUID returns the repository UUID shared by every item of the packet.
func packetUUID(packet *harvest.Packet) (string, error) {
	found, foundPath := packet.UUID, ""
	for _, item := range packet.Items {
		access, rel, ok := packet.AccessFor(item.LocalPath)
		if !ok {
			continue
		}
		entry, err := access.Entry(rel)
		if err != nil || entry.RepositoryUUID == "" {
			continue
		}
		switch {
		case found == "":
			found, foundPath = entry.RepositoryUUID, item.LocalPath
		case entry.RepositoryUUID != found:
			if foundPath == "" {
				foundPath = packet.URL
			}
			return "", contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"Cannot commit '%s' and '%s' as they refer to different repositories", foundPath, item.LocalPath)
		case foundPath == "":
			foundPath = item.LocalPath
		}
	}
	return found, nil
}

// postCommit records the new revision in the working copies, children before parents.
func postCommit(packet *harvest.Packet, commitables Commitables, result schema.CommitInfo, keepLocks bool) error {
	paths := commitables.Paths()
	slices.Reverse(paths)
	for _, p := range paths {
		item := commitables[p]
		access, rel, ok := packet.AccessFor(item.LocalPath)
		if !ok {
			continue
		}
		update := schema.PostCommitUpdate{
			NewRevision:   result.NewRevision,
			Date:          result.Date,
			Author:        result.Author,
			RemoveLock:    !keepLocks && item.Locked,
			Recurse:       item.Added && item.CopyFromURL != "" && item.Kind == schema.DirKind,
			WCPropChanges: item.WCPropChanges,
		}
		if err := access.PostCommit(rel, update); err != nil {
			return err
		}
	}
	return nil
}
