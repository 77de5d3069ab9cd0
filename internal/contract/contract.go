// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"io"

	"github.com/huangsam/svncoord/schema"
)

// Capability names an optional repository feature.
type Capability string

// Repository capabilities checked by the drivers.
const (
	CapabilityDepth          Capability = "depth"
	CapabilityMergeInfo      Capability = "mergeinfo"
	CapabilityCommitRevProps Capability = "commit-revprops"
	CapabilityLogRevProps    Capability = "log-revprops"
)

// RepositoryConnector opens repository sessions.
type RepositoryConnector interface {
	// Open returns a session rooted at url.
	Open(ctx context.Context, url string) (RepositoryTransport, error)
}

// RepositoryTransport is a session against one repository location.
// Paths are relative to Location; a negative revision means the latest one.
type RepositoryTransport interface {
	// Location returns the URL the session is rooted at.
	Location() string

	// --- Identity ---

	Info(ctx context.Context) (schema.RepositoryInfo, error)
	LatestRevision(ctx context.Context) (int64, error)
	HasCapability(c Capability) bool

	// --- Reads ---

	CheckPath(ctx context.Context, path string, rev int64) (schema.NodeKind, error)
	GetFile(ctx context.Context, path string, rev int64) ([]byte, map[string]string, error)
	GetDir(ctx context.Context, path string, rev int64) ([]schema.DirEntry, map[string]string, error)

	// LocationSegments returns the history of path as seen from peg, youngest first,
	// limited to revisions between start and end (both inclusive, negative means unbounded).
	LocationSegments(ctx context.Context, path string, peg, start, end int64) ([]schema.LocationSegment, error)

	// Log returns revisions touching any of paths between start and end, in the order
	// implied by start and end.
	Log(ctx context.Context, paths []string, start, end int64) ([]schema.LogEntry, error)

	// --- Writes ---

	// CommitEditor opens a transaction scoped to Location.
	CommitEditor(ctx context.Context, opts CommitEditorOptions) (Editor, error)
	Lock(ctx context.Context, targets map[string]int64, comment string, steal bool) ([]schema.Lock, error)
	Unlock(ctx context.Context, tokens map[string]string, breakLock bool) error

	// --- Comparison ---

	// Diff returns the changes that transform the reported source tree into
	// TargetURL at TargetRevision.
	Diff(ctx context.Context, req DiffRequest) ([]schema.TreeChange, error)

	Close() error
}

// CommitEditorOptions configures a commit transaction.
type CommitEditorOptions struct {
	Message    string
	Author     string
	LockTokens map[string]string // base-relative path to lock token
	KeepLocks  bool
	RevProps   map[string]string
}

// ReportedPath describes the state of one path of the source tree of a diff.
type ReportedPath struct {
	Path       string
	Revision   int64
	Depth      schema.Depth
	StartEmpty bool
	Deleted    bool
}

// DiffRequest describes a tree comparison. The source tree is Location plus Target
// in the state given by Report; the first reported path must be "".
// Changed paths are relative to Location.
type DiffRequest struct {
	Target         string
	Report         []ReportedPath
	TargetURL      string
	TargetRevision int64
	Depth          schema.Depth
	TextDeltas     bool

	// UnrelatedAsModified compares nodes without common ancestry as modifications
	// instead of a delete followed by an add.
	UnrelatedAsModified bool
}

// Editor receives the structural operations of one commit transaction.
// Paths are relative to the commit base URL.
type Editor interface {
	OpenRoot(ctx context.Context, rev int64) error
	OpenDir(ctx context.Context, path string, rev int64) error
	AddDir(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error
	CloseDir(ctx context.Context) error
	DeleteEntry(ctx context.Context, path string, rev int64) error
	AddFile(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error
	OpenFile(ctx context.Context, path string, rev int64) error
	ChangeDirProperty(ctx context.Context, name string, value *string) error
	ChangeFileProperty(ctx context.Context, path string, name string, value *string) error
	ApplyText(ctx context.Context, path string, baseChecksum string, content io.Reader) error
	CloseFile(ctx context.Context, path string, textChecksum string) error
	CloseEdit(ctx context.Context) (schema.CommitInfo, error)
	AbortEdit(ctx context.Context) error
}

// WorkingCopyStore opens administrative access to working copies.
type WorkingCopyStore interface {
	// Open locks path and up to depth levels below it; a negative depth locks the
	// whole subtree.
	Open(ctx context.Context, path string, write bool, depth int) (WCAccess, error)

	// Root returns the root of the working copy containing path.
	Root(path string) (string, error)
}

// WCAccess is an exclusive handle over a working-copy subtree.
// Paths are relative to Anchor and use forward slashes; "" is the anchor itself.
type WCAccess interface {
	Anchor() string
	Entry(path string) (*schema.Entry, error)
	Children(path string) ([]*schema.Entry, error)
	IsWCRoot(path string) bool
	Exists(path string) bool

	Properties(path string) (map[string]string, error)
	BaseProperties(path string) (map[string]string, error)
	SetProperty(path string, name string, value *string) error

	HasTextModifications(path string, forceCompare bool) (bool, error)
	OpenWorking(path string) (io.ReadCloser, error)
	OpenBase(path string) (io.ReadCloser, error)

	PostCommit(path string, update schema.PostCommitUpdate) error
	ApplyChange(change schema.TreeChange) error

	Close() error
}

// MessageProvider supplies the log message for a commit. Returning false cancels it.
type MessageProvider interface {
	CommitMessage(ctx context.Context, items []schema.CommitItem) (string, bool, error)
}

// EventSink receives progress notifications.
type EventSink interface {
	Handle(ctx context.Context, event schema.Event)
}

// StoreManager defines the interface for managing persistent stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetJournalStore() JournalStore
}

// JournalStore records commit transactions and merge-info snapshots.
type JournalStore interface {
	// RecordCommit stores one attempted transaction and its items.
	RecordCommit(rec schema.JournalRecord, items []schema.JournalItemRecord) error

	// ListCommits returns the latest transactions, newest first. A non-positive limit means all.
	ListCommits(limit int) ([]schema.JournalRecord, error)

	// ListItems returns the items recorded for a transaction.
	ListItems(txnID string) ([]schema.JournalItemRecord, error)

	// PutMergeInfo upserts the merge-info snapshot of a target.
	PutMergeInfo(rec schema.MergeInfoRecord) error

	// GetMergeInfo returns the stored snapshot of a target.
	GetMergeInfo(target string) (schema.MergeInfoRecord, error)

	// ListMergeInfo returns every stored snapshot ordered by target.
	ListMergeInfo() ([]schema.MergeInfoRecord, error)

	// GetStatus returns status information about the store.
	GetStatus() (schema.JournalStatus, error)

	// Close closes the underlying connection.
	Close() error
}
