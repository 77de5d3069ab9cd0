package schema

// Custom string types for type safety.
type (
	// NodeKind represents the kind of a versioned node.
	NodeKind string

	// Depth represents how far an operation descends below its target.
	Depth string

	// Schedule represents the pending structural change recorded for a working-copy entry.
	Schedule string

	// EventAction represents the kind of progress notification dispatched to an event sink.
	EventAction string

	// ChangeAction represents the structural change reported by a tree comparison.
	ChangeAction string

	// DiffMode represents how the two endpoints of a diff are compared.
	DiffMode string

	// RevisionKeyword represents a symbolic revision.
	RevisionKeyword string

	// TxnStatus represents the final state of a commit transaction in the journal.
	TxnStatus string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the commit journal.
	DatabaseBackend string
)

// All node kinds.
const (
	NoneKind    NodeKind = "none"
	FileKind    NodeKind = "file"
	DirKind     NodeKind = "dir"
	UnknownKind NodeKind = "unknown"
)

// All depths, from shallowest to deepest.
const (
	DepthUnknown    Depth = "unknown"
	DepthExclude    Depth = "exclude"
	DepthEmpty      Depth = "empty"
	DepthFiles      Depth = "files"
	DepthImmediates Depth = "immediates"
	DepthInfinity   Depth = "infinity"
)

// All entry schedules. The zero value means the entry is scheduled for nothing.
const (
	ScheduleNormal  Schedule = ""
	ScheduleAdd     Schedule = "add"
	ScheduleDelete  Schedule = "delete"
	ScheduleReplace Schedule = "replace"
)

// All event actions.
const (
	EventCommitAdded     EventAction = "commit_added"
	EventCommitDeleted   EventAction = "commit_deleted"
	EventCommitModified  EventAction = "commit_modified"
	EventCommitReplaced  EventAction = "commit_replaced"
	EventCommitDelta     EventAction = "commit_delta_sent"
	EventCommitCompleted EventAction = "commit_completed"
	EventLocked          EventAction = "locked"
	EventUnlocked        EventAction = "unlocked"
	EventSkipped         EventAction = "skipped"
	EventMergeBegin      EventAction = "merge_begin"
	EventMergeApplied    EventAction = "merge_applied"
	EventAbortFailed     EventAction = "abort_failed"
)

// All change actions.
const (
	ChangeAdded    ChangeAction = "added"
	ChangeDeleted  ChangeAction = "deleted"
	ChangeModified ChangeAction = "modified"
	ChangeReplaced ChangeAction = "replaced"
)

// All diff modes.
const (
	WCWCMode   DiffMode = "wc-wc"
	URLWCMode  DiffMode = "url-wc"
	WCURLMode  DiffMode = "wc-url"
	URLURLMode DiffMode = "url-url"
)

// All revision keywords. RevisionUnspecified marks a revision that was never set.
const (
	RevisionUnspecified RevisionKeyword = ""
	RevisionNumber      RevisionKeyword = "number"
	RevisionHead        RevisionKeyword = "head"
	RevisionBase        RevisionKeyword = "base"
	RevisionWorking     RevisionKeyword = "working"
	RevisionCommitted   RevisionKeyword = "committed"
	RevisionPrevious    RevisionKeyword = "prev"
)

// All journal statuses.
const (
	TxnCommitted TxnStatus = "committed"
	TxnAborted   TxnStatus = "aborted"
	TxnSkipped   TxnStatus = "skipped"
	TxnFailed    TxnStatus = "failed"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All journal backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// InvalidRevision marks an unknown revision number.
const InvalidRevision int64 = -1

// MergeInfoProperty is the versioned property holding merge-info.
const MergeInfoProperty = "svn:mergeinfo"

// Properties that force a content translation on commit.
const (
	EOLStyleProperty = "svn:eol-style"
	KeywordsProperty = "svn:keywords"
	CharsetProperty  = "svn:charset"
	SpecialProperty  = "svn:special"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid journal backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidDepths lists all depths accepted from user input.
var ValidDepths = map[Depth]struct{}{
	DepthEmpty:      {},
	DepthFiles:      {},
	DepthImmediates: {},
	DepthInfinity:   {},
	DepthUnknown:    {},
}

var depthRank = map[Depth]int{
	DepthUnknown:    -2,
	DepthExclude:    -1,
	DepthEmpty:      0,
	DepthFiles:      1,
	DepthImmediates: 2,
	DepthInfinity:   3,
}

// Compare orders two depths, returning -1, 0 or 1.
func (d Depth) Compare(other Depth) int {
	a, b := depthRank[d], depthRank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Below returns the depth to use for the children of a target walked at d.
func (d Depth) Below() Depth {
	if d == DepthFiles || d == DepthImmediates {
		return DepthEmpty
	}
	return d
}

// AdminDepth converts a depth into the number of directory levels a working-copy
// access must lock. A negative value means the whole subtree.
func (d Depth) AdminDepth() int {
	switch d {
	case DepthImmediates:
		return 1
	case DepthEmpty, DepthFiles:
		return 0
	default:
		return -1
	}
}
