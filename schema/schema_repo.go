package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RepositoryInfo identifies a repository.
type RepositoryInfo struct {
	UUID    string `json:"uuid" yaml:"uuid"`
	RootURL string `json:"root_url" yaml:"root_url"`
}

// DirEntry is one child returned by a directory listing.
type DirEntry struct {
	Name     string   `json:"name"`
	Kind     NodeKind `json:"kind"`
	Size     int64    `json:"size"`
	Revision int64    `json:"revision"`
}

// Lock is a repository lock on a file path.
type Lock struct {
	Path    string    `json:"path" yaml:"path"`
	Token   string    `json:"token" yaml:"token"`
	Owner   string    `json:"owner" yaml:"owner"`
	Comment string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Created time.Time `json:"created" yaml:"created"`
}

// LocationSegment is a contiguous stretch of a node's history at one path.
// Path is empty for a gap in the history.
type LocationSegment struct {
	Path  string `json:"path"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// LogEntry is one revision returned by a history query.
type LogEntry struct {
	Revision     int64             `json:"revision" yaml:"revision"`
	Author       string            `json:"author" yaml:"author"`
	Date         time.Time         `json:"date" yaml:"date"`
	Message      string            `json:"message" yaml:"message"`
	ChangedPaths map[string]string `json:"changed_paths,omitempty" yaml:"changed_paths,omitempty"`
	RevProps     map[string]string `json:"revprops,omitempty" yaml:"revprops,omitempty"`
}

// PropChange is the before and after value of one property. Nil means absent.
type PropChange struct {
	Old *string `json:"old,omitempty"`
	New *string `json:"new,omitempty"`
}

// TreeChange is one node-level difference produced by a tree comparison.
type TreeChange struct {
	Path        string                `json:"path"`
	Kind        NodeKind              `json:"kind"`
	Action      ChangeAction          `json:"action"`
	OldRevision int64                 `json:"old_revision"`
	NewRevision int64                 `json:"new_revision"`
	OldText     []byte                `json:"-"`
	NewText     []byte                `json:"-"`
	PropChanges map[string]PropChange `json:"prop_changes,omitempty"`
}

// Revision is either an explicit revision number or a keyword.
type Revision struct {
	Keyword RevisionKeyword
	Number  int64
}

// NumberRevision returns an explicit revision.
func NumberRevision(n int64) Revision {
	return Revision{Keyword: RevisionNumber, Number: n}
}

// KeywordRevision returns a symbolic revision.
func KeywordRevision(k RevisionKeyword) Revision {
	return Revision{Keyword: k, Number: InvalidRevision}
}

// IsValid reports whether the revision was specified.
func (r Revision) IsValid() bool {
	if r.Keyword == RevisionNumber {
		return r.Number >= 0
	}
	return r.Keyword != RevisionUnspecified
}

// IsLocal reports whether the revision can only be resolved against a working copy.
func (r Revision) IsLocal() bool {
	return r.Keyword == RevisionBase || r.Keyword == RevisionWorking
}

// String renders the revision the way users type it.
func (r Revision) String() string {
	if r.Keyword == RevisionNumber {
		return strconv.FormatInt(r.Number, 10)
	}
	return string(r.Keyword)
}

// ParseRevision parses "HEAD", "BASE", "WORKING", "COMMITTED", "PREV" or a number.
func ParseRevision(s string) (Revision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Revision{Keyword: RevisionUnspecified, Number: InvalidRevision}, nil
	case "head":
		return KeywordRevision(RevisionHead), nil
	case "base":
		return KeywordRevision(RevisionBase), nil
	case "working":
		return KeywordRevision(RevisionWorking), nil
	case "committed":
		return KeywordRevision(RevisionCommitted), nil
	case "prev":
		return KeywordRevision(RevisionPrevious), nil
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "r"), 10, 64)
	if err != nil || n < 0 {
		return Revision{}, fmt.Errorf("invalid revision %q. Use a number or one of HEAD, BASE, WORKING, COMMITTED, PREV", s)
	}
	return NumberRevision(n), nil
}

// Target is the tagged variant of an operation target: a local working-copy path
// or a repository URL. Exactly one of the fields is set.
type Target struct {
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// LocalTarget returns a working-copy target.
func LocalTarget(path string) Target { return Target{Local: path} }

// RemoteTarget returns a repository target.
func RemoteTarget(url string) Target { return Target{Remote: url} }

// IsRemote reports whether the target names a repository URL.
func (t Target) IsRemote() bool { return t.Remote != "" }

// String returns the path or URL.
func (t Target) String() string {
	if t.IsRemote() {
		return t.Remote
	}
	return t.Local
}

// Endpoint is one side of a comparison: a target at a revision, optionally pegged.
type Endpoint struct {
	Target   Target
	Revision Revision
	Peg      Revision
}

// DiffSummary is the status of one node reported by a summarized diff.
type DiffSummary struct {
	Path         string       `json:"path"`
	Kind         NodeKind     `json:"kind"`
	Action       ChangeAction `json:"action"`
	PropsChanged bool         `json:"props_changed"`
}
