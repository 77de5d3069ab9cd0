package schema

import "time"

// Entry is the administrative record a working copy keeps for one versioned node.
// Path is relative to the anchor of the access that returned it and uses forward
// slashes; the anchor's own entry has an empty Path.
type Entry struct {
	Path             string   `yaml:"path"`
	Kind             NodeKind `yaml:"kind"`
	URL              string   `yaml:"url,omitempty"`
	Revision         int64    `yaml:"revision"`
	Schedule         Schedule `yaml:"schedule,omitempty"`
	Copied           bool     `yaml:"copied,omitempty"`
	CopyFromURL      string   `yaml:"copy_from_url,omitempty"`
	CopyFromRevision int64    `yaml:"copy_from_revision,omitempty"`
	Deleted          bool     `yaml:"deleted,omitempty"`
	Absent           bool     `yaml:"absent,omitempty"`
	Missing          bool     `yaml:"missing,omitempty"`
	LockToken        string   `yaml:"lock_token,omitempty"`
	Changelist       string   `yaml:"changelist,omitempty"`
	Depth            Depth    `yaml:"depth,omitempty"`
	TextConflict     bool     `yaml:"text_conflict,omitempty"`
	PropConflict     bool     `yaml:"prop_conflict,omitempty"`
	TreeConflict     bool     `yaml:"tree_conflict,omitempty"`
	FileExternal     bool     `yaml:"file_external,omitempty"`
	RepositoryUUID   string   `yaml:"uuid,omitempty"`
	RepositoryRoot   string   `yaml:"repository_root,omitempty"`
}

// Name returns the last path component of the entry.
func (e *Entry) Name() string {
	for i := len(e.Path) - 1; i >= 0; i-- {
		if e.Path[i] == '/' {
			return e.Path[i+1:]
		}
	}
	return e.Path
}

// IsScheduledForAddition reports whether the entry is added or replaced.
func (e *Entry) IsScheduledForAddition() bool {
	return e.Schedule == ScheduleAdd || e.Schedule == ScheduleReplace
}

// IsScheduledForDeletion reports whether the entry is deleted or replaced.
func (e *Entry) IsScheduledForDeletion() bool {
	return e.Schedule == ScheduleDelete || e.Schedule == ScheduleReplace
}

// PostCommitUpdate carries what the working copy must record after a successful commit.
type PostCommitUpdate struct {
	NewRevision   int64
	Date          time.Time
	Author        string
	RemoveLock    bool
	Recurse       bool
	WCPropChanges map[string]string
}
