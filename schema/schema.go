// Package schema has the models and typed constants shared by every part of svncoord.
package schema

import "time"

// CommitItem represents one working-copy entry slated for commit.
// Path is relative to the working-copy anchor; after translation it is relative
// to the commit base URL.
type CommitItem struct {
	Path               string            `json:"path" yaml:"path"`
	LocalPath          string            `json:"local_path" yaml:"local_path"`
	URL                string            `json:"url" yaml:"url"`
	CopyFromURL        string            `json:"copy_from_url,omitempty" yaml:"copy_from_url,omitempty"`
	Kind               NodeKind          `json:"kind" yaml:"kind"`
	Revision           int64             `json:"revision" yaml:"revision"`
	CopyFromRevision   int64             `json:"copy_from_revision" yaml:"copy_from_revision"`
	Added              bool              `json:"added" yaml:"added"`
	Deleted            bool              `json:"deleted" yaml:"deleted"`
	Copied             bool              `json:"copied" yaml:"copied"`
	ContentsModified   bool              `json:"contents_modified" yaml:"contents_modified"`
	PropertiesModified bool              `json:"properties_modified" yaml:"properties_modified"`
	Locked             bool              `json:"locked" yaml:"locked"`
	WCPropChanges      map[string]string `json:"wc_prop_changes,omitempty" yaml:"wc_prop_changes,omitempty"`
}

// HasStructuralChange reports whether the item adds, deletes, or copies a node.
func (c CommitItem) HasStructuralChange() bool {
	return c.Added || c.Deleted || c.Copied
}

// HasModification reports whether the item carries any committable change besides a lock.
func (c CommitItem) HasModification() bool {
	return c.Added || c.Deleted || c.Copied || c.ContentsModified || c.PropertiesModified
}

// CommitInfo is the outcome of one commit transaction.
// A NewRevision of InvalidRevision with no error means nothing was committed.
type CommitInfo struct {
	TxnID       string    `json:"txn_id,omitempty"`
	NewRevision int64     `json:"new_revision"`
	Date        time.Time `json:"date"`
	Author      string    `json:"author,omitempty"`
	BaseURL     string    `json:"base_url,omitempty"`
	ItemCount   int       `json:"item_count"`
	Err         error     `json:"-"`
}

// NullCommitInfo is returned when nothing was committed.
var NullCommitInfo = CommitInfo{NewRevision: InvalidRevision}

// IsNull reports whether the result represents a commit that did not happen.
func (c CommitInfo) IsNull() bool {
	return c.NewRevision == InvalidRevision && c.Err == nil
}

// ErrorMessage returns the error text or an empty string.
func (c CommitInfo) ErrorMessage() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}

// Event is a progress notification dispatched while an operation runs.
type Event struct {
	Action   EventAction `json:"action"`
	Path     string      `json:"path"`
	Kind     NodeKind    `json:"kind,omitempty"`
	Revision int64       `json:"revision,omitempty"`
	TxnID    string      `json:"txn_id,omitempty"`
	Err      error       `json:"-"`
}
