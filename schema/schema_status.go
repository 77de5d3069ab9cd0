package schema

import "time"

// JournalStatus represents the status of the commit journal store.
type JournalStatus struct {
	Backend          string           `json:"backend"`
	Database         string           `json:"database,omitempty"`
	Connected        bool             `json:"connected"`
	TotalCommits     int              `json:"total_commits"`
	FailedCommits    int              `json:"failed_commits"`
	LastRevision     int64            `json:"last_revision"`
	LastCommitTime   time.Time        `json:"last_commit_time"`
	OldestCommitTime time.Time        `json:"oldest_commit_time"`
	MergeInfoTargets int              `json:"mergeinfo_targets"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// JournalRecord represents a row from the commit journal table.
type JournalRecord struct {
	TxnID      string    `json:"txn_id"`
	Status     TxnStatus `json:"status"`
	BaseURL    string    `json:"base_url"`
	UUID       string    `json:"uuid"`
	Revision   int64     `json:"revision"`
	ItemCount  int       `json:"item_count"`
	Message    string    `json:"message"`
	ErrorText  string    `json:"error_text,omitempty"`
	Author     string    `json:"author,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationMs int64     `json:"duration_ms"`
}

// JournalItemRecord represents a row from the commit journal items table.
type JournalItemRecord struct {
	TxnID   string   `json:"txn_id"`
	Path    string   `json:"path"`
	Kind    NodeKind `json:"kind"`
	Actions string   `json:"actions"`
}

// MergeInfoRecord represents the stored merge-info of one target path.
type MergeInfoRecord struct {
	Target    string    `json:"target"`
	MergeInfo string    `json:"mergeinfo"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}
