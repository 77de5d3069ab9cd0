// Package parquet provides data structures and functions for exporting the svncoord
// commit journal to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/svncoord/schema"
	"github.com/parquet-go/parquet-go"
)

// Commit represents one attempted commit transaction.
// This struct maps to the svncoord_commits database table.
type Commit struct {
	// TxnID is the unique identifier of the transaction
	TxnID string `parquet:"txn_id,snappy"`

	// Status is committed, aborted, skipped or failed
	Status string `parquet:"status,snappy,dict"`

	// BaseURL is the URL every committed path is relative to
	BaseURL string `parquet:"base_url,snappy"`

	// UUID identifies the repository
	UUID string `parquet:"uuid,snappy,dict"`

	// Revision is the new revision, or -1 when nothing was committed
	Revision int64 `parquet:"revision,snappy"`

	ItemCount int32 `parquet:"item_count,snappy"`

	Message string `parquet:"message,snappy"`

	// ErrorText holds the failure of an aborted or failed transaction (nullable)
	ErrorText *string `parquet:"error_text,optional,snappy"`

	Author *string `parquet:"author,optional,snappy"`

	StartTime time.Time `parquet:"start_time,snappy"`
	EndTime   time.Time `parquet:"end_time,snappy"`

	DurationMs int64 `parquet:"duration_ms,snappy"`
}

// CommitItem represents one path of a recorded transaction.
// This struct maps to the svncoord_commit_items database table.
type CommitItem struct {
	TxnID string `parquet:"txn_id,snappy"`
	Path  string `parquet:"path,snappy"`
	Kind  string `parquet:"kind,snappy,dict"`

	// Actions holds the status letters A D M P C L
	Actions string `parquet:"actions,snappy,dict"`
}

// MergeInfo represents the stored merge-info snapshot of one target.
// This struct maps to the svncoord_mergeinfo database table.
type MergeInfo struct {
	Target    string    `parquet:"target,snappy"`
	MergeInfo string    `parquet:"mergeinfo,snappy"`
	Revision  int64     `parquet:"revision,snappy"`
	UpdatedAt time.Time `parquet:"updated_at,snappy"`
}

// WriteCommitsParquet writes commit rows to a Parquet file.
func WriteCommitsParquet(data []Commit, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCommitItemsParquet writes commit item rows to a Parquet file.
func WriteCommitItemsParquet(data []CommitItem, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteMergeInfoParquet writes merge-info snapshots to a Parquet file.
func WriteMergeInfoParquet(data []MergeInfo, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using the schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertJournalRecords converts schema.JournalRecord to Commit for Parquet export.
func ConvertJournalRecords(records []schema.JournalRecord) []Commit {
	result := make([]Commit, len(records))
	for i, record := range records {
		result[i] = Commit{
			TxnID:      record.TxnID,
			Status:     string(record.Status),
			BaseURL:    record.BaseURL,
			UUID:       record.UUID,
			Revision:   record.Revision,
			ItemCount:  int32(record.ItemCount),
			Message:    record.Message,
			ErrorText:  optional(record.ErrorText),
			Author:     optional(record.Author),
			StartTime:  record.StartTime,
			EndTime:    record.EndTime,
			DurationMs: record.DurationMs,
		}
	}
	return result
}

// ConvertJournalItemRecords converts schema.JournalItemRecord to CommitItem for Parquet export.
func ConvertJournalItemRecords(records []schema.JournalItemRecord) []CommitItem {
	result := make([]CommitItem, len(records))
	for i, record := range records {
		result[i] = CommitItem{
			TxnID:   record.TxnID,
			Path:    record.Path,
			Kind:    string(record.Kind),
			Actions: record.Actions,
		}
	}
	return result
}

// ConvertMergeInfoRecords converts schema.MergeInfoRecord to MergeInfo for Parquet export.
func ConvertMergeInfoRecords(records []schema.MergeInfoRecord) []MergeInfo {
	result := make([]MergeInfo, len(records))
	for i, record := range records {
		result[i] = MergeInfo(record)
	}
	return result
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
