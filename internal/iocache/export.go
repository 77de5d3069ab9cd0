package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/parquet"
	"github.com/huangsam/svncoord/schema"
)

// ExecuteJournalExport exports the journal held by store to Parquet files named
// after outputFile.
func ExecuteJournalExport(w io.Writer, store contract.JournalStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("the commit journal is disabled. Set --journal-backend to export it")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get journal status: %w", err)
	}
	if status.TotalCommits == 0 && status.MergeInfoTargets == 0 {
		return errors.New("no journal data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	commits, err := store.ListCommits(0)
	if err != nil {
		return fmt.Errorf("failed to retrieve commits: %w", err)
	}
	var items []schema.JournalItemRecord
	for _, c := range commits {
		rows, err := store.ListItems(c.TxnID)
		if err != nil {
			return fmt.Errorf("failed to retrieve items of %s: %w", c.TxnID, err)
		}
		items = append(items, rows...)
	}
	mergeInfo, err := store.ListMergeInfo()
	if err != nil {
		return fmt.Errorf("failed to retrieve merge-info: %w", err)
	}

	commitsFile := outputFile + ".commits.parquet"
	if err := parquet.WriteCommitsParquet(parquet.ConvertJournalRecords(commits), commitsFile); err != nil {
		return fmt.Errorf("failed to write commits: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d commits to: %s\n", len(commits), commitsFile)

	itemsFile := outputFile + ".commit_items.parquet"
	if err := parquet.WriteCommitItemsParquet(parquet.ConvertJournalItemRecords(items), itemsFile); err != nil {
		return fmt.Errorf("failed to write commit items: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d commit items to: %s\n", len(items), itemsFile)

	mergeInfoFile := outputFile + ".mergeinfo.parquet"
	if err := parquet.WriteMergeInfoParquet(parquet.ConvertMergeInfoRecords(mergeInfo), mergeInfoFile); err != nil {
		return fmt.Errorf("failed to write merge-info: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d merge-info snapshots to: %s\n", len(mergeInfo), mergeInfoFile)

	return nil
}
