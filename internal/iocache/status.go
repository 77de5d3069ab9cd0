package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// PrintJournalStatus prints journal status information.
func PrintJournalStatus(w io.Writer, status schema.JournalStatus) {
	_, _ = fmt.Fprintf(w, "Journal Backend: %s\n", status.Backend)
	if status.Database != "" {
		_, _ = fmt.Fprintf(w, "Database: %s\n", status.Database)
	}
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Commits: %d\n", status.TotalCommits)
	if status.TotalCommits > 0 {
		_, _ = fmt.Fprintf(w, "Failed Commits: %d\n", status.FailedCommits)
		if status.LastRevision >= 0 {
			_, _ = fmt.Fprintf(w, "Last Revision: r%d\n", status.LastRevision)
		}
		_, _ = fmt.Fprintf(w, "Last Commit: %s\n", status.LastCommitTime.Format(contract.DateTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Commit: %s\n", status.OldestCommitTime.Format(contract.DateTimeFormat))
	}
	_, _ = fmt.Fprintf(w, "Merge-info Targets: %d\n", status.MergeInfoTargets)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
