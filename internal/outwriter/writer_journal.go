package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// WriteJournal outputs journaled commit attempts, newest first.
func WriteJournal(records []schema.JournalRecord, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJournalTable(w, records, cfg) },
		func(w io.Writer) error { return writeJournalCSV(w, records) },
		func(w io.Writer) error { return writeJSON(w, records) },
	)
}

func shortTxn(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJournalTable(w io.Writer, records []schema.JournalRecord, cfg *contract.Config) error {
	width := GetMaxTablePathWidth(cfg, journalColumnsWidth)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			shortTxn(r.TxnID),
			contract.GetColorStatus(r.Status),
			formatRevision(r.Revision),
			strconv.Itoa(r.ItemCount),
			contract.TruncatePath(r.BaseURL, width),
			formatDate(r.StartTime),
		})
	}
	if err := writeTable(w, []string{"Txn", "Status", "Revision", "Items", "Base URL", "Started"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d journal entries\n", len(records))
	return err
}

func writeJournalCSV(w io.Writer, records []schema.JournalRecord) error {
	header := []string{
		"txn_id",
		"status",
		"base_url",
		"uuid",
		"revision",
		"item_count",
		"author",
		"message",
		"error",
		"start_time",
		"end_time",
		"duration_ms",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range records {
			rec := []string{
				r.TxnID,
				string(r.Status),
				r.BaseURL,
				r.UUID,
				strconv.FormatInt(r.Revision, 10),
				strconv.Itoa(r.ItemCount),
				r.Author,
				r.Message,
				r.ErrorText,
				formatDate(r.StartTime),
				formatDate(r.EndTime),
				strconv.FormatInt(r.DurationMs, 10),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteJournalItems outputs the items of one journaled transaction.
func WriteJournalItems(items []schema.JournalItemRecord, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error {
			width := GetMaxTablePathWidth(cfg, itemColumnsWidth)
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{it.Actions, string(it.Kind), contract.TruncatePath(it.Path, width)})
			}
			return writeTable(w, []string{"Actions", "Kind", "Path"}, rows)
		},
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"txn_id", "path", "kind", "actions"}, func(cw *csv.Writer) error {
				for _, it := range items {
					if err := cw.Write([]string{it.TxnID, it.Path, string(it.Kind), it.Actions}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error { return writeJSON(w, items) },
	)
}

// WriteMergeInfoSnapshots outputs the merge-info last recorded for each merge target.
func WriteMergeInfoSnapshots(records []schema.MergeInfoRecord, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error {
			width := GetMaxTablePathWidth(cfg, 40)
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					contract.TruncatePath(r.Target, width),
					strings.ReplaceAll(r.MergeInfo, "\n", ", "),
					formatRevision(r.Revision),
					formatDate(r.UpdatedAt),
				})
			}
			return writeTable(w, []string{"Target", "Merge Info", "Revision", "Updated"}, rows)
		},
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"target", "mergeinfo", "revision", "updated_at"}, func(cw *csv.Writer) error {
				for _, r := range records {
					rec := []string{r.Target, r.MergeInfo, strconv.FormatInt(r.Revision, 10), formatDate(r.UpdatedAt)}
					if err := cw.Write(rec); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error { return writeJSON(w, records) },
	)
}
