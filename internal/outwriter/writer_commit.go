package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// jsonCommit is the JSON view of a commit result; the error is flattened to text.
type jsonCommit struct {
	schema.CommitInfo
	Status schema.TxnStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
	Code   string           `json:"code,omitempty"`
}

func commitStatus(info schema.CommitInfo) schema.TxnStatus {
	switch {
	case info.Err != nil:
		return schema.TxnFailed
	case info.NewRevision < 0:
		return schema.TxnSkipped
	default:
		return schema.TxnCommitted
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(contract.DateTimeFormat)
}

// WriteCommitResults outputs one row per attempted transaction.
func WriteCommitResults(infos []schema.CommitInfo, cfg *contract.Config, duration time.Duration) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeCommitTable(w, infos, cfg, duration) },
		func(w io.Writer) error { return writeCommitCSV(w, infos) },
		func(w io.Writer) error { return writeCommitJSON(w, infos) },
	)
}

func writeCommitTable(w io.Writer, infos []schema.CommitInfo, cfg *contract.Config, duration time.Duration) error {
	width := GetMaxTablePathWidth(cfg, commitColumnsWidth)
	committed := 0
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := commitStatus(info)
		if status == schema.TxnCommitted {
			committed++
		}
		rows = append(rows, []string{
			contract.TruncatePath(info.BaseURL, width),
			formatRevision(info.NewRevision),
			strconv.Itoa(info.ItemCount),
			info.Author,
			formatDate(info.Date),
			contract.GetColorStatus(status),
			errorText(info.Err),
		})
	}
	if err := writeTable(w, []string{"Base URL", "Revision", "Items", "Author", "Date", "Status", "Error"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Committed %d of %d transactions in %v\n", committed, len(infos), duration)
	return err
}

func writeCommitCSV(w io.Writer, infos []schema.CommitInfo) error {
	header := []string{"txn_id", "base_url", "revision", "items", "author", "date", "status", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, info := range infos {
			rec := []string{
				info.TxnID,
				info.BaseURL,
				strconv.FormatInt(info.NewRevision, 10),
				strconv.Itoa(info.ItemCount),
				info.Author,
				formatDate(info.Date),
				string(commitStatus(info)),
				errorText(info.Err),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCommitJSON(w io.Writer, infos []schema.CommitInfo) error {
	output := make([]jsonCommit, len(infos))
	for i, info := range infos {
		output[i] = jsonCommit{
			CommitInfo: info,
			Status:     commitStatus(info),
			Error:      errorText(info.Err),
			Code:       contract.CodeOf(info.Err),
		}
	}
	return writeJSON(w, output)
}
