package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/core/diff"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// WriteMergeResult outputs the changes a merge applied and the paths it skipped.
func WriteMergeResult(result diff.MergeResult, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeMergeText(w, result, cfg) },
		func(w io.Writer) error { return writeMergeCSV(w, result) },
		func(w io.Writer) error { return writeJSON(w, result) },
	)
}

func writeMergeText(w io.Writer, result diff.MergeResult, cfg *contract.Config) error {
	if !result.Merged.IsEmpty() {
		if _, err := fmt.Fprintf(w, "Merged %s from %s into %s\n", result.Merged, result.Source, result.Target); err != nil {
			return err
		}
	}
	if !result.Reverted.IsEmpty() {
		if _, err := fmt.Fprintf(w, "Reverted %s of %s in %s\n", result.Reverted, result.Source, result.Target); err != nil {
			return err
		}
	}
	if !result.Unrecorded.IsEmpty() {
		if _, err := fmt.Fprintf(w, "Not recorded %s of %s: resolve the conflicts and merge again\n", result.Unrecorded, result.Source); err != nil {
			return err
		}
	}
	if len(result.Applied) > 0 || len(result.Conflicts) > 0 {
		width := GetMaxTablePathWidth(cfg, changeColumnsWidth)
		rows := make([][]string, 0, len(result.Applied)+len(result.Conflicts))
		for _, c := range result.Applied {
			rows = append(rows, []string{contract.TruncatePath(c.Path, width), string(c.Kind), contract.GetColorAction(c.Action)})
		}
		for _, p := range result.Conflicts {
			rows = append(rows, []string{contract.TruncatePath(p, width), "", contract.DeletedColor.Sprint("conflict")})
		}
		if err := writeTable(w, []string{"Path", "Kind", "Action"}, rows); err != nil {
			return err
		}
	}
	mergeInfo := result.MergeInfo
	if mergeInfo == "" {
		mergeInfo = "(none)"
	}
	_, err := fmt.Fprintf(w, "Recorded %s: %s\n", schema.MergeInfoProperty, strings.ReplaceAll(mergeInfo, "\n", ", "))
	return err
}

func writeMergeCSV(w io.Writer, result diff.MergeResult) error {
	header := []string{"path", "kind", "action", "status"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range result.Applied {
			if err := cw.Write([]string{c.Path, string(c.Kind), string(c.Action), "applied"}); err != nil {
				return err
			}
		}
		for _, p := range result.Conflicts {
			if err := cw.Write([]string{p, "", "", "conflict"}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteMergeInfoReport outputs the revisions selected by a merged or eligible query.
func WriteMergeInfoReport(report diff.MergeInfoReport, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeReportText(w, report, cfg) },
		func(w io.Writer) error { return writeReportCSV(w, report) },
		func(w io.Writer) error { return writeJSON(w, report) },
	)
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return line
}

func writeReportText(w io.Writer, report diff.MergeInfoReport, cfg *contract.Config) error {
	ranges := report.Selection.Ranges.String()
	if ranges == "" {
		ranges = "(none)"
	}
	if _, err := fmt.Fprintf(w, "Source: %s\nRevisions: %s\n", report.Source, ranges); err != nil {
		return err
	}
	if len(report.Log) == 0 {
		return nil
	}
	width := GetMaxTablePathWidth(cfg, 40)
	rows := make([][]string, 0, len(report.Log))
	for _, e := range report.Log {
		rows = append(rows, []string{
			"r" + strconv.FormatInt(e.Revision, 10),
			e.Author,
			formatDate(e.Date),
			contract.TruncatePath(firstLine(e.Message), width),
		})
	}
	return writeTable(w, []string{"Revision", "Author", "Date", "Message"}, rows)
}

func writeReportCSV(w io.Writer, report diff.MergeInfoReport) error {
	header := []string{"source", "revision", "author", "date", "message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range report.Log {
			rec := []string{report.Source, strconv.FormatInt(e.Revision, 10), e.Author, formatDate(e.Date), e.Message}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteMergeSources outputs suggested merge source URLs, most likely first.
func WriteMergeSources(sources []string, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error {
			for _, s := range sources {
				if _, err := fmt.Fprintln(w, s); err != nil {
					return err
				}
			}
			return nil
		},
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"rank", "source"}, func(cw *csv.Writer) error {
				for i, s := range sources {
					if err := cw.Write([]string{strconv.Itoa(i + 1), s}); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error { return writeJSON(w, sources) },
	)
}
