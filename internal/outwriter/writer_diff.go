package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/core/diff"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// jsonChange adds the rendered unified diff of one change to its JSON view.
type jsonChange struct {
	schema.TreeChange
	Patch string `json:"patch,omitempty"`
}

// WriteDiff outputs tree changes. The text form is a unified diff.
func WriteDiff(changes []schema.TreeChange, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return diff.Render(w, changes) },
		func(w io.Writer) error { return writeChangesCSV(w, changes) },
		func(w io.Writer) error { return writeChangesJSON(w, changes) },
	)
}

func changedProps(change schema.TreeChange) string {
	return strings.Join(slices.Sorted(maps.Keys(change.PropChanges)), "|")
}

func writeChangesCSV(w io.Writer, changes []schema.TreeChange) error {
	header := []string{"path", "kind", "action", "old_revision", "new_revision", "properties"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range changes {
			rec := []string{
				c.Path,
				string(c.Kind),
				string(c.Action),
				strconv.FormatInt(c.OldRevision, 10),
				strconv.FormatInt(c.NewRevision, 10),
				changedProps(c),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeChangesJSON(w io.Writer, changes []schema.TreeChange) error {
	output := make([]jsonChange, len(changes))
	for i, c := range changes {
		var buf bytes.Buffer
		if err := diff.Render(&buf, []schema.TreeChange{c}); err != nil {
			return err
		}
		output[i] = jsonChange{TreeChange: c, Patch: buf.String()}
	}
	return writeJSON(w, output)
}

// WriteDiffSummary outputs the per-node status of a summarized diff.
func WriteDiffSummary(summaries []schema.DiffSummary, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeSummaryTable(w, summaries, cfg) },
		func(w io.Writer) error { return writeSummaryCSV(w, summaries) },
		func(w io.Writer) error { return writeJSON(w, summaries) },
	)
}

func propsFlag(changed bool) string {
	if changed {
		return "M"
	}
	return ""
}

func writeSummaryTable(w io.Writer, summaries []schema.DiffSummary, cfg *contract.Config) error {
	width := GetMaxTablePathWidth(cfg, changeColumnsWidth)
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			contract.TruncatePath(s.Path, width),
			string(s.Kind),
			contract.GetColorAction(s.Action),
			propsFlag(s.PropsChanged),
		})
	}
	return writeTable(w, []string{"Path", "Kind", "Action", "Props"}, rows)
}

func writeSummaryCSV(w io.Writer, summaries []schema.DiffSummary) error {
	header := []string{"path", "kind", "action", "props_changed"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range summaries {
			rec := []string{s.Path, string(s.Kind), string(s.Action), strconv.FormatBool(s.PropsChanged)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
