package diff

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/huangsam/svncoord/schema"
	"github.com/pmezard/go-difflib/difflib"
)

const (
	indexSeparator    = "==================================================================="
	propertySeparator = "___________________________________________________________________"
	contextLines      = 3
)

// Render writes changes as a unified text diff: one section per changed file,
// followed by the property changes of the node.
func Render(w io.Writer, changes []schema.TreeChange) error {
	for _, c := range changes {
		if err := renderText(w, c); err != nil {
			return err
		}
		if err := renderProps(w, c); err != nil {
			return err
		}
	}
	return nil
}

func renderText(w io.Writer, c schema.TreeChange) error {
	if c.Kind != schema.FileKind || (c.OldText == nil && c.NewText == nil) {
		return nil
	}
	if c.Action == schema.ChangeModified && bytes.Equal(c.OldText, c.NewText) {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Index: %s\n%s\n", c.Path, indexSeparator); err != nil {
		return err
	}
	if isBinary(c.OldText) || isBinary(c.NewText) {
		_, err := fmt.Fprintf(w, "Cannot display: file marked as a binary type.\n")
		return err
	}
	return difflib.WriteUnifiedDiff(w, difflib.UnifiedDiff{
		A:        splitLines(c.OldText),
		B:        splitLines(c.NewText),
		FromFile: c.Path,
		FromDate: revisionLabel(c.OldRevision, c.Action == schema.ChangeAdded),
		ToFile:   c.Path,
		ToDate:   revisionLabel(c.NewRevision, c.Action == schema.ChangeDeleted),
		Context:  contextLines,
	})
}

func renderProps(w io.Writer, c schema.TreeChange) error {
	if len(c.PropChanges) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nProperty changes on: %s\n%s\n", c.Path, propertySeparator)
	names := make([]string, 0, len(c.PropChanges))
	for name := range c.PropChanges {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		pc := c.PropChanges[name]
		switch {
		case pc.Old == nil:
			fmt.Fprintf(&b, "Added: %s\n", name)
		case pc.New == nil:
			fmt.Fprintf(&b, "Deleted: %s\n", name)
		default:
			fmt.Fprintf(&b, "Modified: %s\n", name)
		}
		if pc.Old != nil {
			fmt.Fprintf(&b, "   - %s\n", *pc.Old)
		}
		if pc.New != nil {
			fmt.Fprintf(&b, "   + %s\n", *pc.New)
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func revisionLabel(rev int64, absent bool) string {
	switch {
	case absent:
		return "(nonexistent)"
	case rev < 0:
		return "(working copy)"
	default:
		return fmt.Sprintf("(revision %d)", rev)
	}
}

// splitLines splits text after every newline, terminating the last line.
func splitLines(text []byte) []string {
	if len(text) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(text), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}

func isBinary(text []byte) bool {
	return bytes.IndexByte(text, 0) >= 0
}
