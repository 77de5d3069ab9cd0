package mergeinfo

import (
	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/schema"
)

// Selection is the union of the ranges of a merge-info query together with the
// path to run the log query against.
type Selection struct {
	Ranges    rangelist.List `json:"ranges"`
	LogTarget string         `json:"log_target"`
	Youngest  int64          `json:"youngest"`
	PerPath   MergeInfo      `json:"per_path"`
}

// IsEmpty reports whether nothing was selected.
func (s Selection) IsEmpty() bool {
	return s.Ranges.IsEmpty()
}

// FromHistory converts the location segments of a node into merge-info: the node's
// natural history counts as merged into itself.
func FromHistory(segments []schema.LocationSegment) MergeInfo {
	mi := MergeInfo{}
	for _, seg := range segments {
		if seg.Path == "" {
			continue
		}
		start := max(seg.Start-1, 0)
		if seg.End <= start {
			continue
		}
		path := normalizePath(seg.Path)
		mi[path] = rangelist.Merge(mi[path], rangelist.List{{Start: start, End: seg.End, Inheritable: true}})
	}
	return mi
}

// Merged selects the revisions of the source history already recorded as merged
// in the target merge-info.
func Merged(targetMI, sourceHistory MergeInfo) Selection {
	return selectRanges(Intersect(targetMI, sourceHistory, false))
}

// Eligible selects the revisions of the source history never merged into the
// target. The target's own natural history counts as merged.
func Eligible(targetMI, targetHistory, sourceHistory MergeInfo) Selection {
	eraser := Merge(targetMI, targetHistory)
	return selectRanges(Remove(eraser, sourceHistory, false))
}

// selectRanges unions every range list. The log target is the path whose last
// range ends strictly later than every path before it in ascending order.
func selectRanges(mi MergeInfo) Selection {
	sel := Selection{Ranges: rangelist.List{}, Youngest: schema.InvalidRevision, PerPath: mi}
	for _, path := range mi.Paths() {
		l := mi[path]
		if l.IsEmpty() {
			continue
		}
		if end := l.YoungestEnd(); sel.Youngest == schema.InvalidRevision || end > sel.Youngest {
			sel.Youngest = end
			sel.LogTarget = path
		}
		sel.Ranges = rangelist.Merge(sel.Ranges, l)
	}
	return sel
}

// FilterLog keeps the log entries whose revision falls in the selection.
func (s Selection) FilterLog(entries []schema.LogEntry) []schema.LogEntry {
	var out []schema.LogEntry
	for _, e := range entries {
		if s.Ranges.Contains(e.Revision) {
			out = append(out, e)
		}
	}
	return out
}
