// Package mergeinfo models the svn:mergeinfo property: a mapping from absolute
// repository source paths to the revision ranges already merged from them.
//
// Every operation returns a new map and leaves its inputs untouched. Paths whose
// range list becomes empty are dropped from results.
package mergeinfo

import (
	"sort"
	"strings"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
)

// MergeInfo maps absolute source paths to their merged ranges.
type MergeInfo map[string]rangelist.List

// Catalog maps target paths to the merge-info recorded on them.
type Catalog map[string]MergeInfo

// Parse reads a property value: one "path:rangelist" per line.
// Missing leading slashes are added and repeated paths are merged.
func Parse(text string) (MergeInfo, error) {
	mi := MergeInfo{}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		ind := strings.LastIndexByte(line, ':')
		if ind < 0 {
			return nil, parseError("Pathname not terminated by ':'")
		}
		if ind == 0 {
			return nil, parseError("No pathname preceding ':'")
		}
		path := normalizePath(line[:ind])
		rangesText := line[ind+1:]
		if strings.TrimSpace(rangesText) == "" {
			return nil, parseError("Mergeinfo for '%s' maps to an empty revision range", path)
		}
		ranges, err := rangelist.Parse(rangesText)
		if err != nil {
			return nil, err
		}
		mi[path] = rangelist.Merge(mi[path], ranges)
	}
	return mi, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) MergeInfo {
	mi, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return mi
}

// String renders the property value with paths in ascending order.
func (mi MergeInfo) String() string {
	lines := make([]string, 0, len(mi))
	for _, path := range mi.Paths() {
		if mi[path].IsEmpty() {
			continue
		}
		lines = append(lines, path+":"+mi[path].String())
	}
	return strings.Join(lines, "\n")
}

// Paths returns the source paths in ascending order.
func (mi MergeInfo) Paths() []string {
	paths := make([]string, 0, len(mi))
	for p := range mi {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a deep copy.
func (mi MergeInfo) Clone() MergeInfo {
	if mi == nil {
		return nil
	}
	out := make(MergeInfo, len(mi))
	for p, l := range mi {
		out[p] = l.Clone()
	}
	return out
}

// Merge returns the union of a and b keyed by path.
func Merge(a, b MergeInfo) MergeInfo {
	out := a.Clone()
	if out == nil {
		out = MergeInfo{}
	}
	for p, l := range b {
		out[p] = rangelist.Merge(out[p], l)
	}
	return RemoveEmpty(out)
}

// Intersect keeps the paths present in both inputs with the intersection of
// their ranges.
func Intersect(a, b MergeInfo, considerInheritance bool) MergeInfo {
	out := MergeInfo{}
	for p, la := range a {
		lb, ok := b[p]
		if !ok {
			continue
		}
		if l := rangelist.Intersect(la, lb, considerInheritance); !l.IsEmpty() {
			out[p] = l
		}
	}
	return out
}

// Remove erases eraser from whiteboard, path by path.
func Remove(eraser, whiteboard MergeInfo, considerInheritance bool) MergeInfo {
	out := MergeInfo{}
	for p, l := range whiteboard {
		if e, ok := eraser[p]; ok {
			l = rangelist.Remove(e, l, considerInheritance)
		} else {
			l = l.Clone()
		}
		if !l.IsEmpty() {
			out[p] = l
		}
	}
	return out
}

// Diff returns the ranges deleted from and added to from to reach to.
func Diff(from, to MergeInfo, considerInheritance bool) (deleted, added MergeInfo) {
	deleted, added = MergeInfo{}, MergeInfo{}
	for p, lf := range from {
		lt, ok := to[p]
		if !ok {
			if !lf.IsEmpty() {
				deleted[p] = lf.Clone()
			}
			continue
		}
		d, a := rangelist.Diff(lf, lt, considerInheritance)
		if !d.IsEmpty() {
			deleted[p] = d
		}
		if !a.IsEmpty() {
			added[p] = a
		}
	}
	for p, lt := range to {
		if _, ok := from[p]; !ok && !lt.IsEmpty() {
			added[p] = lt.Clone()
		}
	}
	return deleted, added
}

// Equal reports whether both inputs describe the same merges.
func Equal(a, b MergeInfo, considerInheritance bool) bool {
	if len(a) != len(b) {
		return false
	}
	deleted, added := Diff(a, b, considerInheritance)
	return len(deleted) == 0 && len(added) == 0
}

// RemoveEmpty drops paths with empty range lists.
func RemoveEmpty(mi MergeInfo) MergeInfo {
	out := MergeInfo{}
	for p, l := range mi {
		if !l.IsEmpty() {
			out[p] = l
		}
	}
	return out
}

// FilterByRanges keeps only the revisions in (oldest, youngest].
func FilterByRanges(mi MergeInfo, youngest, oldest int64) MergeInfo {
	out := MergeInfo{}
	if youngest <= oldest {
		return out
	}
	window := rangelist.List{{Start: oldest, End: youngest, Inheritable: true}}
	for p, l := range mi {
		if f := rangelist.Intersect(window, l, false); !f.IsEmpty() {
			out[p] = f
		}
	}
	return out
}

// RangeEndpoints returns the youngest end and the oldest start across all paths.
func RangeEndpoints(mi MergeInfo) (youngest, oldest int64, ok bool) {
	youngest, oldest = -1, -1
	for _, l := range mi {
		if l.IsEmpty() {
			continue
		}
		if end := l.YoungestEnd(); !ok || end > youngest {
			youngest = end
		}
		if start := l.OldestStart(); !ok || start < oldest {
			oldest = start
		}
		ok = true
	}
	return youngest, oldest, ok
}

// Inheritable drops non-inheritable ranges. When path is not empty only that
// source path is filtered, limited to ranges inside (start, end].
func Inheritable(mi MergeInfo, path string, start, end int64) MergeInfo {
	out := MergeInfo{}
	for p, l := range mi {
		if path == "" || path == p {
			l = l.InheritableWithin(start, end)
		} else {
			l = l.Clone()
		}
		if !l.IsEmpty() {
			out[p] = l
		}
	}
	return out
}

// AppendSuffix appends a relative path to every source path, as inherited
// merge-info is seen from a child.
func AppendSuffix(mi MergeInfo, suffix string) MergeInfo {
	out := make(MergeInfo, len(mi))
	for p, l := range mi {
		out[normalizePath(contract.JoinPath(p, suffix))] = l.Clone()
	}
	return out
}

// FindSources returns the source paths whose ranges include rev.
func FindSources(mi MergeInfo, rev int64) []string {
	var sources []string
	for _, p := range mi.Paths() {
		if mi[p].Contains(rev) {
			sources = append(sources, p)
		}
	}
	return sources
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func parseError(format string, args ...any) error {
	return contract.NewError(contract.ValidationError, contract.CodeMergeInfoParse, format, args...)
}
