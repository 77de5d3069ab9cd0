package mergeinfo

import (
	"github.com/huangsam/svncoord/internal/contract"
)

// ShouldElide reports whether child merge-info is redundant with the merge-info
// it would inherit from parent, seen through suffix (the child path relative to
// the parent). A nil child has nothing to elide; an empty child elides only
// against an empty parent.
func ShouldElide(parent, child MergeInfo, suffix string) bool {
	if child == nil {
		return false
	}
	if len(child) == 0 {
		return len(parent) == 0
	}
	if len(parent) == 0 {
		return false
	}
	inherited := parent
	if suffix != "" {
		inherited = AppendSuffix(parent, suffix)
	}
	return Equal(inherited, child, true)
}

// Elide returns the child merge-info to keep and whether it was elided.
func Elide(parent, child MergeInfo, suffix string) (MergeInfo, bool) {
	if ShouldElide(parent, child, suffix) {
		return nil, true
	}
	return child, false
}

// ElideCatalog drops every target whose merge-info equals what it inherits from
// its nearest ancestor target in the catalog.
func ElideCatalog(catalog Catalog) Catalog {
	targets := make([]string, 0, len(catalog))
	for t := range catalog {
		targets = append(targets, t)
	}
	contract.SortPaths(targets)

	out := Catalog{}
	for _, target := range targets {
		parent, ok := nearestAncestor(targets, target)
		if ok {
			suffix := contract.RelativePath(parent, target)
			if ShouldElide(catalog[parent], catalog[target], suffix) {
				continue
			}
		}
		out[target] = catalog[target].Clone()
	}
	return out
}

// FilterCatalogByRanges applies FilterByRanges to every target and drops the
// targets left without ranges.
func FilterCatalogByRanges(catalog Catalog, youngest, oldest int64) Catalog {
	out := Catalog{}
	for target, mi := range catalog {
		if f := FilterByRanges(mi, youngest, oldest); len(f) > 0 {
			out[target] = f
		}
	}
	return out
}

func nearestAncestor(sorted []string, target string) (string, bool) {
	best, found := "", false
	for _, candidate := range sorted {
		if candidate == target {
			break
		}
		if contract.IsAncestorPath(candidate, target) && (!found || len(candidate) > len(best)) {
			best, found = candidate, true
		}
	}
	return best, found
}
