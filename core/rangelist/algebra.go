package rangelist

import "sort"

// Merge returns the union of a and b. Where an inheritable and a non-inheritable
// range overlap, the overlap is inheritable. The operation is commutative and
// idempotent.
func Merge(a, b List) List {
	return sweep(a, b, func(ra Range, inA bool, rb Range, inB bool) (bool, bool) {
		return inA || inB, (inA && ra.Inheritable) || (inB && rb.Inheritable)
	})
}

// Intersect returns the revisions present in both a and b, with the inheritability
// of b. When considerInheritance is set, overlaps of different inheritability are
// dropped.
func Intersect(a, b List, considerInheritance bool) List {
	return sweep(a, b, func(ra Range, inA bool, rb Range, inB bool) (bool, bool) {
		if !inA || !inB {
			return false, false
		}
		if considerInheritance && ra.Inheritable != rb.Inheritable {
			return false, false
		}
		return true, rb.Inheritable
	})
}

// Subtract returns the revisions of a not covered by b. When considerInheritance is
// set, b only removes revisions of the same inheritability.
func Subtract(a, b List, considerInheritance bool) List {
	return sweep(a, b, func(ra Range, inA bool, rb Range, inB bool) (bool, bool) {
		if !inA {
			return false, false
		}
		if inB && (!considerInheritance || ra.Inheritable == rb.Inheritable) {
			return false, false
		}
		return true, ra.Inheritable
	})
}

// Remove erases eraser from whiteboard.
func Remove(eraser, whiteboard List, considerInheritance bool) List {
	return Subtract(whiteboard, eraser, considerInheritance)
}

// Diff returns what was deleted from and added to from to reach to.
func Diff(from, to List, considerInheritance bool) (deleted, added List) {
	return Subtract(from, to, considerInheritance), Subtract(to, from, considerInheritance)
}

// pickFunc decides whether the elementary segment survives and with which inheritability.
type pickFunc func(ra Range, inA bool, rb Range, inB bool) (keep bool, inheritable bool)

// sweep walks the elementary segments delimited by every boundary of a and b and
// rebuilds a canonical list from the segments pick keeps.
func sweep(a, b List, pick pickFunc) List {
	a, b = canonical(a), canonical(b)
	points := boundaries(a, b)
	out := List{}
	for i := 0; i+1 < len(points); i++ {
		lo, hi := points[i], points[i+1]
		ra, inA := cover(a, lo, hi)
		rb, inB := cover(b, lo, hi)
		if !inA && !inB {
			continue
		}
		keep, inheritable := pick(ra, inA, rb, inB)
		if keep {
			out = appendRange(out, Range{Start: lo, End: hi, Inheritable: inheritable})
		}
	}
	return out
}

func boundaries(lists ...List) []int64 {
	seen := map[int64]struct{}{}
	var points []int64
	for _, l := range lists {
		for _, r := range l {
			for _, p := range [2]int64{r.Start, r.End} {
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					points = append(points, p)
				}
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })
	return points
}

// cover returns the range of a canonical list containing the segment (lo, hi].
func cover(l List, lo, hi int64) (Range, bool) {
	i := sort.Search(len(l), func(i int) bool { return l[i].End >= hi })
	if i < len(l) && l[i].Start <= lo {
		return l[i], true
	}
	return Range{}, false
}

func appendRange(l List, r Range) List {
	if n := len(l); n > 0 && l[n-1].End == r.Start && l[n-1].Inheritable == r.Inheritable {
		l[n-1].End = r.End
		return l
	}
	return append(l, r)
}

// canonical returns l when it already is in canonical form and the union of its
// ranges otherwise. Reverse ranges are read as their forward counterpart.
func canonical(l List) List {
	if isCanonical(l) {
		return l
	}
	out := List{}
	for _, r := range l {
		f := r.Forward()
		if f.Start == f.End {
			continue
		}
		out = Merge(out, List{f})
	}
	return out
}

func isCanonical(l List) bool {
	for i, r := range l {
		if r.Start >= r.End {
			return false
		}
		if i == 0 {
			continue
		}
		prev := l[i-1]
		if r.Start < prev.End || (r.Start == prev.End && r.Inheritable == prev.Inheritable) {
			return false
		}
	}
	return true
}
