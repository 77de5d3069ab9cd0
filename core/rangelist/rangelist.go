// Package rangelist implements revision range lists and their set algebra.
//
// A Range{Start, End} covers the revisions Start+1 through End. Lists handed out by
// this package are canonical: forward ranges only, sorted by start, non-overlapping,
// with adjacent ranges of equal inheritability coalesced.
package rangelist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
)

// Range is a span of revisions. Start > End describes a reverse (undo) range.
type Range struct {
	Start       int64 `json:"start"`
	End         int64 `json:"end"`
	Inheritable bool  `json:"inheritable"`
}

// List is an ordered sequence of ranges.
type List []Range

// New creates a validated range.
func New(start, end int64, inheritable bool) (Range, error) {
	if start < 0 || end < 0 {
		return Range{}, contract.NewError(contract.ValidationError, contract.CodeMergeInfoParse,
			"Invalid revision range %d-%d: revisions cannot be negative", start, end)
	}
	if start == end {
		return Range{}, contract.NewError(contract.ValidationError, contract.CodeMergeInfoParse,
			"Invalid revision range %d-%d: start and end revisions are the same", start, end)
	}
	return Range{Start: start, End: end, Inheritable: inheritable}, nil
}

// IsReverse reports whether the range undoes revisions.
func (r Range) IsReverse() bool {
	return r.Start > r.End
}

// Forward returns the range with Start < End.
func (r Range) Forward() Range {
	if r.IsReverse() {
		return Range{Start: r.End, End: r.Start, Inheritable: r.Inheritable}
	}
	return r
}

// Swap returns the range with its endpoints exchanged.
func (r Range) Swap() Range {
	return Range{Start: r.End, End: r.Start, Inheritable: r.Inheritable}
}

// String renders the range in property text form.
func (r Range) String() string {
	f := r.Forward()
	var s string
	if f.Start+1 == f.End {
		s = strconv.FormatInt(f.End, 10)
	} else {
		s = strconv.FormatInt(f.Start+1, 10) + "-" + strconv.FormatInt(f.End, 10)
	}
	if !r.Inheritable {
		s += "*"
	}
	return s
}

// NewList builds a canonical list out of arbitrary forward ranges.
func NewList(ranges ...Range) (List, error) {
	out := List{}
	for _, r := range ranges {
		if _, err := New(r.Start, r.End, r.Inheritable); err != nil {
			return nil, err
		}
		if r.IsReverse() {
			return nil, contract.NewError(contract.ValidationError, contract.CodeMergeInfoParse,
				"Invalid revision range %d-%d: reverse ranges cannot be stored", r.Start, r.End)
		}
		out = Merge(out, List{r})
	}
	return out, nil
}

// MustList is NewList for literals known to be valid. It panics otherwise.
func MustList(ranges ...Range) List {
	l, err := NewList(ranges...)
	if err != nil {
		panic(err)
	}
	return l
}

// IsEmpty reports whether the list holds no ranges.
func (l List) IsEmpty() bool {
	return len(l) == 0
}

// Clone returns a copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Equal reports whether both lists hold the same ranges.
func (l List) Equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the list in property text form, e.g. "6-10,12*,15-20".
func (l List) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Inheritable drops every non-inheritable range.
func (l List) Inheritable() List {
	out := List{}
	for _, r := range l {
		if r.Inheritable {
			out = append(out, r)
		}
	}
	return out
}

// InheritableWithin drops the non-inheritable ranges lying inside (start, end].
// Invalid bounds fall back to Inheritable.
func (l List) InheritableWithin(start, end int64) List {
	if start < 0 || end < 0 || end <= start {
		return l.Inheritable()
	}
	out := List{}
	for _, r := range l {
		if !r.Inheritable && r.Start >= start && r.End <= end {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Reverse turns a forward list into the list that undoes it: youngest range first,
// each range swapped. The result is not canonical.
func (l List) Reverse() List {
	out := make(List, len(l))
	for i, r := range l {
		out[len(l)-1-i] = r.Swap()
	}
	return out
}

// YoungestEnd returns the end of the last range, or -1 when empty.
func (l List) YoungestEnd() int64 {
	if len(l) == 0 {
		return -1
	}
	return l[len(l)-1].End
}

// OldestStart returns the start of the first range, or -1 when empty.
func (l List) OldestStart() int64 {
	if len(l) == 0 {
		return -1
	}
	return l[0].Start
}

// Contains reports whether rev falls in one of the ranges.
func (l List) Contains(rev int64) bool {
	i := sort.Search(len(l), func(i int) bool { return l[i].End >= rev })
	return i < len(l) && l[i].Start < rev
}

// Revisions expands the list into explicit ascending revision numbers.
func (l List) Revisions() []int64 {
	var revs []int64
	for _, r := range l {
		f := r.Forward()
		for rev := f.Start + 1; rev <= f.End; rev++ {
			revs = append(revs, rev)
		}
	}
	return revs
}

// Count returns the number of revisions covered by the list.
func (l List) Count() int64 {
	var n int64
	for _, r := range l {
		f := r.Forward()
		n += f.End - f.Start
	}
	return n
}
