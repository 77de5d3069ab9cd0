package rangelist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
)

// Parse reads a range list in property text form, e.g. "6-10,12*,15-20".
// "N" stands for the range {N-1, N} and "A-B" for {A-1, B}. Overlapping ranges of
// equal inheritability are coalesced; overlaps of different inheritability fail.
func Parse(text string) (List, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, parseError("Empty revision range list")
	}
	var ranges List
	for span := range strings.SplitSeq(text, ",") {
		r, err := parseRange(span)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	for i := 1; i < len(ranges); i++ {
		prev, r := ranges[i-1], ranges[i]
		if r.Start < prev.End && r.Inheritable != prev.Inheritable {
			return nil, parseError("Unable to parse overlapping revision ranges '%s' and '%s' with different inheritance types",
				prev.String(), r.String())
		}
	}
	out := List{}
	for _, r := range ranges {
		out = Merge(out, List{r})
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) List {
	l, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return l
}

func parseRange(span string) (Range, error) {
	inheritable := true
	if rest, ok := strings.CutSuffix(span, "*"); ok {
		span = rest
		inheritable = false
	}
	startText, endText, isSpan := strings.Cut(span, "-")
	start, err := parseRevision(startText)
	if err != nil {
		return Range{}, err
	}
	r := Range{Start: start - 1, End: start, Inheritable: inheritable}
	if !isSpan {
		return r, nil
	}
	end, err := parseRevision(endText)
	if err != nil {
		return Range{}, err
	}
	switch {
	case start > end:
		return Range{}, parseError("Unable to parse reversed revision range '%d-%d'", start, end)
	case start == end:
		return Range{}, parseError("Unable to parse revision range '%d-%d' with same start and end revisions", start, end)
	}
	r.End = end
	return r, nil
}

func parseRevision(text string) (int64, error) {
	if text == "" {
		return 0, parseError("Invalid revision number found parsing ''")
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, parseError("Invalid character '%c' found in revision list", c)
		}
	}
	rev, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, parseError("Invalid revision number found parsing '%s'", text)
	}
	if rev == 0 {
		return 0, parseError("Invalid revision number '0' found in range list")
	}
	return rev, nil
}

func parseError(format string, args ...any) error {
	return contract.NewError(contract.ValidationError, contract.CodeMergeInfoParse, format, args...)
}
