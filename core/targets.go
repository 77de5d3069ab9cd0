package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/schema"
)

// ParseTarget treats anything with a URL scheme as a repository target and
// everything else as a working-copy path.
func ParseTarget(s string) schema.Target {
	if strings.Contains(s, "://") {
		return schema.RemoteTarget(strings.TrimSuffix(s, "/"))
	}
	return schema.LocalTarget(s)
}

// SplitPeg splits "target@REV" into the target and its peg revision. A target
// without a peg gets an unspecified revision.
func SplitPeg(s string) (string, schema.Revision, error) {
	ind := strings.LastIndexByte(s, '@')
	if ind < 0 || strings.Contains(s[ind:], "/") {
		peg, _ := schema.ParseRevision("")
		return s, peg, nil
	}
	peg, err := schema.ParseRevision(s[ind+1:])
	if err != nil {
		return "", schema.Revision{}, err
	}
	return s[:ind], peg, nil
}

// defaultRevision is HEAD for URLs and WORKING for working-copy paths.
func defaultRevision(t schema.Target) schema.Revision {
	if t.IsRemote() {
		return schema.KeywordRevision(schema.RevisionHead)
	}
	return schema.KeywordRevision(schema.RevisionWorking)
}

// ParseEndpoint reads "target[@REV]". The peg doubles as the operative revision;
// without one the default revision of the target kind is used.
func ParseEndpoint(s string) (schema.Endpoint, error) {
	path, peg, err := SplitPeg(s)
	if err != nil {
		return schema.Endpoint{}, err
	}
	target := ParseTarget(path)
	rev := peg
	if !rev.IsValid() {
		rev = defaultRevision(target)
	}
	return schema.Endpoint{Target: target, Revision: rev, Peg: peg}, nil
}

// DiffEndpoints builds both sides of a single-target comparison from a "N[:M]"
// revision argument. An empty argument compares BASE with WORKING; a single
// revision is compared with WORKING for paths and HEAD for URLs.
func DiffEndpoints(target string, revisions string) (schema.Endpoint, schema.Endpoint, error) {
	path, peg, err := SplitPeg(target)
	if err != nil {
		return schema.Endpoint{}, schema.Endpoint{}, err
	}
	t := ParseTarget(path)
	left := schema.Endpoint{Target: t, Peg: peg, Revision: schema.KeywordRevision(schema.RevisionBase)}
	right := schema.Endpoint{Target: t, Peg: peg, Revision: defaultRevision(t)}
	if revisions == "" {
		return left, right, nil
	}
	from, to, found := strings.Cut(revisions, ":")
	if left.Revision, err = schema.ParseRevision(from); err != nil {
		return schema.Endpoint{}, schema.Endpoint{}, err
	}
	if found {
		if right.Revision, err = schema.ParseRevision(to); err != nil {
			return schema.Endpoint{}, schema.Endpoint{}, err
		}
	}
	return left, right, nil
}

// ParseMergeRanges reads "-r" style ranges ("N:M", comma separated, M < N for a
// reverse merge) and "-c" style changes ("N" is N-1:N, "-N" is N:N-1).
func ParseMergeRanges(revisions []string, changes []string) (rangelist.List, error) {
	var out rangelist.List
	for _, spec := range revisions {
		for part := range strings.SplitSeq(spec, ",") {
			from, to, ok := strings.Cut(strings.TrimSpace(part), ":")
			if !ok {
				return nil, fmt.Errorf("invalid revision range %q. Use the form N:M", part)
			}
			start, err := parseRevNumber(from)
			if err != nil {
				return nil, err
			}
			end, err := parseRevNumber(to)
			if err != nil {
				return nil, err
			}
			r, err := rangelist.New(start, end, true)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	for _, spec := range changes {
		for part := range strings.SplitSeq(spec, ",") {
			part = strings.TrimSpace(part)
			reverse := strings.HasPrefix(part, "-")
			n, err := parseRevNumber(strings.TrimPrefix(part, "-"))
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fmt.Errorf("there is no change 0")
			}
			start, end := n-1, n
			if reverse {
				start, end = end, start
			}
			out = append(out, rangelist.Range{Start: start, End: end, Inheritable: true})
		}
	}
	return out, nil
}

func parseRevNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "r"), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid revision number %q", s)
	}
	return n, nil
}
