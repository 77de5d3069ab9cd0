package mergeinfo

import (
	"testing"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
)

func TestFromHistory(t *testing.T) {
	segments := []schema.LocationSegment{
		{Path: "branches/feature", Start: 10, End: 15},
		{Path: "", Start: 8, End: 9},
		{Path: "/trunk", Start: 1, End: 7},
		{Path: "trunk", Start: 0, End: 0},
	}
	mi := FromHistory(segments)
	assert.Equal(t, "/branches/feature:10-15\n/trunk:1-7", mi.String())
}

func TestMerged(t *testing.T) {
	targetMI := MustParse("/trunk:3-5,9\n/branches/other:2")
	sourceHistory := MustParse("/trunk:1-12")

	sel := Merged(targetMI, sourceHistory)
	assert.Equal(t, rangelist.MustParse("3-5,9"), sel.Ranges)
	assert.Equal(t, "/trunk", sel.LogTarget)
	assert.Equal(t, int64(9), sel.Youngest)
}

func TestEligible(t *testing.T) {
	targetMI := MustParse("/trunk:3-5")
	targetHistory := MustParse("/branches/feature:6-12\n/trunk:1-2")
	sourceHistory := MustParse("/trunk:1-12")

	sel := Eligible(targetMI, targetHistory, sourceHistory)
	assert.Equal(t, "6-12", sel.Ranges.String())
	assert.Equal(t, "/trunk", sel.LogTarget)
	assert.Equal(t, int64(12), sel.Youngest)
	assert.Equal(t, []int64{6, 7, 8, 9, 10, 11, 12}, sel.Ranges.Revisions())

	nothing := Eligible(sourceHistory, nil, sourceHistory)
	assert.True(t, nothing.IsEmpty())
	assert.Equal(t, "", nothing.LogTarget)
	assert.Equal(t, schema.InvalidRevision, nothing.Youngest)
}

func TestLogTargetTieBreak(t *testing.T) {
	tests := []struct {
		name     string
		mi       MergeInfo
		expected string
	}{
		{
			name:     "strictly greatest end wins",
			mi:       MustParse("/a:1-3\n/b:2-9\n/c:4-5"),
			expected: "/b",
		},
		{
			name:     "tie keeps the first path in ascending order",
			mi:       MustParse("/zeta:7-9\n/alpha:1-9\n/mid:9"),
			expected: "/alpha",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 5 {
				assert.Equal(t, tt.expected, selectRanges(tt.mi).LogTarget)
			}
		})
	}
}

func TestFilterLog(t *testing.T) {
	sel := Selection{Ranges: rangelist.MustParse("3-4,8")}
	entries := []schema.LogEntry{{Revision: 2}, {Revision: 3}, {Revision: 4}, {Revision: 5}, {Revision: 8}}
	got := sel.FilterLog(entries)
	assert.Equal(t, []schema.LogEntry{{Revision: 3}, {Revision: 4}, {Revision: 8}}, got)
}

func TestShouldElide(t *testing.T) {
	parent := MustParse("/trunk:1-10")
	tests := []struct {
		name     string
		parent   MergeInfo
		child    MergeInfo
		suffix   string
		expected bool
	}{
		{name: "nil child", parent: parent, child: nil, expected: false},
		{name: "empty child with empty parent", parent: MergeInfo{}, child: MergeInfo{}, expected: true},
		{name: "empty child with parent", parent: parent, child: MergeInfo{}, expected: false},
		{name: "child equal through suffix", parent: parent, child: MustParse("/trunk/src:1-10"), suffix: "src", expected: true},
		{name: "child differs", parent: parent, child: MustParse("/trunk/src:1-9"), suffix: "src", expected: false},
		{name: "no parent", parent: nil, child: MustParse("/trunk/src:1-9"), suffix: "src", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldElide(tt.parent, tt.child, tt.suffix))
		})
	}

	kept, elided := Elide(parent, MustParse("/trunk/src:1-10"), "src")
	assert.True(t, elided)
	assert.Nil(t, kept)
}

func TestElideCatalog(t *testing.T) {
	catalog := Catalog{
		"/branches/b":         MustParse("/trunk:1-10"),
		"/branches/b/src":     MustParse("/trunk/src:1-10"),
		"/branches/b/doc":     MustParse("/trunk/doc:1-4"),
		"/branches/b/src/lib": MustParse("/trunk/src/lib:1-10"),
	}
	got := ElideCatalog(catalog)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "/branches/b")
	assert.Contains(t, got, "/branches/b/doc")

	filtered := FilterCatalogByRanges(catalog, 4, 2)
	assert.Equal(t, "/trunk/doc:3-4", filtered["/branches/b/doc"].String())
	assert.Len(t, filtered, 4)
}
