package mergeinfo

import (
	_ "embed"
	"testing"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/recorded.txt
var recordedFixture string

//go:embed testdata/repeated.txt
var repeatedFixture string

//go:embed testdata/bad_no_colon.txt
var badNoColonFixture string

func TestParse(t *testing.T) {
	t.Run("recorded property", func(t *testing.T) {
		mi, err := Parse(recordedFixture)
		require.NoError(t, err)
		assert.Equal(t, []string{"/branches/feature", "/branches/release-1.0", "/trunk"}, mi.Paths())
		assert.Equal(t, "3-7,9,12-14*", mi["/branches/feature"].String())
		assert.Equal(t, rangelist.MustParse("1-20"), mi["/trunk"])
	})

	t.Run("repeated path is merged and slash added", func(t *testing.T) {
		mi, err := Parse(repeatedFixture)
		require.NoError(t, err)
		assert.Equal(t, MergeInfo{"/branches/feature": rangelist.MustParse("3-8")}, mi)
	})

	t.Run("empty value", func(t *testing.T) {
		mi, err := Parse("")
		require.NoError(t, err)
		assert.Empty(t, mi)
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{name: "no colon", text: badNoColonFixture, msg: "Pathname not terminated by ':'"},
		{name: "no path", text: ":1-3", msg: "No pathname preceding ':'"},
		{name: "no ranges", text: "/trunk:", msg: "Mergeinfo for '/trunk' maps to an empty revision range"},
		{name: "bad ranges", text: "/trunk:9-3", msg: "Unable to parse reversed revision range '9-3'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.EqualError(t, err, tt.msg)
			assert.Equal(t, contract.CodeMergeInfoParse, contract.CodeOf(err))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, text := range []string{recordedFixture, repeatedFixture, "/a:1\n/b:2-9*,11"} {
		mi := MustParse(text)
		again, err := Parse(mi.String())
		require.NoError(t, err)
		assert.Equal(t, mi, again)
		assert.True(t, Equal(mi, again, true))
	}
}

func TestMerge(t *testing.T) {
	a := MustParse("/trunk:1-5\n/branches/a:7")
	b := MustParse("/trunk:6-9\n/branches/b:3")

	got := Merge(a, b)
	assert.Equal(t, "/branches/a:7\n/branches/b:3\n/trunk:1-9", got.String())
	assert.Equal(t, got, Merge(b, a))
	assert.Equal(t, "/branches/a:7\n/trunk:1-5", a.String(), "inputs must be untouched")
	assert.Empty(t, Merge(nil, nil))
}

func TestIntersect(t *testing.T) {
	target := MustParse("/trunk:1-10\n/branches/a:3-4")
	source := MustParse("/trunk:5-20*\n/branches/b:1-9")

	assert.Equal(t, MergeInfo{"/trunk": rangelist.MustParse("5-10*")}, Intersect(target, source, false))
	assert.Empty(t, Intersect(target, source, true))
}

func TestRemove(t *testing.T) {
	available := MustParse("/trunk:1-10\n/branches/a:3-4")
	merged := MustParse("/trunk:1-10\n/branches/a:4")

	assert.Equal(t, MergeInfo{"/branches/a": rangelist.MustParse("3")}, Remove(merged, available, true))
	assert.Equal(t, available, Remove(MergeInfo{}, available, true))
}

func TestDiffAndEqual(t *testing.T) {
	from := MustParse("/trunk:1-10\n/gone:3")
	to := MustParse("/trunk:5-12\n/new:8")

	deleted, added := Diff(from, to, true)
	assert.Equal(t, "/gone:3\n/trunk:1-4", deleted.String())
	assert.Equal(t, "/new:8\n/trunk:11-12", added.String())

	assert.True(t, Equal(from, from.Clone(), true))
	assert.False(t, Equal(from, to, true))
	assert.False(t, Equal(MustParse("/a:3"), MustParse("/a:3*"), true))
	assert.True(t, Equal(MustParse("/a:3"), MustParse("/a:3*"), false))
}

func TestFilterAndEndpoints(t *testing.T) {
	mi := MustParse("/trunk:1-10,15-20\n/branches/a:12-13")

	assert.Equal(t, "/branches/a:12-13\n/trunk:8-10,15", FilterByRanges(mi, 15, 7).String())
	assert.Empty(t, FilterByRanges(mi, 3, 9))

	youngest, oldest, ok := RangeEndpoints(mi)
	require.True(t, ok)
	assert.Equal(t, int64(20), youngest)
	assert.Equal(t, int64(0), oldest)

	_, _, ok = RangeEndpoints(MergeInfo{})
	assert.False(t, ok)
}

func TestInheritableAndSources(t *testing.T) {
	mi := MustParse("/trunk:1-3,5*\n/branches/a:7*")

	assert.Equal(t, "/trunk:1-3", Inheritable(mi, "", -1, -1).String())
	assert.Equal(t, "/branches/a:7*\n/trunk:1-3", Inheritable(mi, "/trunk", 0, 10).String())
	assert.Equal(t, []string{"/branches/a"}, FindSources(mi, 7))
	assert.Equal(t, []string{"/trunk"}, FindSources(mi, 2))
	assert.Empty(t, FindSources(mi, 6))
}

func TestAppendSuffix(t *testing.T) {
	mi := MustParse("/trunk:1-3\n/:5")
	assert.Equal(t, "/src/lib:5\n/trunk/src/lib:1-3", AppendSuffix(mi, "src/lib").String())
}
