package core

import (
	"testing"

	"github.com/huangsam/svncoord/core/rangelist"
	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	assert.Equal(t, schema.RemoteTarget("sandbox://repo/trunk"), ParseTarget("sandbox://repo/trunk/"))
	assert.Equal(t, schema.LocalTarget("/wc/a.txt"), ParseTarget("/wc/a.txt"))
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		target   schema.Target
		revision schema.Revision
		wantErr  bool
	}{
		{"url defaults to head", "sandbox://repo/trunk", schema.RemoteTarget("sandbox://repo/trunk"), schema.KeywordRevision(schema.RevisionHead), false},
		{"path defaults to working", "/wc", schema.LocalTarget("/wc"), schema.KeywordRevision(schema.RevisionWorking), false},
		{"peg number", "sandbox://repo/trunk@5", schema.RemoteTarget("sandbox://repo/trunk"), schema.NumberRevision(5), false},
		{"peg keyword", "/wc@BASE", schema.LocalTarget("/wc"), schema.KeywordRevision(schema.RevisionBase), false},
		{"at sign inside the path", "/wc/a@b/c", schema.LocalTarget("/wc/a@b/c"), schema.KeywordRevision(schema.RevisionWorking), false},
		{"bad peg", "/wc@x", schema.Target{}, schema.Revision{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, ep.Target)
			assert.Equal(t, tt.revision, ep.Revision)
		})
	}
}

func TestDiffEndpoints(t *testing.T) {
	t.Run("base against working", func(t *testing.T) {
		left, right, err := DiffEndpoints("/wc", "")
		require.NoError(t, err)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionBase), left.Revision)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionWorking), right.Revision)
	})

	t.Run("single revision against head", func(t *testing.T) {
		left, right, err := DiffEndpoints("sandbox://repo/trunk", "3")
		require.NoError(t, err)
		assert.Equal(t, schema.NumberRevision(3), left.Revision)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionHead), right.Revision)
	})

	t.Run("explicit pair", func(t *testing.T) {
		left, right, err := DiffEndpoints("/wc", "2:HEAD")
		require.NoError(t, err)
		assert.Equal(t, schema.NumberRevision(2), left.Revision)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionHead), right.Revision)
	})

	t.Run("invalid", func(t *testing.T) {
		_, _, err := DiffEndpoints("/wc", "2:x")
		assert.Error(t, err)
	})
}

func TestParseMergeRanges(t *testing.T) {
	tests := []struct {
		name      string
		revisions []string
		changes   []string
		expected  rangelist.List
		wantErr   bool
	}{
		{"forward range", []string{"2:4"}, nil, rangelist.List{{Start: 2, End: 4, Inheritable: true}}, false},
		{"reverse range", []string{"4:2"}, nil, rangelist.List{{Start: 4, End: 2, Inheritable: true}}, false},
		{"comma separated", []string{"1:2, r5:7"}, nil, rangelist.List{{Start: 1, End: 2, Inheritable: true}, {Start: 5, End: 7, Inheritable: true}}, false},
		{"change", nil, []string{"5"}, rangelist.List{{Start: 4, End: 5, Inheritable: true}}, false},
		{"reverse change", nil, []string{"-5"}, rangelist.List{{Start: 5, End: 4, Inheritable: true}}, false},
		{"both", []string{"1:2"}, []string{"9"}, rangelist.List{{Start: 1, End: 2, Inheritable: true}, {Start: 8, End: 9, Inheritable: true}}, false},
		{"change zero", nil, []string{"0"}, nil, true},
		{"missing colon", []string{"5"}, nil, nil, true},
		{"empty range", []string{"3:3"}, nil, nil, true},
		{"not a number", []string{"a:b"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMergeRanges(tt.revisions, tt.changes)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
