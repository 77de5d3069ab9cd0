package cmd

import (
	"testing"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSource(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		source  string
		peg     int64
		wantErr bool
	}{
		{"no peg", "sandbox://repo/trunk", "sandbox://repo/trunk", -1, false},
		{"numeric peg", "sandbox://repo/trunk@7", "sandbox://repo/trunk", 7, false},
		{"head peg", "sandbox://repo/trunk@HEAD", "sandbox://repo/trunk", -1, false},
		{"local keyword", "sandbox://repo/trunk@BASE", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, peg, err := mergeSource(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.peg, peg)
		})
	}
}

func TestDiffEndpoints(t *testing.T) {
	t.Run("two targets", func(t *testing.T) {
		left, right, err := diffEndpoints(diffCmd, []string{"sandbox://repo/trunk@3", "/wc"})
		require.NoError(t, err)
		assert.Equal(t, schema.NumberRevision(3), left.Revision)
		assert.Equal(t, schema.LocalTarget("/wc"), right.Target)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionWorking), right.Revision)
	})

	t.Run("single target", func(t *testing.T) {
		left, right, err := diffEndpoints(diffCmd, []string{"/wc"})
		require.NoError(t, err)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionBase), left.Revision)
		assert.Equal(t, schema.KeywordRevision(schema.RevisionWorking), right.Revision)
	})
}

func TestRootCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"commit", "delete", "diff", "merge", "mergeinfo", "journal", "sandbox", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestIgnoreAncestryFlag(t *testing.T) {
	require.NotNil(t, diffCmd.Flags().Lookup("ignore-ancestry"))
	assert.Nil(t, diffCmd.Flags().Lookup("notice-ancestry"))

	var raw contract.ConfigRawInput
	require.NoError(t, viper.Unmarshal(&raw))
	assert.False(t, raw.UseAncestry, "unrelated nodes are delete and add by default")

	require.NoError(t, diffCmd.Flags().Set("ignore-ancestry", "true"))
	t.Cleanup(func() { _ = diffCmd.Flags().Set("ignore-ancestry", "false") })

	raw = contract.ConfigRawInput{}
	require.NoError(t, viper.Unmarshal(&raw))
	assert.True(t, raw.UseAncestry)

	cfg := &contract.Config{}
	require.NoError(t, contract.ProcessAndValidate(cfg, &contract.ConfigRawInput{Output: "text", Color: "no", UseAncestry: raw.UseAncestry}))
	assert.True(t, cfg.UseAncestry)
}
