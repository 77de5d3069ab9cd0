package cmd

import (
	"github.com/huangsam/svncoord/core"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
)

// diffEndpoints turns the positional arguments into the two compared endpoints.
func diffEndpoints(cmd *cobra.Command, args []string) (schema.Endpoint, schema.Endpoint, error) {
	if len(args) == 2 {
		left, err := core.ParseEndpoint(args[0])
		if err != nil {
			return schema.Endpoint{}, schema.Endpoint{}, err
		}
		right, err := core.ParseEndpoint(args[1])
		if err != nil {
			return schema.Endpoint{}, schema.Endpoint{}, err
		}
		return left, right, nil
	}
	revisions, _ := cmd.Flags().GetString("revision")
	return core.DiffEndpoints(args[0], revisions)
}

// diffCmd compares two trees.
var diffCmd = &cobra.Command{
	Use:   "diff TARGET[@REV] [TARGET[@REV]]",
	Short: "Show the differences between two trees.",
	Long: `Compare a working copy or URL against itself at another revision, or two
targets against each other.

With a single target the comparison defaults to BASE against WORKING for
working-copy paths, and uses -r N[:M] to pick other revisions. With two
targets each side names its own peg revision; a URL without one is read at
HEAD. Every combination of URL and working-copy endpoints is supported.

Examples:
  # Local modifications
  svncoord diff /wc

  # What changed on trunk between r3 and r5
  svncoord diff sandbox://repo/trunk -r 3:5

  # Compare a branch with trunk, one line per path
  svncoord diff sandbox://repo/trunk sandbox://repo/branches/b --summarize

  # Export the change list as CSV
  svncoord diff /wc --output csv --output-file changes.csv`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		left, right, err := diffEndpoints(cmd, args)
		if err != nil {
			contract.LogFatal("Invalid diff target", err)
		}
		summarize, _ := cmd.Flags().GetBool("summarize")
		if err := core.ExecuteDiff(operationContext(), cfg, workspace(), left, right, summarize); err != nil {
			contract.LogFatal("Cannot diff", err)
		}
	},
}
