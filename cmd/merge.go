package cmd

import (
	"fmt"

	"github.com/huangsam/svncoord/core"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
)

// mergeSource splits SOURCE[@PEG] into the URL and a numeric peg; no peg or
// HEAD gives -1.
func mergeSource(arg string) (string, int64, error) {
	source, peg, err := core.SplitPeg(arg)
	if err != nil {
		return "", 0, err
	}
	switch peg.Keyword {
	case schema.RevisionNumber:
		return source, peg.Number, nil
	case schema.RevisionUnspecified, schema.RevisionHead:
		return source, -1, nil
	default:
		return "", 0, fmt.Errorf("merge sources take a number or HEAD as peg revision, got %s", peg)
	}
}

// mergeCmd applies revision ranges of a source to a working copy.
var mergeCmd = &cobra.Command{
	Use:   "merge SOURCE[@PEG] WCPATH",
	Short: "Apply revision ranges of a source to a working copy.",
	Long: `Merge changes made on SOURCE into the working copy at WCPATH and record
them in svn:mergeinfo.

Ranges come from -r N:M (M < N reverts) and -c N (-c -N reverts). Revisions
already recorded as merged are skipped; reverted revisions are removed from
the recorded merge-info. Without any range every eligible revision is merged.
Conflicting paths are reported and left untouched.

Examples:
  # Merge everything eligible from trunk
  svncoord merge sandbox://repo/trunk /br

  # Cherry-pick a single change
  svncoord merge sandbox://repo/trunk /br -c 7

  # Revert an earlier merge of r5 through r7
  svncoord merge sandbox://repo/trunk /br -r 7:4

  # Preview without touching the working copy
  svncoord merge sandbox://repo/trunk /br --dry-run

  # Block revisions from future merges
  svncoord merge sandbox://repo/trunk /br -c 9 --record-only`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		source, peg, err := mergeSource(args[0])
		if err != nil {
			contract.LogFatal("Invalid merge source", err)
		}
		revisions, _ := cmd.Flags().GetStringSlice("revision")
		changes, _ := cmd.Flags().GetStringSlice("change")
		ranges, err := core.ParseMergeRanges(revisions, changes)
		if err != nil {
			contract.LogFatal("Invalid merge range", err)
		}
		err = core.ExecuteMerge(operationContext(), cfg, workspace(), source, peg, ranges, args[1])
		saveState()
		if err != nil {
			contract.LogFatal("Cannot merge", err)
		}
	},
}

// mergeinfoCmd groups the merge-info queries.
var mergeinfoCmd = &cobra.Command{
	Use:   "mergeinfo",
	Short: "Query merge history between branches.",
	Long: `Inspect which revisions of a merge source were merged into a target and
which are still eligible.

Subcommands:
  eligible - Revisions of the source not merged yet
  merged   - Revisions of the source already merged
  suggest  - Likely merge sources of a target

Examples:
  svncoord mergeinfo eligible /br sandbox://repo/trunk
  svncoord mergeinfo merged sandbox://repo/branches/b
  svncoord mergeinfo suggest /br`,
}

func runMergeInfo(eligible bool) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, args []string) {
		var source string
		if len(args) == 2 {
			source = args[1]
		}
		if err := core.ExecuteMergeInfo(operationContext(), cfg, workspace(), core.ParseTarget(args[0]), source, eligible); err != nil {
			contract.LogFatal("Cannot query merge-info", err)
		}
	}
}

// mergeinfoEligibleCmd lists revisions that can still be merged.
var mergeinfoEligibleCmd = &cobra.Command{
	Use:   "eligible TARGET [SOURCE]",
	Short: "List revisions of SOURCE not yet merged into TARGET.",
	Long: `List the revisions of SOURCE that changed the source line and are not
recorded in the merge-info of TARGET. Without SOURCE the first suggested merge
source is used.

Examples:
  svncoord mergeinfo eligible /br
  svncoord mergeinfo eligible sandbox://repo/branches/b sandbox://repo/trunk --output csv`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run:     runMergeInfo(true),
}

// mergeinfoMergedCmd lists revisions that were merged.
var mergeinfoMergedCmd = &cobra.Command{
	Use:   "merged TARGET [SOURCE]",
	Short: "List revisions of SOURCE already merged into TARGET.",
	Long: `List the revisions of SOURCE recorded in the merge-info of TARGET, limited
to the history of the source line.

Examples:
  svncoord mergeinfo merged /br sandbox://repo/trunk`,
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run:     runMergeInfo(false),
}

// mergeinfoSuggestCmd lists candidate merge sources.
var mergeinfoSuggestCmd = &cobra.Command{
	Use:   "suggest TARGET",
	Short: "List likely merge sources of TARGET.",
	Long: `List the copy source of TARGET followed by every other source recorded in
its merge-info.

Examples:
  svncoord mergeinfo suggest /br`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := core.ExecuteSuggestSources(operationContext(), cfg, workspace(), core.ParseTarget(args[0])); err != nil {
			contract.LogFatal("Cannot suggest merge sources", err)
		}
	},
}
