package cmd

import (
	"github.com/huangsam/svncoord/core"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/spf13/cobra"
)

// commitCmd sends working-copy changes to their repositories.
var commitCmd = &cobra.Command{
	Use:   "commit PATH...",
	Short: "Send local changes to the repository as atomic revisions.",
	Long: `Harvest every added, deleted, modified and copied node under the given
working-copy paths and commit them in one transaction per repository.

Paths from different working copies of the same repository are combined into
a single transaction. A transaction that fails is aborted and reported without
stopping the others; the working copy keeps its changes.

Examples:
  # Commit everything below a working copy
  svncoord commit /wc -m "Fix the parser"

  # Commit only the files directly inside a directory
  svncoord commit /wc/dir --depth files -m "Tidy"

  # Commit the members of a changelist and keep the locks
  svncoord commit /wc --changelist review --keep-locks -m "Review fixes"

  # Attach revision properties and record the result as JSON
  svncoord commit /wc -m "Release" --with-revprop release=1.2 --output json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		err := core.ExecuteCommit(operationContext(), cfg, workspace(), args)
		saveState()
		if err != nil {
			contract.LogFatal("Cannot commit", err)
		}
	},
}

// deleteCmd removes nodes directly from their repository.
var deleteCmd = &cobra.Command{
	Use:   "delete URL...",
	Short: "Delete repository URLs in a single revision.",
	Long: `Delete one or more URLs of the same repository without a working copy.

Every URL must belong to the same repository. Locks held in the state file for
the deleted paths are sent along with the transaction.

Examples:
  # Remove a finished feature branch
  svncoord delete sandbox://repo/branches/feature -m "Remove merged branch"`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		err := core.ExecuteDelete(operationContext(), cfg, workspace(), args)
		saveState()
		if err != nil {
			contract.LogFatal("Cannot delete", err)
		}
	},
}
