package cmd

import (
	"github.com/huangsam/svncoord/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the svncoord MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents parse, combine and
compare svn:mergeinfo values and read the commit journal.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, journalManager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
