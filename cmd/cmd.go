// Package cmd defines the command-line interface for svncoord.
package cmd

import (
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(mergeinfoCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(sandboxCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the mergeinfo subcommands to the parent mergeinfo command
	mergeinfoCmd.AddCommand(mergeinfoEligibleCmd)
	mergeinfoCmd.AddCommand(mergeinfoMergedCmd)
	mergeinfoCmd.AddCommand(mergeinfoSuggestCmd)

	// Add the journal subcommands to the parent journal command
	journalCmd.AddCommand(journalStatusCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalSnapshotsCmd)
	journalCmd.AddCommand(journalClearCmd)
	journalCmd.AddCommand(journalExportCmd)
	journalCmd.AddCommand(journalMigrateCmd)

	// Add the sandbox subcommands to the parent sandbox command
	sandboxCmd.AddCommand(sandboxInitCmd)
	sandboxCmd.AddCommand(sandboxImportCmd)
	sandboxCmd.AddCommand(sandboxCopyCmd)
	sandboxCmd.AddCommand(sandboxCheckoutCmd)
	sandboxCmd.AddCommand(sandboxWriteCmd)
	sandboxCmd.AddCommand(sandboxAddCmd)
	sandboxCmd.AddCommand(sandboxRemoveCmd)
	sandboxCmd.AddCommand(sandboxPropsetCmd)
	sandboxCmd.AddCommand(sandboxStatusCmd)
	sandboxCmd.AddCommand(sandboxLogCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("state", contract.DefaultStateFile, "Path to the YAML file holding repositories and working copies")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Event log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.DefaultLogFormat, "Event log format: console or json")
	rootCmd.PersistentFlags().String("journal-backend", string(schema.NoneBackend), "Commit journal backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("journal-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("depth", string(schema.DepthInfinity), "Operation depth: empty or files or immediates or infinity")
	rootCmd.PersistentFlags().String("changelist", "", "Comma-separated changelists to restrict the operation to")
	rootCmd.PersistentFlags().StringP("message", "m", "", "Log message for new revisions")
	rootCmd.PersistentFlags().String("author", "", "Author recorded on new revisions")
	rootCmd.PersistentFlags().String("with-revprop", "", "Comma-separated name=value revision properties")
	rootCmd.PersistentFlags().Bool("keep-locks", false, "Keep locks on committed paths")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of commitCmd to Viper
	commitCmd.Flags().Bool("force", false, "Compare file contents even when timestamps match")
	if err := viper.BindPFlags(commitCmd.Flags()); err != nil {
		contract.LogFatal("Error binding commit flags", err)
	}

	// diffCmd revision flags are read directly because merge uses the same names.
	diffCmd.Flags().StringP("revision", "r", "", "Revision or N:M pair to compare")
	diffCmd.Flags().Bool("summarize", false, "Show one line per changed path")
	diffCmd.Flags().Bool("ignore-ancestry", false, "Diff unrelated nodes at the same path as modifications instead of a delete and an add")
	if err := viper.BindPFlag("ignore-ancestry", diffCmd.Flags().Lookup("ignore-ancestry")); err != nil {
		contract.LogFatal("Error binding diff flags", err)
	}

	mergeCmd.Flags().StringSliceP("revision", "r", nil, "Revision range N:M to merge (repeatable, M < N reverts)")
	mergeCmd.Flags().StringSliceP("change", "c", nil, "Single change N to merge, -N to revert (repeatable)")
	mergeCmd.Flags().Bool("dry-run", false, "Report what would change without touching the working copy")
	mergeCmd.Flags().Bool("record-only", false, "Only record the merge in svn:mergeinfo")
	for _, name := range []string{"dry-run", "record-only"} {
		if err := viper.BindPFlag(name, mergeCmd.Flags().Lookup(name)); err != nil {
			contract.LogFatal("Error binding merge flags", err)
		}
	}

	// Bind all flags of journalListCmd to Viper
	journalListCmd.Flags().IntP("limit", "l", contract.DefaultJournalLimit, "Number of journal entries to display")
	if err := viper.BindPFlags(journalListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding journal list flags", err)
	}

	// Bind all flags of journalMigrateCmd to Viper
	journalMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(journalMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding journal migrate flags", err)
	}

	sandboxCopyCmd.Flags().Int64("revision", -1, "Source revision to copy (-1 means head)")
	sandboxCheckoutCmd.Flags().Int64("revision", -1, "Revision to check out (-1 means head)")
	sandboxAddCmd.Flags().Bool("dir", false, "Schedule a directory instead of a file")
	sandboxPropsetCmd.Flags().Bool("delete", false, "Delete the property instead of setting it")
}
