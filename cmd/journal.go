package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/svncoord/core"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/iocache"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// journalBackend reads and validates the journal backend settings without the
// full shared setup.
func journalBackend() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("journal-backend")
	connStr := viper.GetString("journal-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid journal backend '%s'. must be sqlite, mysql, postgresql, none", backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// journalSetup loads minimal configuration needed for journal maintenance.
// It skips the state file and output validation of the shared setup.
func journalSetup() error {
	backend, connStr, err := journalBackend()
	if err != nil {
		return err
	}

	if err := iocache.InitJournal(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	cfg.JournalBackend = backend
	cfg.JournalDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// journalSetupWrapper wraps journalSetup to provide PreRunE for journal commands.
func journalSetupWrapper(_ *cobra.Command, _ []string) error {
	return journalSetup()
}

// journalMigrateSetup loads the backend settings without opening the store,
// allowing migrations to run on a fresh database.
func journalMigrateSetup() error {
	backend, connStr, err := journalBackend()
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetJournalDBFilePath()
	}

	cfg.JournalBackend = backend
	cfg.JournalDBConnect = connStr
	return nil
}

// journalMigrateSetupWrapper wraps journalMigrateSetup to provide PreRunE for migrate command.
func journalMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return journalMigrateSetup()
}

// journalCmd focuses on commit journal management.
//
// Note: maintenance subcommands use minimal initialization (journalSetup) instead
// of the full sharedSetup. Listing uses the shared setup for its output options.
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage the commit journal and merge-info snapshots",
	Long: `Manage the persistent record of commit transactions.

When enabled, svncoord journals every commit attempt, storing:
- Transaction metadata (base URL, revision, author, message, duration, status)
- Every committed item with its actions
- The latest svn:mergeinfo recorded on each merge target

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status    - Show journal statistics
  list      - List transactions or the items of one
  snapshots - List merge-info snapshots
  export    - Export data to Parquet for analytics
  clear     - Remove all journal data
  migrate   - Run database schema migrations

Examples:
  # Check journal status
  svncoord journal status --journal-backend sqlite

  # Export for analysis in pandas/DuckDB
  svncoord journal export --journal-backend sqlite --output-file journal`,
}

// journalStatusCmd shows journal status.
var journalStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display journal statistics and connection details",
	Long: `Show the backend, connection state, transaction counts and table sizes of
the commit journal.

Examples:
  svncoord journal status --journal-backend sqlite`,
	PreRunE: journalSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := journalManager.GetJournalStore()
		if store == nil {
			contract.LogFatal("Failed to get journal status", fmt.Errorf("journal is not configured"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get journal status", err)
		}
		iocache.PrintJournalStatus(os.Stdout, status)
	},
}

// journalListCmd lists journaled transactions.
var journalListCmd = &cobra.Command{
	Use:   "list [TXN-ID]",
	Short: "List journaled transactions, or the items of one transaction",
	Long: `List the latest commit transactions, newest first. With a transaction ID,
list the items committed by that transaction instead.

Examples:
  svncoord journal list --journal-backend sqlite --limit 10
  svncoord journal list 5f0c1e2a-... --journal-backend sqlite --output csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		var txnID string
		if len(args) == 1 {
			txnID = args[0]
		}
		if err := core.ExecuteJournalList(operationContext(), cfg, workspace(), txnID); err != nil {
			contract.LogFatal("Failed to list journal", err)
		}
	},
}

// journalSnapshotsCmd lists merge-info snapshots.
var journalSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List the merge-info recorded for each merge target",
	Long: `List the svn:mergeinfo value journaled after the latest merge into each
target.

Examples:
  svncoord journal snapshots --journal-backend sqlite --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteJournalSnapshots(operationContext(), cfg, workspace()); err != nil {
			contract.LogFatal("Failed to list snapshots", err)
		}
	},
}

// journalClearCmd clears the journal.
var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all journal data",
	Long: `Delete all journaled transactions, items and merge-info snapshots.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  svncoord journal export --journal-backend sqlite --output-file backup
  svncoord journal clear --journal-backend sqlite`,
	PreRunE: journalMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// The migrate setup resolves an empty SQLite connection string to the default file.
		if err := iocache.ClearJournal(cfg.JournalBackend, cfg.JournalDBConnect, cfg.JournalDBConnect); err != nil {
			contract.LogFatal("Failed to clear journal", err)
		}
		fmt.Println("Journal cleared successfully.")
	},
}

// journalExportCmd exports journal data to Parquet files.
var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal to Parquet for BI tools and analytics",
	Long: `Export all journal data to Parquet files named after --output-file:
- <file>.commits.parquet      - one row per transaction
- <file>.commit_items.parquet - one row per committed item
- <file>.mergeinfo.parquet    - one row per merge target

Examples:
  svncoord journal export --journal-backend sqlite --output-file journal
  duckdb -c "SELECT status, count(*) FROM read_parquet('journal.commits.parquet') GROUP BY 1"`,
	PreRunE: journalSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteJournalExport(os.Stdout, journalManager.GetJournalStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export journal", err)
		}
	},
}

// journalMigrateCmd runs database migrations for the journal store.
var journalMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the commit journal.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  svncoord journal migrate --journal-backend sqlite

  # Rollback to the initial state
  svncoord journal migrate --journal-backend sqlite --target-version 0`,
	PreRunE: journalMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateJournal(cfg.JournalBackend, cfg.JournalDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
