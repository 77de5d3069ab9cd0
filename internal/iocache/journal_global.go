package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &JournalStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for the journal.
func GetDBFilePath() string {
	return contract.GetJournalDBFilePath()
}

// InitJournal initializes the global manager with a journal store.
// An empty backend leaves the journal disabled.
func InitJournal(backend schema.DatabaseBackend, connStr string) error {
	var initErr error

	initOnce.Do(func() {
		if backend == "" {
			return
		}
		store, err := NewJournalStore(backend, connStr)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize commit journal: %w", err)
			return
		}
		Manager.Lock()
		Manager.journal = store
		Manager.Unlock()
	})

	return initErr
}

// CloseJournal should be called on application shutdown.
func CloseJournal() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.journal != nil {
			_ = Manager.journal.Close()
		}
	})
}

// ClearJournal removes every journal table for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the tables.
// For NoneBackend, it does nothing.
func ClearJournal(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend:
		return clearSQLTables("mysql", backend, connStr, journalTables)

	case schema.PostgreSQLBackend:
		return clearSQLTables("pgx", backend, connStr, journalTables)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported journal backend for clearing: %s", backend)
	}
}

// clearSQLTables connects to the SQL database and drops the tables if they exist.
func clearSQLTables(driverName string, backend schema.DatabaseBackend, connStr string, tables []string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range tables {
		if err := validateTableName(table); err != nil {
			return err
		}
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
