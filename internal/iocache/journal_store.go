package iocache

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for the commit journal.
const (
	commitsTable   = "svncoord_commits"
	itemsTable     = "svncoord_commit_items"
	mergeInfoTable = "svncoord_mergeinfo"
)

// journalTables lists the journal tables in drop order.
var journalTables = []string{itemsTable, commitsTable, mergeInfoTable}

// JournalStoreImpl implements the JournalStore interface.
type JournalStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

var _ contract.JournalStore = &JournalStoreImpl{} // Compile-time check

// NewJournalStore creates a new JournalStore with the specified backend.
func NewJournalStore(backend schema.DatabaseBackend, connStr string) (contract.JournalStore, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=secret dbname=postgres
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		// Return a no-op store for a disabled journal
		return &JournalStoreImpl{backend: backend}, nil

	default:
		return nil, fmt.Errorf("unsupported journal backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	if err := createJournalTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal tables: %w", err)
	}

	return &JournalStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
		connStr:    connStr,
	}, nil
}

// createJournalTables creates the journal tables when they are missing.
func createJournalTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range []string{commitsTable, itemsTable, mergeInfoTable} {
		if _, err := db.Exec(getCreateTableQuery(table, backend)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateTableQuery returns the CREATE TABLE query of a journal table.
func getCreateTableQuery(table string, backend schema.DatabaseBackend) string {
	quoted := quoteTableName(table, backend)

	var seq, timeType, textKey string
	switch backend {
	case schema.MySQLBackend:
		seq, timeType, textKey = "seq BIGINT AUTO_INCREMENT PRIMARY KEY", "DATETIME(6)", "VARCHAR(512)"
	case schema.PostgreSQLBackend:
		seq, timeType, textKey = "seq BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ", "TEXT"
	default: // SQLite
		seq, timeType, textKey = "seq INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "TEXT"
	}

	switch table {
	case commitsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				%s,
				txn_id VARCHAR(64) NOT NULL UNIQUE,
				status VARCHAR(16) NOT NULL,
				base_url TEXT NOT NULL,
				uuid VARCHAR(64) NOT NULL,
				revision BIGINT NOT NULL,
				item_count INT NOT NULL,
				message TEXT NOT NULL,
				error_text TEXT,
				author VARCHAR(255),
				start_time %s NOT NULL,
				end_time %s NOT NULL,
				duration_ms BIGINT NOT NULL
			);
		`, quoted, seq, timeType, timeType)

	case itemsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				txn_id VARCHAR(64) NOT NULL,
				item_index INT NOT NULL,
				path TEXT NOT NULL,
				kind VARCHAR(16) NOT NULL,
				actions VARCHAR(8) NOT NULL,
				PRIMARY KEY (txn_id, item_index)
			);
		`, quoted)

	default: // mergeInfoTable
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				target %s PRIMARY KEY,
				mergeinfo TEXT NOT NULL,
				revision BIGINT NOT NULL,
				updated_at %s NOT NULL
			);
		`, quoted, textKey, timeType)
	}
}

// disabled reports whether the store is a no-op.
func (js *JournalStoreImpl) disabled() bool {
	return js.backend == schema.NoneBackend || js.db == nil
}

// rebind rewrites ? placeholders into the form the backend expects.
func (js *JournalStoreImpl) rebind(query string) string {
	if js.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RecordCommit stores a transaction and its items atomically.
func (js *JournalStoreImpl) RecordCommit(rec schema.JournalRecord, items []schema.JournalItemRecord) error {
	if js.disabled() {
		return nil
	}

	tx, err := js.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := js.rebind(fmt.Sprintf(`
		INSERT INTO %s (txn_id, status, base_url, uuid, revision, item_count, message,
		                error_text, author, start_time, end_time, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(commitsTable, js.backend)))
	_, err = tx.Exec(query, rec.TxnID, string(rec.Status), rec.BaseURL, rec.UUID, rec.Revision, rec.ItemCount,
		rec.Message, nullString(rec.ErrorText), nullString(rec.Author),
		formatTime(rec.StartTime, js.backend), formatTime(rec.EndTime, js.backend), rec.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to insert commit %s: %w", rec.TxnID, err)
	}

	itemQuery := js.rebind(fmt.Sprintf(`INSERT INTO %s (txn_id, item_index, path, kind, actions) VALUES (?, ?, ?, ?, ?)`,
		quoteTableName(itemsTable, js.backend)))
	for i, item := range items {
		if _, err := tx.Exec(itemQuery, rec.TxnID, i, item.Path, string(item.Kind), item.Actions); err != nil {
			return fmt.Errorf("failed to insert commit item %s: %w", item.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal transaction: %w", err)
	}
	return nil
}

// ListCommits returns the latest transactions, newest first.
func (js *JournalStoreImpl) ListCommits(limit int) ([]schema.JournalRecord, error) {
	if js.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT txn_id, status, base_url, uuid, revision, item_count, message,
		error_text, author, start_time, end_time, duration_ms FROM %s ORDER BY seq DESC`,
		quoteTableName(commitsTable, js.backend))
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := js.db.Query(js.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.JournalRecord
	for rows.Next() {
		var rec schema.JournalRecord
		var status string
		var errText, author sql.NullString
		if err := rows.Scan(&rec.TxnID, &status, &rec.BaseURL, &rec.UUID, &rec.Revision, &rec.ItemCount, &rec.Message,
			&errText, &author, timeScanner{&rec.StartTime}, timeScanner{&rec.EndTime}, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		rec.Status = schema.TxnStatus(status)
		rec.ErrorText = errText.String
		rec.Author = author.String
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commits: %w", err)
	}
	return results, nil
}

// ListItems returns the items recorded for a transaction in commit order.
func (js *JournalStoreImpl) ListItems(txnID string) ([]schema.JournalItemRecord, error) {
	if js.disabled() {
		return nil, nil
	}

	query := js.rebind(fmt.Sprintf(`SELECT txn_id, path, kind, actions FROM %s WHERE txn_id = ? ORDER BY item_index`,
		quoteTableName(itemsTable, js.backend)))
	rows, err := js.db.Query(query, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commit items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.JournalItemRecord
	for rows.Next() {
		var item schema.JournalItemRecord
		var kind string
		if err := rows.Scan(&item.TxnID, &item.Path, &kind, &item.Actions); err != nil {
			return nil, fmt.Errorf("failed to scan commit item: %w", err)
		}
		item.Kind = schema.NodeKind(kind)
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commit items: %w", err)
	}
	return results, nil
}

// PutMergeInfo inserts or replaces the merge-info snapshot of a target.
func (js *JournalStoreImpl) PutMergeInfo(rec schema.MergeInfoRecord) error {
	if js.disabled() {
		return nil
	}

	quoted := quoteTableName(mergeInfoTable, js.backend)
	var query string
	switch js.backend {
	case schema.MySQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (target, mergeinfo, revision, updated_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE mergeinfo = new.mergeinfo, revision = new.revision, updated_at = new.updated_at`, quoted)
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (target, mergeinfo, revision, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (target) DO UPDATE SET mergeinfo = EXCLUDED.mergeinfo, revision = EXCLUDED.revision, updated_at = EXCLUDED.updated_at`, quoted)
	default: // SQLite
		query = fmt.Sprintf(`INSERT OR REPLACE INTO %s (target, mergeinfo, revision, updated_at) VALUES (?, ?, ?, ?)`, quoted)
	}

	if _, err := js.db.Exec(query, rec.Target, rec.MergeInfo, rec.Revision, formatTime(rec.UpdatedAt, js.backend)); err != nil {
		return fmt.Errorf("failed to store merge-info of %s: %w", rec.Target, err)
	}
	return nil
}

// GetMergeInfo returns the stored snapshot of a target.
func (js *JournalStoreImpl) GetMergeInfo(target string) (schema.MergeInfoRecord, error) {
	rec := schema.MergeInfoRecord{Target: target}
	if js.disabled() {
		return rec, contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound, "The journal is disabled")
	}

	query := js.rebind(fmt.Sprintf(`SELECT mergeinfo, revision, updated_at FROM %s WHERE target = ?`,
		quoteTableName(mergeInfoTable, js.backend)))
	err := js.db.QueryRow(query, target).Scan(&rec.MergeInfo, &rec.Revision, timeScanner{&rec.UpdatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return rec, contract.NewError(contract.NotFoundError, contract.CodeEntryNotFound,
			"No merge-info recorded for '%s'", target)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read merge-info of %s: %w", target, err)
	}
	return rec, nil
}

// ListMergeInfo returns every stored snapshot ordered by target.
func (js *JournalStoreImpl) ListMergeInfo() ([]schema.MergeInfoRecord, error) {
	if js.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT target, mergeinfo, revision, updated_at FROM %s ORDER BY target`,
		quoteTableName(mergeInfoTable, js.backend))
	rows, err := js.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge-info: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.MergeInfoRecord
	for rows.Next() {
		var rec schema.MergeInfoRecord
		if err := rows.Scan(&rec.Target, &rec.MergeInfo, &rec.Revision, timeScanner{&rec.UpdatedAt}); err != nil {
			return nil, fmt.Errorf("failed to scan merge-info: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merge-info: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the journal store.
func (js *JournalStoreImpl) GetStatus() (schema.JournalStatus, error) {
	status := schema.JournalStatus{
		Backend:      string(js.backend),
		Database:     js.databaseName(),
		Connected:    js.db != nil,
		LastRevision: schema.InvalidRevision,
		TableSizes:   make(map[string]int64),
	}
	if js.disabled() {
		return status, nil
	}

	commits := quoteTableName(commitsTable, js.backend)
	if err := js.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", commits)).Scan(&status.TotalCommits); err != nil {
		return status, fmt.Errorf("failed to get total commits: %w", err)
	}

	failedQuery := js.rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = ?", commits))
	if err := js.db.QueryRow(failedQuery, string(schema.TxnFailed)).Scan(&status.FailedCommits); err != nil {
		return status, fmt.Errorf("failed to get failed commits: %w", err)
	}

	if status.TotalCommits > 0 {
		lastRevQuery := js.rebind(fmt.Sprintf("SELECT COALESCE(MAX(revision), -1) FROM %s WHERE status = ?", commits))
		if err := js.db.QueryRow(lastRevQuery, string(schema.TxnCommitted)).Scan(&status.LastRevision); err != nil {
			return status, fmt.Errorf("failed to get last revision: %w", err)
		}

		lastQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY seq DESC LIMIT 1", commits)
		if err := js.db.QueryRow(lastQuery).Scan(timeScanner{&status.LastCommitTime}); err != nil {
			return status, fmt.Errorf("failed to get last commit time: %w", err)
		}

		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY seq ASC LIMIT 1", commits)
		if err := js.db.QueryRow(oldestQuery).Scan(timeScanner{&status.OldestCommitTime}); err != nil {
			return status, fmt.Errorf("failed to get oldest commit time: %w", err)
		}
	}

	for _, table := range journalTables {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, js.backend))
		if err := js.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.MergeInfoTargets = int(status.TableSizes[mergeInfoTable])

	return status, nil
}

// databaseName returns the database a MySQL or PostgreSQL store is connected to.
func (js *JournalStoreImpl) databaseName() string {
	switch js.backend {
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(js.connStr)
		if err != nil {
			return ""
		}
		return cfg.DBName
	case schema.PostgreSQLBackend:
		for field := range strings.FieldsSeq(js.connStr) {
			if name, ok := strings.CutPrefix(field, "dbname="); ok {
				return name
			}
		}
	}
	return ""
}

// Close closes the underlying connection.
func (js *JournalStoreImpl) Close() error {
	if js.db != nil {
		return js.db.Close()
	}
	return nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t.UTC()
	}
}

// timeScanner reads a timestamp stored natively or as text.
type timeScanner struct {
	t *time.Time
}

// Scan implements sql.Scanner.
func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = v
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value of type %T", src)
	}
}

func (s timeScanner) parse(v string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			*s.t = t
			return nil
		}
	}
	return fmt.Errorf("failed to parse time %q", v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName checks that a table name is safe to interpolate.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}
