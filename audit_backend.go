// audit_backend.go: Storage backends for the Pantheon audit trail
//
// Two backends implement auditBackend: SQLite (queryable, the default) and
// JSON lines (append-only, one event per line). createAuditBackend falls back
// to JSON lines when SQLite cannot be opened.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend persists audit events.
type auditBackend interface {
	// Write persists a batch of events. Implementations must be safe for
	// concurrent use.
	Write(events []AuditEvent) error

	// Flush commits pending writes to storage.
	Flush() error

	// Close releases all resources. The backend must not be used afterwards.
	Close() error

	// Maintenance performs backend-specific housekeeping.
	Maintenance() error

	// GetStats returns statistics about the stored events.
	GetStats() (*AuditDatabaseStats, error)
}

// AuditDatabaseStats summarizes the stored audit trail.
type AuditDatabaseStats struct {
	Backend       string           `json:"backend" yaml:"backend"`
	TotalEvents   int64            `json:"total_events" yaml:"total_events"`
	EventsByLevel map[string]int64 `json:"events_by_level" yaml:"events_by_level"`
	EventsByName  map[string]int64 `json:"events_by_name" yaml:"events_by_name"`
	EventsByGroup map[string]int64 `json:"events_by_group" yaml:"events_by_group"`
	OldestEvent   *time.Time       `json:"oldest_event,omitempty" yaml:"oldest_event,omitempty"`
	NewestEvent   *time.Time       `json:"newest_event,omitempty" yaml:"newest_event,omitempty"`
	StorageSize   int64            `json:"storage_size_bytes" yaml:"storage_size_bytes"`
	SchemaVersion int              `json:"schema_version" yaml:"schema_version"`
}

func newAuditStats(backend string) *AuditDatabaseStats {
	return &AuditDatabaseStats{
		Backend:       backend,
		EventsByLevel: make(map[string]int64),
		EventsByName:  make(map[string]int64),
		EventsByGroup: make(map[string]int64),
	}
}

// record folds one event into the counters and time range.
func (s *AuditDatabaseStats) record(event AuditEvent) {
	s.TotalEvents++
	s.EventsByLevel[event.Level.String()]++
	s.EventsByName[event.Event]++
	if event.Group != "" {
		s.EventsByGroup[event.Group]++
	}
	ts := event.Timestamp
	if s.OldestEvent == nil || ts.Before(*s.OldestEvent) {
		s.OldestEvent = &ts
	}
	if s.NewestEvent == nil || ts.After(*s.NewestEvent) {
		s.NewestEvent = &ts
	}
}

// createAuditBackend selects a backend from the configured output file.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlConfig := config
	if jsonlConfig.OutputFile == "" || filepath.Ext(jsonlConfig.OutputFile) == ".db" {
		jsonlConfig.OutputFile = defaultJSONLPath(config.OutputFile)
	}
	jsonlBackend, jsonlErr := newJSONLBackend(jsonlConfig)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}

	return jsonlBackend, nil
}

// defaultAuditPath is the SQLite database used when no .db file is configured.
func defaultAuditPath() string {
	return filepath.Join(os.TempDir(), "pantheon", "audit.db")
}

func defaultJSONLPath(dbPath string) string {
	if dbPath == "" {
		dbPath = defaultAuditPath()
	}
	return dbPath[:len(dbPath)-len(filepath.Ext(dbPath))] + ".jsonl"
}

// sqliteAuditBackend stores events in a SQLite database in WAL mode.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := config.OutputFile
	if dbPath == "" || filepath.Ext(dbPath) != ".db" {
		dbPath = defaultAuditPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}

	if err := backend.ensureSchemaVersion(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}

	stmt, err := db.Prepare(`
	INSERT INTO audit_events (
		timestamp, level, event, target, group_name, command_name,
		process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	backend.insertStmt = stmt

	// Retention cleanup on open is best effort.
	_ = backend.Maintenance()

	return backend, nil
}

const auditSchemaVersion = 2

// ensureSchemaVersion migrates the schema forward one version at a time.
//
//	v1: audit_events table and single-column indexes
//	v2: composite indexes for per-group and per-event queries
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if version >= auditSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	for v := version; v < auditSchemaVersion; v++ {
		var statements []string
		switch v {
		case 0:
			statements = schemaV1
		case 1:
			statements = schemaV2
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration to v%d failed: %w", v+1, err)
			}
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)`,
		auditSchemaVersion); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		target TEXT,
		group_name TEXT,
		command_name TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
	"CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_events(event)",
}

var schemaV2 = []string{
	"CREATE INDEX IF NOT EXISTS idx_audit_group_time ON audit_events(group_name, timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_audit_event_group ON audit_events(event, group_name, command_name)",
}

func (s *sqliteAuditBackend) schemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check schema version: %w", err)
	}
	return version, nil
}

// Write inserts the batch in a single transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := tx.Stmt(s.insertStmt)
	defer func() { _ = stmt.Close() }()

	for _, event := range events {
		contextJSON := ""
		if event.Context != nil {
			data, mErr := json.Marshal(event.Context)
			if mErr != nil {
				return fmt.Errorf("failed to serialize context: %w", mErr)
			}
			contextJSON = string(data)
		}

		if _, err = stmt.Exec(
			event.Timestamp.Format(time.RFC3339Nano),
			event.Level.String(),
			event.Event,
			event.Target,
			event.Group,
			event.Command,
			event.ProcessID,
			event.ProcessName,
			contextJSON,
			event.Checksum,
		); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

// Flush checkpoints the WAL.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

// Maintenance drops events older than the retention period and refreshes
// planner statistics.
func (s *sqliteAuditBackend) Maintenance() error {
	const retentionDays = 90

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}

	if _, err := s.db.Exec(`DELETE FROM audit_events WHERE created_at < datetime('now', '-' || ? || ' days')`,
		retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}
	_, _ = s.db.Exec("PRAGMA optimize")
	return nil
}

// GetStats aggregates the stored events.
func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("cannot read stats from closed SQLite audit backend")
	}

	stats := newAuditStats("sqlite")

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}

	groupings := []struct {
		column string
		into   map[string]int64
	}{
		{"level", stats.EventsByLevel},
		{"event", stats.EventsByName},
		{"group_name", stats.EventsByGroup},
	}
	for _, g := range groupings {
		if err := s.countBy(g.column, g.into); err != nil {
			return nil, err
		}
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM audit_events").
		Scan(&oldest, &newest); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, oldest.String); oldest.Valid && err == nil {
		stats.OldestEvent = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, newest.String); newest.Valid && err == nil {
		stats.NewestEvent = &t
	}

	if version, err := s.schemaVersion(); err == nil {
		stats.SchemaVersion = version
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.StorageSize = info.Size()
	}

	return stats, nil
}

// countBy fills into with event counts grouped by column. column is one of
// a fixed set of identifiers, never user input.
func (s *sqliteAuditBackend) countBy(column string, into map[string]int64) error {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT %s, COUNT(*) FROM audit_events WHERE %s IS NOT NULL AND %s != '' GROUP BY %s",
		column, column, column, column))
	if err != nil {
		return fmt.Errorf("failed to count events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Close checkpoints and closes the database. Safe to call more than once.
func (s *sqliteAuditBackend) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// jsonlAuditBackend appends one JSON object per event to a file.
type jsonlAuditBackend struct {
	file   *os.File
	path   string
	mu     sync.Mutex
	closed bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}

	return &jsonlAuditBackend{file: file, path: config.OutputFile}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

// Maintenance is a no-op, rotation is left to external tooling.
func (j *jsonlAuditBackend) Maintenance() error {
	return nil
}

// GetStats scans the file. Lines that do not decode are skipped.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := newAuditStats("jsonl")
	stats.SchemaVersion = 1

	file, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if info, err := file.Stat(); err == nil {
		stats.StorageSize = info.Size()
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		stats.record(event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL audit file: %w", err)
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
