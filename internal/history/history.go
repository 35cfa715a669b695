// Package history persists a record of finished import runs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rsakamoto/mediaimport/internal/importer"
)

// Manager handles import run history persistence
type Manager struct {
	db *sql.DB
}

// RunRecord represents a single finished import run
type RunRecord struct {
	ID            int64
	Source        string
	StartTime     time.Time
	EndTime       time.Time
	Status        string // "completed", "aborted", "failed"
	FilesImported int
	FilesTotal    int
	Log           string
}

// NewManager opens (creating if needed) the history database in dataDir.
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mediaimport.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS import_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		files_imported INTEGER DEFAULT 0,
		files_total INTEGER DEFAULT 0,
		log TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_import_runs_time ON import_runs(start_time DESC);
	`
	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a finished import run
func (m *Manager) SaveRun(record RunRecord) error {
	switch record.Status {
	case "completed", "aborted", "failed":
	default:
		return fmt.Errorf("invalid status: %s", record.Status)
	}

	query := `
		INSERT INTO import_runs (source, start_time, end_time, status, files_imported, files_total, log)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := m.db.Exec(query,
		record.Source,
		record.StartTime,
		record.EndTime,
		record.Status,
		record.FilesImported,
		record.FilesTotal,
		record.Log,
	)
	return err
}

// Recent returns the last n runs, newest first
func (m *Manager) Recent(n int) ([]RunRecord, error) {
	query := `
		SELECT id, source, start_time, end_time, status, files_imported, files_total, log
		FROM import_runs
		ORDER BY start_time DESC
		LIMIT ?
	`
	rows, err := m.db.Query(query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.StartTime, &r.EndTime, &r.Status,
			&r.FilesImported, &r.FilesTotal, &r.Log); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database
func (m *Manager) Close() error {
	return m.db.Close()
}

// RecordFromResult builds a RunRecord from an import result.
func RecordFromResult(source string, start, end time.Time, done, total int, result importer.Result) RunRecord {
	return RunRecord{
		Source:        source,
		StartTime:     start,
		EndTime:       end,
		Status:        string(result.State),
		FilesImported: done,
		FilesTotal:    total,
		Log:           strings.Join(result.Logs, "\n"),
	}
}
