package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbindex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// DatabaseName is the file name of the history database.
const DatabaseName = "history.db"

// timeLayout sorts lexically in chronological order for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed build history.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.BuildHistoryStore = (*Store)(nil)

// NewStore opens (or creates) the history database in dataDir.
// If dataDir is empty, defaults to ~/.kbindex/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbindex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_build_history.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration runs a migration and records its version in one transaction.
func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// Record appends a build report.
func (s *Store) Record(ctx context.Context, report domain.BuildReport) error {
	if report.ID == "" {
		return fmt.Errorf("%w: build report has no id", domain.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO build_history (id, started_at, finished_at, documents, chunks, dimensions,
			provider, model, artifact_path, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID,
		report.StartedAt.UTC().Format(timeLayout),
		formatNullableTime(report.FinishedAt),
		report.Documents,
		report.Chunks,
		report.Dimensions,
		report.Provider,
		report.Model,
		report.ArtifactPath,
		string(report.Status),
		nullString(report.Error))

	if err != nil {
		return fmt.Errorf("recording build: %w", err)
	}
	return nil
}

// List returns recent builds, most recent first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.BuildReport, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, documents, chunks, dimensions,
			provider, model, artifact_path, status, error
		FROM build_history
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying build history: %w", err)
	}
	defer rows.Close()

	var reports []domain.BuildReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanBuildReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build history: %w", err)
	}

	return reports, nil
}

// Latest returns the most recent build, or domain.ErrNotFound.
func (s *Store) Latest(ctx context.Context) (*domain.BuildReport, error) {
	reports, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, domain.ErrNotFound
	}
	return &reports[0], nil
}

// Prune removes all but the most recent keep builds.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM build_history
		WHERE rowid NOT IN (
			SELECT rowid FROM build_history
			ORDER BY started_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning build history: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBuildReport scans one build_history row.
func scanBuildReport(row rowScanner) (*domain.BuildReport, error) {
	var report domain.BuildReport
	var startedAt, status string
	var finishedAt, errMsg sql.NullString

	if err := row.Scan(&report.ID, &startedAt, &finishedAt,
		&report.Documents, &report.Chunks, &report.Dimensions,
		&report.Provider, &report.Model, &report.ArtifactPath,
		&status, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning build report: %w", err)
	}

	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		report.StartedAt = t
	}
	report.FinishedAt = parseNullableTime(finishedAt)
	report.Status = domain.BuildStatus(status)
	if errMsg.Valid {
		report.Error = errMsg.String
	}

	return &report, nil
}

// formatNullableTime formats a time in UTC, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// parseNullableTime parses a nullable timestamp.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
