package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"defectinsight/internal/analytics"
	"defectinsight/internal/models"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and runs migrations
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the necessary tables if they don't exist
func (db *DB) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS defects (
		id TEXT PRIMARY KEY,
		aircraft_registration TEXT NOT NULL,
		reported_at TEXT NOT NULL,
		defect_type TEXT NOT NULL,
		description TEXT NOT NULL,
		severity TEXT NOT NULL CHECK (severity IN ('Low','Medium','High'))
	);

	CREATE INDEX IF NOT EXISTS idx_aircraft_registration ON defects(aircraft_registration);
	CREATE INDEX IF NOT EXISTS idx_severity ON defects(severity);
	CREATE INDEX IF NOT EXISTS idx_reported_at_desc ON defects(reported_at DESC);
	`

	_, err := db.conn.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// InsertDefects stores records in a single transaction, skipping ids that already exist.
// reported_at must already be normalized to UTC RFC3339. Returns the number of inserted rows.
func (db *DB) InsertDefects(ctx context.Context, records []models.DefectRecord) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO defects (id, aircraft_registration, reported_at, defect_type, description, severity)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.ID, r.AircraftRegistration, r.ReportedAt, r.DefectType, r.Description, string(r.Severity))
		if err != nil {
			return 0, fmt.Errorf("failed to insert defect %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// DeleteAllDefects deletes all records from the defects table
func (db *DB) DeleteAllDefects(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM defects")
	if err != nil {
		return fmt.Errorf("failed to delete all defects: %w", err)
	}
	return nil
}

// whereClause builds the optional filter shared by listing and counting
func whereClause(f models.DefectFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if f.AircraftRegistration != "" {
		conditions = append(conditions, "aircraft_registration = ?")
		args = append(args, f.AircraftRegistration)
	}
	if f.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListDefects returns one page of defects, newest first, and the filtered total
func (db *DB) ListDefects(ctx context.Context, f models.DefectFilter, offset, limit int) ([]models.DefectRecord, int, error) {
	where, args := whereClause(f)

	var total int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM defects"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count defects: %w", err)
	}

	query := `SELECT id, aircraft_registration, reported_at, defect_type, description, severity
		FROM defects` + where + `
		ORDER BY reported_at DESC
		LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list defects: %w", err)
	}
	defer rows.Close()

	result := make([]models.DefectRecord, 0, limit)
	for rows.Next() {
		var r models.DefectRecord
		var severity string
		if err := rows.Scan(&r.ID, &r.AircraftRegistration, &r.ReportedAt, &r.DefectType, &r.Description, &severity); err != nil {
			return nil, 0, fmt.Errorf("scan defect: %w", err)
		}
		r.Severity = models.Severity(severity)
		result = append(result, r)
	}
	return result, total, rows.Err()
}

// ListAircraft returns distinct aircraft registrations, sorted
func (db *DB) ListAircraft(ctx context.Context) ([]string, error) {
	return db.queryStrings(ctx, "SELECT DISTINCT aircraft_registration FROM defects ORDER BY aircraft_registration")
}

// SearchAircraft returns up to limit registrations containing query
func (db *DB) SearchAircraft(ctx context.Context, query string, limit int) ([]string, error) {
	return db.queryStrings(ctx,
		`SELECT DISTINCT aircraft_registration FROM defects WHERE aircraft_registration LIKE ? ESCAPE '\' ORDER BY aircraft_registration LIMIT ?`,
		containsPattern(query), limit)
}

func (db *DB) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}
	defer rows.Close()
	result := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan aircraft: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// CountBySeverity counts defects grouped by severity
func (db *DB) CountBySeverity(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT severity, COUNT(*) AS count FROM defects GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("failed to count by severity: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		result[severity] = count
	}
	return result, rows.Err()
}

// TopAircraft returns the n aircraft with the most defects
func (db *DB) TopAircraft(ctx context.Context, n int) ([]models.AircraftCount, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT aircraft_registration, COUNT(*) AS defect_count
		FROM defects
		GROUP BY aircraft_registration
		ORDER BY defect_count DESC, aircraft_registration
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to rank aircraft: %w", err)
	}
	defer rows.Close()
	result := []models.AircraftCount{}
	for rows.Next() {
		var ac models.AircraftCount
		if err := rows.Scan(&ac.Aircraft, &ac.DefectCount); err != nil {
			return nil, fmt.Errorf("scan aircraft count: %w", err)
		}
		result = append(result, ac)
	}
	return result, rows.Err()
}

// CountDefects counts all defects
func (db *DB) CountDefects(ctx context.Context) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects")
}

// CountWithSeverity counts defects of one severity
func (db *DB) CountWithSeverity(ctx context.Context, severity models.Severity) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects WHERE severity = ?", string(severity))
}

// CountReportedSince counts defects reported after since
func (db *DB) CountReportedSince(ctx context.Context, since time.Time) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects WHERE datetime(reported_at) > datetime(?)", analytics.FormatUTC(since))
}

// CountDistinctAircraft counts distinct aircraft registrations
func (db *DB) CountDistinctAircraft(ctx context.Context) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(DISTINCT aircraft_registration) FROM defects")
}

func (db *DB) scalar(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to run aggregate %q: %w", query, err)
	}
	return n, nil
}

var _ analytics.CorpusStore = (*DB)(nil)
