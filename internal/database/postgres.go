package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"defectinsight/internal/analytics"
	"defectinsight/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresConfig holds configuration for the PostgreSQL defect store
type PostgresConfig struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
}

// PostgresDB is a defect store backed by a pgx connection pool
type PostgresDB struct {
	pool   *pgxpool.Pool
	config *PostgresConfig
}

// NewPostgresDB connects to PostgreSQL and applies pending migrations
func NewPostgresDB(ctx context.Context, config *PostgresConfig) (*PostgresDB, error) {
	if config == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = config.MaxConnections
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{pool: pool, config: config}
	if err := db.migrate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Close closes the connection pool
func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// Ping verifies database connectivity
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// migrate applies the embedded migrations through a lib/pq connection
func (db *PostgresDB) migrate() error {
	migrationDB, err := sql.Open("postgres", db.config.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := migratepg.WithInstance(migrationDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// InsertDefects stores records in one transaction, skipping ids that already exist
func (db *PostgresDB) InsertDefects(ctx context.Context, records []models.DefectRecord) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range records {
		reportedAt, ok := analytics.Normalize(r.ReportedAt)
		if !ok {
			return 0, fmt.Errorf("defect %s: unparseable reported_at %q", r.ID, r.ReportedAt)
		}
		batch.Queue(`INSERT INTO defects (id, aircraft_registration, reported_at, defect_type, description, severity)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			r.ID, r.AircraftRegistration, reportedAt, r.DefectType, r.Description, string(r.Severity))
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for _, r := range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert defect %s: %w", r.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// DeleteAllDefects deletes all records from the defects table
func (db *PostgresDB) DeleteAllDefects(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, "DELETE FROM defects"); err != nil {
		return fmt.Errorf("failed to delete all defects: %w", err)
	}
	return nil
}

// ListDefects returns one page of defects, newest first, and the filtered total
func (db *PostgresDB) ListDefects(ctx context.Context, f models.DefectFilter, offset, limit int) ([]models.DefectRecord, int, error) {
	var conditions []string
	var args []any
	if f.AircraftRegistration != "" {
		args = append(args, f.AircraftRegistration)
		conditions = append(conditions, fmt.Sprintf("aircraft_registration = $%d", len(args)))
	}
	if f.Severity != "" {
		args = append(args, string(f.Severity))
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM defects"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count defects: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, aircraft_registration, reported_at, defect_type, description, severity
		FROM defects%s ORDER BY reported_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := db.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list defects: %w", err)
	}
	defer rows.Close()

	result := make([]models.DefectRecord, 0, limit)
	for rows.Next() {
		var r models.DefectRecord
		var reportedAt time.Time
		var severity string
		if err := rows.Scan(&r.ID, &r.AircraftRegistration, &reportedAt, &r.DefectType, &r.Description, &severity); err != nil {
			return nil, 0, fmt.Errorf("scan defect: %w", err)
		}
		r.ReportedAt = analytics.FormatUTC(reportedAt)
		r.Severity = models.Severity(severity)
		result = append(result, r)
	}
	return result, total, rows.Err()
}

// ListAircraft returns distinct aircraft registrations, sorted
func (db *PostgresDB) ListAircraft(ctx context.Context) ([]string, error) {
	return db.queryStrings(ctx, "SELECT DISTINCT aircraft_registration FROM defects ORDER BY aircraft_registration")
}

// SearchAircraft returns up to limit registrations containing query, case-insensitive
func (db *PostgresDB) SearchAircraft(ctx context.Context, query string, limit int) ([]string, error) {
	return db.queryStrings(ctx,
		`SELECT DISTINCT aircraft_registration FROM defects WHERE aircraft_registration ILIKE $1 ESCAPE '\' ORDER BY aircraft_registration LIMIT $2`,
		containsPattern(query), limit)
}

func (db *PostgresDB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list aircraft: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan aircraft: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// CountBySeverity counts defects grouped by severity
func (db *PostgresDB) CountBySeverity(ctx context.Context) (map[string]int, error) {
	rows, err := db.pool.Query(ctx, "SELECT severity, COUNT(*) FROM defects GROUP BY severity")
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
func (db *PostgresDB) TopAircraft(ctx context.Context, n int) ([]models.AircraftCount, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT aircraft_registration, COUNT(*) AS defect_count
		FROM defects
		GROUP BY aircraft_registration
		ORDER BY defect_count DESC, aircraft_registration
		LIMIT $1`, n)
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
func (db *PostgresDB) CountDefects(ctx context.Context) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects")
}

// CountWithSeverity counts defects of one severity
func (db *PostgresDB) CountWithSeverity(ctx context.Context, severity models.Severity) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects WHERE severity = $1", string(severity))
}

// CountReportedSince counts defects reported after since
func (db *PostgresDB) CountReportedSince(ctx context.Context, since time.Time) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(*) FROM defects WHERE reported_at > $1", since.UTC())
}

// CountDistinctAircraft counts distinct aircraft registrations
func (db *PostgresDB) CountDistinctAircraft(ctx context.Context) (int, error) {
	return db.scalar(ctx, "SELECT COUNT(DISTINCT aircraft_registration) FROM defects")
}

func (db *PostgresDB) scalar(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to run aggregate %q: %w", query, err)
	}
	return n, nil
}

var _ analytics.CorpusStore = (*PostgresDB)(nil)
