package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"defectinsight/internal/analytics"
	"defectinsight/internal/models"
)

// Store is the full defect store used by services: record access plus the corpus aggregates
type Store interface {
	analytics.CorpusStore

	InsertDefects(ctx context.Context, records []models.DefectRecord) (int, error)
	DeleteAllDefects(ctx context.Context) error
	ListDefects(ctx context.Context, f models.DefectFilter, offset, limit int) ([]models.DefectRecord, int, error)
	ListAircraft(ctx context.Context) ([]string, error)
	SearchAircraft(ctx context.Context, query string, limit int) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// likeEscaper escapes LIKE wildcards so a search query matches literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching values that contain query, for use with ESCAPE '\'
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open creates the store for driver. dsn is a file path for sqlite3 and a
// connection string for postgres.
func Open(ctx context.Context, driver, dsn string, maxConns int32, connectTimeout time.Duration) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewDB(dsn)
	case DriverPostgres:
		return NewPostgresDB(ctx, &PostgresConfig{
			ConnectionString: dsn,
			MaxConnections:   maxConns,
			ConnectTimeout:   connectTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*PostgresDB)(nil)
)
