package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"defectinsight/internal/database"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
)

const (
	DefaultPageSize  = 50
	MaxPageSize      = 100
	MinSearchLength  = 2
	MaxSearchResults = 50
)

// ErrInvalidQuery is returned for out of range paging or search parameters
var ErrInvalidQuery = errors.New("invalid query")

// QueryService handles querying defect records from the store
type QueryService struct {
	store  database.Store
	logger *slog.Logger
}

// NewQueryService creates a new QueryService instance
func NewQueryService(store database.Store, logger *slog.Logger) *QueryService {
	return &QueryService{store: store, logger: logging.Component(logger, "query")}
}

// ListDefects returns one page of defects, newest first. page starts at 1 and
// pageSize must lie in [1, MaxPageSize].
func (q *QueryService) ListDefects(ctx context.Context, f models.DefectFilter, page, pageSize int) (*models.DefectPage, error) {
	queryStartTime := time.Now()

	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidQuery, MaxPageSize)
	}

	offset := (page - 1) * pageSize
	data, total, err := q.store.ListDefects(ctx, f, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query defects: %w", err)
	}

	q.logger.Debug("query completed",
		slog.String("aircraft", f.AircraftRegistration),
		slog.String("severity", string(f.Severity)),
		slog.Int("page", page),
		slog.Int("records", len(data)),
		slog.Duration("took", time.Since(queryStartTime).Round(time.Millisecond)))

	return &models.DefectPage{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  offset+pageSize < total,
	}, nil
}

// ListAircraft returns every distinct aircraft registration
func (q *QueryService) ListAircraft(ctx context.Context) ([]string, error) {
	return q.store.ListAircraft(ctx)
}

// SearchAircraft returns registrations containing query
func (q *QueryService) SearchAircraft(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil, fmt.Errorf("%w: search query must be at least %d characters", ErrInvalidQuery, MinSearchLength)
	}
	return q.store.SearchAircraft(ctx, query, MaxSearchResults)
}
