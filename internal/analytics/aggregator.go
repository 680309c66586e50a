package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"defectinsight/internal/models"
)

const (
	// DefaultCorpusTopN is the size of the corpus aircraft ranking
	DefaultCorpusTopN = 10
	// DefaultRecentWindow is the look-back of the recent defects count
	DefaultRecentWindow = 7 * day
)

// CorpusStore is the set of aggregate queries a persistent store must answer
// so corpus analytics never materialize records in process. Every method is a
// single bounded aggregate query.
type CorpusStore interface {
	// CountBySeverity counts records grouped by severity label
	CountBySeverity(ctx context.Context) (map[string]int, error)
	// TopAircraft returns the n aircraft with the most records, count descending.
	// Order among equal counts is store defined.
	TopAircraft(ctx context.Context, n int) ([]models.AircraftCount, error)
	// CountDefects counts all records
	CountDefects(ctx context.Context) (int, error)
	// CountWithSeverity counts records with the given severity
	CountWithSeverity(ctx context.Context, severity models.Severity) (int, error)
	// CountReportedSince counts records reported strictly after since
	CountReportedSince(ctx context.Context, since time.Time) (int, error)
	// CountDistinctAircraft counts distinct aircraft registrations
	CountDistinctAircraft(ctx context.Context) (int, error)
}

// Aggregator computes corpus snapshots from a CorpusStore
type Aggregator struct {
	store        CorpusStore
	topN         int
	recentWindow time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// AggregatorConfig tunes an Aggregator. Zero values select the defaults.
type AggregatorConfig struct {
	TopN         int
	RecentWindow time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAggregator creates an Aggregator over store
func NewAggregator(store CorpusStore, cfg AggregatorConfig) *Aggregator {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultCorpusTopN
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Aggregator{
		store:        store,
		topN:         cfg.TopN,
		recentWindow: cfg.RecentWindow,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// Compute runs every aggregate query and assembles a fresh snapshot
func (a *Aggregator) Compute(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	start := a.now()

	severity, err := a.store.CountBySeverity(ctx)
	if err != nil {
		return nil, fmt.Errorf("severity distribution: %w", err)
	}
	top, err := a.store.TopAircraft(ctx, a.topN)
	if err != nil {
		return nil, fmt.Errorf("top aircraft: %w", err)
	}
	total, err := a.store.CountDefects(ctx)
	if err != nil {
		return nil, fmt.Errorf("total defects: %w", err)
	}
	high, err := a.store.CountWithSeverity(ctx, models.SeverityHigh)
	if err != nil {
		return nil, fmt.Errorf("high severity count: %w", err)
	}
	recent, err := a.store.CountReportedSince(ctx, start.UTC().Add(-a.recentWindow))
	if err != nil {
		return nil, fmt.Errorf("recent defects: %w", err)
	}
	unique, err := a.store.CountDistinctAircraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("unique aircraft: %w", err)
	}

	if severity == nil {
		severity = map[string]int{}
	}
	if top == nil {
		top = []models.AircraftCount{}
	}

	a.logger.Debug("corpus snapshot computed",
		slog.String("component", "aggregator"),
		slog.Int("total_defects", total),
		slog.Duration("took", a.now().Sub(start)))

	return &models.AnalyticsSnapshot{
		SeverityDistribution: severity,
		TopAircraft:          top,
		TotalDefects:         total,
		HighSeverityCount:    high,
		RecentDefects7d:      recent,
		TotalUniqueAircraft:  unique,
		ComputedAt:           start.UTC(),
	}, nil
}
