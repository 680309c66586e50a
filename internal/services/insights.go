package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
)

// InsightRecorder counts record-set analyses
type InsightRecorder interface {
	analytics.UnparseableRecorder
	RecordInsight(kind string)
}

// InsightService runs the record-set analyzer and serves the cached corpus snapshot
type InsightService struct {
	cache    *analytics.SnapshotCache
	recorder InsightRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewInsightService creates a new InsightService. recorder may be nil, and so
// may cache when only record-set analyses are needed.
func NewInsightService(cache *analytics.SnapshotCache, recorder InsightRecorder, logger *slog.Logger) *InsightService {
	return &InsightService{
		cache:    cache,
		recorder: recorder,
		logger:   logging.Component(logger, "insights"),
		now:      time.Now,
	}
}

func (s *InsightService) analyzer(records []models.DefectRecord, kind string) *analytics.Analyzer {
	opts := []analytics.AnalyzerOption{
		analytics.WithClock(s.now),
		analytics.WithLogger(s.logger),
	}
	if s.recorder != nil {
		s.recorder.RecordInsight(kind)
		opts = append(opts, analytics.WithUnparseableRecorder(s.recorder))
	}
	return analytics.NewAnalyzer(records, opts...)
}

// Insights computes the headline record-set result
func (s *InsightService) Insights(records []models.DefectRecord) models.InsightResult {
	return s.analyzer(records, "insights").Insights()
}

// Report computes every record-set metric
func (s *InsightService) Report(records []models.DefectRecord, limit, days int) models.InsightReport {
	return s.analyzer(records, "report").Report(limit, days)
}

// MTBF computes the mean days between reports for one aircraft
func (s *InsightService) MTBF(records []models.DefectRecord, registration string) float64 {
	return s.analyzer(records, "mtbf").MTBF(registration)
}

// Trends computes per-day counts over the last days days
func (s *InsightService) Trends(records []models.DefectRecord, days int) []models.TrendBucket {
	return s.analyzer(records, "trends").DefectTrends(days)
}

// FullAnalytics returns the corpus snapshot through the cache
func (s *InsightService) FullAnalytics(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	if s.cache == nil {
		return nil, errors.New("no snapshot cache configured")
	}
	return s.cache.Get(ctx)
}

// SnapshotAge reports how old the cached corpus snapshot is, false when none is cached
func (s *InsightService) SnapshotAge() (time.Duration, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Age()
}
