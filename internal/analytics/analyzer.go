// Package analytics computes defect insights, either over a caller supplied
// record set (Analyzer) or over the whole corpus inside a store (Aggregator),
// the latter served through a short lived single slot cache (SnapshotCache).
package analytics

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"defectinsight/internal/models"
)

const (
	// DefaultTopLimit is the ranking size used when the caller passes no limit
	DefaultTopLimit = 5
	// DefaultTrendDays is the trend window used when the caller passes no window
	DefaultTrendDays = 30

	day = 24 * time.Hour
)

// UnparseableRecorder is notified whenever a timestamp cannot be normalized
type UnparseableRecorder interface {
	RecordUnparseable()
}

// Analyzer computes metrics over a fixed, caller supplied set of defect records.
// It never mutates its input. Timestamps are normalized once, on first use, so a
// bad timestamp is reported once however many metrics are computed.
type Analyzer struct {
	records  []models.DefectRecord
	now      func() time.Time
	logger   *slog.Logger
	recorder UnparseableRecorder

	parseOnce sync.Once
	parsed    []parsedTime
}

// parsedTime is the normalized timestamp of records[i]
type parsedTime struct {
	t  time.Time
	ok bool
}

// AnalyzerOption customizes an Analyzer
type AnalyzerOption func(*Analyzer)

// WithClock overrides the wall clock used by DefectTrends
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// WithLogger sets the logger used for data quality warnings
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = logger }
}

// WithUnparseableRecorder reports unparseable timestamps to r
func WithUnparseableRecorder(r UnparseableRecorder) AnalyzerOption {
	return func(a *Analyzer) { a.recorder = r }
}

// NewAnalyzer creates an Analyzer over records
func NewAnalyzer(records []models.DefectRecord, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		records: records,
		now:     time.Now,
		logger:  slog.Default().With(slog.String("component", "analyzer")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SeverityDistribution counts records per severity. Records without a severity are skipped.
func (a *Analyzer) SeverityDistribution() map[string]int {
	counts := make(map[string]int)
	for _, r := range a.records {
		if r.Severity == "" {
			continue
		}
		counts[string(r.Severity)]++
	}
	return counts
}

// TopProblematicAircraft ranks aircraft by report count, highest first.
// Equal counts keep the order in which the aircraft were first seen.
func (a *Analyzer) TopProblematicAircraft(limit int) []models.AircraftCount {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	index := make(map[string]int)
	var ranking []models.AircraftCount
	for _, r := range a.records {
		if r.AircraftRegistration == "" {
			continue
		}
		i, ok := index[r.AircraftRegistration]
		if !ok {
			i = len(ranking)
			index[r.AircraftRegistration] = i
			ranking = append(ranking, models.AircraftCount{Aircraft: r.AircraftRegistration})
		}
		ranking[i].DefectCount++
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].DefectCount > ranking[j].DefectCount
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	if ranking == nil {
		ranking = []models.AircraftCount{}
	}
	return ranking
}

// DailyDefectRate returns the mean number of reports per day over the inclusive
// date range of the parseable timestamps, rounded to two decimals.
func (a *Analyzer) DailyDefectRate() float64 {
	return dailyRate(a.timesWhere(nil))
}

// MTBF returns the mean number of whole days between consecutive reports for
// one aircraft, rounded to one decimal. Same day repeats are not intervals.
func (a *Analyzer) MTBF(registration string) float64 {
	if registration == "" {
		return 0.0
	}
	times := a.timesWhere(func(r models.DefectRecord) bool {
		return r.AircraftRegistration == registration
	})
	if len(times) < 2 {
		return 0.0
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var total, gaps int
	for i := 1; i < len(times); i++ {
		gap := wholeDays(times[i].Sub(times[i-1]))
		if gap <= 0 {
			continue
		}
		total += gap
		gaps++
	}
	if gaps == 0 {
		return 0.0
	}
	return round(float64(total)/float64(gaps), 1)
}

// DefectTrends counts reports per UTC calendar day for the last days days,
// ascending by date.
func (a *Analyzer) DefectTrends(days int) []models.TrendBucket {
	if days <= 0 {
		days = DefaultTrendDays
	}
	cutoff := a.now().UTC().Add(-time.Duration(days) * day)

	counts := make(map[string]int)
	for _, p := range a.times() {
		if !p.ok || p.t.Before(cutoff) {
			continue
		}
		counts[p.t.Format(time.DateOnly)]++
	}

	buckets := make([]models.TrendBucket, 0, len(counts))
	for date, n := range counts {
		buckets = append(buckets, models.TrendBucket{Date: date, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets
}

// Insights returns the headline record-set result
func (a *Analyzer) Insights() models.InsightResult {
	if len(a.records) == 0 {
		return models.InsightResult{}
	}

	times := a.timesWhere(nil)
	result := models.InsightResult{
		DailyDefectRate: dailyRate(times),
		TotalDefects:    len(a.records),
	}
	if len(times) > 0 {
		result.DateRangeDays = spanDays(times)
	}
	return result
}

// Report computes every record-set metric at once. MTBF is reported for each
// aircraft in the ranking.
func (a *Analyzer) Report(limit, days int) models.InsightReport {
	top := a.TopProblematicAircraft(limit)
	mtbf := make([]models.AircraftMTBF, 0, len(top))
	for _, ac := range top {
		mtbf = append(mtbf, models.AircraftMTBF{Aircraft: ac.Aircraft, MTBFDays: a.MTBF(ac.Aircraft)})
	}
	return models.InsightReport{
		Insights:             a.Insights(),
		SeverityDistribution: a.SeverityDistribution(),
		TopAircraft:          top,
		Trends:               a.DefectTrends(days),
		MTBF:                 mtbf,
	}
}

// times normalizes every record timestamp on first call
func (a *Analyzer) times() []parsedTime {
	a.parseOnce.Do(func() {
		a.parsed = make([]parsedTime, len(a.records))
		for i, r := range a.records {
			t, ok := Normalize(r.ReportedAt)
			a.parsed[i] = parsedTime{t: t, ok: ok}
			if ok {
				continue
			}
			a.logger.Warn("unparseable timestamp",
				slog.String("id", r.ID),
				slog.String("reported_at", r.ReportedAt))
			if a.recorder != nil {
				a.recorder.RecordUnparseable()
			}
		}
	})
	return a.parsed
}

// timesWhere returns the parseable timestamps of the records keep accepts, all when keep is nil
func (a *Analyzer) timesWhere(keep func(models.DefectRecord) bool) []time.Time {
	parsed := a.times()
	times := make([]time.Time, 0, len(parsed))
	for i, p := range parsed {
		if !p.ok || (keep != nil && !keep(a.records[i])) {
			continue
		}
		times = append(times, p.t)
	}
	return times
}

func dailyRate(times []time.Time) float64 {
	if len(times) == 0 {
		return 0.0
	}
	span := spanDays(times)
	if span <= 0 {
		return float64(len(times))
	}
	return round(float64(len(times))/float64(span), 2)
}

// spanDays is the inclusive number of days between the earliest and latest time
func spanDays(times []time.Time) int {
	lo, hi := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return wholeDays(hi.Sub(lo)) + 1
}

// wholeDays floors a duration to whole days
func wholeDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}

// round rounds half to even
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
