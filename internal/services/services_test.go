package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defectinsight/internal/analytics"
	"defectinsight/internal/database"
	"defectinsight/internal/models"
)

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeRecorder struct {
	loaded      int
	unparseable int
	kinds       []string
}

func (f *fakeRecorder) RecordLoaded(n int)        { f.loaded += n }
func (f *fakeRecorder) RecordUnparseable()        { f.unparseable++ }
func (f *fakeRecorder) RecordInsight(kind string) { f.kinds = append(f.kinds, kind) }

func newStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "defects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

const sampleDefects = `[
	{"id": "1", "aircraft_registration": "N123A", "reported_at": "2024-06-01T10:00:00Z", "defect_type": "Hydraulic", "description": "leak", "severity": "High"},
	{"id": "2", "aircraft_registration": "N123A", "reported_at": "2024-06-03 10:00:00", "defect_type": "Avionics", "description": "flicker", "severity": "Low"},
	{"id": "3", "aircraft_registration": "G-ABCD", "reported_at": "2024-06-04T12:00:00+02:00", "defect_type": "Engine", "description": "oil", "severity": "Medium"},
	{"id": "4", "aircraft_registration": "G-ABCD", "reported_at": "yesterday", "defect_type": "Engine", "description": "bad time", "severity": "Low"},
	{"id": "5", "aircraft_registration": "G-ABCD", "reported_at": "2024-06-04T12:00:00Z", "defect_type": "Engine", "description": "no severity"},
	{"id": "6", "aircraft_registration": "G-ABCD", "reported_at": "2024-06-04T12:00:00Z", "defect_type": "Engine", "description": "odd", "severity": "Critical"},
	{"aircraft_registration": "G-ABCD", "reported_at": "2024-06-04T12:00:00Z", "severity": "Low"}
]`

func TestLoaderLoadFromReader(t *testing.T) {
	store := newStore(t)
	inv := &countingInvalidator{}
	rec := &fakeRecorder{}
	loader := NewLoader(store, inv, rec, nil)

	res, err := loader.LoadFromReader(context.Background(), strings.NewReader(sampleDefects))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 1, inv.count())
	assert.Equal(t, 3, rec.loaded)

	page, _, err := store.ListDefects(context.Background(), models.DefectFilter{AircraftRegistration: "G-ABCD"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2024-06-04T10:00:00Z", page[0].ReportedAt)
}

func TestLoaderReloadDoesNotInvalidate(t *testing.T) {
	store := newStore(t)
	inv := &countingInvalidator{}
	loader := NewLoader(store, inv, nil, nil)

	_, err := loader.LoadFromReader(context.Background(), strings.NewReader(sampleDefects))
	require.NoError(t, err)
	res, err := loader.LoadFromReader(context.Background(), strings.NewReader(sampleDefects))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, inv.count())
}

func TestLoaderRejectsNonArray(t *testing.T) {
	loader := NewLoader(newStore(t), nil, nil, nil)

	_, err := loader.LoadFromReader(context.Background(), strings.NewReader(`{"id": "1"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInvalidInput)
}

func TestLoaderLoadFromFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(sampleDefects), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.JSON"), []byte(`[
		{"id": "9", "aircraft_registration": "D-EFGH", "reported_at": "2024-06-05", "severity": "Low"}
	]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	loader := NewLoader(newStore(t), nil, nil, nil)
	res, err := loader.LoadFromFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Inserted: 4, Skipped: 4, Files: 2}, res)
}

func TestLoaderMissingFolder(t *testing.T) {
	loader := NewLoader(newStore(t), nil, nil, nil)
	_, err := loader.LoadFromFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestGeneratorRecords(t *testing.T) {
	g := NewGenerator(nil, nil, 42)
	g.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	records, err := g.Records(GenerateOptions{Count: 200, AircraftCount: 5, Days: 10})
	require.NoError(t, err)
	require.Len(t, records, 200)

	fleet := map[string]bool{}
	ids := map[string]bool{}
	earliest := g.now().Add(-10 * 24 * time.Hour)
	for _, r := range records {
		fleet[r.AircraftRegistration] = true
		ids[r.ID] = true

		ts, ok := analytics.Normalize(r.ReportedAt)
		require.True(t, ok, r.ReportedAt)
		assert.False(t, ts.Before(earliest))
		assert.False(t, ts.After(g.now()))
		assert.Contains(t, models.Severities, r.Severity)
		assert.Contains(t, defectCatalog[r.DefectType], r.Description)
	}
	assert.LessOrEqual(t, len(fleet), 5)
	assert.Len(t, ids, 200)
}

func TestGeneratorRecordsInvalidOptions(t *testing.T) {
	g := NewGenerator(nil, nil, 1)
	_, err := g.Records(GenerateOptions{Count: 0, AircraftCount: 5, Days: 10})
	assert.Error(t, err)
	_, err = g.Records(GenerateOptions{Count: 10, AircraftCount: 0, Days: 10})
	assert.Error(t, err)
}

func TestGenerateDummyDataReplace(t *testing.T) {
	store := newStore(t)
	inv := &countingInvalidator{}
	loader := NewLoader(store, inv, nil, nil)
	g := NewGenerator(loader, nil, 7)
	ctx := context.Background()

	res, err := g.GenerateDummyData(ctx, GenerateOptions{Count: 50, AircraftCount: 3, Days: 30})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Inserted)

	res, err = g.GenerateDummyData(ctx, GenerateOptions{Count: 20, AircraftCount: 3, Days: 30, Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Inserted)

	total, err := store.CountDefects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, total)
	assert.Equal(t, 3, inv.count())
}

func TestQueryServiceListDefects(t *testing.T) {
	store := newStore(t)
	loader := NewLoader(store, nil, nil, nil)
	_, err := loader.LoadFromReader(context.Background(), strings.NewReader(sampleDefects))
	require.NoError(t, err)

	q := NewQueryService(store, nil)
	page, err := q.ListDefects(context.Background(), models.DefectFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "3", page.Data[0].ID)
	assert.Equal(t, "2", page.Data[1].ID)

	page, err = q.ListDefects(context.Background(), models.DefectFilter{}, 2, 2)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "1", page.Data[0].ID)

	page, err = q.ListDefects(context.Background(), models.DefectFilter{Severity: models.SeverityHigh}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestQueryServiceRejectsBadPaging(t *testing.T) {
	q := NewQueryService(newStore(t), nil)
	tests := []struct {
		name           string
		page, pageSize int
	}{
		{"zero page", 0, 10},
		{"negative page", -1, 10},
		{"zero size", 1, 0},
		{"oversized", 1, MaxPageSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.ListDefects(context.Background(), models.DefectFilter{}, tt.page, tt.pageSize)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestQueryServiceAircraft(t *testing.T) {
	store := newStore(t)
	loader := NewLoader(store, nil, nil, nil)
	_, err := loader.LoadFromReader(context.Background(), strings.NewReader(sampleDefects))
	require.NoError(t, err)
	q := NewQueryService(store, nil)

	all, err := q.ListAircraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"G-ABCD", "N123A"}, all)

	found, err := q.SearchAircraft(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"N123A"}, found)

	_, err = q.SearchAircraft(context.Background(), " N ")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestInsightService(t *testing.T) {
	rec := &fakeRecorder{}
	svc := NewInsightService(nil, rec, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	records := []models.DefectRecord{
		{ID: "1", AircraftRegistration: "N123A", ReportedAt: "2024-06-10T08:00:00Z", Severity: models.SeverityHigh},
		{ID: "2", AircraftRegistration: "N123A", ReportedAt: "2024-06-12T08:00:00Z", Severity: models.SeverityLow},
		{ID: "3", AircraftRegistration: "G-ABCD", ReportedAt: "not a time", Severity: models.SeverityLow},
	}

	res := svc.Insights(records)
	assert.Equal(t, 3, res.TotalDefects)
	assert.Equal(t, 3, res.DateRangeDays)
	assert.Equal(t, 0.67, res.DailyDefectRate)

	assert.Equal(t, 2.0, svc.MTBF(records, "N123A"))
	assert.Equal(t, []models.TrendBucket{{Date: "2024-06-10", Count: 1}, {Date: "2024-06-12", Count: 1}}, svc.Trends(records, 7))

	report := svc.Report(records, 1, 30)
	require.Len(t, report.TopAircraft, 1)
	assert.Equal(t, "N123A", report.TopAircraft[0].Aircraft)

	assert.Equal(t, []string{"insights", "mtbf", "trends", "report"}, rec.kinds)
	assert.Positive(t, rec.unparseable)
}

func TestInsightServiceEmpty(t *testing.T) {
	svc := NewInsightService(nil, nil, nil)
	assert.Equal(t, models.InsightResult{}, svc.Insights(nil))
}

func TestInsightServiceWithoutCache(t *testing.T) {
	svc := NewInsightService(nil, nil, nil)

	_, err := svc.FullAnalytics(context.Background())
	assert.Error(t, err)
	_, ok := svc.SnapshotAge()
	assert.False(t, ok)
}

func TestInsightServiceFullAnalyticsUsesCache(t *testing.T) {
	calls := 0
	cache := analytics.NewSnapshotCache(func(ctx context.Context) (*models.AnalyticsSnapshot, error) {
		calls++
		return &models.AnalyticsSnapshot{TotalDefects: calls}, nil
	}, time.Minute)
	svc := NewInsightService(cache, nil, nil)

	first, err := svc.FullAnalytics(context.Background())
	require.NoError(t, err)
	second, err := svc.FullAnalytics(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	_, ok := svc.SnapshotAge()
	assert.True(t, ok)
}

func TestParseImportMode(t *testing.T) {
	mode, err := ParseImportMode("")
	require.NoError(t, err)
	assert.Equal(t, ImportModeAppend, mode)

	mode, err = ParseImportMode(" Replace ")
	require.NoError(t, err)
	assert.Equal(t, ImportModeReplace, mode)

	_, err = ParseImportMode("override")
	assert.ErrorIs(t, err, analytics.ErrInvalidInput)
}

func TestUploadServiceCSV(t *testing.T) {
	store := newStore(t)
	inv := &countingInvalidator{}
	svc := NewUploadService(NewLoader(store, inv, nil, nil), nil)

	csvBody := "ID,Aircraft_Registration,Reported_At,Severity,Notes\n" +
		"c1,N5,2024-02-01T00:00:00Z,High,extra column\n" +
		"c2,N5,2024-02-03,Low\n" +
		"c3,N5,,Low\n"
	res, err := svc.Import(context.Background(), strings.NewReader(csvBody), "defects.CSV", ImportModeAppend)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Inserted: 2, Skipped: 1, Files: 1}, res)

	page, _, err := store.ListDefects(context.Background(), models.DefectFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2024-02-03T00:00:00Z", page[0].ReportedAt)
}

func TestUploadServiceReplace(t *testing.T) {
	store := newStore(t)
	inv := &countingInvalidator{}
	svc := NewUploadService(NewLoader(store, inv, nil, nil), nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(sampleDefects), "a.json", ImportModeAppend)
	require.NoError(t, err)

	res, err := svc.Import(ctx, strings.NewReader(`[
		{"id": "x", "aircraft_registration": "N9", "reported_at": "2024-06-01", "severity": "Low"}
	]`), "b.json", ImportModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	total, err := store.CountDefects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 3, inv.count())
}

func TestUploadServiceRejectsBadInput(t *testing.T) {
	svc := NewUploadService(NewLoader(newStore(t), nil, nil, nil), nil)
	for name, tc := range map[string]struct{ file, body string }{
		"json object":     {"a.json", `{"id": "1"}`},
		"json null":       {"a.json", `null`},
		"csv no header":   {"a.csv", ""},
		"csv missing col": {"a.csv", "id,severity\n1,Low\n"},
		"csv bad quoting": {"a.csv", "id,aircraft_registration,reported_at\n\"1,N1,2024-01-01\n"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), strings.NewReader(tc.body), tc.file, ImportModeAppend)
			assert.ErrorIs(t, err, analytics.ErrInvalidInput)
		})
	}
}
