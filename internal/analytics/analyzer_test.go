package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defectinsight/internal/models"
)

func defect(id, aircraft, reportedAt string, severity models.Severity) models.DefectRecord {
	return models.DefectRecord{
		ID:                   id,
		AircraftRegistration: aircraft,
		ReportedAt:           reportedAt,
		DefectType:           "Hydraulic",
		Description:          "leak at actuator",
		Severity:             severity,
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordUnparseable() { c.n++ }

func TestAnalyzerScenario(t *testing.T) {
	a := NewAnalyzer([]models.DefectRecord{
		defect("1", "N123A", "2024-01-01T00:00:00Z", models.SeverityHigh),
		defect("2", "N123A", "2024-01-03T00:00:00Z", models.SeverityLow),
	})

	assert.Equal(t, map[string]int{"High": 1, "Low": 1}, a.SeverityDistribution())
	assert.Equal(t, 0.67, a.DailyDefectRate())
	assert.Equal(t, 2.0, a.MTBF("N123A"))
	assert.Equal(t, models.InsightResult{DailyDefectRate: 0.67, TotalDefects: 2, DateRangeDays: 3}, a.Insights())
}

func TestSeverityDistributionSkipsMissingSeverity(t *testing.T) {
	records := []models.DefectRecord{
		defect("1", "N1", "2024-01-01", models.SeverityHigh),
		defect("2", "N1", "2024-01-01", models.SeverityHigh),
		defect("3", "N2", "2024-01-02", models.SeverityMedium),
		defect("4", "N2", "2024-01-02", ""),
	}
	dist := NewAnalyzer(records).SeverityDistribution()

	assert.Equal(t, map[string]int{"High": 2, "Medium": 1}, dist)
	sum := 0
	for _, n := range dist {
		sum += n
	}
	assert.Equal(t, 3, sum)
}

func TestTopProblematicAircraft(t *testing.T) {
	records := []models.DefectRecord{
		defect("1", "N3", "2024-01-01", models.SeverityLow),
		defect("2", "N1", "2024-01-01", models.SeverityLow),
		defect("3", "N2", "2024-01-01", models.SeverityLow),
		defect("4", "N1", "2024-01-01", models.SeverityLow),
		defect("5", "N2", "2024-01-01", models.SeverityLow),
		defect("6", "N1", "2024-01-01", models.SeverityLow),
		defect("7", "N4", "2024-01-01", models.SeverityLow),
		defect("8", "", "2024-01-01", models.SeverityLow),
	}
	a := NewAnalyzer(records)

	t.Run("limit", func(t *testing.T) {
		got := a.TopProblematicAircraft(2)
		assert.Equal(t, []models.AircraftCount{
			{Aircraft: "N1", DefectCount: 3},
			{Aircraft: "N2", DefectCount: 2},
		}, got)
	})

	t.Run("ties keep first seen order", func(t *testing.T) {
		got := a.TopProblematicAircraft(10)
		require.Len(t, got, 4)
		assert.Equal(t, "N3", got[2].Aircraft)
		assert.Equal(t, "N4", got[3].Aircraft)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].DefectCount, got[i].DefectCount)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		var many []models.DefectRecord
		for _, reg := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			many = append(many, defect(reg, reg, "2024-01-01", models.SeverityLow))
		}
		assert.Len(t, NewAnalyzer(many).TopProblematicAircraft(0), DefaultTopLimit)
	})

	t.Run("empty", func(t *testing.T) {
		got := NewAnalyzer(nil).TopProblematicAircraft(5)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestDailyDefectRate(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.Equal(t, 0.0, NewAnalyzer(nil).DailyDefectRate())
	})

	t.Run("single calendar day", func(t *testing.T) {
		a := NewAnalyzer([]models.DefectRecord{
			defect("1", "N1", "2024-05-01T01:00:00Z", models.SeverityLow),
			defect("2", "N2", "2024-05-01T09:30:00Z", models.SeverityLow),
			defect("3", "N1", "2024-05-01 23:59:59", models.SeverityLow),
		})
		assert.Equal(t, 3.0, a.DailyDefectRate())
	})

	t.Run("unparseable excluded", func(t *testing.T) {
		rec := &countingRecorder{}
		a := NewAnalyzer([]models.DefectRecord{
			defect("1", "N1", "2024-05-01", models.SeverityLow),
			defect("2", "N1", "2024-05-04", models.SeverityLow),
			defect("3", "N1", "garbage", models.SeverityLow),
		}, WithUnparseableRecorder(rec))
		assert.Equal(t, 0.5, a.DailyDefectRate())
		assert.Equal(t, 1, rec.n)
	})

	t.Run("exact half rounds to even", func(t *testing.T) {
		// 5 reports over an 8 day span is 0.625
		a := NewAnalyzer([]models.DefectRecord{
			defect("1", "N1", "2024-05-01", models.SeverityLow),
			defect("2", "N1", "2024-05-02", models.SeverityLow),
			defect("3", "N1", "2024-05-03", models.SeverityLow),
			defect("4", "N1", "2024-05-04", models.SeverityLow),
			defect("5", "N1", "2024-05-08", models.SeverityLow),
		})
		assert.Equal(t, 0.62, a.DailyDefectRate())
	})

	t.Run("all unparseable", func(t *testing.T) {
		a := NewAnalyzer([]models.DefectRecord{
			defect("1", "N1", "soon", models.SeverityLow),
			defect("2", "N1", "", models.SeverityLow),
		})
		assert.Equal(t, 0.0, a.DailyDefectRate())
		assert.Equal(t, models.InsightResult{TotalDefects: 2}, a.Insights())
	})
}

func TestMTBF(t *testing.T) {
	tests := []struct {
		name    string
		records []models.DefectRecord
		want    float64
	}{
		{
			name:    "single record",
			records: []models.DefectRecord{defect("1", "N1", "2024-01-01", models.SeverityLow)},
			want:    0.0,
		},
		{
			name: "one day apart",
			records: []models.DefectRecord{
				defect("1", "N1", "2024-01-01T08:00:00Z", models.SeverityLow),
				defect("2", "N1", "2024-01-02T08:00:00Z", models.SeverityLow),
			},
			want: 1.0,
		},
		{
			name: "unsorted input with same day repeat",
			records: []models.DefectRecord{
				defect("1", "N1", "2024-01-10", models.SeverityLow),
				defect("2", "N1", "2024-01-01", models.SeverityLow),
				defect("3", "N1", "2024-01-01T10:00:00Z", models.SeverityLow),
				defect("4", "N1", "2024-01-05", models.SeverityLow),
				defect("5", "N2", "2024-01-02", models.SeverityLow),
			},
			want: 4.0,
		},
		{
			name: "rounded to one decimal",
			records: []models.DefectRecord{
				defect("1", "N1", "2024-01-01", models.SeverityLow),
				defect("2", "N1", "2024-01-02", models.SeverityLow),
				defect("3", "N1", "2024-01-04", models.SeverityLow),
				defect("4", "N1", "2024-01-05", models.SeverityLow),
			},
			want: 1.3,
		},
		{
			name: "exact half rounds to even",
			records: []models.DefectRecord{
				defect("1", "N1", "2024-01-01", models.SeverityLow),
				defect("2", "N1", "2024-01-02", models.SeverityLow),
				defect("3", "N1", "2024-01-03", models.SeverityLow),
				defect("4", "N1", "2024-01-04", models.SeverityLow),
				defect("5", "N1", "2024-01-06", models.SeverityLow),
			},
			want: 1.2,
		},
		{
			name: "only same day repeats",
			records: []models.DefectRecord{
				defect("1", "N1", "2024-01-01T01:00:00Z", models.SeverityLow),
				defect("2", "N1", "2024-01-01T05:00:00Z", models.SeverityLow),
			},
			want: 0.0,
		},
		{
			name: "unknown aircraft",
			records: []models.DefectRecord{
				defect("1", "N2", "2024-01-01", models.SeverityLow),
				defect("2", "N2", "2024-01-03", models.SeverityLow),
			},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAnalyzer(tt.records).MTBF("N1"))
		})
	}
}

func TestMTBFEmptyRegistration(t *testing.T) {
	records := []models.DefectRecord{
		defect("1", "", "2024-01-01", models.SeverityLow),
		defect("2", "", "2024-01-03", models.SeverityLow),
	}
	assert.Equal(t, 0.0, NewAnalyzer(records).MTBF(""))
}

func TestDefectTrends(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	records := []models.DefectRecord{
		defect("1", "N1", now.Add(-8*24*time.Hour).Format(time.RFC3339), models.SeverityLow),
		defect("2", "N1", now.Add(-6*24*time.Hour).Format(time.RFC3339), models.SeverityLow),
		defect("3", "N2", "2024-06-09 18:00:00", models.SeverityHigh),
		defect("4", "N2", "2024-06-15T01:00:00+02:00", models.SeverityHigh),
		defect("5", "N3", "not a timestamp", models.SeverityHigh),
	}
	a := NewAnalyzer(records, WithClock(func() time.Time { return now }))

	got := a.DefectTrends(7)
	assert.Equal(t, []models.TrendBucket{
		{Date: "2024-06-09", Count: 2},
		{Date: "2024-06-14", Count: 1},
	}, got)

	all := a.DefectTrends(0)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-06-07", all[0].Date)
}

func TestDefectTrendsWindowStartIsInclusive(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * 24 * time.Hour)
	a := NewAnalyzer([]models.DefectRecord{
		defect("1", "N1", cutoff.Format(time.RFC3339), models.SeverityLow),
		defect("2", "N1", cutoff.Add(-time.Second).Format(time.RFC3339), models.SeverityLow),
	}, WithClock(func() time.Time { return now }))

	assert.Equal(t, []models.TrendBucket{{Date: "2024-06-08", Count: 1}}, a.DefectTrends(7))
}

func TestReport(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	a := NewAnalyzer([]models.DefectRecord{
		defect("1", "N123A", "2024-01-01T00:00:00Z", models.SeverityHigh),
		defect("2", "N123A", "2024-01-03T00:00:00Z", models.SeverityLow),
		defect("3", "N9", "2024-01-03T00:00:00Z", models.SeverityMedium),
	}, WithClock(func() time.Time { return now }))

	report := a.Report(5, 30)
	assert.Equal(t, 3, report.Insights.TotalDefects)
	assert.Equal(t, 1.0, report.Insights.DailyDefectRate)
	require.Len(t, report.TopAircraft, 2)
	assert.Equal(t, []models.AircraftMTBF{
		{Aircraft: "N123A", MTBFDays: 2.0},
		{Aircraft: "N9", MTBFDays: 0.0},
	}, report.MTBF)
	assert.Len(t, report.Trends, 2)
}

func TestReportCountsEachUnparseableTimestampOnce(t *testing.T) {
	rec := &countingRecorder{}
	a := NewAnalyzer([]models.DefectRecord{
		defect("1", "N1", "2024-01-01", models.SeverityLow),
		defect("2", "N1", "2024-01-03", models.SeverityLow),
		defect("3", "N1", "garbage", models.SeverityHigh),
		defect("4", "N2", "2024-01-02", models.SeverityLow),
	}, WithUnparseableRecorder(rec), WithClock(func() time.Time {
		return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	}))

	report := a.Report(5, 30)
	assert.Equal(t, 1, rec.n)
	assert.Equal(t, 4, report.Insights.TotalDefects)
	assert.Equal(t, []models.AircraftMTBF{
		{Aircraft: "N1", MTBFDays: 2.0},
		{Aircraft: "N2", MTBFDays: 0.0},
	}, report.MTBF)

	a.MTBF("N1")
	a.DailyDefectRate()
	assert.Equal(t, 1, rec.n)
}
