package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"defectinsight/internal/analytics"
	"defectinsight/internal/database"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
)

// Invalidator is told when the stored corpus changes
type Invalidator interface {
	Invalidate()
}

// LoadRecorder counts records written to the store
type LoadRecorder interface {
	RecordLoaded(n int)
}

// LoadResult summarizes one load
type LoadResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Files    int `json:"files,omitempty"`
}

// Loader handles loading defect records from JSON files into the store
type Loader struct {
	store    database.Store
	cache    Invalidator
	recorder LoadRecorder
	logger   *slog.Logger
}

// NewLoader creates a new Loader instance. cache and recorder may be nil.
func NewLoader(store database.Store, cache Invalidator, recorder LoadRecorder, logger *slog.Logger) *Loader {
	return &Loader{
		store:    store,
		cache:    cache,
		recorder: recorder,
		logger:   logging.Component(logger, "loader"),
	}
}

// LoadFromFile loads a JSON array of defects from a file into the store
func (l *Loader) LoadFromFile(ctx context.Context, filePath string) (LoadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return l.LoadFromReader(ctx, file)
}

// LoadFromFolder loads all JSON files from a folder into the store
func (l *Loader) LoadFromFolder(ctx context.Context, folderPath string) (LoadResult, error) {
	startTime := time.Now()

	l.logger.Info("loading data from folder", slog.String("folder", folderPath))

	files, err := os.ReadDir(folderPath)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read folder: %w", err)
	}

	var total LoadResult
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}

		fileStartTime := time.Now()
		res, err := l.LoadFromFile(ctx, filepath.Join(folderPath, file.Name()))
		if err != nil {
			return LoadResult{}, fmt.Errorf("failed to load file %s: %w", file.Name(), err)
		}

		l.logger.Info("completed file",
			slog.String("file", file.Name()),
			slog.Int("inserted", res.Inserted),
			slog.Int("skipped", res.Skipped),
			slog.Duration("took", time.Since(fileStartTime).Round(time.Millisecond)))

		total.Inserted += res.Inserted
		total.Skipped += res.Skipped
		total.Files++
	}

	l.logger.Info("load completed",
		slog.Int("inserted", total.Inserted),
		slog.Int("files", total.Files),
		slog.Duration("took", time.Since(startTime).Round(time.Millisecond)))

	return total, nil
}

// LoadFromReader loads a JSON array of defects from reader into the store.
// Timestamps are normalized to UTC RFC3339. Stored records need an id, an
// aircraft registration, a parseable timestamp and a severity; others are skipped.
func (l *Loader) LoadFromReader(ctx context.Context, reader io.Reader) (LoadResult, error) {
	records, skipped, err := analytics.DecodeRecords(reader)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to decode defects: %w", err)
	}
	return l.Store(ctx, records, skipped)
}

// Clear deletes every stored defect and drops the cached snapshot
func (l *Loader) Clear(ctx context.Context) error {
	if err := l.store.DeleteAllDefects(ctx); err != nil {
		return fmt.Errorf("failed to delete existing defects: %w", err)
	}
	if l.cache != nil {
		l.cache.Invalidate()
	}
	l.logger.Info("cleared stored defects")
	return nil
}

// Store writes already decoded records, see LoadFromReader
func (l *Loader) Store(ctx context.Context, records []models.DefectRecord, skipped int) (LoadResult, error) {
	clean := make([]models.DefectRecord, 0, len(records))
	for _, r := range records {
		ts, ok := analytics.Normalize(r.ReportedAt)
		if !ok || r.ID == "" || r.AircraftRegistration == "" || r.Severity == "" {
			l.logger.Warn("skipping incomplete defect",
				slog.String("id", r.ID),
				slog.String("aircraft", r.AircraftRegistration),
				slog.String("reported_at", r.ReportedAt),
				slog.String("severity", string(r.Severity)))
			skipped++
			continue
		}
		r.ReportedAt = analytics.FormatUTC(ts)
		clean = append(clean, r)
	}

	inserted, err := l.store.InsertDefects(ctx, clean)
	if err != nil {
		return LoadResult{}, err
	}
	if inserted > 0 {
		if l.cache != nil {
			l.cache.Invalidate()
		}
		if l.recorder != nil {
			l.recorder.RecordLoaded(inserted)
		}
	}

	return LoadResult{Inserted: inserted, Skipped: skipped}, nil
}
