package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
)

// ImportMode is append (keep stored defects) or replace (delete them first).
type ImportMode string

const (
	ImportModeAppend  ImportMode = "append"
	ImportModeReplace ImportMode = "replace"
)

// ParseImportMode maps a form value to an ImportMode
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.TrimSpace(strings.ToLower(s))) {
	case ImportModeAppend, "":
		return ImportModeAppend, nil
	case ImportModeReplace:
		return ImportModeReplace, nil
	default:
		return "", fmt.Errorf("%w: invalid mode %q (must be append or replace)", analytics.ErrInvalidInput, s)
	}
}

// csvColumns are the recognized CSV header names
var csvColumns = map[string]bool{
	"id":                    true,
	"aircraft_registration": true,
	"reported_at":           true,
	"defect_type":           true,
	"description":           true,
	"severity":              true,
}

// UploadService imports uploaded defect files through the Loader.
type UploadService struct {
	loader *Loader
	logger *slog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(loader *Loader, logger *slog.Logger) *UploadService {
	return &UploadService{loader: loader, logger: logging.Component(logger, "upload")}
}

// Import reads a JSON array or a CSV file of defects, chosen by filename
// extension, and stores it per mode.
func (u *UploadService) Import(ctx context.Context, reader io.Reader, filename string, mode ImportMode) (LoadResult, error) {
	var (
		raw []json.RawMessage
		err error
	)
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		raw, err = csvToRaw(reader)
	} else {
		err = json.NewDecoder(reader).Decode(&raw)
		if err != nil {
			err = fmt.Errorf("%w: expected a JSON array of defects: %v", analytics.ErrInvalidInput, err)
		}
	}
	if err != nil {
		return LoadResult{}, err
	}

	records, skipped, err := analytics.FromRaw(raw)
	if err != nil {
		return LoadResult{}, err
	}

	if mode == ImportModeReplace {
		if err := u.loader.Clear(ctx); err != nil {
			return LoadResult{}, err
		}
	}

	res, err := u.loader.Store(ctx, records, skipped)
	if err != nil {
		return LoadResult{}, err
	}
	res.Files = 1

	u.logger.Info("import completed",
		slog.String("file", filename),
		slog.String("mode", string(mode)),
		slog.Int("inserted", res.Inserted),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

// csvToRaw converts CSV rows to JSON objects keyed by the header so they pass
// through the same validation as JSON input. Unknown columns are ignored and
// empty cells are treated as missing.
func csvToRaw(reader io.Reader) ([]json.RawMessage, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", analytics.ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: CSV is empty", analytics.ErrInvalidInput)
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(strings.ToLower(name))
	}
	for _, required := range []string{"id", "aircraft_registration", "reported_at"} {
		found := false
		for _, name := range header {
			if name == required {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: CSV header is missing column %q", analytics.ErrInvalidInput, required)
		}
	}

	raw := make([]json.RawMessage, 0, len(rows)-1)
	for _, row := range rows[1:] {
		obj := make(map[string]string, len(header))
		for i, cell := range row {
			if i >= len(header) || !csvColumns[header[i]] {
				continue
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				obj[header[i]] = cell
			}
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return raw, nil
}
