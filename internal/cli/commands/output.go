package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
	"defectinsight/internal/services"
)

// insightService runs record-set analyses, warning about bad data on stderr
func insightService(stderr io.Writer) *services.InsightService {
	return services.NewInsightService(nil, nil, logging.New(stderr, "text", slog.LevelWarn))
}

// write renders v to w as json or yaml
func write(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (json|yaml)", format)
	}
}

// readRecords reads a JSON array of defects from path, "-" meaning stdin
func readRecords(path string, stdin io.Reader) ([]models.DefectRecord, int, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("opening defects file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return analytics.DecodeRecords(r)
}
