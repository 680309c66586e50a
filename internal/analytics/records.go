package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"defectinsight/internal/models"
)

// ErrInvalidInput is returned when a record set is not a sequence of records
var ErrInvalidInput = errors.New("invalid input")

// rawRecord mirrors DefectRecord with every field optional
type rawRecord struct {
	ID                   *string `json:"id"`
	AircraftRegistration *string `json:"aircraft_registration"`
	ReportedAt           *string `json:"reported_at"`
	DefectType           *string `json:"defect_type"`
	Description          *string `json:"description"`
	Severity             *string `json:"severity"`
}

// DecodeRecords reads a JSON array of defect records from r.
// A top-level value other than an array fails with ErrInvalidInput. Entries that are
// not objects, carry a non-string field, or name an unknown severity are dropped and
// counted in skipped. Missing fields are kept empty; each computation excludes the
// records lacking the field it needs.
func DecodeRecords(r io.Reader) (records []models.DefectRecord, skipped int, err error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("%w: expected a JSON array of defects: %v", ErrInvalidInput, err)
	}
	return FromRaw(raw)
}

// FromRaw validates already split JSON entries, see DecodeRecords
func FromRaw(raw []json.RawMessage) (records []models.DefectRecord, skipped int, err error) {
	if raw == nil {
		return nil, 0, fmt.Errorf("%w: expected a JSON array of defects, got null", ErrInvalidInput)
	}

	records = make([]models.DefectRecord, 0, len(raw))
	for _, entry := range raw {
		rec, ok := validate(entry)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func validate(entry json.RawMessage) (models.DefectRecord, bool) {
	if !bytes.HasPrefix(bytes.TrimSpace(entry), []byte("{")) {
		return models.DefectRecord{}, false
	}
	var rr rawRecord
	if err := json.Unmarshal(entry, &rr); err != nil {
		return models.DefectRecord{}, false
	}

	rec := models.DefectRecord{
		ID:                   strings.TrimSpace(deref(rr.ID)),
		AircraftRegistration: strings.TrimSpace(deref(rr.AircraftRegistration)),
		ReportedAt:           strings.TrimSpace(deref(rr.ReportedAt)),
		DefectType:           deref(rr.DefectType),
		Description:          deref(rr.Description),
	}
	if !blank(rr.Severity) {
		sev, ok := models.ParseSeverity(*rr.Severity)
		if !ok {
			return models.DefectRecord{}, false
		}
		rec.Severity = sev
	}
	return rec, true
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
