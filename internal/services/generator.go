package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
)

// defectCatalog maps defect types to plausible descriptions
var defectCatalog = map[string][]string{
	"Hydraulic":    {"Hydraulic fluid leak at main gear actuator", "Low pressure warning on system B", "Seal weeping at brake line fitting"},
	"Avionics":     {"Intermittent PFD flicker", "FMS database load failure", "Transponder reply lost in cruise"},
	"Engine":       {"Oil pressure fluctuation on engine 2", "EGT exceedance during takeoff", "Bleed valve fault message"},
	"Electrical":   {"Generator 1 offline after start", "Cabin lighting circuit tripped", "Battery charge fault"},
	"Landing Gear": {"Nose gear steering vibration", "Tire wear beyond limits", "Gear door proximity sensor fault"},
	"Cabin":        {"Lavatory smoke detector fault", "Seat recline mechanism jammed", "Galley oven inoperative"},
}

var defectTypes = []string{"Hydraulic", "Avionics", "Engine", "Electrical", "Landing Gear", "Cabin"}

// GenerateOptions controls dummy data generation
type GenerateOptions struct {
	Count         int  // number of defects
	AircraftCount int  // size of the simulated fleet
	Days          int  // window ending now that reports are spread over
	Replace       bool // delete existing defects first
}

// Generator handles generating dummy defect reports
type Generator struct {
	loader *Loader
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a new Generator instance writing through loader.
// A zero seed seeds from the clock.
func NewGenerator(loader *Loader, logger *slog.Logger, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		loader: loader,
		logger: logging.Component(logger, "generator"),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Records builds count random defects without storing them
func (g *Generator) Records(opts GenerateOptions) ([]models.DefectRecord, error) {
	if opts.Count <= 0 || opts.AircraftCount <= 0 || opts.Days <= 0 {
		return nil, fmt.Errorf("invalid generation options: count, aircraft_count and days must be positive")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	fleet := make([]string, opts.AircraftCount)
	for i := range fleet {
		fleet[i] = fmt.Sprintf("N%03d%c%c", 100+i, 'A'+rune(g.rng.Intn(26)), 'A'+rune(g.rng.Intn(26)))
	}

	end := g.now().UTC()
	window := time.Duration(opts.Days) * 24 * time.Hour

	records := make([]models.DefectRecord, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		defectType := defectTypes[g.rng.Intn(len(defectTypes))]
		descriptions := defectCatalog[defectType]
		reportedAt := end.Add(-time.Duration(g.rng.Int63n(int64(window))))

		records = append(records, models.DefectRecord{
			ID:                   uuid.NewString(),
			AircraftRegistration: g.pickAircraft(fleet),
			ReportedAt:           analytics.FormatUTC(reportedAt),
			DefectType:           defectType,
			Description:          descriptions[g.rng.Intn(len(descriptions))],
			Severity:             g.pickSeverity(),
		})
	}
	return records, nil
}

// GenerateDummyData generates defects and stores them
func (g *Generator) GenerateDummyData(ctx context.Context, opts GenerateOptions) (LoadResult, error) {
	startTime := time.Now()

	records, err := g.Records(opts)
	if err != nil {
		return LoadResult{}, err
	}

	if opts.Replace {
		if err := g.loader.Clear(ctx); err != nil {
			return LoadResult{}, err
		}
	}

	res, err := g.loader.Store(ctx, records, 0)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to store generated defects: %w", err)
	}

	g.logger.Info("generation completed",
		slog.Int("inserted", res.Inserted),
		slog.Int("aircraft", opts.AircraftCount),
		slog.Duration("took", time.Since(startTime).Round(time.Millisecond)))
	return res, nil
}

// pickAircraft skews reports towards the start of the fleet so rankings are not flat
func (g *Generator) pickAircraft(fleet []string) string {
	i := int(float64(len(fleet)) * g.rng.Float64() * g.rng.Float64())
	return fleet[i]
}

// pickSeverity draws Low 50%, Medium 35%, High 15%
func (g *Generator) pickSeverity() models.Severity {
	switch p := g.rng.Float64(); {
	case p < 0.50:
		return models.SeverityLow
	case p < 0.85:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}
