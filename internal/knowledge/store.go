package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/passbi/passbi_planner/internal/models"
)

// KmPerMile converts kilometers to miles for display
const KmPerMile = 1.61

// Writer accepts new knowledge units
type Writer interface {
	Add(ctx context.Context, units []models.KnowledgeUnit) error
}

// Store turns route results into knowledge units.
// Ingestion is append-only: the same route ingested twice is stored twice.
type Store struct {
	index Writer
	now   func() time.Time
}

// NewStore creates a store writing to index
func NewStore(index Writer) *Store {
	return &Store{index: index, now: time.Now}
}

// Ingest stores a metadata unit, a summary unit and one direction unit per
// step. Estimated routes without steps get a mode_info unit instead.
func (s *Store) Ingest(ctx context.Context, r *models.RouteResult) (int, error) {
	if r.Estimated && len(r.Steps) == 0 {
		return s.IngestEstimatedInfo(ctx, r.Origin.CanonicalName, r.Destination.CanonicalName, r.Mode, r.DistanceKm, r.DurationSeconds)
	}

	key := r.Key()
	now := s.now()

	units := make([]models.KnowledgeUnit, 0, len(r.Steps)+2)
	units = append(units, s.unit(key, models.KindMetadata, metadataText(key, r.DistanceKm, r.DurationSeconds, r.Estimated, now), r.Estimated, now))

	for i, step := range r.Steps {
		u := s.unit(key, models.KindDirection, directionText(i+1, step), r.Estimated, now)
		u.StepNumber = i + 1
		units = append(units, u)
	}

	units = append(units, s.unit(key, models.KindSummary, summaryText(key, r.DistanceKm, r.DurationSeconds, len(r.Steps)), r.Estimated, now))

	return s.add(ctx, key, units)
}

// IngestEstimatedInfo stores metadata, summary and the static mode_info unit
// for a heuristically estimated trip.
func (s *Store) IngestEstimatedInfo(ctx context.Context, origin, destination string, mode models.Mode, distanceKm float64, durationSeconds int) (int, error) {
	key := models.RouteKey{Origin: origin, Destination: destination, Mode: mode}
	now := s.now()

	units := []models.KnowledgeUnit{
		s.unit(key, models.KindMetadata, metadataText(key, distanceKm, durationSeconds, true, now), true, now),
	}
	if info, ok := modeInfoText(mode); ok {
		units = append(units, s.unit(key, models.KindModeInfo, info, true, now))
	}
	units = append(units, s.unit(key, models.KindSummary, summaryText(key, distanceKm, durationSeconds, 0), true, now))

	return s.add(ctx, key, units)
}

func (s *Store) add(ctx context.Context, key models.RouteKey, units []models.KnowledgeUnit) (int, error) {
	if err := s.index.Add(ctx, units); err != nil {
		return 0, fmt.Errorf("failed to store knowledge for %s: %w", key, err)
	}
	log.Printf("Added %d knowledge units for %s to %s by %s", len(units), key.Origin, key.Destination, key.Mode)
	return len(units), nil
}

func (s *Store) unit(key models.RouteKey, kind models.UnitKind, content string, estimated bool, at time.Time) models.KnowledgeUnit {
	return models.KnowledgeUnit{
		ID:        uuid.New().String(),
		Kind:      kind,
		Content:   content,
		Key:       key,
		Estimated: estimated,
		CreatedAt: at,
	}
}

func metadataText(key models.RouteKey, distanceKm float64, durationSeconds int, estimated bool, at time.Time) string {
	var b strings.Builder
	b.WriteString("Route Information:\n")
	fmt.Fprintf(&b, "Origin: %s\n", key.Origin)
	fmt.Fprintf(&b, "Destination: %s\n", key.Destination)
	fmt.Fprintf(&b, "Transportation Mode: %s\n", key.Mode)
	fmt.Fprintf(&b, "Distance: %s\n", FormatDistance(distanceKm))
	fmt.Fprintf(&b, "Duration: %s\n", FormatDuration(durationSeconds))
	if estimated {
		b.WriteString("Estimate: heuristic, derived from the driving distance\n")
	}
	fmt.Fprintf(&b, "Recorded: %s", at.UTC().Format(time.RFC3339))
	return b.String()
}

func directionText(n int, step models.Step) string {
	return fmt.Sprintf("Step %d: %s\nDistance: %s", n, step.Instruction, FormatDistance(step.DistanceKm))
}

func summaryText(key models.RouteKey, distanceKm float64, durationSeconds, steps int) string {
	return fmt.Sprintf("Complete route from %s to %s by %s:\n- Total distance: %s\n- Estimated travel time: %s\n- Number of steps: %d",
		key.Origin, key.Destination, key.Mode, FormatDistance(distanceKm), FormatDuration(durationSeconds), steps)
}

var modeInfo = map[models.Mode]string{
	models.ModeBus: "Public bus travel information:\n" +
		"- Typical fares range from $1.50 to $5.00 per ride for local service; intercity coaches cost more.\n" +
		"- Schedules vary by operator, time of day and season; check the local timetable before travelling.\n" +
		"- Travel time is estimated at an average of 25 km/h and does not include waiting or transfers.",
	models.ModeAirplane: "Air travel information:\n" +
		"- Allow at least 2 hours before departure for check-in, security and boarding.\n" +
		"- The estimate includes 30 minutes for taxi, boarding and landing but not airport transfers.\n" +
		"- Economy fares typically range from $50 to $150 for short-haul and $300 to $1,200 for long-haul flights.",
}

func modeInfoText(mode models.Mode) (string, bool) {
	text, ok := modeInfo[mode]
	return text, ok
}

// FormatDuration renders seconds as HH:MM:SS
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// FormatDistance renders km with the miles equivalent
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.1f km (%.1f miles)", km, km/KmPerMile)
}
