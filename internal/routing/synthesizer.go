package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/passbi/passbi_planner/internal/apperrors"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/passbi/passbi_planner/internal/provider"
)

// LocationResolver resolves free text to a location
type LocationResolver interface {
	Resolve(ctx context.Context, text string) (models.Location, error)
}

// Synthesizer plans a trip across every supported mode
type Synthesizer struct {
	resolver LocationResolver
	router   provider.Router
}

// NewSynthesizer creates a synthesizer from its collaborators
func NewSynthesizer(resolver LocationResolver, router provider.Router) *Synthesizer {
	return &Synthesizer{
		resolver: resolver,
		router:   router,
	}
}

// PlanAll resolves both locations and produces one RouteResult per mode that
// could be planned. API-backed modes that fail are listed in Plan.Unavailable.
// Bus and airplane are estimated from the car distance and are omitted when
// the car route is unavailable.
func (s *Synthesizer) PlanAll(ctx context.Context, originText, destinationText string) (*models.Plan, error) {
	origin, destination, err := s.resolvePair(ctx, originText, destinationText)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Origin:      origin,
		Destination: destination,
		Routes:      make(map[models.Mode]*models.RouteResult),
		Unavailable: []models.Mode{},
	}

	// Route all API-backed modes in parallel
	type modeResult struct {
		mode   models.Mode
		result *models.RouteResult
		err    error
	}

	apiModes := models.APIModes()
	resultChan := make(chan modeResult, len(apiModes))
	var wg sync.WaitGroup

	for _, mode := range apiModes {
		wg.Add(1)
		go func(m models.Mode) {
			defer wg.Done()
			result, err := s.routeMode(ctx, origin, destination, m)
			resultChan <- modeResult{mode: m, result: result, err: err}
		}(mode)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		if r.err != nil {
			log.Printf("Route computation failed for mode %s: %v", r.mode, r.err)
			plan.Unavailable = append(plan.Unavailable, r.mode)
			continue
		}
		plan.Routes[r.mode] = r.result
	}

	car, ok := plan.Routes[models.ModeCar]
	if !ok {
		log.Printf("No car baseline from %s to %s; skipping estimated modes", origin.CanonicalName, destination.CanonicalName)
		plan.Unavailable = append(plan.Unavailable, models.DerivedModes()...)
	} else {
		for _, mode := range models.DerivedModes() {
			plan.Routes[mode] = s.estimateMode(origin, destination, mode, car.DistanceKm)
		}
	}

	sortModes(plan.Unavailable)
	return plan, nil
}

// PlanMode plans a single mode. Derived modes still need the car route for
// their baseline distance.
func (s *Synthesizer) PlanMode(ctx context.Context, originText, destinationText string, mode models.Mode) (*models.RouteResult, error) {
	if !mode.IsValid() {
		return nil, apperrors.Newf(apperrors.InvalidRequest, "unsupported mode %q", mode)
	}

	origin, destination, err := s.resolvePair(ctx, originText, destinationText)
	if err != nil {
		return nil, err
	}

	if !mode.IsDerived() {
		return s.routeMode(ctx, origin, destination, mode)
	}

	car, err := s.routeMode(ctx, origin, destination, models.ModeCar)
	if err != nil {
		return nil, fmt.Errorf("no car baseline for %s: %w", mode, err)
	}
	return s.estimateMode(origin, destination, mode, car.DistanceKm), nil
}

// resolvePair geocodes origin and destination. Blank input is reported as is;
// any other failure to resolve becomes GeocodingFailed.
func (s *Synthesizer) resolvePair(ctx context.Context, originText, destinationText string) (models.Location, models.Location, error) {
	origin, oErr := s.resolver.Resolve(ctx, originText)
	if apperrors.HasCode(oErr, apperrors.EmptyInput) {
		return origin, models.Location{}, apperrors.New(apperrors.EmptyInput, "origin is empty", oErr)
	}

	destination, dErr := s.resolver.Resolve(ctx, destinationText)
	if apperrors.HasCode(dErr, apperrors.EmptyInput) {
		return origin, destination, apperrors.New(apperrors.EmptyInput, "destination is empty", dErr)
	}

	if oErr != nil || dErr != nil || !origin.Resolved || !destination.Resolved {
		return origin, destination, apperrors.New(apperrors.GeocodingFailed, "unable to resolve locations", errors.Join(oErr, dErr)).
			WithDetails(map[string]interface{}{
				"origin":               origin.CanonicalName,
				"origin_resolved":      origin.Resolved,
				"destination":          destination.CanonicalName,
				"destination_resolved": destination.Resolved,
			})
	}

	return origin, destination, nil
}

// routeMode asks the provider for a path and normalizes its best candidate
func (s *Synthesizer) routeMode(ctx context.Context, origin, destination models.Location, mode models.Mode) (*models.RouteResult, error) {
	resp, err := s.router.Route(ctx, origin.Coordinate(), destination.Coordinate(), mode)
	if err != nil {
		return nil, apperrors.New(apperrors.ProviderError, fmt.Sprintf("routing %s failed", mode), err)
	}
	if resp.Status != 200 {
		return nil, apperrors.Newf(apperrors.ProviderError, "routing API status %d for %s: %s", resp.Status, mode, resp.Message)
	}
	if len(resp.Paths) == 0 {
		return nil, apperrors.Newf(apperrors.ProviderError, "no %s path returned", mode)
	}

	// Alternates are discarded; the provider ranks its best path first
	return normalizePath(origin, destination, mode, resp.Paths[0]), nil
}

func (s *Synthesizer) estimateMode(origin, destination models.Location, mode models.Mode, baselineKm float64) *models.RouteResult {
	return &models.RouteResult{
		Origin:          origin,
		Destination:     destination,
		Mode:            mode,
		DistanceKm:      baselineKm,
		DurationSeconds: Estimate(baselineKm, mode),
		Estimated:       true,
		Steps:           []models.Step{},
		EstimatedCost:   EstimatedCost(mode, baselineKm),
	}
}

func normalizePath(origin, destination models.Location, mode models.Mode, path provider.Path) *models.RouteResult {
	steps := make([]models.Step, 0, len(path.Instructions))
	for i, inst := range path.Instructions {
		steps = append(steps, models.Step{
			Index:       i + 1,
			Instruction: inst.Text,
			DistanceKm:  nonNegative(inst.Distance) / 1000,
		})
	}

	distanceKm := nonNegative(path.Distance) / 1000
	duration := int(path.Time / 1000)
	if duration < 0 {
		duration = 0
	}

	return &models.RouteResult{
		Origin:          origin,
		Destination:     destination,
		Mode:            mode,
		DistanceKm:      distanceKm,
		DurationSeconds: duration,
		Estimated:       false,
		Steps:           steps,
		EstimatedCost:   EstimatedCost(mode, distanceKm),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// sortModes orders modes by their position in models.AllModes
func sortModes(modes []models.Mode) {
	rank := make(map[models.Mode]int)
	for i, m := range models.AllModes() {
		rank[m] = i
	}
	sort.Slice(modes, func(i, j int) bool {
		return rank[modes[i]] < rank[modes[j]]
	})
}
