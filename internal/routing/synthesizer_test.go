package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/passbi/passbi_planner/internal/apperrors"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/passbi/passbi_planner/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	unresolved map[string]bool
}

func (f *fakeResolver) Resolve(ctx context.Context, text string) (models.Location, error) {
	loc := models.Location{RawQuery: text, CanonicalName: text}
	if text == "" {
		return loc, apperrors.Newf(apperrors.EmptyInput, "location is empty")
	}
	if f.unresolved[text] {
		return loc, nil
	}
	loc.Resolved = true
	loc.Latitude, loc.Longitude = 41.9, 12.5
	return loc, nil
}

type fakeRouter struct {
	mu        sync.Mutex
	responses map[models.Mode]*provider.RouteResponse
	errs      map[models.Mode]error
	calls     []models.Mode
}

func (f *fakeRouter) Route(ctx context.Context, from, to models.Coordinate, mode models.Mode) (*provider.RouteResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, mode)
	f.mu.Unlock()

	if err := f.errs[mode]; err != nil {
		return nil, err
	}
	if resp, ok := f.responses[mode]; ok {
		return resp, nil
	}
	return &provider.RouteResponse{Status: 400, Message: "Vehicle not supported"}, nil
}

func okPath(distanceM float64, timeMs int64, instructions ...provider.Instruction) *provider.RouteResponse {
	return &provider.RouteResponse{
		Status: 200,
		Paths:  []provider.Path{{Distance: distanceM, Time: timeMs, Instructions: instructions}},
	}
}

func TestPlanAll(t *testing.T) {
	ctx := context.Background()

	t.Run("All modes with car baseline", func(t *testing.T) {
		router := &fakeRouter{responses: map[models.Mode]*provider.RouteResponse{
			models.ModeCar: okPath(6800000, 250000000,
				provider.Instruction{Text: "Head north", Distance: 1500},
				provider.Instruction{Text: "Arrive", Distance: 0},
			),
			models.ModeBike: okPath(64000, 14400000),
			models.ModeFoot: okPath(60000, 43200000),
		}}
		s := NewSynthesizer(&fakeResolver{}, router)

		plan, err := s.PlanAll(ctx, "Rome, Italy", "Baltimore, Maryland")
		require.NoError(t, err)
		assert.Len(t, plan.Routes, 5)
		assert.Empty(t, plan.Unavailable)

		car := plan.Routes[models.ModeCar]
		assert.InDelta(t, 6800.0, car.DistanceKm, 1e-9)
		assert.Equal(t, 250000, car.DurationSeconds)
		assert.False(t, car.Estimated)
		require.Len(t, car.Steps, 2)
		assert.Equal(t, 1, car.Steps[0].Index)
		assert.Equal(t, "Head north", car.Steps[0].Instruction)
		assert.InDelta(t, 1.5, car.Steps[0].DistanceKm, 1e-9)
		assert.Equal(t, 2, car.Steps[1].Index)

		bus := plan.Routes[models.ModeBus]
		assert.True(t, bus.Estimated)
		assert.Empty(t, bus.Steps)
		assert.Equal(t, 979200, bus.DurationSeconds)
		assert.InDelta(t, 6800.0, bus.DistanceKm, 1e-9)
		assert.InDelta(t, 680.0, bus.EstimatedCost, 1e-9)

		air := plan.Routes[models.ModeAirplane]
		assert.Equal(t, 36771, air.DurationSeconds)
		assert.GreaterOrEqual(t, air.DurationSeconds, 1800)
	})

	t.Run("Car failure drops derived modes", func(t *testing.T) {
		router := &fakeRouter{
			responses: map[models.Mode]*provider.RouteResponse{
				models.ModeFoot: okPath(3000, 2160000),
			},
			errs: map[models.Mode]error{models.ModeCar: errors.New("timeout")},
		}
		s := NewSynthesizer(&fakeResolver{}, router)

		plan, err := s.PlanAll(ctx, "A", "B")
		require.NoError(t, err)
		assert.Len(t, plan.Routes, 1)
		assert.Contains(t, plan.Routes, models.ModeFoot)
		assert.NotContains(t, plan.Routes, models.ModeBus)
		assert.NotContains(t, plan.Routes, models.ModeAirplane)
		assert.Equal(t, []models.Mode{models.ModeCar, models.ModeBike, models.ModeBus, models.ModeAirplane}, plan.Unavailable)
	})

	t.Run("Partial results when a mode is unsupported", func(t *testing.T) {
		router := &fakeRouter{responses: map[models.Mode]*provider.RouteResponse{
			models.ModeCar: okPath(50000, 3600000),
			models.ModeBike: {Status: 200}, // no paths
		}}
		s := NewSynthesizer(&fakeResolver{}, router)

		plan, err := s.PlanAll(ctx, "A", "B")
		require.NoError(t, err)
		assert.Equal(t, []models.Mode{models.ModeBike, models.ModeFoot}, plan.Unavailable)
		assert.Contains(t, plan.Routes, models.ModeBus)
		// 50 km is below the flight threshold
		assert.Equal(t, 1800, plan.Routes[models.ModeAirplane].DurationSeconds)
	})

	t.Run("Only first path is used", func(t *testing.T) {
		resp := okPath(10000, 600000)
		resp.Paths = append(resp.Paths, provider.Path{Distance: 1, Time: 1})
		router := &fakeRouter{responses: map[models.Mode]*provider.RouteResponse{models.ModeCar: resp}}

		plan, err := NewSynthesizer(&fakeResolver{}, router).PlanAll(ctx, "A", "B")
		require.NoError(t, err)
		assert.InDelta(t, 10.0, plan.Routes[models.ModeCar].DistanceKm, 1e-9)
	})

	t.Run("Unresolved location fails without routing", func(t *testing.T) {
		router := &fakeRouter{}
		s := NewSynthesizer(&fakeResolver{unresolved: map[string]bool{"Atlantis": true}}, router)

		plan, err := s.PlanAll(ctx, "Rome", "Atlantis")
		assert.Nil(t, plan)
		assert.True(t, apperrors.HasCode(err, apperrors.GeocodingFailed))
		assert.Empty(t, router.calls)
	})

	t.Run("Empty origin", func(t *testing.T) {
		router := &fakeRouter{}
		_, err := NewSynthesizer(&fakeResolver{}, router).PlanAll(ctx, "", "Rome")
		assert.True(t, apperrors.HasCode(err, apperrors.EmptyInput))
		assert.Empty(t, router.calls)
	})
}

func TestPlanMode(t *testing.T) {
	ctx := context.Background()
	router := &fakeRouter{responses: map[models.Mode]*provider.RouteResponse{
		models.ModeCar: okPath(700000, 25200000),
	}}
	s := NewSynthesizer(&fakeResolver{}, router)

	t.Run("Derived mode uses car baseline", func(t *testing.T) {
		r, err := s.PlanMode(ctx, "A", "B", models.ModeAirplane)
		require.NoError(t, err)
		assert.True(t, r.Estimated)
		assert.Equal(t, 5400, r.DurationSeconds)
	})

	t.Run("API mode failure is a provider error", func(t *testing.T) {
		_, err := s.PlanMode(ctx, "A", "B", models.ModeBike)
		assert.True(t, apperrors.HasCode(err, apperrors.ProviderError))
	})

	t.Run("Invalid mode", func(t *testing.T) {
		_, err := s.PlanMode(ctx, "A", "B", models.Mode("rocket"))
		assert.True(t, apperrors.HasCode(err, apperrors.InvalidRequest))
	})
}
