package routing

import (
	"math"

	"github.com/passbi/passbi_planner/internal/models"
)

const (
	// BusSpeedKmh is the average urban bus speed
	BusSpeedKmh = 25.0
	// FlightSpeedKmh is the average cruise speed used for flight time
	FlightSpeedKmh = 700.0
	// MinFlightDistanceKm is the distance below which flights are not modeled
	MinFlightDistanceKm = 100.0
	// FlightFloorSeconds is the minimum airplane duration
	FlightFloorSeconds = 30 * 60
	// GroundOpsSeconds covers taxi, boarding and landing
	GroundOpsSeconds = 30 * 60
)

// Estimator derives a duration for a mode the routing provider does not serve
type Estimator interface {
	Mode() models.Mode
	Duration(distanceKm float64) int
}

// BusEstimator models a bus at a fixed average speed
type BusEstimator struct{}

func (e *BusEstimator) Mode() models.Mode {
	return models.ModeBus
}

func (e *BusEstimator) Duration(distanceKm float64) int {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return int(math.Round(distanceKm / BusSpeedKmh * 3600))
}

// AirplaneEstimator models cruise time plus a fixed ground-operations overhead.
// Short hops below MinFlightDistanceKm always return the floor.
type AirplaneEstimator struct{}

func (e *AirplaneEstimator) Mode() models.Mode {
	return models.ModeAirplane
}

func (e *AirplaneEstimator) Duration(distanceKm float64) int {
	if distanceKm < MinFlightDistanceKm {
		return FlightFloorSeconds
	}

	flight := int(math.Round(distanceKm / FlightSpeedKmh * 3600))
	total := flight + GroundOpsSeconds
	if total < FlightFloorSeconds {
		return FlightFloorSeconds
	}
	return total
}

// GetEstimator returns the estimator for mode, if the mode is derived
func GetEstimator(mode models.Mode) (Estimator, bool) {
	switch mode {
	case models.ModeBus:
		return &BusEstimator{}, true
	case models.ModeAirplane:
		return &AirplaneEstimator{}, true
	default:
		return nil, false
	}
}

// GetAllEstimators returns all derived-mode estimators
func GetAllEstimators() []Estimator {
	return []Estimator{
		&BusEstimator{},
		&AirplaneEstimator{},
	}
}

// Estimate returns the heuristic duration in seconds for a derived mode.
// Unsupported modes return 0, which callers must read as "unsupported".
func Estimate(distanceKm float64, mode models.Mode) int {
	e, ok := GetEstimator(mode)
	if !ok {
		return 0
	}
	return e.Duration(distanceKm)
}
