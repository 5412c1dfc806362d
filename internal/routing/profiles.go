package routing

import "github.com/passbi/passbi_planner/internal/models"

// ModeProfile describes a transport mode for comparison tables
type ModeProfile struct {
	Mode                models.Mode `json:"mode"`
	Name                string      `json:"name"`
	AvgSpeedKmh         float64     `json:"avg_speed_kmh"`
	CostPerKm           float64     `json:"cost_per_km"`
	EnvironmentalImpact string      `json:"environmental_impact"`
	BestFor             []string    `json:"best_for"`
}

var profiles = map[models.Mode]ModeProfile{
	models.ModeCar: {
		Mode:                models.ModeCar,
		Name:                "Car",
		AvgSpeedKmh:         60,
		CostPerKm:           0.15, // fuel and maintenance
		EnvironmentalImpact: "High",
		BestFor:             []string{"Flexibility", "Long distances", "Group travel"},
	},
	models.ModeBike: {
		Mode:                models.ModeBike,
		Name:                "Bicycle",
		AvgSpeedKmh:         15,
		CostPerKm:           0.01,
		EnvironmentalImpact: "Very Low",
		BestFor:             []string{"Short distances", "Exercise", "Urban areas"},
	},
	models.ModeFoot: {
		Mode:                models.ModeFoot,
		Name:                "Walking",
		AvgSpeedKmh:         5,
		CostPerKm:           0,
		EnvironmentalImpact: "Zero",
		BestFor:             []string{"Short distances", "Exploration", "Health"},
	},
	models.ModeBus: {
		Mode:                models.ModeBus,
		Name:                "Public Bus",
		AvgSpeedKmh:         BusSpeedKmh,
		CostPerKm:           0.10,
		EnvironmentalImpact: "Low",
		BestFor:             []string{"Budget travel", "Urban commuting", "No parking hassles"},
	},
	models.ModeAirplane: {
		Mode:                models.ModeAirplane,
		Name:                "Airplane",
		AvgSpeedKmh:         FlightSpeedKmh,
		CostPerKm:           0.50, // varies widely
		EnvironmentalImpact: "High",
		BestFor:             []string{"Long distances", "International travel", "Time-sensitive trips"},
	},
}

// GetProfile returns the profile for mode
func GetProfile(mode models.Mode) (ModeProfile, bool) {
	p, ok := profiles[mode]
	return p, ok
}

// EstimatedCost returns a rough trip cost for mode over distanceKm
func EstimatedCost(mode models.Mode, distanceKm float64) float64 {
	p, ok := profiles[mode]
	if !ok || distanceKm <= 0 {
		return 0
	}
	return distanceKm * p.CostPerKm
}
