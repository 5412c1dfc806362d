package models

import (
	"fmt"
	"strings"
	"time"
)

// Mode represents a transport mode a trip can be planned for
type Mode string

const (
	ModeCar      Mode = "car"
	ModeBike     Mode = "bike"
	ModeFoot     Mode = "foot"
	ModeBus      Mode = "bus"
	ModeAirplane Mode = "airplane"
)

// APIModes returns the modes served directly by the routing provider
func APIModes() []Mode {
	return []Mode{ModeCar, ModeBike, ModeFoot}
}

// DerivedModes returns the modes whose metrics are estimated from a baseline distance
func DerivedModes() []Mode {
	return []Mode{ModeBus, ModeAirplane}
}

// AllModes returns every supported mode in display order
func AllModes() []Mode {
	return append(APIModes(), DerivedModes()...)
}

// IsValid reports whether m is one of the supported modes
func (m Mode) IsValid() bool {
	for _, known := range AllModes() {
		if m == known {
			return true
		}
	}
	return false
}

// IsDerived reports whether m is estimated rather than routed
func (m Mode) IsDerived() bool {
	return m == ModeBus || m == ModeAirplane
}

// LookupMode parses a vehicle profile name and reports whether it is supported
func LookupMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// ParseMode parses a vehicle profile name, falling back to def for unknown input
func ParseMode(s string, def Mode) Mode {
	if m, ok := LookupMode(s); ok {
		return m
	}
	return def
}

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a free-text place resolved (or not) to coordinates.
// Resolved=false is a valid terminal state; CanonicalName then equals RawQuery.
type Location struct {
	RawQuery      string  `json:"raw_query"`
	CanonicalName string  `json:"name"`
	Latitude      float64 `json:"lat,omitempty"`
	Longitude     float64 `json:"lng,omitempty"`
	Resolved      bool    `json:"resolved"`
}

// Coordinate returns the location's point
func (l Location) Coordinate() Coordinate {
	return Coordinate{Lat: l.Latitude, Lng: l.Longitude}
}

// Step represents one provider instruction along a route
type Step struct {
	Index       int     `json:"index"`
	Instruction string  `json:"instruction"`
	DistanceKm  float64 `json:"distance_km"`
}

// RouteResult is the normalized outcome of planning one mode
type RouteResult struct {
	Origin          Location `json:"origin"`
	Destination     Location `json:"destination"`
	Mode            Mode     `json:"mode"`
	DistanceKm      float64  `json:"distance_km"`
	DurationSeconds int      `json:"duration_seconds"`
	Estimated       bool     `json:"estimated"`
	Steps           []Step   `json:"steps"`
	EstimatedCost   float64  `json:"estimated_cost"`
}

// Key returns the composite key identifying this route's knowledge
func (r *RouteResult) Key() RouteKey {
	return RouteKey{
		Origin:      r.Origin.CanonicalName,
		Destination: r.Destination.CanonicalName,
		Mode:        r.Mode,
	}
}

// Plan holds all the mode results for one origin/destination request
type Plan struct {
	Origin      Location              `json:"origin"`
	Destination Location              `json:"destination"`
	Routes      map[Mode]*RouteResult `json:"routes"`
	Unavailable []Mode                `json:"unavailable"`
}

// RouteKey identifies a route's knowledge by origin, destination and mode
type RouteKey struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Mode        Mode   `json:"mode"`
}

// routeKeySep never occurs in geocoded place names
const routeKeySep = "␟"

// String renders the key as a display id
func (k RouteKey) String() string {
	return k.Origin + routeKeySep + k.Destination + routeKeySep + string(k.Mode)
}

// UnitKind is the kind of a knowledge unit
type UnitKind string

const (
	KindMetadata  UnitKind = "metadata"
	KindDirection UnitKind = "direction"
	KindSummary   UnitKind = "summary"
	KindModeInfo  UnitKind = "mode_info"
)

// KnowledgeUnit is one retrievable fact record describing part of a route
type KnowledgeUnit struct {
	ID         string    `json:"id"`
	Kind       UnitKind  `json:"kind"`
	Content    string    `json:"content"`
	Key        RouteKey  `json:"key"`
	StepNumber int       `json:"step_number,omitempty"` // 0 unless Kind == KindDirection
	Estimated  bool      `json:"estimated,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tags returns the unit's filterable metadata
func (u KnowledgeUnit) Tags() map[string]string {
	tags := map[string]string{
		"kind":        string(u.Kind),
		"origin":      u.Key.Origin,
		"destination": u.Key.Destination,
		"mode":        string(u.Key.Mode),
		"routeId":     u.Key.String(),
	}
	if u.StepNumber > 0 {
		tags["stepNumber"] = fmt.Sprintf("%d", u.StepNumber)
	}
	if u.Estimated {
		tags["estimated"] = "true"
	}
	return tags
}

// Turn is one answered question in a conversation
type Turn struct {
	Query  string    `json:"query"`
	Answer string    `json:"answer"`
	At     time.Time `json:"at"`
}
