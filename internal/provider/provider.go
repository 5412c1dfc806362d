// Package provider talks to the external geocoding and routing service.
package provider

import (
	"context"

	"github.com/passbi/passbi_planner/internal/models"
)

// RoutingProvider resolves place names and computes point-to-point paths
type RoutingProvider interface {
	Geocoder
	Router
}

// Geocoder resolves free text to candidate places
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*GeocodeResponse, error)
}

// Router computes paths between two coordinates for a mode
type Router interface {
	Route(ctx context.Context, from, to models.Coordinate, mode models.Mode) (*RouteResponse, error)
}

// GeocodeResponse is the provider's geocoding answer.
// A returned error means the request never produced a usable response;
// non-200 statuses are reported through Status and Message instead.
type GeocodeResponse struct {
	Status  int          `json:"-"`
	Message string       `json:"message,omitempty"`
	Hits    []GeocodeHit `json:"hits"`
}

// GeocodeHit is one geocoding candidate
type GeocodeHit struct {
	Point    Point  `json:"point"`
	Name     string `json:"name"`
	OSMValue string `json:"osm_value"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Point is a provider coordinate
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the provider's routing answer
type RouteResponse struct {
	Status  int    `json:"-"`
	Message string `json:"message,omitempty"`
	Paths   []Path `json:"paths"`
}

// Path is one candidate route; providers rank the best path first
type Path struct {
	Distance     float64       `json:"distance"` // meters
	Time         int64         `json:"time"`     // milliseconds
	Instructions []Instruction `json:"instructions,omitempty"`
}

// Instruction is one turn-by-turn direction
type Instruction struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"` // meters
}
