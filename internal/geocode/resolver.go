package geocode

import (
	"context"
	"log"
	"strings"

	"github.com/passbi/passbi_planner/internal/apperrors"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/passbi/passbi_planner/internal/provider"
)

// Resolver turns free-text locations into canonical places
type Resolver struct {
	geocoder provider.Geocoder
}

// NewResolver creates a resolver backed by geocoder
func NewResolver(geocoder provider.Geocoder) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Resolve geocodes text. The returned Location is always usable for display:
// when nothing resolves, CanonicalName falls back to the raw query.
//
// Errors are EmptyInput for blank text (the provider is not called) and
// ProviderError for transport, decode or non-200 failures. Zero hits is not
// an error.
func (r *Resolver) Resolve(ctx context.Context, text string) (models.Location, error) {
	query := strings.TrimSpace(text)
	loc := models.Location{
		RawQuery:      text,
		CanonicalName: text,
	}

	if query == "" {
		return loc, apperrors.Newf(apperrors.EmptyInput, "location is empty")
	}

	resp, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		log.Printf("Geocoding %q failed: %v", query, err)
		return loc, apperrors.New(apperrors.ProviderError, "geocoding request failed", err)
	}

	if resp.Status != 200 {
		log.Printf("Geocode API status %d for %q: %s", resp.Status, query, resp.Message)
		return loc, apperrors.Newf(apperrors.ProviderError, "geocode API status %d: %s", resp.Status, resp.Message).
			WithDetails(map[string]interface{}{"status": resp.Status})
	}

	if len(resp.Hits) == 0 {
		log.Printf("No geocoding results for %q", query)
		return loc, nil
	}

	hit := resp.Hits[0]
	if name := CanonicalName(hit); name != "" {
		loc.CanonicalName = name
	}
	loc.Latitude = hit.Point.Lat
	loc.Longitude = hit.Point.Lng
	loc.Resolved = true

	log.Printf("Geocoded %q as %s (location type: %s)", query, loc.CanonicalName, hit.OSMValue)
	return loc, nil
}

// CanonicalName joins name, state and country, skipping the absent parts
func CanonicalName(hit provider.GeocodeHit) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{hit.Name, hit.State, hit.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
