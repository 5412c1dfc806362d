package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/passbi/passbi_planner/internal/models"
)

// DefaultBaseURL is the public GraphHopper API
const DefaultBaseURL = "https://graphhopper.com/api/1"

// Config holds GraphHopper client configuration
type Config struct {
	BaseURL string        `validate:"required,url"`
	APIKey  string        `validate:"required"`
	Timeout time.Duration `validate:"gt=0"`
	Locale  string
}

// LoadConfigFromEnv loads GraphHopper configuration from environment variables.
// TRACE is accepted as a legacy name for the API key.
func LoadConfigFromEnv() *Config {
	timeout, err := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}

	return &Config{
		BaseURL: getEnv("GRAPHHOPPER_BASE_URL", DefaultBaseURL),
		APIKey:  getEnv("GRAPHHOPPER_API_KEY", os.Getenv("TRACE")),
		Timeout: timeout,
		Locale:  getEnv("GRAPHHOPPER_LOCALE", "en"),
	}
}

// GraphHopper is a RoutingProvider backed by the GraphHopper REST API
type GraphHopper struct {
	baseURL    string
	apiKey     string
	locale     string
	httpClient *http.Client
}

// NewGraphHopper creates a GraphHopper client
func NewGraphHopper(cfg *Config) *GraphHopper {
	return &GraphHopper{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		locale:  cfg.Locale,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Geocode looks up the best match for query
func (g *GraphHopper) Geocode(ctx context.Context, query string) (*GeocodeResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("key", g.apiKey)
	if g.locale != "" {
		params.Set("locale", g.locale)
	}

	var out GeocodeResponse
	status, err := g.get(ctx, "/geocode", params, &out)
	if err != nil {
		return nil, err
	}
	out.Status = status
	return &out, nil
}

// Route computes paths from one point to another for the given vehicle profile
func (g *GraphHopper) Route(ctx context.Context, from, to models.Coordinate, mode models.Mode) (*RouteResponse, error) {
	params := url.Values{}
	params.Add("point", fmt.Sprintf("%f,%f", from.Lat, from.Lng))
	params.Add("point", fmt.Sprintf("%f,%f", to.Lat, to.Lng))
	params.Set("vehicle", string(mode))
	params.Set("key", g.apiKey)
	params.Set("instructions", "true")
	params.Set("points_encoded", "false")
	if g.locale != "" {
		params.Set("locale", g.locale)
	}

	var out RouteResponse
	status, err := g.get(ctx, "/route", params, &out)
	if err != nil {
		return nil, err
	}
	out.Status = status
	return &out, nil
}

// get performs a GET request and decodes the JSON body into out.
// Non-200 bodies are decoded best-effort so the provider message survives.
func (g *GraphHopper) get(ctx context.Context, path string, params url.Values, out interface{}) (int, error) {
	reqURL := g.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call GraphHopper %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read GraphHopper %s response: %w", path, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("failed to decode GraphHopper %s response: %w", path, err)
	}

	return resp.StatusCode, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
