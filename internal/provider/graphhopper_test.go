package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/passbi/passbi_planner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GraphHopper {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGraphHopper(&Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
}

func TestGeocode(t *testing.T) {
	t.Run("Parses hits and sends query", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geocode", r.URL.Path)
			assert.Equal(t, "Rome, Italy", r.URL.Query().Get("q"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			w.Write([]byte(`{"hits":[{"point":{"lat":41.89,"lng":12.48},"name":"Rome","state":"Lazio","country":"Italy","osm_value":"city"}]}`))
		})

		resp, err := client.Geocode(context.Background(), "Rome, Italy")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status)
		require.Len(t, resp.Hits, 1)
		assert.Equal(t, "Rome", resp.Hits[0].Name)
		assert.Equal(t, "Lazio", resp.Hits[0].State)
		assert.Equal(t, "city", resp.Hits[0].OSMValue)
		assert.InDelta(t, 41.89, resp.Hits[0].Point.Lat, 1e-9)
	})

	t.Run("Non-200 keeps status and message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Wrong credentials"}`))
		})

		resp, err := client.Geocode(context.Background(), "Rome")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Status)
		assert.Equal(t, "Wrong credentials", resp.Message)
	})

	t.Run("Non-JSON error body is not a decode failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		})

		resp, err := client.Geocode(context.Background(), "Rome")
		require.NoError(t, err)
		assert.Equal(t, 502, resp.Status)
	})

	t.Run("Malformed 200 body is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"hits":`))
		})

		_, err := client.Geocode(context.Background(), "Rome")
		assert.Error(t, err)
	})
}

func TestRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, []string{"38.907200,-77.036900", "39.290400,-76.612200"}, r.URL.Query()["point"])
		assert.Equal(t, "bike", r.URL.Query().Get("vehicle"))
		w.Write([]byte(`{"paths":[{"distance":62000.5,"time":14400000,"instructions":[{"text":"Continue","distance":1200},{"text":"Arrive at destination","distance":0}]},{"distance":70000,"time":15000000}]}`))
	})

	resp, err := client.Route(context.Background(),
		models.Coordinate{Lat: 38.9072, Lng: -77.0369},
		models.Coordinate{Lat: 39.2904, Lng: -76.6122},
		models.ModeBike,
	)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	require.Len(t, resp.Paths, 2)
	assert.Equal(t, int64(14400000), resp.Paths[0].Time)
	assert.Len(t, resp.Paths[0].Instructions, 2)
	assert.Equal(t, "Continue", resp.Paths[0].Instructions[0].Text)
}

func TestRouteNetworkFailure(t *testing.T) {
	client := NewGraphHopper(&Config{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "k",
		Timeout: 500 * time.Millisecond,
	})

	_, err := client.Route(context.Background(), models.Coordinate{}, models.Coordinate{}, models.ModeCar)
	assert.Error(t, err)
}
