package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fareone/bookings/internal/observability"
	"github.com/fareone/bookings/pkg/config"
)

// MapboxClient performs geocoding and directions lookups against the Mapbox
// HTTP APIs. It implements both Suggester and Router.
type MapboxClient struct {
	token         string
	geocodingURL  string
	directionsURL string
	country       string
	limit         int
	client        *http.Client
}

func NewMapboxClient(cfg config.MapboxConfig) *MapboxClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MapboxClient{
		token:         cfg.Token,
		geocodingURL:  strings.TrimRight(cfg.GeocodingURL, "/"),
		directionsURL: strings.TrimRight(cfg.DirectionsURL, "/"),
		country:       cfg.Country,
		limit:         cfg.Limit,
		client:        &http.Client{Timeout: timeout},
	}
}

// Suggest queries forward geocoding restricted to POIs and addresses in the
// configured country.
func (m *MapboxClient) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	timer := prometheus.NewTimer(observability.SuggestLatency)
	defer timer.ObserveDuration()

	q := url.Values{}
	q.Set("access_token", m.token)
	q.Set("country", m.country)
	q.Set("limit", fmt.Sprintf("%d", m.limit))
	q.Set("types", "poi,address")

	endpoint := fmt.Sprintf("%s/%s.json?%s", m.geocodingURL, url.PathEscape(query), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var out struct {
		Features []struct {
			PlaceName string     `json:"place_name"`
			Center    [2]float64 `json:"center"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	list := make([]Suggestion, 0, len(out.Features))
	for _, f := range out.Features {
		list = append(list, Suggestion{
			Label: f.PlaceName,
			Coord: Coordinate{Lng: f.Center[0], Lat: f.Center[1]},
		})
	}
	return list, nil
}

// Route queries the driving directions API through the ordered waypoints and
// returns the first route. A well-formed response with zero routes maps to
// ErrNoRoute so callers can distinguish "no route" from transport failure.
func (m *MapboxClient) Route(ctx context.Context, coords []Coordinate) (*RouteResult, error) {
	timer := prometheus.NewTimer(observability.RouteLatency)
	defer timer.ObserveDuration()

	if len(coords) < 2 {
		return nil, fmt.Errorf("route requires at least 2 coordinates, got %d", len(coords))
	}

	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = fmt.Sprintf("%f,%f", c.Lng, c.Lat)
	}

	q := url.Values{}
	q.Set("access_token", m.token)
	q.Set("geometries", "geojson")

	endpoint := fmt.Sprintf("%s/%s?%s", m.directionsURL, strings.Join(parts, ";"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions returned status %d", resp.StatusCode)
	}

	var out struct {
		Routes []struct {
			Distance float64         `json:"distance"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode directions response: %w", err)
	}

	if len(out.Routes) == 0 {
		return nil, ErrNoRoute
	}

	return &RouteResult{
		DistanceMeters: out.Routes[0].Distance,
		Geometry:       out.Routes[0].Geometry,
	}, nil
}

var (
	_ Suggester = (*MapboxClient)(nil)
	_ Router    = (*MapboxClient)(nil)
)
