package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fareone/bookings/internal/geo"
	"github.com/fareone/bookings/pkg/config"
)

func newClient(t *testing.T, handler http.HandlerFunc) (*geo.MapboxClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return geo.NewMapboxClient(config.MapboxConfig{
		Token:         "test-token",
		GeocodingURL:  srv.URL + "/geocoding",
		DirectionsURL: srv.URL + "/directions",
		Country:       "gb",
		Limit:         5,
		Timeout:       2 * time.Second,
	}), srv
}

func TestSuggestParsesFeatures(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[
			{"place_name":"Heathrow Terminal 5, London","center":[-0.4889,51.47]},
			{"place_name":"Heathrow Terminal 2, London","center":[-0.4495,51.4713]}
		]}`))
	})

	items, err := client.Suggest(context.Background(), "heathrow")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Label != "Heathrow Terminal 5, London" {
		t.Errorf("label = %q", items[0].Label)
	}
	if items[0].Coord != (geo.Coordinate{Lng: -0.4889, Lat: 51.47}) {
		t.Errorf("coord = %+v", items[0].Coord)
	}
	if items[0].Header {
		t.Error("remote suggestions must not be headers")
	}

	if gotQuery["country"][0] != "gb" || gotQuery["limit"][0] != "5" || gotQuery["types"][0] != "poi,address" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestSuggestNonOKStatus(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := client.Suggest(context.Background(), "heathrow"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestRouteReturnsFirstRoute(t *testing.T) {
	var gotPath string
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"routes":[
			{"distance":160934,"geometry":{"type":"LineString","coordinates":[]}},
			{"distance":180000,"geometry":{"type":"LineString","coordinates":[]}}
		]}`))
	})

	result, err := client.Route(context.Background(), []geo.Coordinate{
		{Lng: -1.3568, Lat: 50.9503},
		{Lng: -0.4889, Lat: 51.47},
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if result.DistanceMeters != 160934 {
		t.Errorf("distance = %v, want the first route", result.DistanceMeters)
	}
	if got := result.Miles(); got < 99.9 || got > 100.1 {
		t.Errorf("miles = %v, want ~100", got)
	}
	if gotPath != "/directions/-1.356800,50.950300;-0.488900,51.470000" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestRouteNoRoutes(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"routes":[]}`))
	})

	_, err := client.Route(context.Background(), []geo.Coordinate{
		{Lng: -1.3568, Lat: 50.9503},
		{Lng: -0.4889, Lat: 51.47},
	})
	if !errors.Is(err, geo.ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestRouteTooFewCoordinates(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := client.Route(context.Background(), []geo.Coordinate{{Lng: -1, Lat: 50}}); err == nil {
		t.Fatal("expected error for a single coordinate")
	}
}

func TestPresetsShape(t *testing.T) {
	items := geo.Presets()
	if len(items) == 0 {
		t.Fatal("expected presets")
	}
	if !items[0].Header {
		t.Fatal("expected a leading category header")
	}

	headers, entries := 0, 0
	for _, it := range items {
		if it.Header {
			headers++
			continue
		}
		entries++
		if it.Coord == (geo.Coordinate{}) {
			t.Errorf("preset %q has no coordinate", it.Label)
		}
	}
	if headers < 2 || entries < 5 {
		t.Errorf("headers = %d entries = %d, expected the airport and cruise categories", headers, entries)
	}
}
