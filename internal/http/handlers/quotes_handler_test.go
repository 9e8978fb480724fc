package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fareone/bookings/internal/geo"
	"github.com/fareone/bookings/internal/http/handlers"
	"github.com/fareone/bookings/internal/quote"
)

// ---------- Mocks ----------

type mockSuggester struct {
	items []geo.Suggestion
	err   error
	last  string
}

func (m *mockSuggester) Suggest(_ context.Context, query string) ([]geo.Suggestion, error) {
	m.last = query
	return m.items, m.err
}

type mockRouter struct {
	meters float64
	err    error
	coords []geo.Coordinate
}

func (m *mockRouter) Route(_ context.Context, coords []geo.Coordinate) (*geo.RouteResult, error) {
	m.coords = coords
	if m.err != nil {
		return nil, m.err
	}
	return &geo.RouteResult{DistanceMeters: m.meters}, nil
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------- Tests ----------

func TestSuggestEmptyQueryReturnsPresets(t *testing.T) {
	h := handlers.NewQuoteHandler(&mockSuggester{}, &mockRouter{})

	rec := doJSON(t, h.Routes(), http.MethodGet, "/places/suggest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out struct {
		Suggestions []geo.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Suggestions) == 0 || !out.Suggestions[0].Header {
		t.Errorf("expected preset list with a leading header, got %+v", out.Suggestions)
	}
}

func TestSuggestShortQueryReturnsNothing(t *testing.T) {
	sg := &mockSuggester{items: []geo.Suggestion{{Label: "should not appear"}}}
	h := handlers.NewQuoteHandler(sg, &mockRouter{})

	rec := doJSON(t, h.Routes(), http.MethodGet, "/places/suggest?q=he", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sg.last != "" {
		t.Error("short query must not reach the geocoder")
	}

	var out struct {
		Suggestions []geo.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Suggestions) != 0 {
		t.Errorf("expected empty list, got %d items", len(out.Suggestions))
	}
}

func TestVehiclesFilteredByCapacity(t *testing.T) {
	h := handlers.NewQuoteHandler(&mockSuggester{}, &mockRouter{})

	rec := doJSON(t, h.Routes(), http.MethodGet, "/vehicles?pax=6&bags=8", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out struct {
		Vehicles []quote.Class `json:"vehicles"`
		Selected string        `json:"selected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Vehicles) != 2 {
		t.Fatalf("vehicles = %d, want 2", len(out.Vehicles))
	}
	if out.Selected != "Standard MPV" {
		t.Errorf("selected = %q, want Standard MPV", out.Selected)
	}
}

func TestRouteUnavailable(t *testing.T) {
	h := handlers.NewQuoteHandler(&mockSuggester{}, &mockRouter{err: geo.ErrNoRoute})

	rec := doJSON(t, h.Routes(), http.MethodPost, "/routes", map[string]any{
		"waypoints": []geo.Coordinate{{Lng: -1.4, Lat: 50.9}, {Lng: -0.5, Lat: 51.5}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Code != "ROUTE_UNAVAILABLE" {
		t.Errorf("code = %q, want ROUTE_UNAVAILABLE", out.Code)
	}
}

func TestRouteRejectsTooFewWaypoints(t *testing.T) {
	h := handlers.NewQuoteHandler(&mockSuggester{}, &mockRouter{meters: 1000})

	rec := doJSON(t, h.Routes(), http.MethodPost, "/routes", map[string]any{
		"waypoints": []geo.Coordinate{{Lng: -1.4, Lat: 50.9}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuoteAppliesDiscountAndEncodesQuery(t *testing.T) {
	// 130 miles at 1.67/mile: 217.10 standard, 184.54 after 15% off.
	rt := &mockRouter{meters: 130 * geo.MetersPerMile}
	h := handlers.NewQuoteHandler(&mockSuggester{}, rt)

	rec := doJSON(t, h.Routes(), http.MethodPost, "/quotes", map[string]any{
		"pickup":     "Southampton Airport (SOU)",
		"dropoff":    "Heathrow Terminal 5",
		"waypoints":  []geo.Coordinate{{Lng: -1.3568, Lat: 50.9503}, {Lng: -0.4889, Lat: 51.47}},
		"vehicle":    "Standard Saloon",
		"passengers": 3,
		"date":       "2026-09-14",
		"time":       "08:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Quote struct {
			Price    string `json:"price"`
			OldPrice string `json:"old_price"`
			Vehicle  string `json:"vehicle"`
		} `json:"quote"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Quote.Price != "184.54" || out.Quote.OldPrice != "217.10" {
		t.Errorf("price = %q old = %q, want 184.54 / 217.10", out.Quote.Price, out.Quote.OldPrice)
	}

	// The returned query must decode back to the same complete quote.
	values, err := url.ParseQuery(out.Query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	q := quote.DecodeQuery(values)
	if !q.IsComplete() {
		t.Errorf("decoded quote incomplete: %+v", q)
	}
	if q.Price != "184.54" || q.Vehicle != "Standard Saloon" {
		t.Errorf("decoded quote = %+v", q)
	}
}

func TestQuoteUnknownVehicle(t *testing.T) {
	h := handlers.NewQuoteHandler(&mockSuggester{}, &mockRouter{meters: 10000})

	rec := doJSON(t, h.Routes(), http.MethodPost, "/quotes", map[string]any{
		"pickup":    "A",
		"dropoff":   "B",
		"waypoints": []geo.Coordinate{{Lng: -1.4, Lat: 50.9}, {Lng: -0.5, Lat: 51.5}},
		"vehicle":   "Rickshaw",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuoteMinimumFare(t *testing.T) {
	rt := &mockRouter{meters: 0.5 * geo.MetersPerMile}
	h := handlers.NewQuoteHandler(&mockSuggester{}, rt)

	rec := doJSON(t, h.Routes(), http.MethodPost, "/quotes", map[string]any{
		"pickup":    "A",
		"dropoff":   "B",
		"waypoints": []geo.Coordinate{{Lng: -1.4, Lat: 50.9}, {Lng: -0.5, Lat: 51.5}},
		"vehicle":   "Standard Saloon",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Quote struct {
			Price    string `json:"price"`
			OldPrice string `json:"old_price"`
		} `json:"quote"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Quote.Price != fmt.Sprintf("%.2f", quote.MinimumFare) {
		t.Errorf("price = %q, want the %.2f floor", out.Quote.Price, quote.MinimumFare)
	}
	if out.Quote.OldPrice != "" {
		t.Errorf("old_price = %q, want empty without a discount", out.Quote.OldPrice)
	}
}
