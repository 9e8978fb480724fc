package geo

import (
	"context"
	"encoding/json"
	"errors"
)

// Coordinate is a (longitude, latitude) pair, matching the wire order used by
// the geocoding and directions providers.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Suggestion is one place candidate offered for a waypoint field. Header
// entries are non-selectable category rows in the preset catalogue.
type Suggestion struct {
	Label  string     `json:"label"`
	Coord  Coordinate `json:"coord"`
	Header bool       `json:"header,omitempty"`
}

const MetersPerMile = 1609.34

// RouteResult is a driving route between an ordered list of waypoints. The
// geometry is opaque to pricing and only carried for map rendering.
type RouteResult struct {
	DistanceMeters float64         `json:"distance_meters"`
	Geometry       json.RawMessage `json:"geometry"`
}

func (r *RouteResult) Miles() float64 {
	return r.DistanceMeters / MetersPerMile
}

// ErrNoRoute is returned when the provider answers but has no drivable route
// for the requested waypoints.
var ErrNoRoute = errors.New("no route found")

// Suggester resolves free-text input into ranked place candidates.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

// Router computes a driving route through the given ordered coordinates.
type Router interface {
	Route(ctx context.Context, coords []Coordinate) (*RouteResult, error)
}
