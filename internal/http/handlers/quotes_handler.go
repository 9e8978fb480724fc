package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fareone/bookings/internal/geo"
	"github.com/fareone/bookings/internal/http/response"
	"github.com/fareone/bookings/internal/observability"
	"github.com/fareone/bookings/internal/quote"
)

// QuoteHandler serves the quoting flow: place suggestions, vehicle classes,
// routed distances and priced quotes.
type QuoteHandler struct {
	Suggester geo.Suggester
	Router    geo.Router
}

func NewQuoteHandler(suggester geo.Suggester, router geo.Router) *QuoteHandler {
	return &QuoteHandler{Suggester: suggester, Router: router}
}

func (h *QuoteHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/places/suggest", h.suggest)
	r.Get("/vehicles", h.vehicles)
	r.Post("/routes", h.route)
	r.Post("/quotes", h.quote)
	return r
}

func (h *QuoteHandler) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	// Empty input gets the curated airport and cruise terminal presets,
	// same as focusing an empty field.
	if q == "" {
		response.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": geo.Presets()})
		return
	}
	if len(q) < 3 {
		response.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": []geo.Suggestion{}})
		return
	}

	items, err := h.Suggester.Suggest(r.Context(), q)
	if err != nil {
		response.WriteError(w, http.StatusBadGateway, "Address lookup failed", response.CodeInternalError)
		return
	}
	if items == nil {
		items = []geo.Suggestion{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": items})
}

func (h *QuoteHandler) vehicles(w http.ResponseWriter, r *http.Request) {
	pax := queryInt(r, "pax", 1)
	bags := queryInt(r, "bags", 0)

	p := quote.NewPicker()
	p.SetCapacity(pax, bags)

	eligible := p.Eligible()
	if eligible == nil {
		eligible = []quote.Class{}
	}
	out := map[string]any{"vehicles": eligible}
	if sel, ok := p.Selected(); ok {
		out["selected"] = sel.Name
	}
	response.WriteJSON(w, http.StatusOK, out)
}

type routeIn struct {
	Waypoints []geo.Coordinate `json:"waypoints"`
}

type routeOut struct {
	DistanceMeters float64         `json:"distance_meters"`
	DistanceMiles  float64         `json:"distance_miles"`
	Geometry       json.RawMessage `json:"geometry,omitempty"`
}

func (h *QuoteHandler) route(w http.ResponseWriter, r *http.Request) {
	var in routeIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if len(in.Waypoints) < 2 {
		response.BadRequest(w, "At least a pickup and a dropoff are required")
		return
	}
	if len(in.Waypoints) > 2+quote.MaxStops {
		response.BadRequest(w, "Too many stops")
		return
	}

	result, err := h.Router.Route(r.Context(), in.Waypoints)
	if err != nil {
		observability.RouteFailures.Inc()
		if errors.Is(err, geo.ErrNoRoute) {
			response.WriteError(w, http.StatusUnprocessableEntity, "No route between those points", response.CodeRouteUnavailable)
			return
		}
		response.WriteError(w, http.StatusBadGateway, "Route lookup failed", response.CodeRouteUnavailable)
		return
	}

	response.WriteJSON(w, http.StatusOK, routeOut{
		DistanceMeters: result.DistanceMeters,
		DistanceMiles:  result.Miles(),
		Geometry:       result.Geometry,
	})
}

type quoteIn struct {
	Pickup       string           `json:"pickup"`
	Dropoff      string           `json:"dropoff"`
	Waypoints    []geo.Coordinate `json:"waypoints"`
	Vehicle      string           `json:"vehicle"`
	MeetAndGreet bool             `json:"meet_and_greet"`
	Passengers   int              `json:"passengers"`
	Bags         int              `json:"bags"`
	Date         string           `json:"date"`
	Time         string           `json:"time"`
	Flight       string           `json:"flight"`
	Return       *quote.ReturnLeg `json:"return,omitempty"`
}

type quoteOut struct {
	Quote         quote.Quote `json:"quote"`
	DistanceMiles float64     `json:"distance_miles"`
	Query         string      `json:"query"`
}

// quote routes the waypoints, prices the trip for the chosen vehicle class
// and returns the finished quote along with its query-string form, ready for
// the summary page handoff.
func (h *QuoteHandler) quote(w http.ResponseWriter, r *http.Request) {
	var in quoteIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if in.Pickup == "" || in.Dropoff == "" {
		response.BadRequest(w, "Pickup and dropoff are required")
		return
	}
	if len(in.Waypoints) < 2 {
		response.BadRequest(w, "At least a pickup and a dropoff coordinate are required")
		return
	}

	class, ok := quote.ClassByName(in.Vehicle)
	if !ok {
		response.BadRequest(w, "Unknown vehicle class")
		return
	}

	result, err := h.Router.Route(r.Context(), in.Waypoints)
	if err != nil {
		observability.RouteFailures.Inc()
		if errors.Is(err, geo.ErrNoRoute) {
			response.WriteError(w, http.StatusUnprocessableEntity, "No route between those points", response.CodeRouteUnavailable)
			return
		}
		response.WriteError(w, http.StatusBadGateway, "Route lookup failed", response.CodeRouteUnavailable)
		return
	}

	fare, ok := quote.Calculate(result.Miles(), class.PerMile, in.MeetAndGreet)
	if !ok {
		response.WriteError(w, http.StatusUnprocessableEntity, "Trip distance is not quotable", response.CodeRouteUnavailable)
		return
	}

	passengers := in.Passengers
	if passengers <= 0 {
		passengers = 1
	}
	q := quote.Quote{
		Pickup:       in.Pickup,
		Dropoff:      in.Dropoff,
		Vehicle:      class.Name,
		Date:         in.Date,
		Time:         in.Time,
		Flight:       in.Flight,
		MeetAndGreet: in.MeetAndGreet,
		Passengers:   passengers,
		Bags:         in.Bags,
		Return:       in.Return,
	}
	q.SetFare(fare)

	values, err := quote.EncodeQuery(q)
	if err != nil {
		response.InternalError(w, "Failed to encode quote")
		return
	}
	observability.QuotesTotal.Inc()

	response.WriteJSON(w, http.StatusOK, quoteOut{
		Quote:         q,
		DistanceMiles: result.Miles(),
		Query:         values.Encode(),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
