package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fareone/bookings/internal/booking"
	"github.com/fareone/bookings/internal/domain"
	"github.com/fareone/bookings/internal/http/response"
	"github.com/fareone/bookings/internal/identity"
	"github.com/fareone/bookings/internal/quote"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/internal/utils"
	"github.com/fareone/bookings/pkg/logger"
)

// BookingHandler turns a finished quote into an order, optionally with a
// hosted checkout session.
type BookingHandler struct {
	Orders      booking.OrderCreator
	Sessions    booking.SessionCreator
	Repo        postgres.OrderRepo
	Idempotency postgres.IdempotencyRepo
	Identity    identity.Provider
}

func NewBookingHandler(orders booking.OrderCreator, sessions booking.SessionCreator, repo postgres.OrderRepo, idem postgres.IdempotencyRepo, ident identity.Provider) *BookingHandler {
	return &BookingHandler{Orders: orders, Sessions: sessions, Repo: repo, Idempotency: idem, Identity: ident}
}

func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Post("/checkout", h.checkout)
	r.Get("/", h.list)
	return r
}

type bookingIn struct {
	RiderName  string `json:"rider_name"`
	RiderEmail string `json:"rider_email"`
	RiderPhone string `json:"rider_phone"`
	Notes      string `json:"notes"`
	// Quote is the query string the summary page received, unchanged.
	Quote string `json:"quote"`
}

func (h *BookingHandler) submission(w http.ResponseWriter, r *http.Request) (booking.Submission, bool) {
	var in bookingIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return booking.Submission{}, false
	}

	in.RiderName = utils.NormalizeString(in.RiderName)
	in.RiderEmail = utils.NormalizeEmail(in.RiderEmail)
	in.RiderPhone = utils.NormalizePhone(in.RiderPhone)

	if in.RiderName == "" || !utils.IsValidEmail(in.RiderEmail) {
		response.BadRequest(w, "Name and a valid email are required")
		return booking.Submission{}, false
	}

	values, err := url.ParseQuery(in.Quote)
	if err != nil {
		response.BadRequest(w, "Malformed quote")
		return booking.Submission{}, false
	}
	q := quote.DecodeQuery(values)
	if !q.IsComplete() {
		response.WriteError(w, http.StatusUnprocessableEntity, "Quote is missing pickup, dropoff, vehicle or price", response.CodeIncompleteQuote)
		return booking.Submission{}, false
	}

	sub := booking.Submission{
		Quote: q,
		Passenger: booking.Passenger{
			Name:  in.RiderName,
			Email: in.RiderEmail,
			Phone: in.RiderPhone,
		},
		Notes: in.Notes,
	}
	if h.Identity != nil {
		if ident, _ := h.Identity.Resolve(r); ident != nil {
			sub.RiderID = strconv.FormatInt(ident.UserID, 10)
		}
	}
	return sub, true
}

// checkIdempotency returns the previously created order id for a replayed
// Idempotency-Key, or "".
func (h *BookingHandler) checkIdempotency(r *http.Request) string {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.Idempotency == nil {
		return ""
	}
	existing, err := h.Idempotency.CheckOrCreate(r.Context(), key, "")
	if err != nil {
		logger.ErrorContext(r.Context(), "Idempotency lookup failed", "error", err)
		return ""
	}
	return existing
}

func (h *BookingHandler) recordIdempotency(r *http.Request, orderID string) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.Idempotency == nil {
		return
	}
	if _, err := h.Idempotency.CheckOrCreate(r.Context(), key, orderID); err != nil {
		logger.ErrorContext(r.Context(), "Idempotency record failed", "error", err, "order_id", orderID)
	}
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	if existing := h.checkIdempotency(r); existing != "" {
		response.WriteJSON(w, http.StatusOK, domain.OrderCreateRes{ID: existing, Status: string(domain.OrderPending)})
		return
	}

	sub, ok := h.submission(w, r)
	if !ok {
		return
	}

	orch := booking.NewOrchestrator(h.Orders, h.Sessions)
	res, err := orch.SubmitPayInCab(r.Context(), sub)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}
	h.recordIdempotency(r, res.OrderID)

	response.WriteJSON(w, http.StatusCreated, domain.OrderCreateRes{ID: res.OrderID, Status: string(domain.OrderPending)})
}

func (h *BookingHandler) checkout(w http.ResponseWriter, r *http.Request) {
	if existing := h.checkIdempotency(r); existing != "" {
		response.WriteJSON(w, http.StatusOK, domain.CheckoutRes{ID: existing, Status: string(domain.OrderPending)})
		return
	}

	sub, ok := h.submission(w, r)
	if !ok {
		return
	}

	orch := booking.NewOrchestrator(h.Orders, h.Sessions)
	res, err := orch.SubmitPayOnline(r.Context(), sub)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}
	h.recordIdempotency(r, res.OrderID)

	response.WriteJSON(w, http.StatusCreated, domain.CheckoutRes{
		ID:          res.OrderID,
		Status:      string(domain.OrderPending),
		RedirectURL: res.RedirectURL,
	})
}

func (h *BookingHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var bErr *booking.Error
	if errors.As(err, &bErr) {
		switch bErr.Stage {
		case booking.StageValidation:
			response.WriteError(w, http.StatusUnprocessableEntity, "Quote is incomplete", response.CodeIncompleteQuote)
			return
		case booking.StagePayment:
			// The order exists and stays pending; the rider can retry
			// payment or settle in the cab.
			response.WritePaymentError(w, "Payment setup failed, booking saved", bErr.OrderID)
			return
		}
	}
	logger.ErrorContext(r.Context(), "Booking submission failed", "error", err)
	response.InternalError(w, "Failed to create booking")
}

// list returns the authenticated rider's orders, newest first.
func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.Identity == nil {
		response.Unauthorized(w, "Sign in to view bookings")
		return
	}
	ident, err := h.Identity.Resolve(r)
	if err != nil || ident == nil {
		response.Unauthorized(w, "Sign in to view bookings")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	orders, err := h.Repo.ListByRiderEmail(r.Context(), ident.Email, limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list orders", "error", err)
		response.InternalError(w, "Failed to list bookings")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
