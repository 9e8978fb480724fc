package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/fareone/bookings/internal/domain"
	"github.com/fareone/bookings/internal/http/response"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/pkg/events"
	"github.com/fareone/bookings/pkg/logger"
)

const maxWebhookBody = 65536

// PaymentsHandler receives Stripe webhooks and settles orders when their
// checkout session completes.
type PaymentsHandler struct {
	Orders        postgres.OrderRepo
	Bus           events.Publisher
	WebhookSecret string
}

func NewPaymentsHandler(orders postgres.OrderRepo, bus events.Publisher, webhookSecret string) *PaymentsHandler {
	return &PaymentsHandler{Orders: orders, Bus: bus, WebhookSecret: webhookSecret}
}

func (h *PaymentsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/stripe/webhook", h.stripeWebhook)
	return r
}

func (h *PaymentsHandler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Failed to read webhook body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		logger.ErrorContext(r.Context(), "Stripe webhook signature check failed", "error", err)
		response.BadRequest(w, "Invalid webhook signature")
		return
	}

	if event.Type != "checkout.session.completed" {
		// Unhandled event types are acknowledged so Stripe stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		logger.ErrorContext(r.Context(), "Malformed checkout session payload", "error", err)
		response.BadRequest(w, "Malformed event payload")
		return
	}

	settled, err := h.Orders.MarkPaid(r.Context(), session.ID)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to settle order", "error", err, "session_id", session.ID)
		response.InternalError(w, "Failed to settle order")
		return
	}
	if !settled {
		// Replayed webhook or an unknown session; nothing to do.
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.Bus != nil {
		evt := events.OrderStatusChangedEvent{
			OrderID:   session.Metadata["order_id"],
			OldStatus: string(domain.OrderPending),
			NewStatus: string(domain.OrderConfirmed),
			ChangedBy: "stripe",
			ChangedAt: time.Now().UTC(),
		}
		if err := h.Bus.Publish(r.Context(), events.OrderStatusChanged, evt); err != nil {
			logger.ErrorContext(r.Context(), "Failed to publish status change", "error", err, "session_id", session.ID)
		}
	}

	w.WriteHeader(http.StatusOK)
}
