package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fareone/bookings/internal/admin"
	"github.com/fareone/bookings/internal/domain"
	appmw "github.com/fareone/bookings/internal/http/middleware"
	"github.com/fareone/bookings/internal/http/response"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/internal/utils"
	"github.com/fareone/bookings/pkg/events"
	"github.com/fareone/bookings/pkg/logger"
)

// AdminHandler serves the back office: the two-step login and order
// management.
type AdminHandler struct {
	Svc    *admin.Service
	Orders postgres.OrderRepo
	Bus    events.Publisher
	Secret string
}

func NewAdminHandler(svc *admin.Service, orders postgres.OrderRepo, bus events.Publisher, secret string) *AdminHandler {
	return &AdminHandler{Svc: svc, Orders: orders, Bus: bus, Secret: secret}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/pre-login", h.preLogin)
	r.Post("/verify", h.verify)

	r.Group(func(r chi.Router) {
		r.Use(appmw.RequireAdmin(h.Secret))
		r.Get("/orders", h.listOrders)
		r.Patch("/orders/{id}/status", h.updateStatus)
	})
	return r
}

func (h *AdminHandler) preLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.AdminPreLoginReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if !utils.IsValidEmail(in.Email) || in.Password == "" {
		response.BadRequest(w, "Email and password are required")
		return
	}

	var ip net.IP
	if addr := appmw.ClientIP(r); addr != "" {
		ip = net.ParseIP(addr)
	}

	if err := h.Svc.PreLogin(r.Context(), in.Email, in.Password, ip); err != nil {
		if errors.Is(err, admin.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid email or password")
			return
		}
		logger.ErrorContext(r.Context(), "Admin pre-login failed", "error", err)
		response.InternalError(w, "Failed to start login")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Login code sent to your email",
	})
}

func (h *AdminHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in domain.AdminVerifyReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	in.Code = strings.TrimSpace(in.Code)
	if !utils.IsValidEmail(in.Email) || len(in.Code) != 6 {
		response.BadRequest(w, "Email and a 6-digit code are required")
		return
	}

	token, expiresIn, err := h.Svc.Verify(r.Context(), in.Email, in.Code)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidCode) {
			response.Unauthorized(w, "Invalid or expired code")
			return
		}
		logger.ErrorContext(r.Context(), "Admin verify failed", "error", err)
		response.InternalError(w, "Failed to verify code")
		return
	}

	response.WriteJSON(w, http.StatusOK, domain.AdminSessionRes{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	})
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	var (
		orders []domain.Order
		err    error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseOrderStatus(s)
		if !ok {
			response.BadRequest(w, "Unknown status")
			return
		}
		orders, err = h.Orders.ListByStatus(r.Context(), status, limit, offset)
	} else {
		orders, err = h.Orders.List(r.Context(), limit, offset)
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list orders", "error", err)
		response.InternalError(w, "Failed to list orders")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *AdminHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in domain.OrderStatusUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	status, ok := domain.ParseOrderStatus(in.Status)
	if !ok {
		response.BadRequest(w, "Unknown status")
		return
	}

	existing, err := h.Orders.GetByID(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load order", "error", err, "order_id", id)
		response.InternalError(w, "Failed to update order")
		return
	}
	if existing == nil {
		response.NotFound(w, "Order not found")
		return
	}

	changed, err := h.Orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to update order status", "error", err, "order_id", id)
		response.InternalError(w, "Failed to update order")
		return
	}
	if !changed {
		response.Conflict(w, "Order already in that status")
		return
	}

	if h.Bus != nil {
		changedBy := ""
		if claims := appmw.Claims(r); claims != nil {
			changedBy = claims.Email
		}
		evt := events.OrderStatusChangedEvent{
			OrderID:   id,
			OldStatus: string(existing.Status),
			NewStatus: string(status),
			ChangedBy: changedBy,
			ChangedAt: time.Now().UTC(),
		}
		if err := h.Bus.Publish(r.Context(), events.OrderStatusChanged, evt); err != nil {
			logger.ErrorContext(r.Context(), "Failed to publish status change", "error", err, "order_id", id)
		}
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}
