package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/fareone/bookings/internal/domain"
	"github.com/fareone/bookings/internal/mailer"
	"github.com/fareone/bookings/internal/observability"
	"github.com/fareone/bookings/internal/payments"
	"github.com/fareone/bookings/internal/repo/postgres"
	"github.com/fareone/bookings/pkg/events"
	"github.com/fareone/bookings/pkg/logger"
)

// Service persists orders and starts checkout sessions. It is the production
// implementation of the orchestrator's OrderCreator and SessionCreator ports.
type Service struct {
	orders postgres.OrderRepo
	stripe *payments.Client
	bus    events.Publisher
	mail   mailer.Service
}

func NewService(orders postgres.OrderRepo, stripe *payments.Client, bus events.Publisher, mail mailer.Service) *Service {
	return &Service{orders: orders, stripe: stripe, bus: bus, mail: mail}
}

func (s *Service) CreateOrder(ctx context.Context, sub Submission, method PaymentMethod) (string, error) {
	req := orderReq(sub)

	var riderID *int64
	if sub.RiderID != "" {
		// RiderID is set by the identity middleware from verified claims.
		var id int64
		if _, err := fmt.Sscan(sub.RiderID, &id); err == nil {
			riderID = &id
		}
	}

	order, err := s.orders.Create(ctx, req, domain.PaymentMethod(method), riderID)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	observability.OrdersTotal.WithLabelValues(string(method)).Inc()

	if s.bus != nil {
		evt := events.OrderCreatedEvent{
			OrderID:    order.ID,
			RiderEmail: order.RiderEmail,
			Pickup:     order.Pickup,
			Dropoff:    order.Dropoff,
			Vehicle:    order.Vehicle,
			Price:      order.Price,
			Date:       order.Date,
			Time:       order.Time,
			Passengers: order.Passengers,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.bus.Publish(ctx, events.OrderCreated, evt); err != nil {
			logger.ErrorContext(ctx, "Failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	if s.mail != nil {
		go func(o domain.Order) {
			if err := s.mail.SendBookingConfirmation(&o); err != nil {
				logger.Error("Failed to send booking confirmation", "error", err, "order_id", o.ID)
			}
		}(*order)
	}

	return order.ID, nil
}

func (s *Service) CreateSession(ctx context.Context, orderID string, sub Submission) (string, error) {
	cs, err := s.stripe.CreateCheckout(ctx, orderID, sub.Passenger.Email, sub.Quote.Price)
	if err != nil {
		observability.PaymentFailures.Inc()
		if s.bus != nil {
			evt := events.OrderPaymentFailedEvent{
				OrderID:    orderID,
				RiderEmail: sub.Passenger.Email,
				Price:      sub.Quote.Price,
				Reason:     err.Error(),
				FailedAt:   time.Now().UTC(),
			}
			if pubErr := s.bus.Publish(ctx, events.OrderPaymentFailed, evt); pubErr != nil {
				logger.ErrorContext(ctx, "Failed to publish payment failed event", "error", pubErr, "order_id", orderID)
			}
		}
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.orders.AttachPaymentSession(ctx, orderID, cs.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to attach payment session", "error", err, "order_id", orderID)
	}

	if s.bus != nil {
		evt := events.PaymentSessionCreatedEvent{OrderID: orderID, SessionID: cs.ID, CreatedAt: time.Now().UTC()}
		if err := s.bus.Publish(ctx, events.PaymentSessionCreated, evt); err != nil {
			logger.ErrorContext(ctx, "Failed to publish payment session event", "error", err, "order_id", orderID)
		}
	}

	return cs.URL, nil
}

func orderReq(sub Submission) *domain.OrderCreateReq {
	q := sub.Quote
	req := &domain.OrderCreateReq{
		RiderName:  sub.Passenger.Name,
		RiderEmail: sub.Passenger.Email,
		RiderPhone: sub.Passenger.Phone,
		Notes:      sub.Notes,

		Pickup:  q.Pickup,
		Dropoff: q.Dropoff,
		Date:    q.Date,
		Time:    q.Time,
		Flight:  q.Flight,

		Vehicle:      q.Vehicle,
		Passengers:   q.Passengers,
		Bags:         q.Bags,
		MeetAndGreet: q.MeetAndGreet,

		Price:    q.Price,
		OldPrice: q.OldPrice,
	}
	if q.Return != nil {
		req.ReturnPickup = q.Return.Pickup
		req.ReturnDropoff = q.Return.Dropoff
		req.ReturnDate = q.Return.Date
		req.ReturnTime = q.Return.Time
		req.ReturnFlight = q.Return.Flight
	}
	return req
}

var (
	_ OrderCreator   = (*Service)(nil)
	_ SessionCreator = (*Service)(nil)
)
