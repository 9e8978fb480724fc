package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fareone/bookings/internal/quote"
	"github.com/fareone/bookings/pkg/logger"
)

// State tracks where a submission is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateOrderCreated
	StatePaymentInitiated
	StateRedirecting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateOrderCreated:
		return "order_created"
	case StatePaymentInitiated:
		return "payment_initiated"
	case StateRedirecting:
		return "redirecting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the step a submission failed at.
type Stage string

const (
	StageValidation Stage = "validation"
	StageOrder      Stage = "order"
	StagePayment    Stage = "payment"
)

// Error carries the failed stage alongside the cause. A payment-stage error
// still has OrderID set: the order exists and stays pending.
type Error struct {
	Stage   Stage
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("booking %s stage failed (order %s): %v", e.Stage, e.OrderID, e.Err)
	}
	return fmt.Sprintf("booking %s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrSubmissionInFlight rejects a second submit while one is running.
	ErrSubmissionInFlight = errors.New("booking: submission already in flight")
	// ErrIncompleteQuote rejects submission of a quote missing pickup,
	// dropoff, vehicle or price.
	ErrIncompleteQuote = errors.New("booking: quote is incomplete")
	// ErrMissingOrderID rejects an order creation that reported success
	// without returning an identifier.
	ErrMissingOrderID = errors.New("booking: order id missing")
)

// Passenger is the contact detail captured on the booking form.
type Passenger struct {
	Name  string
	Email string
	Phone string
}

// Submission is everything a booking submit carries.
type Submission struct {
	Quote     quote.Quote
	Passenger Passenger
	RiderID   string
	Notes     string
}

// OrderCreator persists an order from a submission and returns its id.
type OrderCreator interface {
	CreateOrder(ctx context.Context, sub Submission, method PaymentMethod) (string, error)
}

// SessionCreator starts an online payment for an existing order and returns
// the URL the rider is sent to.
type SessionCreator interface {
	CreateSession(ctx context.Context, orderID string, sub Submission) (string, error)
}

// PaymentMethod selects how the rider pays.
type PaymentMethod string

const (
	PayInCab  PaymentMethod = "cash"
	PayOnline PaymentMethod = "online"
)

// Result reports a finished submission.
type Result struct {
	OrderID     string
	RedirectURL string
	Method      PaymentMethod
}

// Orchestrator runs the booking submission sequence: validate, create the
// order, then (for online payment) create the payment session. At most one
// submission runs at a time.
type Orchestrator struct {
	orders   OrderCreator
	sessions SessionCreator

	mu       sync.Mutex
	state    State
	inFlight bool
}

func NewOrchestrator(orders OrderCreator, sessions SessionCreator) *Orchestrator {
	return &Orchestrator{
		orders:   orders,
		sessions: sessions,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SubmitPayInCab creates the order and completes without touching payments.
func (o *Orchestrator) SubmitPayInCab(ctx context.Context, sub Submission) (Result, error) {
	return o.submit(ctx, sub, PayInCab)
}

// SubmitPayOnline creates the order, then a payment session for it. The
// order is created first; payment is never initiated without an order id.
// When payment setup fails the order remains pending and the returned error
// carries its id.
func (o *Orchestrator) SubmitPayOnline(ctx context.Context, sub Submission) (Result, error) {
	return o.submit(ctx, sub, PayOnline)
}

func (o *Orchestrator) submit(ctx context.Context, sub Submission, method PaymentMethod) (Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return Result{}, ErrSubmissionInFlight
	}
	o.inFlight = true
	o.state = StateSubmitting
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	if !sub.Quote.IsComplete() {
		o.setState(StateFailed)
		return Result{}, &Error{Stage: StageValidation, Err: ErrIncompleteQuote}
	}

	orderID, err := o.orders.CreateOrder(ctx, sub, method)
	if err != nil {
		o.setState(StateFailed)
		return Result{}, &Error{Stage: StageOrder, Err: err}
	}
	// Payment must never be initiated for an order that has no identifier.
	if orderID == "" {
		o.setState(StateFailed)
		return Result{}, &Error{Stage: StageOrder, Err: ErrMissingOrderID}
	}
	o.setState(StateOrderCreated)
	logger.InfoContext(ctx, "order created",
		"order_id", orderID,
		"method", string(method),
		"vehicle", sub.Quote.Vehicle,
	)

	if method == PayInCab {
		o.setState(StateComplete)
		return Result{OrderID: orderID, Method: method}, nil
	}

	redirectURL, err := o.sessions.CreateSession(ctx, orderID, sub)
	if err != nil {
		o.setState(StateFailed)
		logger.ErrorContext(ctx, "payment session failed, order kept pending",
			"order_id", orderID, "error", err)
		return Result{}, &Error{Stage: StagePayment, OrderID: orderID, Err: err}
	}
	o.setState(StatePaymentInitiated)

	o.setState(StateRedirecting)
	return Result{OrderID: orderID, RedirectURL: redirectURL, Method: method}, nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
