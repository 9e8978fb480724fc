package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fareone/bookings/internal/domain"
)

type OrderRepo interface {
	Create(ctx context.Context, in *domain.OrderCreateReq, method domain.PaymentMethod, riderID *int64) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error)
	ListByRiderEmail(ctx context.Context, email string, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error)
	AttachPaymentSession(ctx context.Context, id, sessionID string) error
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
}

type OrderRepoImpl struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepoImpl { return &OrderRepoImpl{pool: pool} }

const orderCols = `id, status,
rider_id, rider_name, rider_email, rider_phone,
pickup, dropoff, ride_date, ride_time, flight,
return_pickup, return_dropoff, return_date, return_time, return_flight,
vehicle, passengers, bags, meet_and_greet, notes,
price, old_price,
payment_method, payment_status, stripe_session,
created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.Status,
		&o.RiderID, &o.RiderName, &o.RiderEmail, &o.RiderPhone,
		&o.Pickup, &o.Dropoff, &o.Date, &o.Time, &o.Flight,
		&o.ReturnPickup, &o.ReturnDropoff, &o.ReturnDate, &o.ReturnTime, &o.ReturnFlight,
		&o.Vehicle, &o.Passengers, &o.Bags, &o.MeetAndGreet, &o.Notes,
		&o.Price, &o.OldPrice,
		&o.PaymentMethod, &o.PaymentStatus, &o.StripeSession,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepoImpl) Create(ctx context.Context, in *domain.OrderCreateReq, method domain.PaymentMethod, riderID *int64) (*domain.Order, error) {
	const q = `INSERT INTO orders (
    id, status,
    rider_id, rider_name, rider_email, rider_phone,
    pickup, dropoff, ride_date, ride_time, flight,
    return_pickup, return_dropoff, return_date, return_time, return_flight,
    vehicle, passengers, bags, meet_and_greet, notes,
    price, old_price,
    payment_method, payment_status
  ) VALUES ($1,'pending',$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,'unpaid')
  RETURNING ` + orderCols

	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOrder(r.pool.QueryRow(ctx, q, id,
		riderID, in.RiderName, in.RiderEmail, in.RiderPhone,
		in.Pickup, in.Dropoff, in.Date, in.Time, in.Flight,
		in.ReturnPickup, in.ReturnDropoff, in.ReturnDate, in.ReturnTime, in.ReturnFlight,
		in.Vehicle, in.Passengers, in.Bags, in.MeetAndGreet, in.Notes,
		in.Price, in.OldPrice,
		method,
	))
}

func (r *OrderRepoImpl) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (r *OrderRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, q, limit, offset)
}

func (r *OrderRepoImpl) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE status=$3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, q, limit, offset, status)
}

func (r *OrderRepoImpl) ListByRiderEmail(ctx context.Context, email string, limit, offset int) ([]domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE rider_email=$3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, q, limit, offset, email)
}

func (r *OrderRepoImpl) list(ctx context.Context, q string, limit, offset int, extra ...any) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	args := append([]any{limit, offset}, extra...)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	os := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		os = append(os, *o)
	}
	return os, rows.Err()
}

func (r *OrderRepoImpl) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status <> $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *OrderRepoImpl) AttachPaymentSession(ctx context.Context, id, sessionID string) error {
	const q = `UPDATE orders SET stripe_session=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, sessionID)
	return err
}

func (r *OrderRepoImpl) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	const q = `UPDATE orders SET payment_status='paid', status='confirmed', updated_at=now()
		WHERE stripe_session=$1 AND payment_status='unpaid'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ct, err := r.pool.Exec(ctx, q, sessionID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ OrderRepo = (*OrderRepoImpl)(nil)
