package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCanceled  OrderStatus = "canceled"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderCompleted, OrderCanceled:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type Order struct {
	ID     string      `json:"id"`
	Status OrderStatus `json:"status"`

	RiderID    *int64 `json:"rider_id,omitempty"`
	RiderName  string `json:"rider_name"`
	RiderEmail string `json:"rider_email"`
	RiderPhone string `json:"rider_phone"`

	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Flight  string `json:"flight"`

	ReturnPickup  string `json:"return_pickup,omitempty"`
	ReturnDropoff string `json:"return_dropoff,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`
	ReturnTime    string `json:"return_time,omitempty"`
	ReturnFlight  string `json:"return_flight,omitempty"`

	Vehicle      string `json:"vehicle"`
	Passengers   int    `json:"passengers"`
	Bags         int    `json:"bags"`
	MeetAndGreet bool   `json:"meet_and_greet"`
	Notes        string `json:"notes"`

	Price    string `json:"price"`
	OldPrice string `json:"old_price,omitempty"`

	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	StripeSession  string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type OrderCreateReq struct {
	RiderName  string `json:"rider_name"`
	RiderEmail string `json:"rider_email"`
	RiderPhone string `json:"rider_phone"`
	Notes      string `json:"notes"`

	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Flight  string `json:"flight"`

	ReturnPickup  string `json:"return_pickup,omitempty"`
	ReturnDropoff string `json:"return_dropoff,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`
	ReturnTime    string `json:"return_time,omitempty"`
	ReturnFlight  string `json:"return_flight,omitempty"`

	Vehicle      string `json:"vehicle"`
	Passengers   int    `json:"passengers"`
	Bags         int    `json:"bags"`
	MeetAndGreet bool   `json:"meet_and_greet"`

	Price    string `json:"price"`
	OldPrice string `json:"old_price,omitempty"`
}

type OrderCreateRes struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CheckoutRes struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url"`
}

type OrderStatusUpdateReq struct {
	Status string `json:"status"`
}
