package payments

import (
	"context"
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/fareone/bookings/pkg/config"
)

// CheckoutSession is the part of a created session the caller needs: the id
// for later webhook correlation and the URL the rider is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Client is a thin wrapper around stripe-go Checkout Sessions.
type Client struct {
	currency   string
	successURL string
	cancelURL  string
}

func NewClient(cfg config.StripeConfig) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// CreateCheckout opens a hosted checkout page for one order. The price is
// the order's pound amount as a fixed two-decimal string; Stripe wants
// pennies.
func (c *Client) CreateCheckout(ctx context.Context, orderID, email, price string) (*CheckoutSession, error) {
	amount, err := toPennies(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(c.currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Taxi Booking Payment"),
						Description: stripe.String("Booking Ref: " + orderID),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata("order_id", orderID)
	params.AddMetadata("email", email)
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func toPennies(price string) (int64, error) {
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount")
	}
	return int64(v*100 + 0.5), nil
}
