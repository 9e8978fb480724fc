package quote

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/go-querystring/query"
)

// ReturnLeg mirrors the outbound journey fields for a booked return trip.
type ReturnLeg struct {
	Pickup       string `json:"pickup"`
	Dropoff      string `json:"dropoff"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Flight       string `json:"flight"`
	MeetAndGreet bool   `json:"meet_and_greet"`
}

// Quote is the finalized, transferable unit of the quoting flow: everything
// the summary page needs to present a bookable trip. Prices are carried as
// fixed two-decimal strings because that is their wire and display form;
// OldPrice is empty unless the promotional discount applied.
type Quote struct {
	Pickup       string     `json:"pickup"`
	Dropoff      string     `json:"dropoff"`
	Vehicle      string     `json:"vehicle"`
	Price        string     `json:"price"`
	OldPrice     string     `json:"old_price,omitempty"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Flight       string     `json:"flight"`
	MeetAndGreet bool       `json:"meet_and_greet"`
	Passengers   int        `json:"passengers"`
	Bags         int        `json:"bags"`
	Return       *ReturnLeg `json:"return,omitempty"`
}

// SetFare stamps a computed fare onto the quote.
func (q *Quote) SetFare(f Fare) {
	q.Price = FormatPrice(f.Total)
	if f.Discounted {
		q.OldPrice = FormatPrice(f.Standard)
	} else {
		q.OldPrice = ""
	}
}

// IsComplete reports whether the quote can reach the booking step: pickup,
// dropoff, vehicle and price must all be present. Anything less renders the
// incomplete-booking fallback instead of the summary.
func (q *Quote) IsComplete() bool {
	return q.Pickup != "" && q.Dropoff != "" && q.Vehicle != "" && q.Price != ""
}

// FormatPrice renders a price the way it travels and displays: two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// transferParams is the flat query-string form of a Quote. Return-leg keys
// are present only when a return journey exists; their presence is the
// signal on the receiving side.
type transferParams struct {
	Pickup   string `url:"pickup"`
	Dropoff  string `url:"dropoff"`
	Vehicle  string `url:"vehicle"`
	Price    string `url:"price"`
	OldPrice string `url:"oldPrice,omitempty"`
	Date     string `url:"date"`
	Time     string `url:"time"`
	Flight   string `url:"flight"`
	Meet     bool   `url:"meet"`
	Pax      int    `url:"pax"`
	Bags     int    `url:"bags"`

	ReturnPickup  string `url:"returnPickup,omitempty"`
	ReturnDropoff string `url:"returnDropoff,omitempty"`
	ReturnDate    string `url:"returnDate,omitempty"`
	ReturnTime    string `url:"returnTime,omitempty"`
	ReturnFlight  string `url:"returnFlight,omitempty"`
	ReturnMeet    string `url:"returnMeet,omitempty"`
}

// EncodeQuery flattens a quote into percent-encodable query parameters for
// the page transition to the summary step.
func EncodeQuery(q Quote) (url.Values, error) {
	p := transferParams{
		Pickup:   q.Pickup,
		Dropoff:  q.Dropoff,
		Vehicle:  q.Vehicle,
		Price:    q.Price,
		OldPrice: q.OldPrice,
		Date:     q.Date,
		Time:     q.Time,
		Flight:   q.Flight,
		Meet:     q.MeetAndGreet,
		Pax:      q.Passengers,
		Bags:     q.Bags,
	}
	if q.Return != nil {
		p.ReturnPickup = q.Return.Pickup
		p.ReturnDropoff = q.Return.Dropoff
		p.ReturnDate = q.Return.Date
		p.ReturnTime = q.Return.Time
		p.ReturnFlight = q.Return.Flight
		p.ReturnMeet = strconv.FormatBool(q.Return.MeetAndGreet)
	}
	return query.Values(p)
}

// DecodeQuery reconstructs a quote on the receiving page. Every field is
// optional-with-default: missing strings decode to empty, a missing meet
// flag to false, missing counts to 1 passenger and 0 bags. Decoding never
// fails; completeness is a separate check.
func DecodeQuery(v url.Values) Quote {
	q := Quote{
		Pickup:       v.Get("pickup"),
		Dropoff:      v.Get("dropoff"),
		Vehicle:      v.Get("vehicle"),
		Price:        getDefault(v, "price", "0"),
		OldPrice:     v.Get("oldPrice"),
		Date:         v.Get("date"),
		Time:         v.Get("time"),
		Flight:       v.Get("flight"),
		MeetAndGreet: v.Get("meet") == "true",
		Passengers:   getCount(v, "pax", 1),
		Bags:         getCount(v, "bags", 0),
	}

	if v.Has("returnPickup") || v.Has("returnDropoff") || v.Has("returnDate") || v.Has("returnMeet") {
		q.Return = &ReturnLeg{
			Pickup:       v.Get("returnPickup"),
			Dropoff:      v.Get("returnDropoff"),
			Date:         v.Get("returnDate"),
			Time:         v.Get("returnTime"),
			Flight:       v.Get("returnFlight"),
			MeetAndGreet: v.Get("returnMeet") == "true",
		}
	}

	return q
}

func getDefault(v url.Values, key, fallback string) string {
	if !v.Has(key) || v.Get(key) == "" {
		return fallback
	}
	return v.Get(key)
}

func getCount(v url.Values, key string, fallback int) int {
	if s := v.Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
