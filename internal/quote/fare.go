package quote

import "math"

// Pricing rules
const (
	MinimumFare       = 5.00
	MeetAndGreetFee   = 5.00
	DiscountThreshold = 130.00
	DiscountRate      = 0.15
)

// Fare is the computed price for a trip. When the promotional discount
// applied, Standard holds the pre-discount price for struck-through display
// and Discounted is true; otherwise Standard equals Total.
type Fare struct {
	Total      float64
	Standard   float64
	Discounted bool
}

// Calculate derives a fare from a routed distance and the selected vehicle's
// per-mile rate. It reports ok=false when the distance is zero or negative,
// in which case no price is computed and callers keep whatever they had.
//
// Order matters: the minimum-fare floor and the meet-and-greet fee are both
// applied before the promotional threshold check, so the add-on alone can
// push a fare over the threshold. The boundary is inclusive.
func Calculate(distanceMiles, perMileRate float64, meetAndGreet bool) (Fare, bool) {
	if distanceMiles <= 0 {
		return Fare{}, false
	}

	base := distanceMiles * perMileRate
	if base < MinimumFare {
		base = MinimumFare
	}
	if meetAndGreet {
		base += MeetAndGreetFee
	}

	if base >= DiscountThreshold {
		return Fare{
			Total:      round2(base * (1 - DiscountRate)),
			Standard:   round2(base),
			Discounted: true,
		}, true
	}

	total := round2(base)
	return Fare{Total: total, Standard: total}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
