package quote

// Class is one bookable vehicle class. Hourly is carried for the hourly-hire
// product but the quoting path prices per mile only.
type Class struct {
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	PerMile     float64 `json:"per_mile"`
	Hourly      float64 `json:"hourly"`
	Passengers  int     `json:"passengers"`
	Luggage     int     `json:"luggage"`
	Description string  `json:"description"`
}

var catalogue = []Class{
	{Name: "Standard Saloon", Image: "https://www.fareone.co.uk/wp-content/uploads/2025/11/Saloon-2.png", PerMile: 1.67, Hourly: 25, Passengers: 4, Luggage: 2, Description: "Economic"},
	{Name: "Executive Saloon", Image: "https://www.fareone.co.uk/wp-content/uploads/2025/12/executive-saloon.png", PerMile: 2.25, Hourly: 25, Passengers: 3, Luggage: 2, Description: "Mercedes E-Class"},
	{Name: "Standard MPV", Image: "https://www.fareone.co.uk/wp-content/uploads/2025/11/People-Carrier-3.png", PerMile: 2.37, Hourly: 25, Passengers: 6, Luggage: 8, Description: "Group Travel"},
	{Name: "8 Seater", Image: "https://www.fareone.co.uk/wp-content/uploads/2025/11/Executive-Mini-Bus.png", PerMile: 2.57, Hourly: 25, Passengers: 8, Luggage: 16, Description: "Mini Bus"},
}

// Catalogue returns a copy of the full vehicle class list.
func Catalogue() []Class {
	out := make([]Class, len(catalogue))
	copy(out, catalogue)
	return out
}

// ClassByName looks a class up in the catalogue.
func ClassByName(name string) (Class, bool) {
	for _, c := range catalogue {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// Picker tracks the selected vehicle class under a passenger/bag capacity
// constraint. Only classes with capacity for the requested passengers and
// luggage are eligible; when the current selection drops out of the eligible
// set the selection resets to the first remaining eligible class.
type Picker struct {
	classes  []Class
	pax      int
	bags     int
	selected string
}

func NewPicker() *Picker {
	p := &Picker{classes: Catalogue(), pax: 1, bags: 0}
	if eligible := p.Eligible(); len(eligible) > 0 {
		p.selected = eligible[0].Name
	}
	return p
}

// SetCapacity updates the requested passenger and bag counts and re-runs the
// eligibility filter.
func (p *Picker) SetCapacity(pax, bags int) {
	p.pax = pax
	p.bags = bags

	eligible := p.Eligible()
	if len(eligible) == 0 {
		p.selected = ""
		return
	}
	for _, c := range eligible {
		if c.Name == p.selected {
			return
		}
	}
	p.selected = eligible[0].Name
}

// Eligible returns the classes able to carry the current capacity request, in
// catalogue order.
func (p *Picker) Eligible() []Class {
	var out []Class
	for _, c := range p.classes {
		if c.Passengers >= p.pax && c.Luggage >= p.bags {
			out = append(out, c)
		}
	}
	return out
}

// Select picks a class by name. Ineligible or unknown classes are refused and
// the current selection stands.
func (p *Picker) Select(name string) bool {
	for _, c := range p.Eligible() {
		if c.Name == name {
			p.selected = name
			return true
		}
	}
	return false
}

// Selected returns the current selection, if any class is eligible.
func (p *Picker) Selected() (Class, bool) {
	if p.selected == "" {
		return Class{}, false
	}
	return ClassByName(p.selected)
}
