package geo

// Preset locations shown when a waypoint field gains focus while empty.
// Coordinates are the same fixed points the booking site has always offered.
type PresetCategory struct {
	Name   string
	Places []Suggestion
}

var presetCatalogue = []PresetCategory{
	{
		Name: "Airports",
		Places: []Suggestion{
			{Label: "Southampton Airport", Coord: Coordinate{Lng: -1.3568, Lat: 50.9503}},
			{Label: "Heathrow Airport Terminal 2", Coord: Coordinate{Lng: -0.4497, Lat: 51.4696}},
			{Label: "Heathrow Airport Terminal 3", Coord: Coordinate{Lng: -0.4597, Lat: 51.4708}},
			{Label: "Heathrow Airport Terminal 4", Coord: Coordinate{Lng: -0.4455, Lat: 51.4594}},
			{Label: "Heathrow Airport Terminal 5", Coord: Coordinate{Lng: -0.4899, Lat: 51.4719}},
			{Label: "Gatwick Airport", Coord: Coordinate{Lng: -0.1821, Lat: 51.1537}},
			{Label: "London City Airport", Coord: Coordinate{Lng: 0.0553, Lat: 51.5048}},
			{Label: "London Luton Airport", Coord: Coordinate{Lng: -0.3718, Lat: 51.8763}},
			{Label: "London Stansted Airport", Coord: Coordinate{Lng: 0.2353, Lat: 51.8853}},
		},
	},
	{
		Name: "Cruise Terminals",
		Places: []Suggestion{
			{Label: "Southampton Port", Coord: Coordinate{Lng: -1.4147, Lat: 50.8872}},
			{Label: "Portsmouth Port", Coord: Coordinate{Lng: -1.0895, Lat: 50.8123}},
		},
	},
}

// Presets returns the full catalogue flattened into a suggestion list, with a
// header row in front of each category.
func Presets() []Suggestion {
	var list []Suggestion
	for _, cat := range presetCatalogue {
		list = append(list, Suggestion{Label: cat.Name, Header: true})
		list = append(list, cat.Places...)
	}
	return list
}
