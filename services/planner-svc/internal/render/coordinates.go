package render

// Point - географическая точка аэропорта
type Point struct {
	Name string  `json:"name" koanf:"name"`
	Lat  float64 `json:"lat" koanf:"lat"`
	Lon  float64 `json:"lon" koanf:"lon"`
}

// Coordinates - координаты аэропортов по имени вершины
type Coordinates map[string]Point

// DefaultCoordinates возвращает координаты демо-сети
func DefaultCoordinates() Coordinates {
	return Coordinates{
		"A": {Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
		"B": {Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
		"C": {Name: "Bangalore", Lat: 12.9716, Lon: 77.5946},
		"D": {Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
		"E": {Name: "Kolkata", Lat: 22.5726, Lon: 88.3639},
	}
}
