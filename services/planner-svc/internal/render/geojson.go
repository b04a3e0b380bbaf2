package render

import (
	"context"
	"encoding/json"

	"skypath/pkg/apperror"
)

// GeoJSONRenderer выводит аэропорты точками и маршрут линией
type GeoJSONRenderer struct {
	coords Coordinates
}

// NewGeoJSONRenderer создаёт новый рендерер
func NewGeoJSONRenderer(coords Coordinates) *GeoJSONRenderer {
	return &GeoJSONRenderer{coords: coords}
}

// Format возвращает формат рендерера
func (r *GeoJSONRenderer) Format() Format {
	return FormatGeoJSON
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// Render создаёт FeatureCollection. Аэропорты без координат пропускаются,
// но у аэропорта на маршруте координаты обязательны.
func (r *GeoJSONRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}

	for _, v := range data.Network.Vertices() {
		p, ok := r.coords[v]
		if !ok {
			continue
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Point", Coordinates: []float64{p.Lon, p.Lat}},
			Properties: map[string]any{
				"code":      v,
				"name":      p.Name,
				"departing": data.Network.OutDegree(v),
			},
		})
	}

	if it := data.Itinerary; it != nil && it.Found {
		vertices := it.Path().Vertices()
		line := make([][]float64, 0, len(vertices))
		for _, v := range vertices {
			p, ok := r.coords[v]
			if !ok {
				return nil, apperror.Newf(apperror.CodeRenderFormat, "no coordinates for airport %q", v).
					WithDetails("airport", v)
			}
			line = append(line, []float64{p.Lon, p.Lat})
		}
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "LineString", Coordinates: line},
			Properties: map[string]any{
				"route":              it.Route,
				"flights":            it.FlightIDs(),
				"arrival":            it.ArrivalClock,
				"arrival_with_delay": it.ArrivalWithDelay,
			},
		})
	}

	return json.MarshalIndent(fc, "", "  ")
}
