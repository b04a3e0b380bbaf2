package render

import (
	"context"
	"encoding/json"
	"time"

	"skypath/services/planner-svc/internal/service"
)

// JSONRenderer рендерер JSON
type JSONRenderer struct {
	company string
}

// NewJSONRenderer создаёт новый рендерер
func NewJSONRenderer(opts Options) *JSONRenderer {
	return &JSONRenderer{company: opts.CompanyName}
}

// Format возвращает формат рендерера
func (r *JSONRenderer) Format() Format {
	return FormatJSON
}

// JSONReport структура JSON отчёта
type JSONReport struct {
	Metadata  JSONMetadata       `json:"metadata"`
	Itinerary *service.Itinerary `json:"itinerary"`
	Arrival   float64            `json:"arrival"`
}

type JSONMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	GeneratedAt string `json:"generatedAt"`
}

// Render рендерит маршрут в JSON
func (r *JSONRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	report := JSONReport{
		Metadata: JSONMetadata{
			Title:       title(data),
			Author:      r.company,
			GeneratedAt: data.GeneratedAt.Format(time.RFC3339),
		},
		Itinerary: data.Itinerary,
		Arrival:   data.Itinerary.ArrivalHours(),
	}
	return json.MarshalIndent(report, "", "  ")
}
