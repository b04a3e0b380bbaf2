package render

import (
	"bytes"
	"context"
	"fmt"

	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/service"
)

// DOTRenderer рисует сеть в Graphviz DOT, выделяя рейсы маршрута
type DOTRenderer struct{}

// NewDOTRenderer создаёт новый рендерер
func NewDOTRenderer() *DOTRenderer {
	return &DOTRenderer{}
}

// Format возвращает формат рендерера
func (r *DOTRenderer) Format() Format {
	return FormatDOT
}

// Render создаёт DOT представление сети. Itinerary может отсутствовать
// или быть ненайденным, тогда маршрут не выделяется.
func (r *DOTRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	onPath := pathFlights(data.Itinerary)

	buf.WriteString("digraph skypath {\n")
	fmt.Fprintf(&buf, "  label=%q;\n", title(data))
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=\"skyblue\", fontname=\"Arial\"];\n")
	buf.WriteString("  edge [color=\"lightgray\", fontname=\"Arial\", fontsize=10];\n\n")

	for _, v := range data.Network.Vertices() {
		fmt.Fprintf(&buf, "  %q;\n", v)
	}
	buf.WriteString("\n")

	for _, f := range data.Network.Flights() {
		label := fmt.Sprintf("%s\\n%s-%s", f.ID, domain.FormatHour(f.Departure), domain.FormatHour(f.Arrival))
		attrs := fmt.Sprintf("label=\"%s\"", label)
		if onPath[f.ID] {
			attrs += ", color=\"green\", penwidth=2.5, fontcolor=\"darkgreen\""
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", f.Origin, f.Dest, attrs)
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// pathFlights возвращает множество рейсов найденного маршрута
func pathFlights(it *service.Itinerary) map[string]bool {
	out := make(map[string]bool)
	if it == nil || !it.Found {
		return out
	}
	for _, id := range it.FlightIDs() {
		out[id] = true
	}
	return out
}
