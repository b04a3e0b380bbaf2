package render

import (
	"bytes"
	"context"
	"fmt"

	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/service"
)

// MarkdownRenderer рендерер Markdown
type MarkdownRenderer struct {
	company string
}

// NewMarkdownRenderer создаёт новый рендерер
func NewMarkdownRenderer(opts Options) *MarkdownRenderer {
	return &MarkdownRenderer{company: opts.CompanyName}
}

// Format возвращает формат рендерера
func (r *MarkdownRenderer) Format() Format {
	return FormatMarkdown
}

// Render рендерит маршрут в Markdown
func (r *MarkdownRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	it := data.Itinerary

	fmt.Fprintf(&buf, "# %s\n\n", title(data))
	fmt.Fprintf(&buf, "- **Generated:** %s\n", data.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "- **From:** %s\n", it.Source)
	fmt.Fprintf(&buf, "- **To:** %s\n", it.Destination)
	fmt.Fprintf(&buf, "- **Start time:** %s\n", domain.FormatHour(it.StartTime))
	buf.WriteString("\n---\n\n")

	buf.WriteString("## Flights\n\n")
	buf.WriteString("| # | Flight | From | To | Departure | Arrival | Delay (min) | Status |\n")
	buf.WriteString("|---|--------|------|----|-----------|---------|-------------|--------|\n")
	for i, l := range it.Legs {
		f := l.Flight
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %d | %s |\n",
			i+1, f.ID, f.Origin, f.Dest,
			domain.FormatHour(f.Departure), domain.FormatHour(f.Arrival),
			l.DelayMinutes, markdownFlag(l))
	}
	buf.WriteString("\n")

	buf.WriteString("## Summary\n\n")
	fmt.Fprintf(&buf, "- **Route:** %s\n", it.Route)
	fmt.Fprintf(&buf, "- **Scheduled arrival:** %s\n", it.ArrivalClock)
	fmt.Fprintf(&buf, "- **Total predicted delay:** %d min\n", it.TotalDelayMinutes)
	fmt.Fprintf(&buf, "- **Arrival with delay:** %s\n", it.ArrivalWithDelay)
	if it.DelayFallbacks > 0 {
		fmt.Fprintf(&buf, "- **Delay estimates unavailable:** %d leg(s)\n", it.DelayFallbacks)
	}

	buf.WriteString("\n---\n\n")
	fmt.Fprintf(&buf, "*Generated by %s*\n", r.company)

	return buf.Bytes(), nil
}

func markdownFlag(l service.Leg) string {
	if l.Delayed {
		return "⚠️ delayed"
	}
	return "✅ on time"
}
