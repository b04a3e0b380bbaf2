package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"skypath/pkg/config"
	"skypath/pkg/domain"
	"skypath/services/planner-svc/internal/service"
)

// PDFRenderer рендерер PDF
type PDFRenderer struct {
	company string
	cfg     config.PDFConfig
}

// NewPDFRenderer создаёт новый рендерер
func NewPDFRenderer(opts Options) *PDFRenderer {
	return &PDFRenderer{company: opts.CompanyName, cfg: opts.PDF}
}

// Format возвращает формат рендерера
func (r *PDFRenderer) Format() Format {
	return FormatPDF
}

// Стили
var (
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	titleStyle = props.Text{
		Size:  22,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  14,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   4,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// ширины колонок таблицы рейсов, в сумме 12
var legColumnSizes = []int{1, 2, 1, 1, 2, 2, 1, 2}

// Render рендерит маршрут в PDF
func (r *PDFRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	m := maroto.New(r.buildConfig())
	it := data.Itinerary

	r.addHeader(m, data)

	addSection(m, "Summary")
	addMetricCards(m, []metricCard{
		{Label: "Departure", Value: domain.FormatHour(it.StartTime)},
		{Label: "Scheduled arrival", Value: it.ArrivalClock},
		{Label: "Predicted delay", Value: fmt.Sprintf("%d min", it.TotalDelayMinutes)},
		{Label: "Arrival with delay", Value: it.ArrivalWithDelay},
	})
	m.AddRow(6, text.NewCol(12, "Route: "+it.Route, props.Text{Size: 10, Style: fontstyle.Bold}))

	addSection(m, "Flights")
	addLegsTable(m, it.Legs)

	r.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (r *PDFRenderer) buildConfig() *entity.Config {
	b := marotoconfig.NewBuilder().
		WithPageSize(pageSize(r.cfg.PageSize)).
		WithOrientation(pageOrientation(r.cfg.Orientation)).
		WithLeftMargin(margin(r.cfg.MarginLeft)).
		WithTopMargin(margin(r.cfg.MarginTop)).
		WithRightMargin(margin(r.cfg.MarginRight))
	if r.cfg.PageNumbers {
		b = b.WithPageNumber()
	}
	return b.Build()
}

func pageSize(s string) pagesize.Type {
	switch strings.ToLower(s) {
	case "letter":
		return pagesize.Letter
	case "legal":
		return pagesize.Legal
	case "a3":
		return pagesize.A3
	default:
		return pagesize.A4
	}
}

func pageOrientation(s string) orientation.Type {
	if strings.EqualFold(s, "landscape") {
		return orientation.Horizontal
	}
	return orientation.Vertical
}

func margin(v float64) float64 {
	if v <= 0 {
		return 15
	}
	return v
}

func (r *PDFRenderer) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15,
		text.NewCol(12, title(data), titleStyle),
	)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("%s to %s", data.Itinerary.Source, data.Itinerary.Destination), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	m.AddRow(8)
}

func (r *PDFRenderer) addFooter(m core.Maroto, data *Data) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by %s | %s", r.company, data.GeneratedAt.Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}

type metricCard struct {
	Label string
	Value string
}

func addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}
	colSize := 12 / len(cards)

	var cols []core.Col
	for _, card := range cards {
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, metricValueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}
	m.AddRow(20, cols...)
}

func addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(4)
}

func addLegsTable(m core.Maroto, legs []service.Leg) {
	header := make([]core.Col, len(legHeaders))
	for i, h := range legHeaders {
		header[i] = text.NewCol(legColumnSizes[i], h, tableHeaderTextStyle).WithStyle(tableHeaderStyle)
	}
	m.AddRow(8, header...)

	for i, l := range legs {
		row := legRow(i, l)
		cols := make([]core.Col, len(row))
		for j, v := range row {
			style := tableCellTextStyle
			if j == len(row)-1 {
				style.Style = fontstyle.Bold
				style.Color = successColor
				if l.Delayed {
					style.Color = dangerColor
				}
			}
			cols[j] = text.NewCol(legColumnSizes[j], v, style).WithStyle(tableCellStyle)
		}
		m.AddRow(7, cols...)
	}
}
