// Package render converts planned itineraries and flight networks into
// report and diagram formats.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skypath/pkg/apperror"
	"skypath/pkg/config"
	"skypath/pkg/domain"
	"skypath/pkg/metrics"
	"skypath/services/planner-svc/internal/service"
)

// Format - формат вывода
type Format string

// Поддерживаемые форматы
const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatPDF      Format = "pdf"
	FormatXLSX     Format = "xlsx"
	FormatDOT      Format = "dot"
	FormatGeoJSON  Format = "geojson"
)

// Formats возвращает все форматы в стабильном порядке
func Formats() []Format {
	return []Format{FormatMarkdown, FormatCSV, FormatJSON, FormatPDF, FormatXLSX, FormatDOT, FormatGeoJSON}
}

// ParseFormat разбирает имя формата, принимая распространённые синонимы
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown", "":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "pdf":
		return FormatPDF, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "dot", "gv", "graphviz":
		return FormatDOT, nil
	case "geojson":
		return FormatGeoJSON, nil
	}
	return "", apperror.Newf(apperror.CodeRenderFormat, "unsupported render format %q", s).WithField("format")
}

// ContentType возвращает MIME тип формата
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/octet-stream"
	}
}

// Extension возвращает расширение файла
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatGeoJSON:
		return ".geojson"
	default:
		return "." + string(f)
	}
}

// graphFormat - формат рисует сеть и может обойтись без маршрута
func (f Format) graphFormat() bool {
	return f == FormatDOT || f == FormatGeoJSON
}

// Data - входные данные рендеринга
type Data struct {
	Itinerary   *service.Itinerary // nil допустим только для dot и geojson
	Network     *domain.Network
	Title       string
	GeneratedAt time.Time
}

// Renderer преобразует Data в байты одного формата
type Renderer interface {
	Render(ctx context.Context, data *Data) ([]byte, error)
	Format() Format
}

// Options настройки рендеринга
type Options struct {
	CompanyName string
	PDF         config.PDFConfig
	Coordinates Coordinates
}

// OptionsFromConfig собирает Options из секции report
func OptionsFromConfig(cfg *config.ReportConfig) Options {
	return Options{
		CompanyName: cfg.CompanyName,
		PDF:         cfg.PDF,
		Coordinates: DefaultCoordinates(),
	}
}

// Service выбирает рендерер по формату
type Service struct {
	renderers map[Format]Renderer
	metrics   *metrics.Metrics
}

// NewService создаёт сервис со всеми рендерерами
func NewService(opts Options, m *metrics.Metrics) *Service {
	if opts.CompanyName == "" {
		opts.CompanyName = "SkyPath"
	}
	if opts.Coordinates == nil {
		opts.Coordinates = DefaultCoordinates()
	}

	s := &Service{renderers: make(map[Format]Renderer), metrics: m}
	for _, r := range []Renderer{
		NewMarkdownRenderer(opts),
		NewCSVRenderer(opts),
		NewJSONRenderer(opts),
		NewPDFRenderer(opts),
		NewXLSXRenderer(opts),
		NewDOTRenderer(),
		NewGeoJSONRenderer(opts.Coordinates),
	} {
		s.renderers[r.Format()] = r
	}
	return s
}

// Render проверяет данные и вызывает рендерер формата
func (s *Service) Render(ctx context.Context, format Format, data *Data) (out []byte, err error) {
	defer func() { s.metrics.RecordRender(string(format), err == nil) }()

	r, ok := s.renderers[format]
	if !ok {
		return nil, apperror.Newf(apperror.CodeRenderFormat, "unsupported render format %q", format).WithField("format")
	}
	if err := validate(format, data); err != nil {
		return nil, err
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now().UTC()
	}

	out, err = r.Render(ctx, data)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, fmt.Sprintf("render %s", format))
	}
	return out, nil
}

func validate(format Format, data *Data) error {
	if data == nil {
		return apperror.New(apperror.CodeNilInput, "render data is nil")
	}
	if format.graphFormat() {
		if data.Network == nil {
			return apperror.ErrNilNetwork
		}
		return nil
	}
	if data.Itinerary == nil {
		return apperror.New(apperror.CodeInvalidArgument, "itinerary is required for "+string(format))
	}
	return data.Itinerary.Err()
}

func title(data *Data) string {
	if data.Title != "" {
		return data.Title
	}
	if it := data.Itinerary; it != nil {
		return fmt.Sprintf("Itinerary %s to %s", it.Source, it.Destination)
	}
	return "Flight Network"
}

// legStatus - текстовая пометка задержки для форматов без эмодзи
func legStatus(l service.Leg) string {
	if l.Delayed {
		return "DELAYED"
	}
	return "ON TIME"
}

// legRow - общие колонки таблицы рейсов
func legRow(i int, l service.Leg) []string {
	f := l.Flight
	return []string{
		fmt.Sprintf("%d", i+1),
		f.ID,
		f.Origin,
		f.Dest,
		domain.FormatHour(f.Departure),
		domain.FormatHour(f.Arrival),
		fmt.Sprintf("%d", l.DelayMinutes),
		legStatus(l),
	}
}

var legHeaders = []string{"#", "Flight", "From", "To", "Departure", "Arrival", "Delay (min)", "Status"}
