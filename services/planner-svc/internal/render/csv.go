package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"skypath/pkg/domain"
)

// CSVRenderer рендерер CSV
type CSVRenderer struct{}

// NewCSVRenderer создаёт новый рендерер
func NewCSVRenderer(Options) *CSVRenderer {
	return &CSVRenderer{}
}

// Format возвращает формат рендерера
func (r *CSVRenderer) Format() Format {
	return FormatCSV
}

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

func (cw *csvWriter) Error() error {
	return cw.err
}

// Render рендерит таблицу рейсов и секцию итогов.
// Секции разделены пустой строкой, как в остальных CSV отчётах.
func (r *CSVRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}
	it := data.Itinerary

	cw.Write(legHeaders)
	for i, l := range it.Legs {
		cw.Write(legRow(i, l))
	}

	cw.Write([]string{})
	cw.Write([]string{"Summary", "Value"})
	cw.Write([]string{"Source", it.Source})
	cw.Write([]string{"Destination", it.Destination})
	cw.Write([]string{"Start Time", domain.FormatHour(it.StartTime)})
	cw.Write([]string{"Route", it.Route})
	cw.Write([]string{"Scheduled Arrival", it.ArrivalClock})
	cw.Write([]string{"Total Delay (min)", fmt.Sprintf("%d", it.TotalDelayMinutes)})
	cw.Write([]string{"Arrival With Delay", it.ArrivalWithDelay})

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
