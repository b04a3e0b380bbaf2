package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"skypath/pkg/domain"
)

const (
	itinerarySheet = "Itinerary"
	networkSheet   = "Network"
)

// XLSXRenderer рендерер Excel
type XLSXRenderer struct {
	company string
}

// NewXLSXRenderer создаёт новый рендерер
func NewXLSXRenderer(opts Options) *XLSXRenderer {
	return &XLSXRenderer{company: opts.CompanyName}
}

// Format возвращает формат рендерера
func (r *XLSXRenderer) Format() Format {
	return FormatXLSX
}

// Render рендерит маршрут в книгу Excel. Лист Network добавляется,
// если в Data передана сеть.
func (r *XLSXRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(itinerarySheet); err != nil {
		return nil, err
	}
	// Удаляем дефолтный лист
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	delayedStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "C0392B"},
	})
	if err != nil {
		return nil, err
	}

	r.writeItinerary(f, data, headerStyle, delayedStyle)
	if data.Network != nil {
		if err := r.writeNetwork(f, data, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *XLSXRenderer) writeItinerary(f *excelize.File, data *Data, headerStyle, delayedStyle int) {
	sheet := itinerarySheet
	it := data.Itinerary
	row := 1

	f.SetCellValue(sheet, cellAddr("A", row), title(data))
	f.MergeCell(sheet, cellAddr("A", row), cellAddr("H", row))
	row += 2

	for i, h := range legHeaders {
		f.SetCellValue(sheet, cellAddr(column(i), row), h)
	}
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr(column(len(legHeaders)-1), row), headerStyle)
	row++

	for i, l := range it.Legs {
		f.SetCellValue(sheet, cellAddr("A", row), i+1)
		f.SetCellValue(sheet, cellAddr("B", row), l.Flight.ID)
		f.SetCellValue(sheet, cellAddr("C", row), l.Flight.Origin)
		f.SetCellValue(sheet, cellAddr("D", row), l.Flight.Dest)
		f.SetCellValue(sheet, cellAddr("E", row), domain.FormatHour(l.Flight.Departure))
		f.SetCellValue(sheet, cellAddr("F", row), domain.FormatHour(l.Flight.Arrival))
		f.SetCellValue(sheet, cellAddr("G", row), l.DelayMinutes)
		f.SetCellValue(sheet, cellAddr("H", row), legStatus(l))
		if l.Delayed {
			f.SetCellStyle(sheet, cellAddr("H", row), cellAddr("H", row), delayedStyle)
		}
		row++
	}
	row++

	f.SetCellValue(sheet, cellAddr("A", row), "Summary")
	f.SetCellStyle(sheet, cellAddr("A", row), cellAddr("B", row), headerStyle)
	row++

	summary := []struct {
		key   string
		value any
	}{
		{"Route", it.Route},
		{"Start Time", domain.FormatHour(it.StartTime)},
		{"Scheduled Arrival", it.ArrivalClock},
		{"Total Delay (min)", it.TotalDelayMinutes},
		{"Arrival With Delay", it.ArrivalWithDelay},
		{"Generated By", r.company},
	}
	for _, kv := range summary {
		f.SetCellValue(sheet, cellAddr("A", row), kv.key)
		f.SetCellValue(sheet, cellAddr("B", row), kv.value)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "H", 14)
}

func (r *XLSXRenderer) writeNetwork(f *excelize.File, data *Data, headerStyle int) error {
	sheet := networkSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	onPath := pathFlights(data.Itinerary)

	headers := []string{"Flight", "From", "To", "Departure", "Arrival", "On Route"}
	for i, h := range headers {
		f.SetCellValue(sheet, cellAddr(column(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cellAddr(column(len(headers)-1), 1), headerStyle)

	for i, fl := range data.Network.Flights() {
		row := i + 2
		f.SetCellValue(sheet, cellAddr("A", row), fl.ID)
		f.SetCellValue(sheet, cellAddr("B", row), fl.Origin)
		f.SetCellValue(sheet, cellAddr("C", row), fl.Dest)
		f.SetCellValue(sheet, cellAddr("D", row), fl.Departure)
		f.SetCellValue(sheet, cellAddr("E", row), fl.Arrival)
		f.SetCellValue(sheet, cellAddr("F", row), onPath[fl.ID])
	}
	return nil
}

// column возвращает букву колонки по индексу с нуля
func column(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}

func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
