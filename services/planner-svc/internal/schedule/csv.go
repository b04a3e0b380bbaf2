package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"skypath/pkg/apperror"
)

// Синонимы колонок. fltno/source встречаются в открытых датасетах авиарейсов.
var columnAliases = map[string]string{
	"id":          "id",
	"flight_id":   "id",
	"flightid":    "id",
	"fltno":       "id",
	"origin":      "origin",
	"source":      "origin",
	"from":        "origin",
	"dest":        "dest",
	"destination": "dest",
	"to":          "dest",
	"departure":   "departure",
	"depart":      "departure",
	"dep":         "departure",
	"arrival":     "arrival",
	"arrive":      "arrival",
	"arr":         "arrival",
}

var requiredColumns = []string{"id", "origin", "dest", "departure", "arrival"}

// ReadCSV читает расписание с заголовком. Колонки сопоставляются по имени
// без учёта регистра, порядок произвольный, лишние колонки игнорируются.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.New(apperror.CodeScheduleFormat, "schedule is empty")
		}
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "read schedule header")
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	verrs := apperror.NewValidationErrors()
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, apperror.Wrap(err, apperror.CodeScheduleFormat,
				fmt.Sprintf("line %d: malformed csv", line)).WithDetails("line", line)
		}
		// encoding/csv пропускает пустые строки, номер берём у reader
		line, _ := cr.FieldPos(0)
		if isBlank(row) {
			continue
		}

		rec, rerr := parseRow(row, index, line)
		if rerr != nil {
			verrs.Add(rerr)
			continue
		}
		records = append(records, rec)
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// mapHeader возвращает позицию каждой обязательной колонки
func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canon, ok := columnAliases[key]; ok {
			if _, dup := index[canon]; !dup {
				index[canon] = i
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.Newf(apperror.CodeScheduleFormat,
			"line 1: missing columns: %s", strings.Join(missing, ", ")).
			WithDetails("line", 1).
			WithDetails("missing", missing)
	}
	return index, nil
}

func parseRow(row []string, index map[string]int, line int) (Record, *apperror.Error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := Record{
		ID:     cell("id"),
		Origin: cell("origin"),
		Dest:   cell("dest"),
		Line:   line,
	}

	var err error
	if rec.Departure, err = parseHour(cell("departure")); err != nil {
		return rec, apperror.Newf(apperror.CodeScheduleFormat,
			"line %d: bad departure %q", line, cell("departure")).
			WithField("departure").WithDetails("line", line)
	}
	if rec.Arrival, err = parseHour(cell("arrival")); err != nil {
		return rec, apperror.Newf(apperror.CodeScheduleFormat,
			"line %d: bad arrival %q", line, cell("arrival")).
			WithField("arrival").WithDetails("line", line)
	}
	return rec, nil
}

// parseHour принимает число часов ("13", "13.5") или время "13:30"
func parseHour(s string) (float64, error) {
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, err
		}
		minutes, err := strconv.Atoi(m)
		if err != nil || minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("bad minutes %q", m)
		}
		return float64(hours) + float64(minutes)/60, nil
	}
	return strconv.ParseFloat(s, 64)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
