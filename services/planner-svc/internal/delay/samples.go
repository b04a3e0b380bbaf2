package delay

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"skypath/pkg/apperror"
)

// Sample - обучающее наблюдение
type Sample struct {
	Features
	DelayMinutes float64
}

// DefaultSamples возвращает встроенный обучающий набор
func DefaultSamples() []Sample {
	return []Sample{
		{Features{"A", "B", 2, "Mon", "Clear"}, 5},
		{Features{"A", "C", 2, "Tue", "Clear"}, 3},
		{Features{"B", "D", 12, "Tue", "Rain"}, 12},
		{Features{"C", "B", 9, "Wed", "Clear"}, 7},
		{Features{"B", "E", 11, "Thu", "Storm"}, 25},
		{Features{"C", "D", 6, "Fri", "Clear"}, 10},
		{Features{"D", "E", 13, "Sat", "Fog"}, 15},
	}
}

var sampleColumns = map[string]string{
	"origin":         "origin",
	"source":         "origin",
	"destination":    "dest",
	"dest":           "dest",
	"departurehour":  "departure",
	"departure_hour": "departure",
	"departure":      "departure",
	"day":            "day",
	"weather":        "weather",
	"delay":          "delay",
	"delay_minutes":  "delay",
}

// ReadSamplesCSV читает обучающий набор из CSV
// (FlightID, Origin, Destination, DepartureHour, Day, Weather, Delay).
// Заголовки сопоставляются без учёта регистра, лишние колонки игнорируются.
func ReadSamplesCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "read samples header")
	}

	idx := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := sampleColumns[key]; ok {
			idx[col] = i
		}
	}
	for _, col := range []string{"origin", "dest", "departure", "day", "weather", "delay"} {
		if _, ok := idx[col]; !ok {
			return nil, apperror.Newf(apperror.CodeDelayModel, "samples: missing column %s", col)
		}
	}

	var samples []Sample
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeDelayModel, "read samples")
		}
		line, _ := cr.FieldPos(0)

		get := func(col string) string {
			if i := idx[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		dep, err := strconv.ParseFloat(get("departure"), 64)
		if err != nil {
			return nil, apperror.Newf(apperror.CodeDelayModel, "samples line %d: bad departure %q", line, get("departure"))
		}
		d, err := strconv.ParseFloat(get("delay"), 64)
		if err != nil {
			return nil, apperror.Newf(apperror.CodeDelayModel, "samples line %d: bad delay %q", line, get("delay"))
		}

		samples = append(samples, Sample{
			Features: Features{
				Origin:    get("origin"),
				Dest:      get("dest"),
				Departure: dep,
				Day:       get("day"),
				Weather:   get("weather"),
			},
			DelayMinutes: d,
		})
	}

	if len(samples) == 0 {
		return nil, apperror.New(apperror.CodeDelayModel, "samples: no rows")
	}
	return samples, nil
}
