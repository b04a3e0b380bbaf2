// Package schedule строит сеть рейсов из расписаний в форматах CSV, XLSX и YAML.
package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
)

// Format формат файла расписания
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// Options параметры загрузки
type Options struct {
	// Format пустой - определяется по расширению файла
	Format Format
	// Sheet лист XLSX, пустой - первый лист книги
	Sheet string
}

// Record - строка расписания до валидации. Line - номер строки в файле
// (1 - заголовок CSV/XLSX) или позиция рейса в YAML, начиная с 1.
type Record struct {
	ID        string
	Origin    string
	Dest      string
	Departure float64
	Arrival   float64
	Line      int
}

// ParseFormat разбирает имя формата, допускает синонимы расширений
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", apperror.Newf(apperror.CodeScheduleFormat, "unsupported schedule format %q", s).
			WithField("format")
	}
}

// DetectFormat определяет формат по расширению файла
func DetectFormat(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", apperror.Newf(apperror.CodeScheduleFormat,
			"cannot detect schedule format of %s: no extension", path).WithField("format")
	}
	return ParseFormat(ext)
}

// Load читает расписание из файла и строит сеть
func Load(path string, opts Options) (*domain.Network, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	if format == FormatYAML {
		return LoadYAML(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat,
			fmt.Sprintf("open schedule %s", path))
	}
	defer f.Close()

	var records []Record
	switch format {
	case FormatCSV:
		records, err = ReadCSV(f)
	case FormatXLSX:
		records, err = ReadXLSX(f, opts.Sheet)
	default:
		return nil, apperror.Newf(apperror.CodeScheduleFormat, "unsupported schedule format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return Build(nil, records)
}

// Build добавляет рейсы в сеть в порядке записей. Ошибки всех строк
// собираются, каждая несёт номер строки.
func Build(airports []string, records []Record) (*domain.Network, error) {
	n := domain.NewNetwork()
	verrs := apperror.NewValidationErrors()

	for _, a := range airports {
		if err := n.AddVertex(strings.TrimSpace(a)); err != nil {
			verrs.Add(lineError(0, err))
		}
	}

	for _, rec := range records {
		if _, err := n.AddFlight(rec.ID, rec.Origin, rec.Dest, rec.Departure, rec.Arrival); err != nil {
			verrs.Add(lineError(rec.Line, err))
		}
	}

	if err := verrs.Err(); err != nil {
		return nil, err
	}
	if n.FlightCount() == 0 && n.VertexCount() == 0 {
		return nil, apperror.New(apperror.CodeEmptyNetwork, "schedule contains no flights")
	}
	return n, nil
}

// lineError переносит код ошибки сети и добавляет номер строки
func lineError(line int, err error) *apperror.Error {
	code := apperror.CodeScheduleFormat
	msg := err.Error()

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
		msg = appErr.Message
	}
	if line > 0 {
		msg = fmt.Sprintf("line %d: %s", line, msg)
	}

	out := apperror.Wrap(err, code, msg)
	if line > 0 {
		out.WithDetails("line", line)
	}
	if appErr != nil && appErr.Field != "" {
		out.WithField(appErr.Field)
	}
	return out
}
