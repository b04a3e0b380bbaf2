package schedule

import (
	"io"

	"github.com/xuri/excelize/v2"

	"skypath/pkg/apperror"
)

// ReadXLSX читает расписание с листа книги Excel. Формат строк как у CSV.
func ReadXLSX(r io.Reader, sheet string) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperror.New(apperror.CodeScheduleFormat, "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "read sheet "+sheet).
			WithField("sheet")
	}
	if len(rows) == 0 {
		return nil, apperror.New(apperror.CodeScheduleFormat, "schedule is empty")
	}

	index, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	var records []Record
	verrs := apperror.NewValidationErrors()
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, rerr := parseRow(row, index, i+2)
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
