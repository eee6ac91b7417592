package featurestore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/docrisk/internal/domain/ensemble"
)

// ErrMissingIDColumn is returned when the sheet header lacks the id column.
var ErrMissingIDColumn = errors.New("id column not found in sheet header")

// LoadExcel reads a workbook into memory. The first row of sheet is the
// header; idColumn names the applicant id column. An empty sheet name uses
// the first sheet. Rows with an empty id are skipped.
func LoadExcel(path, sheet, idColumn string) (*Memory, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromTable(rows, idColumn)
}

func fromTable(rows [][]string, idColumn string) (*Memory, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q (empty sheet)", ErrMissingIDColumn, idColumn)
	}
	header := make([]string, len(rows[0]))
	idIdx := -1
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		if strings.EqualFold(header[i], idColumn) {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingIDColumn, idColumn)
	}

	m := NewMemory()
	for _, row := range rows[1:] {
		if idIdx >= len(row) || strings.TrimSpace(row[idIdx]) == "" {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			fields[name] = row[i]
		}
		m.Put(ensemble.FeatureRow{ApplicantID: row[idIdx], Fields: fields})
	}
	return m, nil
}
