package ingest

import (
	"errors"
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"github.com/xuri/excelize/v2"
)

// ReadExcel decodes the first non-empty sheet of a workbook.
func ReadExcel(r io.Reader) (models.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return models.RawTable{}, fmt.Errorf("unable to read sheet %s: %v", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		return tableFromRecords(rows), nil
	}
	return models.RawTable{}, errors.New("workbook has no data")
}
