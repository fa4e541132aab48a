// Package ingest decodes uploaded accounting files into raw tables. It does
// not interpret column meaning; that is the normalizer's job.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
	FormatDBF   Format = "dbf"
)

// DetectFormat picks a decoder from the file extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xls":
		return FormatExcel, nil
	case ".json":
		return FormatJSON, nil
	case ".dbf":
		return FormatDBF, nil
	}
	return "", fmt.Errorf("%w: %s", utils.ErrorUnsupportedFormat, filepath.Ext(fileName))
}

// Read decodes content according to the file name's extension.
func Read(fileName string, content []byte) (models.RawTable, Format, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return models.RawTable{}, "", err
	}
	var table models.RawTable
	switch format {
	case FormatCSV:
		table, err = ReadCSV(bytes.NewReader(content))
	case FormatExcel:
		table, err = ReadExcel(bytes.NewReader(content))
	case FormatJSON:
		table, err = ReadJSON(content)
	case FormatDBF:
		table, err = ReadDBF(content)
	}
	if err != nil {
		return models.RawTable{}, format, fmt.Errorf("read %s: %w", fileName, err)
	}
	return table, format, nil
}

// tableFromRecords turns a header row plus string records into a RawTable.
// Blank header cells get positional names; rows with no content are skipped.
func tableFromRecords(records [][]string) models.RawTable {
	if len(records) == 0 {
		return models.RawTable{}
	}
	header := make([]string, len(records[0]))
	seen := map[string]int{}
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		header[i] = h
	}
	table := models.RawTable{Columns: header}
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		empty := true
		for i, col := range header {
			if i >= len(rec) {
				row[col] = nil
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v != "" {
				empty = false
			}
			row[col] = v
		}
		if empty {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
