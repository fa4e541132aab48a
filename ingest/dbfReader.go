package ingest

import (
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"github.com/Valentin-Kaiser/go-dbase/dbase"
)

// ReadDBF decodes a dBase/FoxPro table. The driver only opens files, so the
// content is spooled to a temporary file first.
func ReadDBF(content []byte) (models.RawTable, error) {
	tmp, err := os.CreateTemp("", "import_*.dbf")
	if err != nil {
		return models.RawTable{}, fmt.Errorf("could not create file: %v", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return models.RawTable{}, fmt.Errorf("could not write file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return models.RawTable{}, err
	}
	return ReadDBFFile(tmp.Name())
}

func ReadDBFFile(path string) (models.RawTable, error) {
	table, err := dbase.OpenTable(&dbase.Config{
		Filename:   path,
		TrimSpaces: true,
		ReadOnly:   true,
	})
	if err != nil {
		return models.RawTable{}, fmt.Errorf("failed to open DBF file: %w", err)
	}
	defer table.Close()

	out := models.RawTable{}
	for _, col := range table.Columns() {
		out.Columns = append(out.Columns, strings.TrimSpace(col.Name()))
	}
	for !table.EOF() {
		row, err := table.Next()
		if err != nil {
			return models.RawTable{}, fmt.Errorf("failed to read DBF row: %w", err)
		}
		if row == nil || row.Deleted {
			continue
		}
		rec := make(map[string]any, len(out.Columns))
		for _, name := range out.Columns {
			v, err := row.ValueByName(name)
			if err != nil {
				continue
			}
			rec[name] = v
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}
