// Package normalizer maps arbitrary tabular imports onto the canonical
// accounting-entry schema and validates them row by row.
package normalizer

import (
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// Normalize renames columns through dict. Names are lower-cased, accent
// folded and have spaces/hyphens turned into underscores before the lookup;
// unknown columns keep their normalized name. When two source columns
// resolve to the same canonical name the first one wins.
func Normalize(table models.RawTable, dict Dictionary) (models.RawTable, []string) {
	if dict == nil {
		dict = DefaultDictionary()
	}
	rename := make(map[string]string, len(table.Columns))
	taken := map[string]bool{}
	out := models.RawTable{Columns: make([]string, 0, len(table.Columns))}
	for _, col := range table.Columns {
		name := utils.NormalizeColumnName(col)
		if canonical, ok := dict[name]; ok && !taken[canonical] {
			name = canonical
		}
		for taken[name] {
			name += "_dup"
		}
		taken[name] = true
		rename[col] = name
		out.Columns = append(out.Columns, name)
	}
	out.Rows = make([]map[string]any, len(table.Rows))
	for i, row := range table.Rows {
		nr := make(map[string]any, len(row))
		for k, v := range row {
			if n, ok := rename[k]; ok {
				nr[n] = v
			} else {
				nr[utils.NormalizeColumnName(k)] = v
			}
		}
		out.Rows[i] = nr
	}
	return out, append([]string(nil), out.Columns...)
}

// StructureCheck is the outcome of ValidateStructure.
type StructureCheck struct {
	Valid          bool     `json:"valid"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}

// ValidateStructure checks that the table is non-empty and carries every
// column the import type requires.
func ValidateStructure(table models.RawTable, importType models.ImportType) StructureCheck {
	required, ok := RequiredColumns(importType)
	if !ok {
		return StructureCheck{Errors: []string{fmt.Sprintf("%v: %s", utils.ErrorUnknownImportType, importType)}}
	}
	check := StructureCheck{Valid: true}
	for _, col := range required {
		if !table.HasColumn(col) {
			check.MissingColumns = append(check.MissingColumns, col)
		}
	}
	if len(check.MissingColumns) > 0 {
		check.Valid = false
		check.Errors = append(check.Errors, "missing required columns: "+strings.Join(check.MissingColumns, ", "))
	}
	if table.Len() == 0 {
		check.Valid = false
		check.Errors = append(check.Errors, "file contains no data")
	}
	return check
}

// ApplyMapping renames source columns to canonical ones. mapping is keyed by
// canonical name; sources that do not exist are ignored.
func ApplyMapping(table models.RawTable, mapping map[string]string) models.RawTable {
	reverse := make(map[string]string, len(mapping))
	for canonical, source := range mapping {
		if table.HasColumn(source) {
			reverse[source] = canonical
		}
	}
	out := models.RawTable{Columns: make([]string, len(table.Columns))}
	for i, col := range table.Columns {
		if c, ok := reverse[col]; ok {
			col = c
		}
		out.Columns[i] = col
	}
	out.Rows = make([]map[string]any, len(table.Rows))
	for i, row := range table.Rows {
		nr := make(map[string]any, len(row))
		for k, v := range row {
			if c, ok := reverse[k]; ok {
				k = c
			}
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// DetectImportType guesses the import type from the headers: the FEC
// signature first, then the richest required-column set that is satisfied.
func DetectImportType(table models.RawTable) (models.ImportType, bool) {
	matches := 0
	for _, h := range fecHeaders {
		for _, c := range table.Columns {
			if strings.EqualFold(strings.TrimSpace(c), h) {
				matches++
				break
			}
		}
	}
	if matches >= len(fecHeaders)-3 {
		return models.ImportTypeFEC, true
	}
	normalized, _ := Normalize(models.RawTable{Columns: table.Columns}, nil)
	for _, t := range []models.ImportType{models.ImportTypeGrandLivre, models.ImportTypeJournal, models.ImportTypeBalance} {
		cols, _ := RequiredColumns(t)
		all := true
		for _, c := range cols {
			if !normalized.HasColumn(c) {
				all = false
				break
			}
		}
		if all {
			return t, true
		}
	}
	return "", false
}
