package normalizer

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/models"
)

// ProcessResult is the outcome of running a raw table through the full
// normalization pipeline. When Success is false, Errors explains why and
// Suggestions proposes a column mapping the caller can retry with.
type ProcessResult struct {
	Success          bool                  `json:"success"`
	Errors           []string              `json:"errors,omitempty"`
	MissingColumns   []string              `json:"missing_columns,omitempty"`
	Suggestions      map[string]Suggestion `json:"suggestions,omitempty"`
	Batch            *models.ImportBatch   `json:"batch,omitempty"`
	ValidationErrors []models.RowError     `json:"validation_errors,omitempty"`
	RowsProcessed    int                   `json:"rows_processed"`
	RowsWithErrors   int                   `json:"rows_with_errors"`
	RowsWithWarnings int                   `json:"rows_with_warnings"`
	ColumnsDetected  []string              `json:"columns_detected"`
}

// Process normalizes table, applies the optional custom mapping, checks its
// structure and cleans every row into an ImportBatch. Row level problems are
// recorded and never abort the batch.
func Process(fileName string, table models.RawTable, importType models.ImportType, customMapping map[string]string) ProcessResult {
	return processBatch(models.NewImportBatch(fileName, importType), table, importType, customMapping)
}

func processBatch(batch *models.ImportBatch, table models.RawTable, importType models.ImportType, customMapping map[string]string) ProcessResult {
	normalized, detected := Normalize(table, DefaultDictionary())
	if len(customMapping) > 0 {
		normalized = ApplyMapping(normalized, customMapping)
		detected = append([]string(nil), normalized.Columns...)
	}
	if err := batch.Start(); err != nil {
		return batchFailure(batch, detected, "Start", err)
	}

	check := ValidateStructure(normalized, importType)
	if !check.Valid {
		if err := batch.Fail("structure validation failed"); err != nil {
			config.LogError(config.GetLogger(), "process.go", "Process", "Fail", batch.ID, err)
		}
		return ProcessResult{
			Errors:          check.Errors,
			MissingColumns:  check.MissingColumns,
			Suggestions:     SuggestMapping(normalized, importType),
			Batch:           batch,
			ColumnsDetected: detected,
		}
	}

	res := ProcessResult{Success: true, Batch: batch, ColumnsDetected: detected}
	for i, row := range normalized.Rows {
		entry, errs := BuildEntry(row, i)
		if err := batch.AddEntry(entry, errs); err != nil {
			return batchFailure(batch, detected, "AddEntry", err)
		}
		res.RowsProcessed++
		switch entry.ValidationStatus {
		case models.ValidationStatusError:
			res.RowsWithErrors++
		case models.ValidationStatusWarning:
			res.RowsWithWarnings++
		}
	}
	res.ValidationErrors = batch.Errors
	if err := batch.Complete(); err != nil {
		return batchFailure(batch, detected, "Complete", err)
	}
	return res
}

// batchFailure reports a lifecycle error of the batch itself. Partial rows
// are not returned as a successful import.
func batchFailure(batch *models.ImportBatch, detected []string, step string, err error) ProcessResult {
	config.LogError(config.GetLogger(), "process.go", "Process", step, batch.ID, err)
	if failErr := batch.Fail(err.Error()); failErr != nil && !errors.Is(failErr, models.ErrBatchImmutable) {
		config.LogError(config.GetLogger(), "process.go", "Process", "Fail", batch.ID, failErr)
	}
	return ProcessResult{
		Errors:          []string{fmt.Sprintf("import batch %s: %v", step, err)},
		Batch:           batch,
		ColumnsDetected: detected,
	}
}
