package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/ingest"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/normalizer"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type ImportRequest struct {
	FileName string
	Content  []byte
	// ImportType is guessed from the headers when empty.
	ImportType    models.ImportType
	CustomMapping map[string]string
}

type ImportResult struct {
	normalizer.ProcessResult
	Format     ingest.Format     `json:"format"`
	ImportType models.ImportType `json:"import_type"`
	Detected   bool              `json:"import_type_detected"`
}

// ProcessImport decodes an uploaded file and runs it through the normalizer.
// Decoding problems are returned as errors; structure and row problems are
// part of the result.
func ProcessImport(ctx context.Context, req ImportRequest) (ImportResult, error) {
	logger := config.GetLogger()
	table, format, err := ingest.Read(req.FileName, req.Content)
	if err != nil {
		config.LogError(logger, "importWorkflow.go", "ProcessImport", "ingest.Read", req.FileName, err)
		return ImportResult{}, err
	}
	res := ImportResult{Format: format, ImportType: req.ImportType}
	if res.ImportType == "" {
		t, ok := normalizer.DetectImportType(table)
		if !ok {
			err := fmt.Errorf("%w: cannot guess it from the headers of %s", utils.ErrorUnknownImportType, req.FileName)
			config.LogError(logger, "importWorkflow.go", "ProcessImport", "DetectImportType", table.Columns, err)
			return res, err
		}
		res.ImportType, res.Detected = t, true
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.ProcessResult = normalizer.Process(req.FileName, table, res.ImportType, req.CustomMapping)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	fields := logrus.Fields{
		"field":          "ProcessImport",
		"file_name":      req.FileName,
		"format":         format,
		"import_type":    res.ImportType,
		"rows_processed": res.RowsProcessed,
		"correlation_id": cid,
	}
	if !res.Success {
		logger.WithFields(fields).Warn("import rejected: missing columns")
	} else {
		logger.WithFields(fields).Info("import normalized")
	}
	importsTotal.WithLabelValues(string(res.ImportType), fmt.Sprint(res.Success)).Inc()
	return res, nil
}
