package utils

import "errors"

var (
	ErrorInvalidInput        = errors.New("invalid input")
	ErrorEmptyDataset        = errors.New("no data to analyze")
	ErrorUnsupportedStandard = errors.New("unsupported accounting standard")
	ErrorUnknownImportType   = errors.New("unknown import type")
	ErrorUnsupportedFormat   = errors.New("unsupported file format")
)
