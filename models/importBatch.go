package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrBatchImmutable = errors.New("import batch is completed and can no longer change")

// ImportBatch groups the entries produced from one source file.
type ImportBatch struct {
	ID           uuid.UUID         `json:"id"`
	FileName     string            `json:"file_name"`
	ImportType   ImportType        `json:"import_type"`
	Status       ImportStatus      `json:"status"`
	RowsImported int               `json:"rows_imported"`
	RowsFailed   int               `json:"rows_failed"`
	Errors       []RowError        `json:"errors"`
	Entries      []AccountingEntry `json:"entries,omitempty"`
	FailReason   string            `json:"fail_reason,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

func NewImportBatch(fileName string, importType ImportType) *ImportBatch {
	return &ImportBatch{
		ID:         uuid.New(),
		FileName:   fileName,
		ImportType: importType,
		Status:     ImportStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func (b *ImportBatch) Start() error {
	if b.Status != ImportStatusPending {
		return b.transitionError(ImportStatusProcessing)
	}
	b.Status = ImportStatusProcessing
	return nil
}

// AddEntry records one cleaned row and its validation messages.
func (b *ImportBatch) AddEntry(entry AccountingEntry, rowErrors []RowError) error {
	if b.Status != ImportStatusProcessing {
		return b.transitionError(b.Status)
	}
	b.Errors = append(b.Errors, rowErrors...)
	if entry.ValidationStatus == ValidationStatusError {
		b.RowsFailed++
		return nil
	}
	b.Entries = append(b.Entries, entry)
	b.RowsImported++
	return nil
}

func (b *ImportBatch) Complete() error {
	if b.Status != ImportStatusProcessing {
		return b.transitionError(ImportStatusCompleted)
	}
	now := time.Now().UTC()
	b.Status = ImportStatusCompleted
	b.CompletedAt = &now
	return nil
}

func (b *ImportBatch) Fail(reason string) error {
	if b.Status == ImportStatusCompleted || b.Status == ImportStatusFailed {
		return b.transitionError(ImportStatusFailed)
	}
	b.Status = ImportStatusFailed
	b.FailReason = reason
	return nil
}

func (b *ImportBatch) transitionError(to ImportStatus) error {
	if b.Status == ImportStatusCompleted {
		return ErrBatchImmutable
	}
	return fmt.Errorf("import batch %s: cannot move from %s to %s", b.ID, b.Status, to)
}
