package normalizer

import (
	"strconv"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"github.com/shopspring/decimal"
)

// CleanAmount is the locale tolerant amount parser used for every cell.
func CleanAmount(v any) decimal.Decimal {
	return utils.CleanAmount(v)
}

// ValidateRow returns the structural problems of one normalized row. index is
// zero-based; reported rows are one-based.
func ValidateRow(row map[string]any, index int) []models.RowError {
	var errs []models.RowError
	line := index + 1

	if utils.CleanAccountNumber(row[ColumnAccountNumber]) == "" {
		errs = append(errs, models.RowError{Row: line, Column: ColumnAccountNumber,
			Message: "missing account number", Severity: models.SeverityError})
	}

	debit := CleanAmount(row[ColumnDebit])
	credit := CleanAmount(row[ColumnCredit])
	switch {
	case debit.IsZero() && credit.IsZero():
		errs = append(errs, models.RowError{Row: line, Column: ColumnDebit,
			Message: "debit and credit are both zero", Severity: models.SeverityWarning})
	case !debit.IsZero() && !credit.IsZero():
		errs = append(errs, models.RowError{Row: line, Column: ColumnDebit,
			Message: "debit and credit are both set", Severity: models.SeverityWarning})
	}

	if raw, ok := row[ColumnEntryDate]; ok && utils.ToString(raw) != "" {
		if _, ok, _ := utils.ParseDate(raw); !ok {
			errs = append(errs, models.RowError{Row: line, Column: ColumnEntryDate,
				Message: "invalid date format", Severity: models.SeverityWarning})
		}
	}

	if phone := utils.ToString(row[ColumnCounterpartyPhone]); phone != "" {
		if err := utils.ValidatePhoneNumber(phone, utils.DefaultPhoneRegion); err != nil {
			errs = append(errs, models.RowError{Row: line, Column: ColumnCounterpartyPhone,
				Message: "invalid phone number", Severity: models.SeverityWarning})
		}
	}
	return errs
}

// BuildEntry cleans one normalized row into a canonical entry. It never
// fails: bad cells fall back to zero values and are reported by ValidateRow.
func BuildEntry(row map[string]any, index int) (models.AccountingEntry, []models.RowError) {
	line := index + 1
	entry := models.AccountingEntry{
		ID:            strconv.Itoa(line),
		LineNumber:    line,
		AccountNumber: utils.CleanAccountNumber(row[ColumnAccountNumber]),
		AccountName:   utils.ToString(row[ColumnAccountName]),
		Description:   utils.ToString(row[ColumnDescription]),
		PieceNumber:   utils.ToString(row[ColumnPieceNumber]),
		JournalCode:   utils.ToString(row[ColumnJournalCode]),
		Currency:      utils.ToString(row[ColumnCurrency]),
		DebitAmount:   CleanAmount(row[ColumnDebit]).Round(2),
		CreditAmount:  CleanAmount(row[ColumnCredit]).Round(2),
	}
	if entry.Currency == "" {
		entry.Currency = models.DefaultCurrency
	}
	if d, ok, hasTime := utils.ParseDate(row[ColumnEntryDate]); ok {
		entry.EntryDate = &d
		entry.HasTime = hasTime
	}
	if d, ok, _ := utils.ParseDate(row[ColumnRecordedAt]); ok {
		entry.RecordedAt = &d
	}
	// Unparseable numbers are kept as typed and reported by ValidateRow.
	if phone := utils.ToString(row[ColumnCounterpartyPhone]); phone != "" {
		entry.CounterpartyPhone = phone
		if e164, err := utils.NormalizePhoneNumber(phone, utils.DefaultPhoneRegion); err == nil {
			entry.CounterpartyPhone = e164
		}
	}

	errs := ValidateRow(row, index)

	// Signed exports put credits as negative debits and vice versa.
	if entry.DebitAmount.IsNegative() {
		entry.CreditAmount = entry.CreditAmount.Add(entry.DebitAmount.Abs())
		entry.DebitAmount = decimal.Zero
		errs = append(errs, models.RowError{Row: line, Column: ColumnDebit,
			Message: "negative debit moved to credit", Severity: models.SeverityWarning})
	}
	if entry.CreditAmount.IsNegative() {
		entry.DebitAmount = entry.DebitAmount.Add(entry.CreditAmount.Abs())
		entry.CreditAmount = decimal.Zero
		errs = append(errs, models.RowError{Row: line, Column: ColumnCredit,
			Message: "negative credit moved to debit", Severity: models.SeverityWarning})
	}

	entry.ValidationStatus = models.ValidationStatusValid
	for _, e := range errs {
		if e.Severity == models.SeverityError {
			entry.ValidationStatus = models.ValidationStatusError
			break
		}
		entry.ValidationStatus = models.ValidationStatusWarning
	}
	return entry, errs
}
