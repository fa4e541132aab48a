package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "EUR"

// AccountingEntry is one canonical ledger line. Debit and credit are
// independently non-negative; both being set is a warning, not an error.
type AccountingEntry struct {
	ID                string           `json:"id"`
	AccountNumber     string           `json:"account_number"`
	AccountName       string           `json:"account_name,omitempty"`
	EntryDate         *time.Time       `json:"entry_date,omitempty"`
	HasTime           bool             `json:"-"`
	RecordedAt        *time.Time       `json:"recorded_at,omitempty"`
	Description       string           `json:"description"`
	DebitAmount       decimal.Decimal  `json:"debit_amount"`
	CreditAmount      decimal.Decimal  `json:"credit_amount"`
	Currency          string           `json:"currency"`
	PieceNumber       string           `json:"piece_number,omitempty"`
	JournalCode       string           `json:"journal_code,omitempty"`
	CounterpartyPhone string           `json:"counterparty_phone,omitempty"`
	LineNumber        int              `json:"line_number"`
	ValidationStatus  ValidationStatus `json:"validation_status"`
}

// Net is debit minus credit.
func (e AccountingEntry) Net() decimal.Decimal {
	return e.DebitAmount.Sub(e.CreditAmount)
}

// Movement is debit plus credit.
func (e AccountingEntry) Movement() decimal.Decimal {
	return e.DebitAmount.Add(e.CreditAmount)
}

// AccountClass is the first character of the account number, "" if none.
func (e AccountingEntry) AccountClass() string {
	if e.AccountNumber == "" {
		return ""
	}
	return e.AccountNumber[:1]
}

// RowError is a per-row validation message. Row is 1-based.
type RowError struct {
	Row      int      `json:"row"`
	Column   string   `json:"column,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}
