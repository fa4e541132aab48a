package compliance

import (
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"github.com/shopspring/decimal"
)

// Entry is the view of one ledger line the rules work on.
type Entry struct {
	ID          string          `json:"id"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"montant"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Date        *time.Time      `json:"date,omitempty"`
	Method      string          `json:"method,omitempty"`
}

// Dataset is what a rule set is evaluated against.
type Dataset struct {
	Entries             []Entry  `json:"entries"`
	FinancialStatements []string `json:"financial_statements,omitempty"`
	Notes               []string `json:"notes,omitempty"`
	// CutoffDate overrides the closing date used by cut-off rules.
	CutoffDate *time.Time `json:"cutoff_date,omitempty"`

	realTime bool
}

// FromAccountingEntries adapts canonical entries. The amount is the line's
// movement (debit plus credit).
func FromAccountingEntries(entries []models.AccountingEntry) []Entry {
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		out = append(out, Entry{
			ID:          id,
			Account:     e.AccountNumber,
			Amount:      e.Movement(),
			Debit:       e.DebitAmount,
			Credit:      e.CreditAmount,
			Description: e.Description,
			Date:        e.EntryDate,
		})
	}
	return out
}

// EntriesFromRecords adapts loosely typed records such as decoded JSON. When
// "montant" is absent the amount falls back to debit plus credit.
func EntriesFromRecords(records []map[string]any) []Entry {
	out := make([]Entry, 0, len(records))
	for i, r := range records {
		e := Entry{
			ID:          utils.ToString(firstOf(r, "id", "entry_id")),
			Account:     utils.CleanAccountNumber(firstOf(r, "account", "compte", "account_number")),
			Debit:       utils.CleanAmount(firstOf(r, "debit", "debit_amount")),
			Credit:      utils.CleanAmount(firstOf(r, "credit", "credit_amount")),
			Description: utils.ToString(firstOf(r, "description", "libelle")),
			Method:      strings.ToLower(utils.ToString(firstOf(r, "method", "valuation_method"))),
		}
		if e.ID == "" {
			e.ID = strconv.Itoa(i)
		}
		if v, ok := r["montant"]; ok {
			e.Amount = utils.CleanAmount(v)
		} else if v, ok := r["amount"]; ok {
			e.Amount = utils.CleanAmount(v)
		} else {
			e.Amount = e.Debit.Add(e.Credit)
		}
		if d, ok, _ := utils.ParseDate(firstOf(r, "date", "entry_date")); ok {
			e.Date = &d
		}
		out = append(out, e)
	}
	return out
}

func firstOf(r map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func hasAnyPrefix(account string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(account, p) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
