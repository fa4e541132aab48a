package detector

import (
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// Entry is a detector's view of one ledger line. Amount is the booked
// magnitude; Signed carries the direction (debit positive) and is what
// reversals are matched on.
type Entry struct {
	ID          string
	Account     string
	AccountName string
	Journal     string
	Reference   string
	Description string
	Date        *time.Time
	HasTime     bool
	Amount      float64
	Signed      float64
}

// Columns records which optional fields the source actually carried.
type Columns struct {
	Amount      bool
	Account     bool
	Description bool
	Date        bool
	Journal     bool
	Reference   bool
}

type Table struct {
	Entries []Entry
	Columns Columns
}

var fieldAliases = map[string][]string{
	"id":           {"entry_id", "id"},
	"account":      {"account", "account_number", "compte", "CompteNum"},
	"account_name": {"account_name", "CompteLib"},
	"description":  {"description", "libelle", "EcritureLib"},
	"reference":    {"reference", "piece_number", "PieceRef"},
	"journal":      {"journal", "journal_code", "JournalCode"},
	"date":         {"date", "entry_date", "EcritureDate"},
	"amount":       {"montant", "amount"},
	"debit":        {"debit", "debit_amount", "Debit"},
	"credit":       {"credit", "credit_amount", "Credit"},
}

func lookup(row map[string]any, field string) (any, bool) {
	for _, k := range fieldAliases[field] {
		if v, ok := row[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// PrepareTable builds a table from loosely typed records, FEC exports
// included. Without "montant" the amount is debit plus credit; without an
// id the row index is used, since FEC voucher numbers repeat across lines.
func PrepareTable(rows []map[string]any) Table {
	t := Table{Entries: make([]Entry, 0, len(rows))}
	for i, row := range rows {
		e := Entry{ID: strconv.Itoa(i)}
		if v, ok := lookup(row, "id"); ok {
			if s := utils.ToString(v); s != "" {
				e.ID = s
			}
		}
		if v, ok := lookup(row, "account"); ok {
			t.Columns.Account = true
			e.Account = utils.CleanAccountNumber(v)
		}
		if v, ok := lookup(row, "account_name"); ok {
			e.AccountName = utils.ToString(v)
		}
		if v, ok := lookup(row, "description"); ok {
			t.Columns.Description = true
			e.Description = utils.ToString(v)
		}
		if v, ok := lookup(row, "reference"); ok {
			t.Columns.Reference = true
			e.Reference = utils.ToString(v)
		}
		if v, ok := lookup(row, "journal"); ok {
			t.Columns.Journal = true
			e.Journal = utils.ToString(v)
		}
		if v, ok := lookup(row, "date"); ok {
			t.Columns.Date = true
			if d, ok, hasTime := utils.ParseDate(v); ok {
				e.Date = &d
				e.HasTime = hasTime
			}
		}
		if v, ok := lookup(row, "amount"); ok {
			t.Columns.Amount = true
			e.Amount = utils.CleanAmount(v).InexactFloat64()
			e.Signed = e.Amount
		} else {
			dv, hasDebit := lookup(row, "debit")
			cv, hasCredit := lookup(row, "credit")
			if hasDebit || hasCredit {
				t.Columns.Amount = true
				debit := utils.CleanAmount(dv).InexactFloat64()
				credit := utils.CleanAmount(cv).InexactFloat64()
				e.Amount = debit + credit
				e.Signed = debit - credit
			}
		}
		t.Entries = append(t.Entries, e)
	}
	return t
}

// FromAccountingEntries adapts canonical entries; every column is present.
func FromAccountingEntries(entries []models.AccountingEntry) Table {
	t := Table{
		Entries: make([]Entry, 0, len(entries)),
		Columns: Columns{Amount: true, Account: true, Description: true, Date: true, Journal: true, Reference: true},
	}
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		t.Entries = append(t.Entries, Entry{
			ID:          id,
			Account:     e.AccountNumber,
			AccountName: e.AccountName,
			Journal:     e.JournalCode,
			Reference:   e.PieceNumber,
			Description: e.Description,
			Date:        e.EntryDate,
			HasTime:     e.HasTime,
			Amount:      e.Movement().InexactFloat64(),
			Signed:      e.Net().InexactFloat64(),
		})
	}
	return t
}

func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(utils.FoldAccents(s))), " ")
}
