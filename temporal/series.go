package temporal

import (
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// Point is one dated amount. Recorded is the booking date when the source
// carries one.
type Point struct {
	Date     time.Time
	Amount   float64
	Recorded *time.Time
	Account  string
}

// Series is sorted by Date.
type Series struct {
	Points      []Point
	HasAmount   bool
	HasRecorded bool
}

var (
	datePriority    = []string{"date", "entry_date", "date_ecriture", "EcritureDate", "periode"}
	recordedColumns = []string{"date_saisie", "recorded_at", "date_enregistrement", "ValidDate"}
	amountPriority  = []string{"montant", "amount"}
	fallbackAmounts = []string{"solde", "total"}
	dateKeywords    = []string{"date", "periode", "time"}
	accountPriority = []string{"account", "account_number", "compte", "CompteNum"}
)

func isRecordedColumn(key string) bool {
	for _, c := range recordedColumns {
		if strings.EqualFold(c, key) {
			return true
		}
	}
	return false
}

func firstPresent(keys map[string]bool, candidates []string) string {
	for _, c := range candidates {
		if keys[c] {
			return c
		}
	}
	return ""
}

// Prepare detects the date, amount and recorded-date columns of loosely
// typed records and returns the dated points in chronological order. Rows
// whose date cannot be parsed are dropped.
func Prepare(rows []map[string]any) (Series, error) {
	keys := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			keys[k] = true
		}
	}
	sorted := utils.SortedKeys(keys)

	dateCol := firstPresent(keys, datePriority)
	if dateCol == "" {
		for _, k := range sorted {
			if !isRecordedColumn(k) && utils.ContainsAny(k, dateKeywords...) {
				dateCol = k
				break
			}
		}
	}
	if dateCol == "" {
		return Series{}, ErrorNoDateColumn
	}
	recordedCol := firstPresent(keys, recordedColumns)
	accountCol := firstPresent(keys, accountPriority)

	amountCol := firstPresent(keys, amountPriority)
	debitCol := firstPresent(keys, []string{"debit", "debit_amount", "Debit"})
	creditCol := firstPresent(keys, []string{"credit", "credit_amount", "Credit"})
	if amountCol == "" && debitCol == "" && creditCol == "" {
		amountCol = firstPresent(keys, fallbackAmounts)
	}

	s := Series{
		HasAmount:   amountCol != "" || debitCol != "" || creditCol != "",
		HasRecorded: recordedCol != "",
	}
	for _, row := range rows {
		d, ok, _ := utils.ParseDate(row[dateCol])
		if !ok {
			continue
		}
		p := Point{Date: d}
		if amountCol != "" {
			p.Amount = utils.CleanAmount(row[amountCol]).InexactFloat64()
		} else {
			p.Amount = utils.CleanAmount(row[debitCol]).Add(utils.CleanAmount(row[creditCol])).InexactFloat64()
		}
		if recordedCol != "" {
			if r, ok, _ := utils.ParseDate(row[recordedCol]); ok {
				p.Recorded = &r
			}
		}
		if accountCol != "" {
			p.Account = utils.CleanAccountNumber(row[accountCol])
		}
		s.Points = append(s.Points, p)
	}
	sort.SliceStable(s.Points, func(a, b int) bool { return s.Points[a].Date.Before(s.Points[b].Date) })
	return s, nil
}

// FromAccountingEntries uses the movement of each dated entry.
func FromAccountingEntries(entries []models.AccountingEntry) Series {
	s := Series{HasAmount: true}
	for _, e := range entries {
		if e.EntryDate == nil {
			continue
		}
		p := Point{Date: *e.EntryDate, Amount: e.Movement().InexactFloat64(), Account: e.AccountNumber}
		if e.RecordedAt != nil {
			r := *e.RecordedAt
			p.Recorded = &r
			s.HasRecorded = true
		}
		s.Points = append(s.Points, p)
	}
	sort.SliceStable(s.Points, func(a, b int) bool { return s.Points[a].Date.Before(s.Points[b].Date) })
	return s
}

func (s Series) amounts() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Amount
	}
	return out
}

type monthly struct {
	keys []string
	sums []float64
}

// byMonth sums amounts per calendar month present in the series.
func (s Series) byMonth() monthly {
	var m monthly
	for _, p := range s.Points {
		k := utils.MonthKey(p.Date)
		if n := len(m.keys); n == 0 || m.keys[n-1] != k {
			m.keys = append(m.keys, k)
			m.sums = append(m.sums, 0)
		}
		m.sums[len(m.sums)-1] += p.Amount
	}
	return m
}
