package audit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// PieceTolerance absorbs rounding when comparing a piece's debits and credits.
var PieceTolerance = decimal.New(1, -2)

// days after which an entry counts as old
const oldEntryDays = 730

type PieceImbalance struct {
	PieceNumber string          `json:"piece_number"`
	TotalDebit  decimal.Decimal `json:"debit_amount"`
	TotalCredit decimal.Decimal `json:"credit_amount"`
	Difference  decimal.Decimal `json:"difference"`
}

// FindUnbalancedEntries groups entries by piece number and returns the
// pieces whose debits and credits differ by more than PieceTolerance.
// Entries without a piece number are ignored.
func FindUnbalancedEntries(entries []models.AccountingEntry) []PieceImbalance {
	var pieces []PieceImbalance
	pos := make(map[string]int)
	for _, e := range entries {
		if e.PieceNumber == "" {
			continue
		}
		n, ok := pos[e.PieceNumber]
		if !ok {
			n = len(pieces)
			pos[e.PieceNumber] = n
			pieces = append(pieces, PieceImbalance{PieceNumber: e.PieceNumber})
		}
		pieces[n].TotalDebit = pieces[n].TotalDebit.Add(e.DebitAmount)
		pieces[n].TotalCredit = pieces[n].TotalCredit.Add(e.CreditAmount)
	}
	out := []PieceImbalance{}
	for _, p := range pieces {
		p.Difference = p.TotalDebit.Sub(p.TotalCredit).Abs()
		if p.Difference.GreaterThan(PieceTolerance) {
			out = append(out, p)
		}
	}
	return out
}

type JournalSummary struct {
	TotalEntries      int              `json:"total_entries"`
	UnbalancedEntries int              `json:"unbalanced_entries"`
	UnbalancedPieces  []PieceImbalance `json:"unbalanced_pieces"`
}

type JournalReport struct {
	AnalysisType    string           `json:"analysis_type"`
	Timestamp       time.Time        `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
	Summary         JournalSummary   `json:"summary"`
	Anomalies       []Anomaly        `json:"anomalies"`
	Recommendations []string         `json:"recommendations"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
}

func entryDate(e models.AccountingEntry) string {
	if e.EntryDate == nil {
		return ""
	}
	return e.EntryDate.Format("2006-01-02")
}

func (a *Analyzer) highAmountEntries(entries []models.AccountingEntry) []Anomaly {
	var out []Anomaly
	limit := a.thresholds.HighRiskAmount
	for _, e := range entries {
		amount := decimal.Max(e.DebitAmount, e.CreditAmount)
		if !amount.GreaterThan(limit) {
			continue
		}
		out = append(out, Anomaly{
			Type:          "high_amount_entry",
			Severity:      models.RiskMedium,
			Description:   fmt.Sprintf("Entry with a high amount: %s", amount.StringFixed(2)),
			AccountNumber: e.AccountNumber,
			Amount:        &amount,
			EntryDate:     entryDate(e),
		})
	}
	return out
}

// quantile interpolates linearly between the closest ranks of sorted xs.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// minimum positive amounts for the interquartile test
const minOutlierSample = 11

// unusualAmounts applies the 1.5 IQR rule to positive debits and credits.
// Zero sides never count as outliers.
func unusualAmounts(entries []models.AccountingEntry) []Anomaly {
	var amounts []float64
	for _, e := range entries {
		for _, v := range []decimal.Decimal{e.DebitAmount, e.CreditAmount} {
			if v.IsPositive() {
				amounts = append(amounts, v.InexactFloat64())
			}
		}
	}
	if len(amounts) < minOutlierSample {
		return nil
	}
	sort.Float64s(amounts)
	q1, q3 := quantile(amounts, 0.25), quantile(amounts, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr
	outside := func(v decimal.Decimal) bool {
		f := v.InexactFloat64()
		return f > 0 && (f > upper || f < lower)
	}

	var out []Anomaly
	for _, e := range entries {
		if !outside(e.DebitAmount) && !outside(e.CreditAmount) {
			continue
		}
		amount := decimal.Max(e.DebitAmount, e.CreditAmount)
		out = append(out, Anomaly{
			Type:          "statistical_outlier",
			Severity:      models.RiskLow,
			Description:   fmt.Sprintf("Statistically unusual amount: %s", amount.StringFixed(2)),
			AccountNumber: e.AccountNumber,
			Amount:        &amount,
			EntryDate:     entryDate(e),
		})
	}
	return out
}

func (a *Analyzer) dateAnomalies(entries []models.AccountingEntry) []Anomaly {
	now := a.now()
	oldLimit := now.AddDate(0, 0, -oldEntryDays)
	var out []Anomaly
	old := 0
	for _, e := range entries {
		if e.EntryDate == nil {
			continue
		}
		if e.EntryDate.After(now) {
			out = append(out, Anomaly{
				Type:          "future_date",
				Severity:      models.RiskMedium,
				Description:   fmt.Sprintf("Entry dated in the future: %s", entryDate(e)),
				AccountNumber: e.AccountNumber,
				EntryDate:     entryDate(e),
			})
		}
		if e.EntryDate.Before(oldLimit) {
			old++
		}
	}
	if old > 0 {
		out = append(out, Anomaly{
			Type:        "old_entries",
			Severity:    models.RiskLow,
			Description: fmt.Sprintf("%d entries dated more than two years ago", old),
			Count:       old,
		})
	}
	return out
}

func (a *Analyzer) AnalyzeJournalEntries(ctx context.Context, entries []models.AccountingEntry) JournalReport {
	_, span := startSpan(ctx, "audit.AnalyzeJournalEntries", len(entries))
	defer span.End()

	r := JournalReport{AnalysisType: "journal_analysis", Timestamp: a.now(), Anomalies: []Anomaly{}, RiskLevel: models.RiskLow}
	if len(entries) == 0 {
		r.Error = utils.ErrorEmptyDataset.Error()
		return r
	}
	unbalanced := FindUnbalancedEntries(entries)
	r.Summary = JournalSummary{TotalEntries: len(entries), UnbalancedEntries: len(unbalanced), UnbalancedPieces: unbalanced}
	for _, p := range unbalanced {
		diff := p.Difference
		r.Anomalies = append(r.Anomalies, Anomaly{
			Type:        "unbalanced_piece",
			Severity:    models.RiskHigh,
			Description: fmt.Sprintf("Piece %s is unbalanced by %s", p.PieceNumber, diff.StringFixed(2)),
			Amount:      &diff,
		})
	}
	r.Anomalies = append(r.Anomalies, a.highAmountEntries(entries)...)
	r.Anomalies = append(r.Anomalies, unusualAmounts(entries)...)
	r.Anomalies = append(r.Anomalies, a.dateAnomalies(entries)...)
	r.RiskLevel = anomalyRisk(r.Anomalies)
	r.Recommendations = journalRecommendations(r.Anomalies)
	return r
}

func journalRecommendations(anomalies []Anomaly) []string {
	counts := make(map[string]int)
	for _, a := range anomalies {
		counts[a.Type]++
	}
	var out []string
	if n := counts["unbalanced_piece"]; n > 0 {
		out = append(out, fmt.Sprintf("Correct %d unbalanced piece(s)", n))
	}
	if n := counts["high_amount_entry"]; n > 0 {
		out = append(out, fmt.Sprintf("Review in detail %d entries with high amounts", n))
	}
	if n := counts["future_date"]; n > 0 {
		out = append(out, fmt.Sprintf("Correct %d entries dated in the future", n))
	}
	if len(out) == 0 {
		out = append(out, "Journal entries look consistent")
	}
	return out
}
