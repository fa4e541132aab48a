package crossvalidation

import (
	"fmt"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

func exceeds(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(Tolerance)
}

type decodedPayment struct {
	payment
	file string
}

// closestReference returns the payment reference nearest to number by
// edit distance.
func closestReference(number string, payments []decodedPayment) (string, int) {
	best, bestDist := "", -1
	for _, p := range payments {
		if p.Reference == "" {
			continue
		}
		d := levenshtein.ComputeDistance(number, p.Reference)
		if bestDist < 0 || d < bestDist {
			best, bestDist = p.Reference, d
		}
	}
	return best, bestDist
}

func validateInvoicePayment(invoices, payments []Document) ([]ValidationResult, error) {
	var decoded []decodedPayment
	for _, doc := range payments {
		rec, ok := doc.record()
		if !ok {
			continue
		}
		var p payment
		if err := decode(rec, &p); err != nil {
			return nil, fmt.Errorf("payment %s: %w", doc.name("paiement"), err)
		}
		decoded = append(decoded, decodedPayment{payment: p, file: doc.name("paiement")})
	}

	var out []ValidationResult
	for _, doc := range invoices {
		rec, ok := doc.record()
		if !ok {
			continue
		}
		var inv invoice
		if err := decode(rec, &inv); err != nil {
			return out, fmt.Errorf("invoice %s: %w", doc.name("facture"), err)
		}
		file := doc.name("facture")
		if inv.Number == "" {
			out = append(out, ValidationResult{
				Level:     models.SeverityError,
				Message:   "Missing invoice number",
				Field:     "numero_facture",
				Documents: []string{file},
			})
			continue
		}

		total := decimal.Zero
		docsInvolved := []string{file}
		for _, p := range decoded {
			if matchesReference(inv.Number, p.Reference) {
				total = total.Add(p.Amount)
				docsInvolved = append(docsInvolved, p.file)
			}
		}
		if len(docsInvolved) == 1 {
			v := ValidationResult{
				Level:         models.SeverityWarning,
				Message:       fmt.Sprintf("No payment found for invoice %s", inv.Number),
				Field:         "paiement_correspondant",
				ExpectedValue: inv.Number,
				Documents:     docsInvolved,
			}
			if ref, dist := closestReference(inv.Number, decoded); dist >= 0 {
				v.Hint = fmt.Sprintf("closest payment reference %q (edit distance %d)", ref, dist)
			}
			out = append(out, v)
			continue
		}

		v := ValidationResult{
			Field:         "montant",
			ExpectedValue: inv.Total.InexactFloat64(),
			ActualValue:   total.InexactFloat64(),
			Documents:     docsInvolved,
		}
		if exceeds(inv.Total, total) {
			v.Level = models.SeverityError
			v.Message = fmt.Sprintf("Invoice amount (%s) != payments amount (%s)", inv.Total.StringFixed(2), total.StringFixed(2))
		} else {
			v.Level = models.SeverityInfo
			v.Message = fmt.Sprintf("Amounts agree for invoice %s", inv.Number)
		}
		out = append(out, v)
	}
	return out, nil
}

func docLines(doc Document) ([]line, bool, error) {
	rows, ok := doc.records()
	if !ok {
		return nil, false, nil
	}
	lines, err := decodeLines(rows)
	if err != nil {
		return nil, true, fmt.Errorf("%s %s: %w", doc.Type, doc.name(string(doc.Type)), err)
	}
	return lines, true, nil
}

// netByAccount sums debit minus credit per account.
func netByAccount(lines []line) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, l := range lines {
		if l.Account == "" {
			continue
		}
		out[l.Account] = out[l.Account].Add(l.Debit.Sub(l.Credit))
	}
	return out
}

// validateBalanceLedger compares every balance line with the net movement
// recomputed from a ledger-like document (general ledger or FEC).
func validateBalanceLedger(balances, ledgers []Document, field, label string) ([]ValidationResult, error) {
	var out []ValidationResult
	for _, b := range balances {
		bLines, ok, err := docLines(b)
		if err != nil || !ok {
			if err != nil {
				return out, err
			}
			continue
		}
		for _, l := range ledgers {
			lLines, ok, err := docLines(l)
			if err != nil {
				return out, err
			}
			if !ok {
				continue
			}
			nets := netByAccount(lLines)
			docs := []string{b.name("balance"), l.name(string(l.Type))}
			for _, bl := range bLines {
				if bl.Account == "" {
					continue
				}
				recomputed := nets[bl.Account]
				v := ValidationResult{
					Field:         field,
					ExpectedValue: bl.Balance.InexactFloat64(),
					ActualValue:   recomputed.InexactFloat64(),
					Documents:     docs,
				}
				if exceeds(bl.Balance, recomputed) {
					v.Level = models.SeverityError
					v.Message = fmt.Sprintf("Account %s balance: Balance (%s) != %s (%s)", bl.Account, bl.Balance.StringFixed(2), label, recomputed.StringFixed(2))
				} else {
					v.Level = models.SeverityInfo
					v.Message = fmt.Sprintf("Balance agrees for account %s", bl.Account)
				}
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func totals(lines []line) (debit, credit decimal.Decimal) {
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func validateJournalBalance(journals, balances []Document) ([]ValidationResult, error) {
	var jDebit, jCredit decimal.Decimal
	var journalFiles []string
	for _, j := range journals {
		lines, ok, err := docLines(j)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		d, c := totals(lines)
		jDebit, jCredit = jDebit.Add(d), jCredit.Add(c)
		journalFiles = append(journalFiles, j.name("journal"))
	}

	var out []ValidationResult
	if exceeds(jDebit, jCredit) {
		out = append(out, ValidationResult{
			Level:         models.SeverityCritical,
			Message:       fmt.Sprintf("Journals are unbalanced: debit (%s) != credit (%s)", jDebit.StringFixed(2), jCredit.StringFixed(2)),
			Field:         "equilibre_journaux",
			ExpectedValue: jDebit.InexactFloat64(),
			ActualValue:   jCredit.InexactFloat64(),
			Documents:     journalFiles,
		})
	}

	for _, b := range balances {
		lines, ok, err := docLines(b)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		bDebit, bCredit := totals(lines)
		docs := append(append([]string(nil), journalFiles...), b.name("balance"))
		matched := true
		for _, cmp := range []struct {
			field, label     string
			journal, balance decimal.Decimal
		}{
			{"total_debit", "Debit", jDebit, bDebit},
			{"total_credit", "Credit", jCredit, bCredit},
		} {
			if !exceeds(cmp.journal, cmp.balance) {
				continue
			}
			matched = false
			out = append(out, ValidationResult{
				Level:         models.SeverityError,
				Message:       fmt.Sprintf("%s total: journals (%s) != balance (%s)", cmp.label, cmp.journal.StringFixed(2), cmp.balance.StringFixed(2)),
				Field:         cmp.field,
				ExpectedValue: cmp.journal.InexactFloat64(),
				ActualValue:   cmp.balance.InexactFloat64(),
				Documents:     docs,
			})
		}
		if matched {
			out = append(out, ValidationResult{
				Level:     models.SeverityInfo,
				Message:   "Journal totals agree with the balance",
				Field:     "total_debit",
				Documents: docs,
			})
		}
	}
	return out, nil
}

var (
	genericDateFields   = []string{"date", "date_facture", "date_paiement", "EcritureDate"}
	genericAmountFields = []string{"montant", "montant_ttc", "total", "solde"}
)

// maximum spread between document dates before a warning
const maxDateSpreadDays = 365

func genericValidations(docs []Document) []ValidationResult {
	var out []ValidationResult

	type datedDoc struct {
		file string
		date int64
	}
	var dates []datedDoc
	type amountDoc struct {
		file, field string
		amount      decimal.Decimal
	}
	var amounts []amountDoc
	for _, d := range docs {
		rec, ok := d.record()
		if !ok {
			continue
		}
		for _, f := range genericDateFields {
			if v, ok := rec[f]; ok {
				if t, ok, _ := utils.ParseDate(v); ok {
					dates = append(dates, datedDoc{file: d.name("document"), date: t.Unix()})
				}
			}
		}
		for _, f := range genericAmountFields {
			if v, ok := rec[f]; ok {
				if a := utils.RoundHalfUp(utils.CleanAmount(v), 2); a.IsPositive() {
					amounts = append(amounts, amountDoc{file: d.name("document"), field: f, amount: a})
				}
			}
		}
	}

	if len(dates) > 1 {
		sort.SliceStable(dates, func(a, b int) bool { return dates[a].date < dates[b].date })
		first, last := dates[0].date, dates[len(dates)-1].date
		if (last-first)/86400 > maxDateSpreadDays {
			files := make([]string, len(dates))
			for i, d := range dates {
				files[i] = d.file
			}
			out = append(out, ValidationResult{
				Level:         models.SeverityWarning,
				Message:       "Document dates are more than a year apart",
				Field:         "coherence_dates",
				ExpectedValue: unixDate(first),
				ActualValue:   unixDate(last),
				Documents:     utils.UniqueSlice(files),
			})
		}
	}

	if len(amounts) > 2 {
		sum := decimal.Zero
		for _, a := range amounts {
			sum = sum.Add(a.amount)
		}
		limit := sum.Div(decimal.NewFromInt(int64(len(amounts)))).Mul(decimal.NewFromInt(10))
		for _, a := range amounts {
			if a.amount.GreaterThan(limit) {
				out = append(out, ValidationResult{
					Level:       models.SeverityWarning,
					Message:     fmt.Sprintf("Possibly outlying amount %s in %s", a.amount.StringFixed(2), a.file),
					Field:       a.field,
					ActualValue: a.amount.InexactFloat64(),
					Documents:   []string{a.file},
				})
			}
		}
	}
	return out
}

func unixDate(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("02/01/2006")
}
