package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type BalanceCheck struct {
	TotalDebit        decimal.Decimal `json:"total_debit"`
	TotalCredit       decimal.Decimal `json:"total_credit"`
	Difference        decimal.Decimal `json:"difference"`
	Threshold         decimal.Decimal `json:"threshold"`
	IsBalanced        bool            `json:"is_balanced"`
	BalancePercentage float64         `json:"balance_percentage"`
}

type AccountSummary struct {
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name,omitempty"`
	Role          Role            `json:"role"`
	Debit         decimal.Decimal `json:"debit_amount"`
	Credit        decimal.Decimal `json:"credit_amount"`
	NetBalance    decimal.Decimal `json:"net_balance"`
	TotalMovement decimal.Decimal `json:"total_movement"`
}

type AccountAnalysis struct {
	TotalAccounts        int              `json:"total_accounts"`
	AccountsWithMovement int              `json:"accounts_with_movement"`
	LargestMovements     []AccountSummary `json:"largest_movements"`
	Accounts             []AccountSummary `json:"accounts_summary"`
}

type BalanceSummary struct {
	BalanceCheck    BalanceCheck    `json:"balance_check"`
	AccountAnalysis AccountAnalysis `json:"account_analysis"`
}

type BalanceReport struct {
	AnalysisType    string           `json:"analysis_type"`
	Timestamp       time.Time        `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
	Summary         BalanceSummary   `json:"summary"`
	Anomalies       []Anomaly        `json:"anomalies"`
	Recommendations []string         `json:"recommendations"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
}

// CheckBalance compares total debits and credits. The books are balanced when
// the difference is below 1% of the standard's high risk amount.
func (a *Analyzer) CheckBalance(entries []models.AccountingEntry) BalanceCheck {
	var c BalanceCheck
	for _, e := range entries {
		c.TotalDebit = c.TotalDebit.Add(e.DebitAmount)
		c.TotalCredit = c.TotalCredit.Add(e.CreditAmount)
	}
	c.Difference = c.TotalDebit.Sub(c.TotalCredit).Abs()
	c.Threshold = a.thresholds.HighRiskAmount.Mul(decimal.New(1, -2))
	c.IsBalanced = c.Difference.LessThan(c.Threshold)
	if largest := decimal.Max(c.TotalDebit, c.TotalCredit); largest.IsPositive() {
		c.BalancePercentage = c.Difference.Div(largest).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return c
}

// summarizeAccounts groups entries per account in order of first appearance.
func (a *Analyzer) summarizeAccounts(entries []models.AccountingEntry) []AccountSummary {
	var out []AccountSummary
	pos := make(map[string]int)
	for _, e := range entries {
		if e.AccountNumber == "" {
			continue
		}
		n, ok := pos[e.AccountNumber]
		if !ok {
			n = len(out)
			pos[e.AccountNumber] = n
			out = append(out, AccountSummary{AccountNumber: e.AccountNumber, AccountName: e.AccountName, Role: a.layout(e.AccountNumber)})
		}
		s := &out[n]
		if s.AccountName == "" {
			s.AccountName = e.AccountName
		}
		s.Debit = s.Debit.Add(e.DebitAmount)
		s.Credit = s.Credit.Add(e.CreditAmount)
	}
	for i := range out {
		out[i].NetBalance = out[i].Debit.Sub(out[i].Credit)
		out[i].TotalMovement = out[i].Debit.Add(out[i].Credit)
	}
	return out
}

func analyzeAccounts(accounts []AccountSummary) AccountAnalysis {
	aa := AccountAnalysis{TotalAccounts: len(accounts), Accounts: accounts}
	for _, s := range accounts {
		if s.TotalMovement.IsPositive() {
			aa.AccountsWithMovement++
		}
	}
	largest := append([]AccountSummary(nil), accounts...)
	sort.SliceStable(largest, func(i, j int) bool { return largest[i].TotalMovement.GreaterThan(largest[j].TotalMovement) })
	if len(largest) > 5 {
		largest = largest[:5]
	}
	aa.LargestMovements = largest
	return aa
}

// natureAnomalies flags accounts whose net balance sits on the side opposite
// to their role.
func natureAnomalies(accounts []AccountSummary) []Anomaly {
	var out []Anomaly
	for _, s := range accounts {
		var desc string
		switch s.Role.Nature() {
		case NatureDebit:
			if s.NetBalance.IsNegative() {
				desc = fmt.Sprintf("Debit-natured %s account with a credit balance: %s", s.Role, s.NetBalance.StringFixed(2))
			}
		case NatureCredit:
			if s.NetBalance.IsPositive() {
				desc = fmt.Sprintf("Credit-natured %s account with a debit balance: %s", s.Role, s.NetBalance.StringFixed(2))
			}
		}
		if desc == "" {
			continue
		}
		net := s.NetBalance
		out = append(out, Anomaly{
			Type:          "unusual_account_balance",
			Severity:      models.RiskLow,
			Description:   desc,
			AccountNumber: s.AccountNumber,
			AccountName:   s.AccountName,
			Amount:        &net,
		})
	}
	return out
}

func (a *Analyzer) AnalyzeBalanceSheet(ctx context.Context, entries []models.AccountingEntry) BalanceReport {
	_, span := startSpan(ctx, "audit.AnalyzeBalanceSheet", len(entries))
	defer span.End()

	r := BalanceReport{AnalysisType: "balance_analysis", Timestamp: a.now(), Anomalies: []Anomaly{}, RiskLevel: models.RiskLow}
	if len(entries) == 0 {
		r.Error = utils.ErrorEmptyDataset.Error()
		return r
	}
	accounts := a.summarizeAccounts(entries)
	r.Summary = BalanceSummary{BalanceCheck: a.CheckBalance(entries), AccountAnalysis: analyzeAccounts(accounts)}
	check := r.Summary.BalanceCheck
	if !check.IsBalanced {
		diff := check.Difference
		r.Anomalies = append(r.Anomalies, Anomaly{
			Type:        "unbalanced_books",
			Severity:    models.RiskHigh,
			Description: fmt.Sprintf("Total debits and credits differ by %s", diff.StringFixed(2)),
			Amount:      &diff,
		})
	}
	natures := natureAnomalies(accounts)
	r.Anomalies = append(r.Anomalies, natures...)
	r.RiskLevel = anomalyRisk(r.Anomalies)

	if !check.IsBalanced {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Fix the %s imbalance (%.2f%%)", check.Difference.StringFixed(2), check.BalancePercentage))
	}
	if n := len(natures); n > 0 {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("Check %d account(s) whose balance contradicts their nature", n))
	}
	if len(r.Recommendations) == 0 {
		r.Recommendations = []string{"The balance looks consistent, continue with the detailed analyses"}
	}
	return r
}
