package audit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// RoleBalances is the net balance (debit minus credit) per role.
type RoleBalances map[Role]decimal.Decimal

func (a *Analyzer) roleBalances(entries []models.AccountingEntry) RoleBalances {
	out := make(RoleBalances)
	for _, e := range entries {
		if e.AccountNumber == "" {
			continue
		}
		role := a.layout(e.AccountNumber)
		out[role] = out[role].Add(e.Net())
	}
	return out
}

type Ratios struct {
	Liquidity     map[string]float64 `json:"liquidity"`
	Solvency      map[string]float64 `json:"solvency"`
	Activity      map[string]float64 `json:"activity"`
	Profitability map[string]float64 `json:"profitability"`
}

type RatioReport struct {
	AnalysisType    string           `json:"analysis_type"`
	Timestamp       time.Time        `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
	Balances        RoleBalances     `json:"balances"`
	Ratios          Ratios           `json:"ratios"`
	Interpretations []string         `json:"interpretations"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
}

func ratio(num, den decimal.Decimal) (float64, bool) {
	if !den.IsPositive() {
		return 0, false
	}
	return num.DivRound(den, 4).InexactFloat64(), true
}

// ComputeRatios derives the ratios from role balances. Credit-natured
// balances are negated so every aggregate is positive when normal.
func ComputeRatios(b RoleBalances) Ratios {
	r := Ratios{
		Liquidity:     map[string]float64{},
		Solvency:      map[string]float64{},
		Activity:      map[string]float64{},
		Profitability: map[string]float64{},
	}
	inventory := b[RoleInventory]
	currentAssets := b[RoleReceivables].Add(inventory).Add(b[RoleCash])
	currentLiabilities := b[RoleShortLiabilities].Neg()
	totalAssets := currentAssets.Add(b[RoleFixedAssets])
	totalLiabilities := currentLiabilities.Add(b[RoleLongLiabilities].Neg())
	equity := b[RoleEquity].Neg()
	revenue := b[RoleRevenue].Neg()
	expenses := b[RoleExpenses]

	if v, ok := ratio(currentAssets, currentLiabilities); ok {
		r.Liquidity["current_ratio"] = v
	}
	if v, ok := ratio(currentAssets.Sub(inventory), currentLiabilities); ok {
		r.Liquidity["quick_ratio"] = v
	}
	if v, ok := ratio(totalLiabilities, totalAssets); ok {
		r.Solvency["debt_to_assets"] = v
	}
	if v, ok := ratio(equity, totalAssets); ok {
		r.Solvency["equity_ratio"] = v
	}
	if v, ok := ratio(expenses, inventory); ok {
		r.Activity["inventory_turnover"] = v
	}
	if v, ok := ratio(revenue.Sub(expenses), revenue); ok {
		r.Profitability["net_margin"] = v
	}
	return r
}

func interpretRatios(r Ratios) []string {
	out := []string{}
	if v, ok := r.Liquidity["current_ratio"]; ok {
		switch {
		case v < 1:
			out = append(out, "Low current ratio, short term cash difficulties are possible")
		case v > 2:
			out = append(out, "High current ratio, cash may be under-employed")
		default:
			out = append(out, "Current ratio within the usual range")
		}
	}
	if v, ok := r.Liquidity["quick_ratio"]; ok && v < 0.5 {
		out = append(out, "Quick ratio below 0.5, liquidity depends on selling inventory")
	}
	if v, ok := r.Solvency["debt_to_assets"]; ok && v > 0.7 {
		out = append(out, "Debt exceeds 70% of assets, solvency is a concern")
	}
	if v, ok := r.Profitability["net_margin"]; ok && v < 0 {
		out = append(out, "Expenses exceed revenue over the period")
	}
	return out
}

// ratioRisk counts weak ratios: a low current ratio or high leverage weigh
// two points, a negative margin one.
func ratioRisk(r Ratios) models.RiskLevel {
	points := 0
	if v, ok := r.Liquidity["current_ratio"]; ok && v < 1 {
		points += 2
	}
	if v, ok := r.Solvency["debt_to_assets"]; ok && v > 0.7 {
		points += 2
	}
	if v, ok := r.Profitability["net_margin"]; ok && v < 0 {
		points++
	}
	switch {
	case points >= 3:
		return models.RiskHigh
	case points >= 1:
		return models.RiskMedium
	}
	return models.RiskLow
}

func (a *Analyzer) PerformRatioAnalysis(ctx context.Context, entries []models.AccountingEntry) RatioReport {
	_, span := startSpan(ctx, "audit.PerformRatioAnalysis", len(entries))
	defer span.End()

	r := RatioReport{AnalysisType: "ratio_analysis", Timestamp: a.now(), Interpretations: []string{}, RiskLevel: models.RiskLow}
	if len(entries) == 0 {
		r.Error = utils.ErrorEmptyDataset.Error()
		return r
	}
	r.Balances = a.roleBalances(entries)
	r.Ratios = ComputeRatios(r.Balances)
	r.Interpretations = interpretRatios(r.Ratios)
	r.RiskLevel = ratioRisk(r.Ratios)
	return r
}
