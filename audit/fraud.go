package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/detector"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

const (
	benfordMinAmounts   = 100
	benfordCritical     = 15.507
	periodEndDay        = 28
	periodEndShare      = 0.3
	roundThousandShare  = 0.2
	suspenseShare       = 0.1
	suspenseAccountRoot = "47"
)

type FraudIndicator struct {
	Type        string           `json:"type"`
	Severity    models.RiskLevel `json:"severity"`
	Description string           `json:"description"`
	Value       float64          `json:"value"`
	Threshold   float64          `json:"threshold"`
}

// SuspicionCount aggregates the detector findings of one type.
type SuspicionCount struct {
	Type     detector.SuspicionType `json:"type"`
	Count    int                    `json:"count"`
	MaxLevel models.RiskLevel       `json:"max_level"`
}

type FraudReport struct {
	AnalysisType    string           `json:"analysis_type"`
	Timestamp       time.Time        `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
	Indicators      []FraudIndicator `json:"fraud_indicators"`
	Detection       []SuspicionCount `json:"detection_summary"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
	Recommendations []string         `json:"recommendations"`
}

func positiveAmounts(entries []models.AccountingEntry) []decimal.Decimal {
	var out []decimal.Decimal
	for _, e := range entries {
		for _, v := range []decimal.Decimal{e.DebitAmount, e.CreditAmount} {
			if v.IsPositive() {
				out = append(out, v)
			}
		}
	}
	return out
}

func benfordIndicator(amounts []decimal.Decimal) *FraudIndicator {
	if len(amounts) < benfordMinAmounts {
		return nil
	}
	fs := make([]float64, len(amounts))
	for i, v := range amounts {
		fs[i] = v.InexactFloat64()
	}
	b := detector.AnalyzeBenford(fs)
	if b.ChiSquare <= benfordCritical {
		return nil
	}
	return &FraudIndicator{
		Type:        "benford_law_violation",
		Severity:    models.RiskHigh,
		Description: fmt.Sprintf("Leading digits deviate from Benford's law (chi-square %.2f)", b.ChiSquare),
		Value:       b.ChiSquare,
		Threshold:   benfordCritical,
	}
}

func periodEndIndicator(entries []models.AccountingEntry) *FraudIndicator {
	dated, late := 0, 0
	for _, e := range entries {
		if e.EntryDate == nil {
			continue
		}
		dated++
		if e.EntryDate.Day() >= periodEndDay {
			late++
		}
	}
	if dated == 0 {
		return nil
	}
	share := float64(late) / float64(dated)
	if share <= periodEndShare {
		return nil
	}
	return &FraudIndicator{
		Type:        "period_end_concentration",
		Severity:    models.RiskMedium,
		Description: fmt.Sprintf("%.1f%% of entries are booked at month end", share*100),
		Value:       share,
		Threshold:   periodEndShare,
	}
}

func roundThousandIndicator(amounts []decimal.Decimal) *FraudIndicator {
	if len(amounts) == 0 {
		return nil
	}
	thousand := decimal.NewFromInt(1000)
	round := 0
	for _, v := range amounts {
		if v.Mod(thousand).IsZero() {
			round++
		}
	}
	share := float64(round) / float64(len(amounts))
	if share <= roundThousandShare {
		return nil
	}
	return &FraudIndicator{
		Type:        "round_amounts",
		Severity:    models.RiskLow,
		Description: fmt.Sprintf("%.1f%% of amounts are round thousands", share*100),
		Value:       share,
		Threshold:   roundThousandShare,
	}
}

func suspenseIndicator(entries []models.AccountingEntry) *FraudIndicator {
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.AccountNumber, suspenseAccountRoot) {
			n++
		}
	}
	share := float64(n) / float64(len(entries))
	if share <= suspenseShare {
		return nil
	}
	return &FraudIndicator{
		Type:        "suspense_account_usage",
		Severity:    models.RiskMedium,
		Description: fmt.Sprintf("%.1f%% of entries use suspense accounts (%s)", share*100, suspenseAccountRoot),
		Value:       share,
		Threshold:   suspenseShare,
	}
}

func summarizeSuspicions(flagged []detector.SuspiciousEntry) []SuspicionCount {
	byType := make(map[detector.SuspicionType]*SuspicionCount)
	for _, s := range flagged {
		c, ok := byType[s.Type]
		if !ok {
			c = &SuspicionCount{Type: s.Type, MaxLevel: s.Level}
			byType[s.Type] = c
		}
		c.Count++
		if s.Level.Level() > c.MaxLevel.Level() {
			c.MaxLevel = s.Level
		}
	}
	out := make([]SuspicionCount, 0, len(byType))
	for _, c := range byType {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func (a *Analyzer) DetectFraudIndicators(ctx context.Context, entries []models.AccountingEntry) FraudReport {
	_, span := startSpan(ctx, "audit.DetectFraudIndicators", len(entries))
	defer span.End()

	r := FraudReport{AnalysisType: "fraud_detection", Timestamp: a.now(), Indicators: []FraudIndicator{}, Detection: []SuspicionCount{}, RiskLevel: models.RiskLow}
	if len(entries) == 0 {
		r.Error = utils.ErrorEmptyDataset.Error()
		return r
	}
	amounts := positiveAmounts(entries)
	for _, ind := range []*FraudIndicator{
		benfordIndicator(amounts),
		periodEndIndicator(entries),
		roundThousandIndicator(amounts),
		suspenseIndicator(entries),
	} {
		if ind != nil {
			r.Indicators = append(r.Indicators, *ind)
		}
	}

	levels := make([]models.RiskLevel, 0, len(r.Indicators))
	for _, ind := range r.Indicators {
		levels = append(levels, ind.Severity)
	}
	if res := a.detector.Detect(detector.FromAccountingEntries(entries), detector.Config{}); res.Success {
		r.Detection = summarizeSuspicions(res.SuspiciousEntries)
		for _, c := range r.Detection {
			levels = append(levels, c.MaxLevel)
		}
	}
	r.RiskLevel = riskLevel(levels)
	r.Recommendations = fraudRecommendations(r)
	return r
}

func fraudRecommendations(r FraudReport) []string {
	var out []string
	for _, ind := range r.Indicators {
		switch ind.Type {
		case "benford_law_violation":
			out = append(out, "Sample entries by leading digit and review the over-represented ones")
		case "period_end_concentration":
			out = append(out, "Review the entries booked during the last days of each month")
		case "round_amounts":
			out = append(out, "Ask for supporting documents for round amount entries")
		case "suspense_account_usage":
			out = append(out, "Clear and justify the balances of suspense accounts")
		}
	}
	for _, c := range r.Detection {
		if c.MaxLevel.Level() >= models.RiskHigh.Level() {
			out = append(out, fmt.Sprintf("Investigate %d %s finding(s)", c.Count, c.Type))
		}
	}
	if len(out) == 0 {
		out = []string{"No significant fraud indicator"}
	}
	return out
}
