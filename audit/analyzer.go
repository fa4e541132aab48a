// Package audit assembles the per-project audit reports: balance
// equilibrium, journal checks, ratios and fraud indicators.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bitbucket.org/mmdatafocus/audit_backend/detector"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/audit_backend/audit")

// Anomaly is a finding of the balance or journal analysis.
type Anomaly struct {
	Type          string           `json:"type"`
	Severity      models.RiskLevel `json:"severity"`
	Description   string           `json:"description"`
	AccountNumber string           `json:"account_number,omitempty"`
	AccountName   string           `json:"account_name,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	EntryDate     string           `json:"entry_date,omitempty"`
	Count         int              `json:"count,omitempty"`
}

// riskLevel sums the severity scores of the findings.
func riskLevel(severities []models.RiskLevel) models.RiskLevel {
	total := 0
	for _, s := range severities {
		total += s.Score()
	}
	return models.RiskLevelFromScore(total)
}

func anomalyRisk(anomalies []Anomaly) models.RiskLevel {
	s := make([]models.RiskLevel, len(anomalies))
	for i, a := range anomalies {
		s[i] = a.Severity
	}
	return riskLevel(s)
}

type Analyzer struct {
	standard   models.Standard
	thresholds Thresholds
	layout     Layout
	detector   *detector.Detector
	now        func() time.Time
}

// NewAnalyzer returns an analyzer for one standard. A nil detector gets the
// default thresholds.
func NewAnalyzer(standard models.Standard, d *detector.Detector) (*Analyzer, error) {
	th, ok := ThresholdsFor(standard)
	if !ok {
		return nil, fmt.Errorf("%w: %s", utils.ErrorUnsupportedStandard, standard)
	}
	if d == nil {
		d = detector.NewDetector()
	}
	return &Analyzer{
		standard:   standard,
		thresholds: th,
		layout:     LayoutFor(standard),
		detector:   d,
		now:        time.Now,
	}, nil
}

// WithClock replaces the reference time for date checks.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

func (a *Analyzer) Standard() models.Standard { return a.standard }

type ProjectReport struct {
	Standard    models.Standard  `json:"standard"`
	Balance     BalanceReport    `json:"balance_analysis"`
	Journal     JournalReport    `json:"journal_analysis"`
	Ratios      RatioReport      `json:"ratio_analysis"`
	Fraud       FraudReport      `json:"fraud_detection"`
	OverallRisk models.RiskLevel `json:"overall_risk_level"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// AnalyzeProject produces the four reports. The overall risk is the highest
// of the four.
func (a *Analyzer) AnalyzeProject(ctx context.Context, entries []models.AccountingEntry) ProjectReport {
	ctx, span := tracer.Start(ctx, "audit.AnalyzeProject", trace.WithAttributes(
		attribute.String("standard", string(a.standard)),
		attribute.Int("entries", len(entries)),
	))
	defer span.End()

	r := ProjectReport{
		Standard:    a.standard,
		Balance:     a.AnalyzeBalanceSheet(ctx, entries),
		Journal:     a.AnalyzeJournalEntries(ctx, entries),
		Ratios:      a.PerformRatioAnalysis(ctx, entries),
		Fraud:       a.DetectFraudIndicators(ctx, entries),
		GeneratedAt: a.now(),
	}
	r.OverallRisk = models.RiskLow
	for _, l := range []models.RiskLevel{r.Balance.RiskLevel, r.Journal.RiskLevel, r.Ratios.RiskLevel, r.Fraud.RiskLevel} {
		if l.Level() > r.OverallRisk.Level() {
			r.OverallRisk = l
		}
	}
	span.SetAttributes(attribute.String("overall_risk", string(r.OverallRisk)))
	return r
}

func startSpan(ctx context.Context, name string, n int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.Int("entries", n)))
}
