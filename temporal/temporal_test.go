package temporal

import (
	"math"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

func fixedAnalyzer() *Analyzer {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	return NewAnalyzer().WithClock(func() time.Time { return now })
}

func run(t *testing.T, rows []map[string]any, only ...Analysis) Result {
	t.Helper()
	res := fixedAnalyzer().AnalyzeRecords(rows, Config{EnabledAnalyses: only})
	if !res.Success {
		t.Fatalf("analysis failed: %s", res.Error)
	}
	return res
}

func daily(start time.Time, amounts ...float64) []map[string]any {
	rows := make([]map[string]any, len(amounts))
	for i, a := range amounts {
		rows[i] = map[string]any{"date": start.AddDate(0, 0, i).Format("2006-01-02"), "montant": a}
	}
	return rows
}

func TestOutlierIsCritical(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := daily(start, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 10000)
	res := run(t, rows, AnalysisOutliers)
	if len(res.Anomalies) != 1 {
		t.Fatalf("expected one outlier, got %d", len(res.Anomalies))
	}
	a := res.Anomalies[0]
	if a.Severity != models.RiskCritical || *a.ActualValue != 10000 || *a.ExpectedValue != 1000 {
		t.Fatalf("unexpected anomaly %+v", a)
	}
	if a.Period != "2024-01-11" {
		t.Fatalf("period = %s", a.Period)
	}
}

func TestTrendBreak(t *testing.T) {
	var rows []map[string]any
	for month := 1; month <= 6; month++ {
		amount := 50.0
		if month == 6 {
			amount = 200
		}
		for _, day := range []int{5, 20} {
			rows = append(rows, map[string]any{
				"date":    time.Date(2024, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("02/01/2006"),
				"montant": amount,
			})
		}
	}
	res := run(t, rows, AnalysisTrend)
	periods := map[string]Anomaly{}
	for _, a := range res.Anomalies {
		periods[a.Period] = a
	}
	june, ok := periods["2024-06"]
	if !ok {
		t.Fatalf("expected a trend break in June, got %v", res.Anomalies)
	}
	if june.Severity != models.RiskHigh || math.Abs(*june.ExpectedValue-240.476) > 0.01 {
		t.Fatalf("unexpected June anomaly %+v", june)
	}
	if _, ok := periods["2024-03"]; ok {
		t.Fatalf("March follows the trend and must not be flagged")
	}
	if res.Trends.MonthlyTrend == nil || res.Trends.MonthlyTrend.Direction != "increasing" {
		t.Fatalf("unexpected trend %+v", res.Trends.MonthlyTrend)
	}
}

func TestMissingWeeks(t *testing.T) {
	rows := []map[string]any{
		{"date": "2024-01-01", "montant": 10},
		{"date": "2024-01-22", "montant": 10},
	}
	res := run(t, rows, AnalysisGaps)
	if len(res.Anomalies) != 2 {
		t.Fatalf("expected 2 missing weeks, got %d", len(res.Anomalies))
	}
	if res.Anomalies[0].Period != "2024-01-08/2024-01-14" || res.Anomalies[1].Period != "2024-01-15/2024-01-21" {
		t.Fatalf("unexpected periods %s, %s", res.Anomalies[0].Period, res.Anomalies[1].Period)
	}
}

func TestRetroactiveAndFutureEntries(t *testing.T) {
	rows := []map[string]any{
		{"date": "2024-01-01", "date_saisie": "2024-05-01", "montant": 10},
		{"date": "2024-01-01", "date_saisie": "2024-02-15", "montant": 10},
		{"date": "2024-09-01", "montant": 10},
	}
	res := run(t, rows, AnalysisRetroactive)
	if len(res.Anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d", len(res.Anomalies))
	}
	got := map[AnomalyType][]float64{}
	for _, a := range res.Anomalies {
		got[a.Type] = append(got[a.Type], *a.ActualValue)
	}
	retro := got[AnomalyRetroactiveEntry]
	if len(retro) != 2 || retro[0] != 121 || retro[1] != 45 {
		t.Fatalf("unexpected retroactive days %v", retro)
	}
	if future := got[AnomalyFutureEntry]; len(future) != 1 || future[0] != 63 {
		t.Fatalf("unexpected future days %v", future)
	}
	if res.Anomalies[0].Severity != models.RiskHigh || res.Anomalies[len(res.Anomalies)-1].Severity != models.RiskMedium {
		t.Fatalf("anomalies not sorted by severity")
	}
}

func TestInconsistentFrequency(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := daily(start, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	rows = append(rows, map[string]any{"date": "2024-02-10", "montant": 1})
	res := run(t, rows, AnalysisFrequency)
	if len(res.Anomalies) != 1 {
		t.Fatalf("expected one frequency anomaly, got %d", len(res.Anomalies))
	}
	if a := res.Anomalies[0]; a.Severity != models.RiskHigh || *a.ActualValue != 30 || a.Period != "2024-02-10" {
		t.Fatalf("unexpected anomaly %+v", a)
	}
}

func TestPrepareFEC(t *testing.T) {
	s, err := Prepare([]map[string]any{
		{"EcritureDate": "20240105", "Debit": "100,50", "Credit": "", "CompteNum": "401000"},
		{"EcritureDate": "not a date", "Debit": "1", "Credit": ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Points) != 1 || s.Points[0].Amount != 100.5 || s.Points[0].Account != "401000" {
		t.Fatalf("unexpected series %+v", s.Points)
	}
}

func TestNoDateColumn(t *testing.T) {
	res := fixedAnalyzer().AnalyzeRecords([]map[string]any{{"montant": 1}}, Config{})
	if res.Success || res.Error == "" {
		t.Fatalf("expected a failure without a date column")
	}
	res = fixedAnalyzer().AnalyzeRecords(nil, Config{})
	if res.Success {
		t.Fatalf("expected a failure on empty input")
	}
}

func TestConfigureRejectsInvalidThresholds(t *testing.T) {
	a := NewAnalyzer()
	th := DefaultThresholds()
	th.OutlierZScore = 0
	if err := a.Configure(th); err == nil {
		t.Fatalf("expected a validation error")
	}
}
