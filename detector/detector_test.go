package detector

import (
	"fmt"
	"math"
	"testing"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

func runOnly(t *testing.T, rows []map[string]any, rules ...Rule) Result {
	t.Helper()
	res := NewDetector().DetectRecords(rows, Config{EnabledRules: rules})
	if !res.Success {
		t.Fatalf("detection failed: %s", res.Error)
	}
	return res
}

func byType(res Result, typ SuspicionType) []SuspiciousEntry {
	var out []SuspiciousEntry
	for _, s := range res.SuspiciousEntries {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func TestReversalPattern(t *testing.T) {
	rows := []map[string]any{
		{"entry_id": "E1", "account": "411000", "date": "2024-01-01", "montant": 1000},
		{"entry_id": "E2", "account": "411000", "date": "2024-01-03", "montant": -1000},
		{"entry_id": "E3", "account": "401000", "date": "2024-01-02", "montant": -1000},
	}
	res := runOnly(t, rows, RuleReversalPatterns)
	flags := byType(res, SuspicionReversalPattern)
	if len(flags) != 2 {
		t.Fatalf("expected both sides flagged, got %d", len(flags))
	}
	for _, f := range flags {
		if f.Evidence["days_between"] != 2 {
			t.Fatalf("days_between = %v", f.Evidence["days_between"])
		}
		if math.Abs(f.RiskScore-(1-2.0/7)) > 1e-9 {
			t.Fatalf("risk = %v", f.RiskScore)
		}
		if f.Level != models.RiskMedium {
			t.Fatalf("level = %s", f.Level)
		}
		if len(f.RelatedEntries) != 1 || f.RelatedEntries[0] == f.EntryID || f.RelatedEntries[0] == "E3" {
			t.Fatalf("unexpected related entries %v for %s", f.RelatedEntries, f.EntryID)
		}
	}
}

func TestThresholdManipulation(t *testing.T) {
	var rows []map[string]any
	for _, a := range []float64{9500, 9600, 9700, 9800, 9900, 9950, 8000, 8500, 11000, 12000} {
		rows = append(rows, map[string]any{"montant": a})
	}
	res := runOnly(t, rows, RuleThresholdManipulation)
	flags := byType(res, SuspicionJustBelowThreshold)
	if len(flags) != 6 {
		t.Fatalf("expected 6 flags, got %d", len(flags))
	}
	for _, f := range flags {
		if math.Abs(f.RiskScore-0.6) > 1e-9 {
			t.Fatalf("risk = %v", f.RiskScore)
		}
		if f.Evidence["threshold"] != 10000.0 {
			t.Fatalf("threshold = %v", f.Evidence["threshold"])
		}
	}
}

func TestDuplicatesAreSymmetric(t *testing.T) {
	rows := []map[string]any{
		{"entry_id": "A", "account": "606100", "description": "Office supplies", "date": "2024-03-04 10:00:00", "montant": 250},
		{"entry_id": "B", "account": "606100", "description": "office  SUPPLIES", "date": "2024-03-04 10:30:00", "montant": 250},
		{"entry_id": "C", "account": "606100", "description": "Office supplies", "date": "2024-03-09 10:00:00", "montant": 300},
	}
	res := runOnly(t, rows, RuleDuplicates)
	flags := byType(res, SuspicionDuplicateEntry)
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	related := map[string]string{}
	for _, f := range flags {
		if f.Level != models.RiskHigh || f.RiskScore != 0.8 {
			t.Fatalf("unexpected level %s risk %v", f.Level, f.RiskScore)
		}
		related[f.EntryID] = f.RelatedEntries[0]
	}
	if related["A"] != "B" || related["B"] != "A" {
		t.Fatalf("related entries not symmetric: %v", related)
	}
}

func TestLargeDuplicateGroupListsEveryMember(t *testing.T) {
	var rows []map[string]any
	for i := 0; i < 12; i++ {
		rows = append(rows, map[string]any{
			"entry_id":    fmt.Sprintf("E%02d", i),
			"account":     "606100",
			"description": "Office supplies",
			"date":        fmt.Sprintf("2024-03-04 10:%02d:00", i),
			"montant":     250,
		})
	}
	res := runOnly(t, rows, RuleDuplicates)
	flags := byType(res, SuspicionDuplicateEntry)
	if len(flags) != 12 {
		t.Fatalf("expected 12 flags, got %d", len(flags))
	}
	related := make(map[string]map[string]bool, len(flags))
	for _, f := range flags {
		if len(f.RelatedEntries) != 11 {
			t.Fatalf("%s lists %d related entries, want 11", f.EntryID, len(f.RelatedEntries))
		}
		related[f.EntryID] = make(map[string]bool)
		for _, id := range f.RelatedEntries {
			related[f.EntryID][id] = true
		}
	}
	for a, peers := range related {
		for b := range peers {
			if !related[b][a] {
				t.Fatalf("%s lists %s but %s does not list %s", a, b, b, a)
			}
		}
	}
}

func TestDuplicatesNeedDates(t *testing.T) {
	rows := []map[string]any{
		{"account": "606100", "montant": 250},
		{"account": "606100", "montant": 250},
	}
	res := runOnly(t, rows, RuleDuplicates)
	if len(res.SuspiciousEntries) != 0 {
		t.Fatalf("expected no flags without a date column, got %d", len(res.SuspiciousEntries))
	}
}

func TestRoundAmounts(t *testing.T) {
	rows := []map[string]any{{"montant": 1000}, {"montant": 250}, {"montant": 300}, {"montant": 47.5}}
	res := runOnly(t, rows, RuleRoundAmounts)
	if len(res.SuspiciousEntries) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(res.SuspiciousEntries))
	}
	first, second := res.SuspiciousEntries[0], res.SuspiciousEntries[1]
	if first.EntryID != "0" || first.RiskScore != 0.3 || first.Level != models.RiskMedium {
		t.Fatalf("unexpected first flag %+v", first)
	}
	if second.EntryID != "2" || second.RiskScore != 0.2 || second.Level != models.RiskLow {
		t.Fatalf("unexpected second flag %+v", second)
	}
}

func benfordRows(ones, fives int) []map[string]any {
	var rows []map[string]any
	for i := 0; i < ones; i++ {
		rows = append(rows, map[string]any{"montant": 100 + float64(i)})
	}
	for i := 0; i < fives; i++ {
		rows = append(rows, map[string]any{"montant": 500 + float64(i)})
	}
	return rows
}

func TestBenfordRiskGrowsWithDeviation(t *testing.T) {
	riskOfOnes := func(res Result) float64 {
		for _, f := range byType(res, SuspicionBenfordViolation) {
			if f.Evidence["digit"] == 1 {
				return f.RiskScore
			}
		}
		return 0
	}
	mild := riskOfOnes(runOnly(t, benfordRows(60, 40), RuleBenfordLaw))
	strong := riskOfOnes(runOnly(t, benfordRows(80, 20), RuleBenfordLaw))
	if mild == 0 || strong <= mild {
		t.Fatalf("expected risk to grow with deviation, got %v then %v", mild, strong)
	}
}

func TestBenfordNeedsSample(t *testing.T) {
	res := runOnly(t, benfordRows(20, 0), RuleBenfordLaw)
	if len(res.SuspiciousEntries) != 0 {
		t.Fatalf("expected no flags below the minimum sample")
	}
}

func TestFirstDigit(t *testing.T) {
	cases := map[float64]int{0.5: 5, 1234: 1, 9.99: 9, 0: 0, -42: 4, 0.0071: 7}
	for in, want := range cases {
		if got := FirstDigit(in); got != want {
			t.Fatalf("FirstDigit(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestSequentialRun(t *testing.T) {
	rows := []map[string]any{
		{"montant": 100.00}, {"montant": 100.01}, {"montant": 100.02}, {"montant": 100.03}, {"montant": 100.04},
		{"montant": 700},
	}
	res := runOnly(t, rows, RuleSequentialPatterns)
	if len(res.SuspiciousEntries) != 5 {
		t.Fatalf("expected 5 flags, got %d", len(res.SuspiciousEntries))
	}
	if f := res.SuspiciousEntries[0]; f.Level != models.RiskMedium || f.RiskScore != 0.25 || len(f.RelatedEntries) != 4 {
		t.Fatalf("unexpected flag %+v", f)
	}
}

func TestEntityDuplication(t *testing.T) {
	rows := []map[string]any{
		{"description": "Societe Generale Fournitures Bureau Paris"},
		{"description": "Societe Generale Fournitures Bureau Paris"},
		{"description": "Société Générale Fournitures Bureau Paris Cedex"},
		{"description": "Loyer"},
	}
	res := runOnly(t, rows, RuleEntityDuplications)
	if len(res.SuspiciousEntries) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(res.SuspiciousEntries))
	}
}

func TestRepeatedLabelIsNotEntityDuplication(t *testing.T) {
	rows := []map[string]any{
		{"description": "Loyer mensuel bureau Paris"},
		{"description": "Loyer mensuel bureau Paris"},
		{"description": "Loyer mensuel bureau Paris"},
	}
	res := runOnly(t, rows, RuleEntityDuplications)
	if len(res.SuspiciousEntries) != 0 {
		t.Fatalf("expected no flags, got %d", len(res.SuspiciousEntries))
	}
}

func TestMissingColumnsAreTolerated(t *testing.T) {
	rows := []map[string]any{{"description": "Achat"}, {"description": "Vente"}}
	res := runOnly(t, rows)
	if len(res.SuspiciousEntries) != 0 || len(res.Warnings) != 0 {
		t.Fatalf("expected a clean run, got %d flags and warnings %v", len(res.SuspiciousEntries), res.Warnings)
	}
	if len(res.Summary.MethodsUsed) != len(AllRules) {
		t.Fatalf("expected every rule to run")
	}
}

func TestUnknownRuleIsAWarning(t *testing.T) {
	res := runOnly(t, []map[string]any{{"montant": 12}}, RuleRoundAmounts, Rule("astrology"))
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}
}

func TestEmptyDataset(t *testing.T) {
	res := NewDetector().Detect(Table{}, Config{})
	if res.Success {
		t.Fatalf("expected failure on an empty dataset")
	}
}

func TestConfigureValidates(t *testing.T) {
	d := NewDetector()
	bad := DefaultThresholds()
	bad.RoundAmountPercentage = 0
	if err := d.Configure(bad); err == nil {
		t.Fatalf("expected validation error")
	}
	good := DefaultThresholds()
	good.ReversalDaysWindow = 3
	if err := d.Configure(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Thresholds().ReversalDaysWindow != 3 {
		t.Fatalf("thresholds not applied")
	}
}

func TestRiskAnalysis(t *testing.T) {
	rows := []map[string]any{
		{"entry_id": "E1", "account": "411000", "date": "2024-01-01", "montant": 1000},
		{"entry_id": "E2", "account": "411000", "date": "2024-01-02", "montant": -1000},
	}
	res := runOnly(t, rows, RuleReversalPatterns)
	ra := res.RiskAnalysis
	if math.Abs(ra.OverallRiskScore-0.8571) > 1e-9 {
		t.Fatalf("overall risk = %v", ra.OverallRiskScore)
	}
	if len(ra.HighRiskAccounts) != 1 || ra.HighRiskAccounts[0].Account != "411000" {
		t.Fatalf("unexpected high risk accounts %+v", ra.HighRiskAccounts)
	}
	if res.Summary.RiskDistribution[models.RiskHigh] != 2 {
		t.Fatalf("distribution = %v", res.Summary.RiskDistribution)
	}
}
