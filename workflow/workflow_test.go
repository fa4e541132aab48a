package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/compliance"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

const balanceCSV = "Compte;Intitulé;Débit;Crédit\n601000;Achats;1000;0\n401000;Fournisseurs;0;1000\n"

func TestProcessImport_DetectsBalance(t *testing.T) {
	res, err := ProcessImport(context.Background(), ImportRequest{FileName: "balance.csv", Content: []byte(balanceCSV)})
	if err != nil {
		t.Fatalf("ProcessImport: %v", err)
	}
	if !res.Detected || res.ImportType != models.ImportTypeBalance {
		t.Fatalf("expected detected balance, got %s (detected=%v)", res.ImportType, res.Detected)
	}
	if !res.Success || res.Batch.RowsImported != 2 {
		t.Fatalf("unexpected result %+v", res.ProcessResult)
	}
	if !res.Batch.Entries[0].DebitAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected debit %s", res.Batch.Entries[0].DebitAmount)
	}
}

func TestProcessImport_Errors(t *testing.T) {
	if _, err := ProcessImport(context.Background(), ImportRequest{FileName: "balance.pdf", Content: []byte("x")}); !errors.Is(err, utils.ErrorUnsupportedFormat) {
		t.Fatalf("expected ErrorUnsupportedFormat, got %v", err)
	}
	csv := "foo;bar\n1;2\n"
	if _, err := ProcessImport(context.Background(), ImportRequest{FileName: "x.csv", Content: []byte(csv)}); !errors.Is(err, utils.ErrorUnknownImportType) {
		t.Fatalf("expected ErrorUnknownImportType, got %v", err)
	}
}

func projectEntries() []models.AccountingEntry {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return []models.AccountingEntry{
		{ID: "1", AccountNumber: "601000", PieceNumber: "P1", EntryDate: &d, Description: "Achats", DebitAmount: decimal.NewFromInt(1000)},
		{ID: "2", AccountNumber: "401000", PieceNumber: "P1", EntryDate: &d, Description: "Fournisseur", CreditAmount: decimal.NewFromInt(1000)},
	}
}

func TestAnalyzeProject(t *testing.T) {
	p, err := NewPipeline()
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	res, err := p.AnalyzeProject(context.Background(), projectEntries(), ProjectOptions{ProjectID: "p-1", Standard: models.StandardIFRS})
	if err != nil {
		t.Fatalf("AnalyzeProject: %v", err)
	}
	if res.Entries != 2 || res.Audit.Standard != models.StandardIFRS || res.Compliance.Standard != models.StandardIFRS {
		t.Fatalf("unexpected analysis %+v", res)
	}
	if !res.Audit.Balance.Summary.BalanceCheck.IsBalanced {
		t.Fatalf("expected balanced books")
	}
	if res.OverallRisk.Level() < res.Audit.OverallRisk.Level() || res.OverallRisk.Level() < complianceRisk(res.Compliance).Level() {
		t.Fatalf("overall risk %s below a component risk", res.OverallRisk)
	}
}

func TestAnalyzeProject_Errors(t *testing.T) {
	p, err := NewPipeline()
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx := context.Background()
	if _, err := p.AnalyzeProject(ctx, nil, ProjectOptions{Standard: models.StandardIFRS}); !errors.Is(err, utils.ErrorEmptyDataset) {
		t.Fatalf("expected ErrorEmptyDataset, got %v", err)
	}
	if _, err := p.AnalyzeProject(ctx, projectEntries(), ProjectOptions{Standard: "xyz"}); !errors.Is(err, utils.ErrorUnsupportedStandard) {
		t.Fatalf("expected ErrorUnsupportedStandard, got %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.AnalyzeProject(cancelled, projectEntries(), ProjectOptions{Standard: models.StandardIFRS}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestComplianceRisk(t *testing.T) {
	cases := []struct {
		name string
		crit int
		app  bool
		sc   float64
		want models.RiskLevel
	}{
		{"critical violation", 1, true, 0.95, models.RiskHigh},
		{"low score", 0, true, 0.5, models.RiskMedium},
		{"vacuous", 0, false, 1, models.RiskLow},
	}
	for _, c := range cases {
		r := complianceResult(c.crit, c.app, c.sc)
		if got := complianceRisk(r); got != c.want {
			t.Fatalf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func complianceResult(critical int, applicable bool, score float64) compliance.Result {
	r := compliance.Result{ScoreApplicable: applicable, ComplianceScore: score}
	r.Summary.BySeverity = map[models.Severity]int{models.SeverityCritical: critical}
	return r
}
