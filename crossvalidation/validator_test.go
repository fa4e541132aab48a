package crossvalidation

import (
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

func TestInvoicePaymentMismatch(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentInvoice, FileName: "facture.pdf", Data: map[string]any{"numero_facture": "F2024-001", "montant_ttc": "1 200,00"}},
		{Type: DocumentPayment, FileName: "virement1.pdf", Data: map[string]any{"reference": "VIR F2024-001 part 1", "montant": 1000.0}},
		{Type: DocumentPayment, FileName: "virement2.pdf", Data: map[string]any{"reference": "F2024-001", "montant": "150"}},
	})
	if !res.Success {
		t.Fatalf("an amount mismatch is not critical")
	}
	if res.Summary.Errors != 1 {
		t.Fatalf("expected one error, got %+v", res.Summary)
	}
	v := res.Validations[0]
	if v.Level != models.SeverityError || v.ExpectedValue != 1200.0 || v.ActualValue != 1150.0 {
		t.Fatalf("unexpected validation %+v", v)
	}
	if len(v.Documents) != 3 {
		t.Fatalf("expected the invoice and both payments, got %v", v.Documents)
	}
}

func TestInvoiceWithoutPaymentGetsHint(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentInvoice, Data: map[string]any{"numero_facture": "F-100", "montant_ttc": 50}},
		{Type: DocumentPayment, Data: map[string]any{"reference": "G-100", "montant": 50}},
	})
	v := res.Validations[0]
	if v.Level != models.SeverityWarning || v.Field != "paiement_correspondant" {
		t.Fatalf("unexpected validation %+v", v)
	}
	if !strings.Contains(v.Hint, "G-100") || !strings.Contains(v.Hint, "1") {
		t.Fatalf("unexpected hint %q", v.Hint)
	}
}

func TestBalanceAgainstLedger(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentBalance, FileName: "balance.csv", Data: []any{
			map[string]any{"compte": "401", "solde": -500},
			map[string]any{"compte": 512, "solde": "300"},
		}},
		{Type: DocumentGeneralLedger, FileName: "gl.csv", Data: []any{
			map[string]any{"compte": "401", "debit": 0, "credit": 500},
			map[string]any{"account_number": "512", "debit": 200, "credit": 0},
		}},
	})
	if res.Summary.Passed != 1 || res.Summary.Errors != 1 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
	for _, v := range res.Validations {
		if v.Level == models.SeverityError && (v.ExpectedValue != 300.0 || v.ActualValue != 200.0) {
			t.Fatalf("unexpected error validation %+v", v)
		}
	}
}

func TestUnbalancedJournalIsCritical(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentJournal, Data: []any{
			map[string]any{"compte": "601", "debit": 100, "credit": 0},
			map[string]any{"compte": "401", "debit": 0, "credit": 90},
		}},
		{Type: DocumentBalance, Data: []any{
			map[string]any{"compte": "601", "debit": 100, "credit": 0},
			map[string]any{"compte": "401", "debit": 0, "credit": 90},
		}},
	})
	if res.Success {
		t.Fatalf("expected failure on an unbalanced journal")
	}
	if res.Summary.Critical != 1 || res.Summary.Passed != 1 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
}

func TestFECAgainstBalance(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentFEC, Data: []map[string]any{{"CompteNum": "401000", "Debit": "0,00", "Credit": "1 000,50"}}},
		{Type: DocumentBalance, Data: []map[string]any{{"compte": "401000", "solde": "-1000,50"}}},
	})
	if len(res.Validations) != 1 {
		t.Fatalf("expected one validation, got %d", len(res.Validations))
	}
	if v := res.Validations[0]; v.Level != models.SeverityInfo || v.Field != "solde_fec" {
		t.Fatalf("unexpected validation %+v", v)
	}
}

func TestDateSpreadWarning(t *testing.T) {
	res := ValidateDocuments([]Document{
		{Type: DocumentInvoice, FileName: "a", Data: map[string]any{"numero_facture": "1", "date": "01/01/2022"}},
		{Type: DocumentInvoice, FileName: "b", Data: map[string]any{"numero_facture": "2", "date": "2024-01-01"}},
	})
	if res.Summary.Warnings != 1 || res.Validations[0].Field != "coherence_dates" {
		t.Fatalf("expected a date spread warning, got %+v", res.Validations)
	}
	if res.Validations[0].ExpectedValue != "01/01/2022" {
		t.Fatalf("unexpected first date %v", res.Validations[0].ExpectedValue)
	}
}

func TestNoDocuments(t *testing.T) {
	if res := ValidateDocuments(nil); res.Success || res.Error == "" {
		t.Fatalf("expected an error result")
	}
	if res := ValidateDocumentPair(Document{}, Document{}, "NOPE"); res.Error == "" {
		t.Fatalf("expected an unsupported pairing error")
	}
}
