package normalizer

import (
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"github.com/shopspring/decimal"
)

func TestNormalize_Synonyms(t *testing.T) {
	table := models.RawTable{
		Columns: []string{"Compte", "Libellé", "Montant Débit", "Montant-Crédit", "Remarque"},
		Rows:    []map[string]any{{"Compte": "601", "Libellé": "Achats", "Montant Débit": "10", "Montant-Crédit": "0", "Remarque": "x"}},
	}
	out, detected := Normalize(table, nil)
	want := []string{ColumnAccountNumber, ColumnAccountName, ColumnDebit, ColumnCredit, "remarque"}
	for i, w := range want {
		if detected[i] != w {
			t.Fatalf("column %d: expected %s, got %s", i, w, detected[i])
		}
	}
	if out.Rows[0][ColumnAccountNumber] != "601" || out.Rows[0]["remarque"] != "x" {
		t.Fatalf("unexpected row: %v", out.Rows[0])
	}
}

func TestNormalize_FirstSynonymWins(t *testing.T) {
	table := models.RawTable{Columns: []string{"compte", "account"}}
	_, detected := Normalize(table, nil)
	if detected[0] != ColumnAccountNumber || detected[1] != "account" {
		t.Fatalf("unexpected columns: %v", detected)
	}
}

func TestValidateStructure(t *testing.T) {
	table := models.RawTable{
		Columns: []string{ColumnAccountNumber, ColumnDebit, ColumnCredit},
		Rows:    []map[string]any{{ColumnAccountNumber: "601"}},
	}
	check := ValidateStructure(table, models.ImportTypeBalance)
	if check.Valid || len(check.MissingColumns) != 1 || check.MissingColumns[0] != ColumnAccountName {
		t.Fatalf("unexpected check: %+v", check)
	}

	empty := models.RawTable{Columns: []string{ColumnAccountNumber, ColumnAccountName, ColumnDebit, ColumnCredit}}
	if check := ValidateStructure(empty, models.ImportTypeBalance); check.Valid {
		t.Fatalf("expected empty table to be invalid")
	}
	if check := ValidateStructure(table, "payroll"); check.Valid || len(check.Errors) == 0 {
		t.Fatalf("expected unknown import type to be invalid: %+v", check)
	}
}

func TestValidateRow(t *testing.T) {
	cases := []struct {
		name     string
		row      map[string]any
		severity []models.Severity
	}{
		{"clean", map[string]any{ColumnAccountNumber: "601", ColumnDebit: "10", ColumnCredit: "0", ColumnEntryDate: "2024-01-02"}, nil},
		{"missing account", map[string]any{ColumnDebit: "10"}, []models.Severity{models.SeverityError}},
		{"both zero", map[string]any{ColumnAccountNumber: "601", ColumnDebit: "0", ColumnCredit: ""}, []models.Severity{models.SeverityWarning}},
		{"both set", map[string]any{ColumnAccountNumber: "601", ColumnDebit: "5", ColumnCredit: "5"}, []models.Severity{models.SeverityWarning}},
		{"bad date", map[string]any{ColumnAccountNumber: "601", ColumnDebit: "5", ColumnEntryDate: "someday"}, []models.Severity{models.SeverityWarning}},
	}
	for _, tc := range cases {
		errs := ValidateRow(tc.row, 4)
		if len(errs) != len(tc.severity) {
			t.Fatalf("%s: expected %d errors, got %+v", tc.name, len(tc.severity), errs)
		}
		for i, e := range errs {
			if e.Severity != tc.severity[i] || e.Row != 5 {
				t.Fatalf("%s: unexpected error %+v", tc.name, e)
			}
		}
	}
}

func TestSuggestMapping_IdentityForCanonicalColumns(t *testing.T) {
	for _, importType := range []models.ImportType{models.ImportTypeBalance, models.ImportTypeJournal, models.ImportTypeGrandLivre, models.ImportTypeFEC} {
		required, _ := RequiredColumns(importType)
		// Put a near miss first so ties would pick the wrong column.
		cols := append([]string{ColumnAccountName, ColumnCredit}, required...)
		got := SuggestMapping(models.RawTable{Columns: cols}, importType)
		for _, req := range required {
			s, ok := got[req]
			if !ok || s.Column != req || s.Score < 0.8 {
				t.Fatalf("%s: expected identity mapping for %s, got %+v", importType, req, s)
			}
		}
	}
}

func TestSuggestMapping_FuzzyColumns(t *testing.T) {
	table := models.RawTable{Columns: []string{"account_no", "name", "debit", "credit"}}
	got := SuggestedColumns(table, models.ImportTypeBalance)
	if got[ColumnDebit] != "debit" || got[ColumnCredit] != "credit" {
		t.Fatalf("unexpected suggestions: %v", got)
	}
	if got[ColumnAccountNumber] != "account_no" {
		t.Fatalf("expected account_no for account_number, got %v", got)
	}
}

func TestProcess_SuccessfulBalance(t *testing.T) {
	table := models.RawTable{
		Columns: []string{"Compte", "Intitulé", "Débit", "Crédit"},
		Rows: []map[string]any{
			{"Compte": "601000", "Intitulé": "Achats", "Débit": "1.234,56", "Crédit": "0"},
			{"Compte": "", "Intitulé": "Orphan", "Débit": "10", "Crédit": "0"},
			{"Compte": "401000", "Intitulé": "Fournisseurs", "Débit": "0", "Crédit": "1234,56"},
		},
	}
	res := Process("balance.csv", table, models.ImportTypeBalance, nil)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res.Errors)
	}
	if res.RowsProcessed != 3 || res.RowsWithErrors != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Batch.Status != models.ImportStatusCompleted || res.Batch.RowsImported != 2 || res.Batch.RowsFailed != 1 {
		t.Fatalf("unexpected batch: %+v", res.Batch)
	}
	if !res.Batch.Entries[0].DebitAmount.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("unexpected debit: %s", res.Batch.Entries[0].DebitAmount)
	}
}

func TestProcess_StructureFailureSuggestsMapping(t *testing.T) {
	table := models.RawTable{
		Columns: []string{"acct_number", "acct_name", "debit", "credit"},
		Rows:    []map[string]any{{"acct_number": "601", "acct_name": "x", "debit": "1", "credit": "0"}},
	}
	res := Process("balance.csv", table, models.ImportTypeBalance, nil)
	if res.Success || len(res.MissingColumns) == 0 {
		t.Fatalf("expected structure failure, got %+v", res)
	}
	if res.Batch.Status != models.ImportStatusFailed {
		t.Fatalf("expected failed batch, got %s", res.Batch.Status)
	}

	retry := Process("balance.csv", table, models.ImportTypeBalance, map[string]string{
		ColumnAccountNumber: "acct_number",
		ColumnAccountName:   "acct_name",
	})
	if !retry.Success || retry.Batch.RowsImported != 1 {
		t.Fatalf("expected retry with custom mapping to succeed: %+v", retry)
	}
}

func TestProcess_CompletedBatchIsNotReused(t *testing.T) {
	table := models.RawTable{
		Columns: []string{"Compte", "Intitule", "Debit", "Credit"},
		Rows:    []map[string]any{{"Compte": "601", "Intitule": "Achats", "Debit": "10", "Credit": "0"}},
	}
	batch := models.NewImportBatch("balance.csv", models.ImportTypeBalance)
	if err := batch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := batch.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	res := processBatch(batch, table, models.ImportTypeBalance, nil)
	if res.Success || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Start") {
		t.Fatalf("expected a Start failure, got %+v", res)
	}
	if batch.Status != models.ImportStatusCompleted || batch.RowsImported != 0 {
		t.Fatalf("completed batch must stay untouched, got %s with %d rows", batch.Status, batch.RowsImported)
	}
	if err := batch.AddEntry(models.AccountingEntry{}, nil); !errors.Is(err, models.ErrBatchImmutable) {
		t.Fatalf("expected ErrBatchImmutable, got %v", err)
	}
}

func TestBuildEntry_NegativeDebitMovesToCredit(t *testing.T) {
	entry, errs := BuildEntry(map[string]any{ColumnAccountNumber: "512", ColumnDebit: "-250,00"}, 0)
	if !entry.DebitAmount.IsZero() || !entry.CreditAmount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected amounts: %s / %s", entry.DebitAmount, entry.CreditAmount)
	}
	if entry.ValidationStatus != models.ValidationStatusWarning || len(errs) != 1 {
		t.Fatalf("expected one warning, got %+v", errs)
	}
}

func TestBuildEntry_CounterpartyPhone(t *testing.T) {
	table := models.RawTable{
		Columns: []string{"Compte", "Débit", "Téléphone"},
		Rows: []map[string]any{
			{"Compte": "401", "Débit": "100", "Téléphone": "01 42 68 53 00"},
			{"Compte": "401", "Débit": "100", "Téléphone": "12345"},
		},
	}
	out, detected := Normalize(table, nil)
	if detected[2] != ColumnCounterpartyPhone {
		t.Fatalf("expected phone column to map to %s, got %s", ColumnCounterpartyPhone, detected[2])
	}

	entry, errs := BuildEntry(out.Rows[0], 0)
	if entry.CounterpartyPhone != "+33142685300" || len(errs) != 0 {
		t.Fatalf("expected E.164 phone without errors, got %q %+v", entry.CounterpartyPhone, errs)
	}

	entry, errs = BuildEntry(out.Rows[1], 1)
	if entry.CounterpartyPhone != "12345" || entry.ValidationStatus != models.ValidationStatusWarning {
		t.Fatalf("expected raw phone kept with a warning, got %q %s", entry.CounterpartyPhone, entry.ValidationStatus)
	}
	if len(errs) != 1 || errs[0].Column != ColumnCounterpartyPhone || errs[0].Row != 2 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestDetectImportType(t *testing.T) {
	fec := models.RawTable{Columns: fecHeaders}
	if got, ok := DetectImportType(fec); !ok || got != models.ImportTypeFEC {
		t.Fatalf("expected fec, got %s", got)
	}
	gl := models.RawTable{Columns: []string{"Date", "Compte", "Libelle Ecriture", "Debit", "Credit", "Piece"}}
	if got, ok := DetectImportType(gl); !ok || got != models.ImportTypeGrandLivre {
		t.Fatalf("expected grand_livre, got %s", got)
	}
	bal := models.RawTable{Columns: []string{"Compte", "Intitule", "Debit", "Credit"}}
	if got, ok := DetectImportType(bal); !ok || got != models.ImportTypeBalance {
		t.Fatalf("expected balance, got %s", got)
	}
}
