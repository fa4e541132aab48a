package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestImportBatch_Lifecycle(t *testing.T) {
	b := NewImportBatch("balance.xlsx", ImportTypeBalance)
	if b.Status != ImportStatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if err := b.AddEntry(AccountingEntry{}, nil); err == nil {
		t.Fatalf("expected AddEntry to fail before Start")
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ok := AccountingEntry{AccountNumber: "601", DebitAmount: decimal.NewFromInt(10), ValidationStatus: ValidationStatusValid}
	bad := AccountingEntry{ValidationStatus: ValidationStatusError}
	if err := b.AddEntry(ok, nil); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := b.AddEntry(bad, []RowError{{Row: 2, Column: "account_number", Message: "missing", Severity: SeverityError}}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if b.RowsImported != 1 || b.RowsFailed != 1 || len(b.Errors) != 1 {
		t.Fatalf("unexpected counts: imported=%d failed=%d errors=%d", b.RowsImported, b.RowsFailed, len(b.Errors))
	}
	if err := b.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := b.AddEntry(ok, nil); !errors.Is(err, ErrBatchImmutable) {
		t.Fatalf("expected ErrBatchImmutable, got %v", err)
	}
	if err := b.Fail("late"); !errors.Is(err, ErrBatchImmutable) {
		t.Fatalf("expected ErrBatchImmutable on Fail, got %v", err)
	}
}

func TestRiskLevelFromScore(t *testing.T) {
	cases := []struct {
		total int
		want  RiskLevel
	}{
		{0, RiskLow}, {4, RiskLow}, {5, RiskMedium}, {9, RiskMedium},
		{10, RiskHigh}, {19, RiskHigh}, {20, RiskCritical}, {55, RiskCritical},
	}
	for _, tc := range cases {
		if got := RiskLevelFromScore(tc.total); got != tc.want {
			t.Fatalf("RiskLevelFromScore(%d) expected %s, got %s", tc.total, tc.want, got)
		}
	}
}

func TestParseStandard_Aliases(t *testing.T) {
	cases := map[string]Standard{
		"IFRS": StandardIFRS, "pcg": StandardFrenchGAAP, "us-gaap": StandardUSGAAP,
		"SYSCOHADA": StandardSYSCOHADA, "ohada": StandardOHADA,
	}
	for in, want := range cases {
		got, err := ParseStandard(in)
		if err != nil || got != want {
			t.Fatalf("ParseStandard(%q) expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseStandard("klingon"); err == nil {
		t.Fatalf("expected error for unknown standard")
	}
}
