package utils

import "testing"

func TestNormalizeColumnName(t *testing.T) {
	cases := map[string]string{
		"Libellé Compte": "libelle_compte",
		" N-Compte ":     "n_compte",
		"Montant Débit":  "montant_debit",
		"EcritureDate":   "ecrituredate",
	}
	for in, want := range cases {
		if got := NormalizeColumnName(in); got != want {
			t.Fatalf("NormalizeColumnName(%q) expected %q, got %q", in, want, got)
		}
	}
}

func TestCleanAccountNumber(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"401 000", "401000"},
		{"411-CLI.01", "411-CLI01"},
		{401.0, "401"},
		{512, "512"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := CleanAccountNumber(tc.in); got != tc.want {
			t.Fatalf("CleanAccountNumber(%v) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestContainsAny_IgnoresAccents(t *testing.T) {
	if !ContainsAny("Dotation aux AMORTISSEMENTS", "amortissement") {
		t.Fatalf("expected case-insensitive match")
	}
	if !ContainsAny("évaluation à la juste valeur", "juste valeur") {
		t.Fatalf("expected match through accents")
	}
	if ContainsAny("loyer", "facture", "livraison") {
		t.Fatalf("unexpected match")
	}
}
