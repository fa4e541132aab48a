package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"auditctl"}, args...))
	return &out, err
}

func TestRulesCommand(t *testing.T) {
	out, err := run(t, "rules", "--standard", "ifrs")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(out.Bytes(), &body); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if body["standard"] != "ifrs" {
		t.Fatalf("unexpected standard %v", body["standard"])
	}
	if rules, ok := body["detection"].([]any); !ok || len(rules) != 10 {
		t.Fatalf("unexpected detection rules %v", body["detection"])
	}
}

func TestImportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.csv")
	csv := "Compte;Intitulé;Débit;Crédit\n601000;Achats;1000;0\n401000;Fournisseurs;0;1000\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "import", "--file", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var res struct {
		Success    bool   `json:"success"`
		ImportType string `json:"import_type"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil || !res.Success || res.ImportType != "balance" {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestCheckListCommand_BadStandard(t *testing.T) {
	if _, err := run(t, "checklist", "--standard", "martian"); err == nil {
		t.Fatal("expected an error for an unknown standard")
	}
}
