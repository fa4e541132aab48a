package ingest

import (
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV_SemicolonFrenchExport(t *testing.T) {
	content := "Compte;Libellé;Débit;Crédit\n601000;Achats;1 234,56;0\n401000;Fournisseurs;0;1 234,56\n;;;\n"
	table, err := ReadCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Columns) != 4 || table.Columns[1] != "Libellé" {
		t.Fatalf("unexpected columns: %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("expected blank row to be skipped, got %d rows", table.Len())
	}
	if table.Rows[0]["Débit"] != "1 234,56" {
		t.Fatalf("unexpected debit cell: %v", table.Rows[0]["Débit"])
	}
}

func TestReadCSV_Latin1Fallback(t *testing.T) {
	// "Libellé" encoded as Windows-1252.
	content := []byte("Compte,Libell\xe9\n512,Banque\n")
	table, err := ReadCSV(strings.NewReader(string(content)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Columns[1] != "Libellé" {
		t.Fatalf("expected decoded header, got %q", table.Columns[1])
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"JournalCode|JournalLib|EcritureNum": '|',
		"a;b;c":                              ';',
		"a\tb\tc":                            '\t',
		"single":                             ',',
	}
	for line, want := range cases {
		if got := SniffDelimiter(line); got != want {
			t.Fatalf("SniffDelimiter(%q) expected %q, got %q", line, want, got)
		}
	}
}

func TestReadJSON_Shapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		rows int
	}{
		{"root array", `[{"compte":"601","debit":10},{"compte":"401","credit":10}]`, 2},
		{"wrapped", `{"entries":[{"compte":"601"}]}`, 1},
		{"single object", `{"compte":"601","debit":"5"}`, 1},
	}
	for _, tc := range cases {
		table, err := ReadJSON([]byte(tc.in))
		if err != nil {
			t.Fatalf("%s: ReadJSON: %v", tc.name, err)
		}
		if table.Len() != tc.rows {
			t.Fatalf("%s: expected %d rows, got %d", tc.name, tc.rows, table.Len())
		}
		if !table.HasColumn("compte") {
			t.Fatalf("%s: expected compte column, got %v", tc.name, table.Columns)
		}
	}
	if _, err := ReadJSON([]byte(`"text"`)); err == nil {
		t.Fatalf("expected error for scalar JSON")
	}
}

func TestReadExcel_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Compte")
	_ = f.SetCellValue("Sheet1", "B1", "Debit")
	_ = f.SetCellValue("Sheet1", "A2", "601")
	_ = f.SetCellValue("Sheet1", "B2", 250)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	table, _, err := Read("balance.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Len() != 1 || table.Rows[0]["Compte"] != "601" || table.Rows[0]["Debit"] != "250" {
		t.Fatalf("unexpected table: %+v", table)
	}
}

func TestDetectFormat_Unsupported(t *testing.T) {
	if _, err := DetectFormat("scan.pdf"); !errors.Is(err, utils.ErrorUnsupportedFormat) {
		t.Fatalf("expected ErrorUnsupportedFormat, got %v", err)
	}
	if f, _ := DetectFormat("FEC2024.txt"); f != FormatCSV {
		t.Fatalf("expected FEC text export to use the CSV decoder, got %s", f)
	}
}
