package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"bitbucket.org/mmdatafocus/audit_backend/compliance"
	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/crossvalidation"
	"bitbucket.org/mmdatafocus/audit_backend/detector"
	"bitbucket.org/mmdatafocus/audit_backend/ingest"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/workflow"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	standardFlag := &cli.StringFlag{Name: "standard", Aliases: []string{"s"}, Value: config.EnvString("DEFAULT_STANDARD", "syscohada"), Usage: "accounting standard (ifrs, syscohada, french_gaap, us_gaap, ohada)"}
	fileFlag := &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "csv, txt, xlsx, json or dbf file"}
	typeFlag := &cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "import type (balance, journal, grand_livre, fec); guessed when empty"}
	mappingFlag := &cli.StringFlag{Name: "mapping", Usage: `custom column mapping as JSON, e.g. {"account_number":"acct"}`}

	return &cli.App{
		Name:  "auditctl",
		Usage: "import, check and analyse accounting files",
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "normalise a file and print the import batch",
				Flags:  []cli.Flag{fileFlag, typeFlag, mappingFlag},
				Action: importAction,
			},
			{
				Name:   "analyze",
				Usage:  "import a file and run the full project analysis",
				Flags:  []cli.Flag{fileFlag, typeFlag, mappingFlag, standardFlag, &cli.StringFlag{Name: "project", Usage: "project id"}},
				Action: analyzeAction,
			},
			{
				Name:   "checklist",
				Usage:  "print the compliance checklist of a standard",
				Flags:  []cli.Flag{standardFlag, &cli.StringFlag{Name: "category", Usage: "restrict to one rule category"}},
				Action: checklistAction,
			},
			{
				Name:  "crossvalidate",
				Usage: "cross-check documents, e.g. --doc BALANCE=balance.csv --doc GRAND_LIVRE=gl.xlsx",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "doc", Required: true, Usage: "TYPE=path, repeatable"},
				},
				Action: crossValidateAction,
			},
			{
				Name:   "rules",
				Usage:  "list compliance, detection and cross-validation rules",
				Flags:  []cli.Flag{standardFlag},
				Action: rulesAction,
			},
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func importRequest(c *cli.Context) (workflow.ImportRequest, error) {
	path := c.String("file")
	content, err := os.ReadFile(path)
	if err != nil {
		return workflow.ImportRequest{}, err
	}
	req := workflow.ImportRequest{FileName: filepath.Base(path), Content: content}
	if raw := c.String("type"); raw != "" {
		if req.ImportType, err = models.ParseImportType(raw); err != nil {
			return req, err
		}
	}
	if raw := c.String("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.CustomMapping); err != nil {
			return req, fmt.Errorf("invalid --mapping: %w", err)
		}
	}
	return req, nil
}

func importAction(c *cli.Context) error {
	req, err := importRequest(c)
	if err != nil {
		return err
	}
	res, err := workflow.ProcessImport(c.Context, req)
	if err != nil {
		return err
	}
	if err := printJSON(c.App.Writer, res); err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("import rejected", 2)
	}
	return nil
}

func analyzeAction(c *cli.Context) error {
	standard, err := models.ParseStandard(c.String("standard"))
	if err != nil {
		return err
	}
	req, err := importRequest(c)
	if err != nil {
		return err
	}
	imported, err := workflow.ProcessImport(c.Context, req)
	if err != nil {
		return err
	}
	if !imported.Success {
		_ = printJSON(c.App.Writer, imported)
		return cli.Exit("import rejected", 2)
	}
	pipeline, err := workflow.NewPipeline()
	if err != nil {
		return err
	}
	res, err := pipeline.AnalyzeProject(c.Context, imported.Batch.Entries, workflow.ProjectOptions{
		ProjectID: c.String("project"),
		Standard:  standard,
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, res)
}

func checklistAction(c *cli.Context) error {
	standard, err := models.ParseStandard(c.String("standard"))
	if err != nil {
		return err
	}
	var category *compliance.Category
	if raw := c.String("category"); raw != "" {
		cat, err := compliance.ParseCategory(raw)
		if err != nil {
			return err
		}
		category = &cat
	}
	engine, err := compliance.NewEngine()
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, engine.GetChecklist(standard, category))
}

// readDocument loads TYPE=path into a document whose data is the file's rows.
func readDocument(arg string) (crossvalidation.Document, error) {
	kind, path, ok := strings.Cut(arg, "=")
	if !ok || kind == "" || path == "" {
		return crossvalidation.Document{}, fmt.Errorf("invalid --doc %q, want TYPE=path", arg)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return crossvalidation.Document{}, err
	}
	table, _, err := ingest.Read(filepath.Base(path), content)
	if err != nil {
		return crossvalidation.Document{}, err
	}
	return crossvalidation.Document{
		Type:     crossvalidation.DocumentType(strings.ToUpper(kind)),
		FileName: filepath.Base(path),
		Data:     table.Rows,
	}, nil
}

func crossValidateAction(c *cli.Context) error {
	var docs []crossvalidation.Document
	for _, arg := range c.StringSlice("doc") {
		doc, err := readDocument(arg)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	res := crossvalidation.ValidateDocuments(docs)
	if err := printJSON(c.App.Writer, res); err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("critical inconsistencies found", 3)
	}
	return nil
}

func rulesAction(c *cli.Context) error {
	standard, err := models.ParseStandard(c.String("standard"))
	if err != nil {
		return err
	}
	engine, err := compliance.NewEngine()
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]any{
		"standard":         standard,
		"compliance":       engine.RulesForStandard(standard),
		"detection":        detector.Rules(),
		"cross_validation": crossvalidation.Rules(),
	})
}
