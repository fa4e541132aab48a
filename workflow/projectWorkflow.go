package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/mmdatafocus/audit_backend/audit"
	"bitbucket.org/mmdatafocus/audit_backend/compliance"
	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/detector"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/temporal"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

// Pipeline holds the long lived analysers shared by every project run.
type Pipeline struct {
	engine   *compliance.Engine
	detector *detector.Detector
	temporal *temporal.Analyzer
	logger   *logrus.Logger
}

// NewPipeline loads the compliance rule registry and default analysers.
func NewPipeline() (*Pipeline, error) {
	engine, err := compliance.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("load compliance rules: %w", err)
	}
	return NewPipelineWith(engine, detector.NewDetector(), temporal.NewAnalyzer()), nil
}

func NewPipelineWith(engine *compliance.Engine, d *detector.Detector, t *temporal.Analyzer) *Pipeline {
	return &Pipeline{engine: engine, detector: d, temporal: t, logger: config.GetLogger()}
}

func (p *Pipeline) Engine() *compliance.Engine { return p.engine }
func (p *Pipeline) Detector() *detector.Detector { return p.detector }
func (p *Pipeline) Temporal() *temporal.Analyzer { return p.temporal }

type ProjectOptions struct {
	ProjectID  string            `json:"project_id"`
	Standard   models.Standard   `json:"standard"`
	Compliance compliance.Config `json:"compliance"`
	Detector   detector.Config   `json:"detector"`
	Temporal   temporal.Config   `json:"temporal"`
}

type ProjectAnalysis struct {
	ProjectID   string              `json:"project_id,omitempty"`
	Standard    models.Standard     `json:"standard"`
	Entries     int                 `json:"entries"`
	Compliance  compliance.Result   `json:"compliance"`
	Fraud       detector.Result     `json:"fraud_detection"`
	Temporal    temporal.Result     `json:"temporal_analysis"`
	Audit       audit.ProjectReport `json:"audit"`
	OverallRisk models.RiskLevel    `json:"overall_risk_level"`
	AnalyzedAt  time.Time           `json:"analyzed_at"`
	Duration    time.Duration       `json:"duration"`
}

// complianceRisk maps a compliance run onto the audit risk scale: any
// critical violation is high, a score below 0.8 is medium.
func complianceRisk(r compliance.Result) models.RiskLevel {
	switch {
	case r.Summary.BySeverity[models.SeverityCritical] > 0:
		return models.RiskHigh
	case r.ScoreApplicable && r.ComplianceScore < 0.8:
		return models.RiskMedium
	}
	return models.RiskLow
}

func timed(name string, fn func()) {
	started := time.Now()
	fn()
	analysisDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
}

// AnalyzeProject runs compliance, fraud detection, temporal analysis and the
// audit reports concurrently over the same entries. Analysis findings are
// part of the result; only an unsupported standard, an empty project or a
// cancelled context are errors.
func (p *Pipeline) AnalyzeProject(ctx context.Context, entries []models.AccountingEntry, opts ProjectOptions) (ProjectAnalysis, error) {
	started := time.Now()
	if len(entries) == 0 {
		return ProjectAnalysis{}, utils.ErrorEmptyDataset
	}
	auditor, err := audit.NewAnalyzer(opts.Standard, p.detector)
	if err != nil {
		config.LogError(p.logger, "projectWorkflow.go", "AnalyzeProject", "audit.NewAnalyzer", opts.Standard, err)
		return ProjectAnalysis{}, err
	}
	if opts.ProjectID != "" {
		ctx = utils.SetProjectIdInContext(ctx, opts.ProjectID)
	}

	out := ProjectAnalysis{ProjectID: opts.ProjectID, Standard: opts.Standard, Entries: len(entries)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		timed("compliance", func() {
			data := compliance.Dataset{Entries: compliance.FromAccountingEntries(entries)}
			out.Compliance = p.engine.ValidateCompliance(data, opts.Standard, opts.Compliance)
		})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		timed("fraud_detection", func() {
			out.Fraud = p.detector.Detect(detector.FromAccountingEntries(entries), opts.Detector)
		})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		timed("temporal", func() {
			out.Temporal = p.temporal.Analyze(temporal.FromAccountingEntries(entries), opts.Temporal)
		})
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		timed("audit", func() {
			out.Audit = auditor.AnalyzeProject(gctx, entries)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		config.LogError(p.logger, "projectWorkflow.go", "AnalyzeProject", "errgroup.Wait", opts.ProjectID, err)
		return ProjectAnalysis{}, err
	}

	out.OverallRisk = out.Audit.OverallRisk
	if cr := complianceRisk(out.Compliance); cr.Level() > out.OverallRisk.Level() {
		out.OverallRisk = cr
	}
	out.AnalyzedAt = time.Now().UTC()
	out.Duration = time.Since(started)
	projectRisk.WithLabelValues(string(out.OverallRisk)).Inc()

	for name, msg := range map[string]string{"compliance": out.Compliance.Error, "fraud_detection": out.Fraud.Error, "temporal": out.Temporal.Error} {
		if msg != "" {
			p.logger.WithFields(logrus.Fields{"field": "AnalyzeProject", "analysis": name, "project_id": opts.ProjectID}).Warn(msg)
		}
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	p.logger.WithFields(logrus.Fields{
		"field":          "AnalyzeProject",
		"project_id":     opts.ProjectID,
		"standard":       opts.Standard,
		"entries":        len(entries),
		"overall_risk":   out.OverallRisk,
		"duration":       out.Duration.String(),
		"correlation_id": cid,
	}).Info("project analyzed")
	return out, nil
}
