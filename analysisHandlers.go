package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bitbucket.org/mmdatafocus/audit_backend/audit"
	"bitbucket.org/mmdatafocus/audit_backend/compliance"
	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/crossvalidation"
	"bitbucket.org/mmdatafocus/audit_backend/detector"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/temporal"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"bitbucket.org/mmdatafocus/audit_backend/workflow"
)

type complianceRequest struct {
	Standard            string            `json:"standard"`
	Entries             []map[string]any  `json:"entries" binding:"required"`
	FinancialStatements []string          `json:"financial_statements"`
	Notes               []string          `json:"notes"`
	CutoffDate          *time.Time        `json:"cutoff_date"`
	Config              compliance.Config `json:"config"`
}

func (a *app) complianceValidateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req complianceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		standard, err := a.resolveStandard(c.Request.Context(), req.Standard)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data := compliance.Dataset{
			Entries:             compliance.EntriesFromRecords(req.Entries),
			FinancialStatements: req.FinancialStatements,
			Notes:               req.Notes,
			CutoffDate:          req.CutoffDate,
		}
		c.JSON(http.StatusOK, a.pipeline.Engine().ValidateCompliance(data, standard, req.Config))
	}
}

type realTimeRequest struct {
	Standard string         `json:"standard"`
	Entry    map[string]any `json:"entry" binding:"required"`
}

func (a *app) complianceRealTimeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req realTimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		standard, err := a.resolveStandard(c.Request.Context(), req.Standard)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry := compliance.EntriesFromRecords([]map[string]any{req.Entry})[0]
		c.JSON(http.StatusOK, a.pipeline.Engine().ValidateRealTime(entry, standard))
	}
}

func (a *app) checklistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		standard, err := models.ParseStandard(c.Param("standard"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var category *compliance.Category
		if raw := c.Query("category"); raw != "" {
			cat, err := compliance.ParseCategory(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			category = &cat
		}
		c.JSON(http.StatusOK, a.pipeline.Engine().GetChecklist(standard, category))
	}
}

func (a *app) standardsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		type standardInfo struct {
			Standard   models.Standard  `json:"standard"`
			Rules      int              `json:"rules"`
			Thresholds audit.Thresholds `json:"thresholds"`
		}
		engine := a.pipeline.Engine()
		out := []standardInfo{}
		for _, s := range engine.SupportedStandards() {
			th, _ := audit.ThresholdsFor(s)
			out = append(out, standardInfo{Standard: s, Rules: len(engine.RulesForStandard(s)), Thresholds: th})
		}
		c.JSON(http.StatusOK, gin.H{"standards": out})
	}
}

type recordsRequest[C any] struct {
	Records []map[string]any `json:"records" binding:"required"`
	Config  C                `json:"config"`
}

func (a *app) detectorRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordsRequest[detector.Config]
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		d := a.pipeline.Detector()
		key, err := utils.CacheKey("detector", req, d.Thresholds())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, cached, _ := utils.GetOrCompute(c.Request.Context(), a.cache, key, func(context.Context) (detector.Result, error) {
			return d.DetectRecords(req.Records, req.Config), nil
		})
		c.Header("X-Cache-Hit", boolString(cached))
		c.JSON(http.StatusOK, res)
	}
}

func (a *app) detectorThresholdsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, a.pipeline.Detector().Thresholds())
	}
}

// updateDetectorThresholdsHandler replaces the thresholds. Fields left out
// of the body keep their current value.
func (a *app) updateDetectorThresholdsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := a.pipeline.Detector()
		th := d.Thresholds()
		if err := c.ShouldBindJSON(&th); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		if err := d.Configure(th); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a.logger.WithField("field", "updateDetectorThresholds").Info("detector thresholds updated")
		c.JSON(http.StatusOK, d.Thresholds())
	}
}

func (a *app) detectorRulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rules": detector.Rules(), "cross_validation": crossvalidation.Rules()})
	}
}

func (a *app) temporalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordsRequest[temporal.Config]
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, a.pipeline.Temporal().AnalyzeRecords(req.Records, req.Config))
	}
}

type crossValidationRequest struct {
	Documents []crossvalidation.Document `json:"documents" binding:"required,dive"`
}

func (a *app) crossValidationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req crossValidationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, crossvalidation.ValidateDocuments(req.Documents))
	}
}

type auditRequest struct {
	Standard string                   `json:"standard"`
	Analysis string                   `json:"analysis" binding:"omitempty,oneof=balance journal ratios fraud all"`
	Entries  []models.AccountingEntry `json:"entries" binding:"required"`
}

func (a *app) auditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		ctx := c.Request.Context()
		standard, err := a.resolveStandard(ctx, req.Standard)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		analyzer, err := audit.NewAnalyzer(standard, a.pipeline.Detector())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		switch req.Analysis {
		case "balance":
			c.JSON(http.StatusOK, analyzer.AnalyzeBalanceSheet(ctx, req.Entries))
		case "journal":
			c.JSON(http.StatusOK, analyzer.AnalyzeJournalEntries(ctx, req.Entries))
		case "ratios":
			c.JSON(http.StatusOK, analyzer.PerformRatioAnalysis(ctx, req.Entries))
		case "fraud":
			c.JSON(http.StatusOK, analyzer.DetectFraudIndicators(ctx, req.Entries))
		default:
			c.JSON(http.StatusOK, analyzer.AnalyzeProject(ctx, req.Entries))
		}
	}
}

type projectRequest struct {
	ProjectID  string                   `json:"project_id"`
	Standard   string                   `json:"standard"`
	Entries    []models.AccountingEntry `json:"entries" binding:"required"`
	Compliance compliance.Config        `json:"compliance"`
	Detector   detector.Config          `json:"detector"`
	Temporal   temporal.Config          `json:"temporal"`
}

func (a *app) projectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req projectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		if req.ProjectID == "" {
			req.ProjectID, _ = utils.GetProjectIdFromContext(c.Request.Context())
		}
		ctx, span := tracer.Start(c.Request.Context(), "projects.analyze", trace.WithAttributes(
			attribute.String("project_id", req.ProjectID),
			attribute.Int("entries", len(req.Entries)),
		))
		defer span.End()

		standard, err := a.resolveStandard(ctx, req.Standard)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts := workflow.ProjectOptions{
			ProjectID:  req.ProjectID,
			Standard:   standard,
			Compliance: req.Compliance,
			Detector:   req.Detector,
			Temporal:   req.Temporal,
		}
		key, err := utils.CacheKey("project", opts, req.Entries, a.pipeline.Detector().Thresholds())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, cached, err := utils.GetOrCompute(ctx, a.cache, key, func(ctx context.Context) (workflow.ProjectAnalysis, error) {
			return a.pipeline.AnalyzeProject(ctx, req.Entries, opts)
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, utils.ErrorEmptyDataset) || errors.Is(err, utils.ErrorUnsupportedStandard) {
				status = http.StatusBadRequest
			} else {
				config.LogError(a.logger, "analysisHandlers.go", "projectHandler", "AnalyzeProject", req.ProjectID, err)
			}
			span.RecordError(err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		span.SetAttributes(attribute.String("overall_risk", string(res.OverallRisk)), attribute.Bool("cached", cached))
		c.Header("X-Cache-Hit", boolString(cached))
		c.JSON(http.StatusOK, res)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
