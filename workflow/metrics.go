package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_imports_total",
		Help: "Imported files by import type and outcome",
	}, []string{"import_type", "success"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_analysis_duration_seconds",
		Help:    "Duration of each analysis of the project pipeline",
		Buckets: prometheus.DefBuckets,
	}, []string{"analysis"})

	projectRisk = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_projects_analyzed_total",
		Help: "Analyzed projects by overall risk level",
	}, []string{"risk_level"})
)
