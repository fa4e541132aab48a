// Package temporal checks the coherence of a dated series of amounts:
// trend breaks, seasonal deviations, outliers, irregular booking frequency,
// missing weeks and back-dated or future-dated entries.
package temporal

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

var ErrorNoDateColumn = errors.New("no date column found")

type AnomalyType string

const (
	AnomalySeasonalDeviation     AnomalyType = "seasonal_deviation"
	AnomalyTrendBreak            AnomalyType = "trend_break"
	AnomalyOutlier               AnomalyType = "outlier"
	AnomalyMissingPeriod         AnomalyType = "missing_period"
	AnomalyDuplicateEntry        AnomalyType = "duplicate_entry"
	AnomalyRetroactiveEntry      AnomalyType = "retroactive_entry"
	AnomalyFutureEntry           AnomalyType = "future_entry"
	AnomalyInconsistentFrequency AnomalyType = "inconsistent_frequency"
)

type Anomaly struct {
	Type             AnomalyType      `json:"type"`
	Severity         models.RiskLevel `json:"severity"`
	Description      string           `json:"description"`
	Period           string           `json:"period"`
	ExpectedValue    *float64         `json:"expected_value"`
	ActualValue      *float64         `json:"actual_value"`
	Confidence       float64          `json:"confidence"`
	Recommendations  []string         `json:"recommendations"`
	AffectedAccounts []string         `json:"affected_accounts"`
}

type Analysis string

const (
	AnalysisTrend       Analysis = "trend_analysis"
	AnalysisSeasonal    Analysis = "seasonal_analysis"
	AnalysisOutliers    Analysis = "outlier_detection"
	AnalysisFrequency   Analysis = "frequency_analysis"
	AnalysisGaps        Analysis = "gap_detection"
	AnalysisRetroactive Analysis = "retroactive_analysis"
)

// AllAnalyses is the run order.
var AllAnalyses = []Analysis{
	AnalysisTrend, AnalysisSeasonal, AnalysisOutliers, AnalysisFrequency, AnalysisGaps, AnalysisRetroactive,
}

type Thresholds struct {
	OutlierZScore     float64 `json:"outlier_zscore" validate:"gt=0"`
	TrendDeviation    float64 `json:"trend_deviation" validate:"gt=0"`
	SeasonalDeviation float64 `json:"seasonal_deviation" validate:"gt=0"`
	RetroactiveDays   int     `json:"retroactive_days" validate:"gt=0"`
	MinSeriesLength   int     `json:"min_series_length" validate:"gte=3"`
	MinSeasonalLength int     `json:"min_seasonal_length" validate:"gte=12"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		OutlierZScore:     2.0,
		TrendDeviation:    0.3,
		SeasonalDeviation: 0.5,
		RetroactiveDays:   30,
		MinSeriesLength:   10,
		MinSeasonalLength: 24,
	}
}

type Config struct {
	// EnabledAnalyses defaults to every analysis.
	EnabledAnalyses []Analysis  `json:"enabled_analyses,omitempty"`
	Thresholds      *Thresholds `json:"thresholds,omitempty"`
}

type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays int    `json:"total_days"`
}

type Summary struct {
	TotalRecords         int                      `json:"total_records"`
	DateRange            DateRange                `json:"date_range"`
	AnomaliesCount       int                      `json:"anomalies_count"`
	SeverityDistribution map[models.RiskLevel]int `json:"severity_distribution"`
}

type MonthlyTrend struct {
	Slope     float64 `json:"slope"`
	Direction string  `json:"direction"`
	Strength  float64 `json:"strength"`
}

type Volatility struct {
	Coefficient float64          `json:"coefficient"`
	Level       models.RiskLevel `json:"level"`
}

type Trends struct {
	MonthlyTrend *MonthlyTrend `json:"monthly_trend,omitempty"`
	Volatility   *Volatility   `json:"volatility,omitempty"`
}

type SeasonalPatterns struct {
	MonthlyPattern   map[int]float64 `json:"monthly_pattern,omitempty"`
	PeakMonth        int             `json:"peak_month,omitempty"`
	LowMonth         int             `json:"low_month,omitempty"`
	SeasonalityRatio float64         `json:"seasonality_ratio,omitempty"`
}

type Result struct {
	Success          bool             `json:"success"`
	Error            string           `json:"error,omitempty"`
	Summary          Summary          `json:"analysis_summary"`
	Anomalies        []Anomaly        `json:"anomalies"`
	Trends           Trends           `json:"trends"`
	SeasonalPatterns SeasonalPatterns `json:"seasonal_patterns"`
	Recommendations  []string         `json:"recommendations"`
	Warnings         []string         `json:"warnings,omitempty"`
	ProcessingTime   time.Duration    `json:"processing_time"`
}

type analysisFunc func(Series, Thresholds, time.Time) []Anomaly

var analyses = map[Analysis]analysisFunc{
	AnalysisTrend:       analyzeTrend,
	AnalysisSeasonal:    analyzeSeasonality,
	AnalysisOutliers:    detectOutliers,
	AnalysisFrequency:   analyzeFrequency,
	AnalysisGaps:        detectGaps,
	AnalysisRetroactive: analyzeRetroactive,
}

type Analyzer struct {
	mu         sync.RWMutex
	thresholds Thresholds
	now        func() time.Time
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{thresholds: DefaultThresholds(), now: time.Now}
}

// WithClock replaces the reference time used for future-dated entries.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

func (a *Analyzer) Thresholds() Thresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

func (a *Analyzer) Configure(t Thresholds) error {
	if err := utils.ValidateStruct(t); err != nil {
		return err
	}
	a.mu.Lock()
	a.thresholds = t
	a.mu.Unlock()
	return nil
}

// AnalyzeRecords prepares loosely typed records and runs Analyze.
func (a *Analyzer) AnalyzeRecords(rows []map[string]any, cfg Config) Result {
	if len(rows) == 0 {
		return Result{Error: utils.ErrorEmptyDataset.Error()}
	}
	s, err := Prepare(rows)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return a.Analyze(s, cfg)
}

// Analyze runs the enabled analyses and sorts anomalies by severity,
// most severe first.
func (a *Analyzer) Analyze(s Series, cfg Config) Result {
	started := time.Now()
	if len(s.Points) == 0 {
		return Result{Error: utils.ErrorEmptyDataset.Error()}
	}
	th := a.Thresholds()
	if cfg.Thresholds != nil {
		if err := utils.ValidateStruct(*cfg.Thresholds); err != nil {
			return Result{Error: err.Error()}
		}
		th = *cfg.Thresholds
	}
	now := a.now()

	enabled := AllAnalyses
	var warnings []string
	if len(cfg.EnabledAnalyses) > 0 {
		enabled = nil
		for _, name := range cfg.EnabledAnalyses {
			if _, ok := analyses[name]; !ok {
				warnings = append(warnings, fmt.Sprintf("unknown analysis %q ignored", name))
				continue
			}
			enabled = append(enabled, name)
		}
	}

	anomalies := []Anomaly{}
	for _, name := range enabled {
		found, err := runAnalysis(name, s, th, now)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		anomalies = append(anomalies, found...)
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Level() > anomalies[j].Severity.Level()
	})

	first, last := s.Points[0].Date, s.Points[len(s.Points)-1].Date
	summary := Summary{
		TotalRecords: len(s.Points),
		DateRange: DateRange{
			StartDate: first.Format("2006-01-02"),
			EndDate:   last.Format("2006-01-02"),
			TotalDays: utils.DaysBetween(first, last),
		},
		AnomaliesCount: len(anomalies),
		SeverityDistribution: map[models.RiskLevel]int{
			models.RiskLow: 0, models.RiskMedium: 0, models.RiskHigh: 0, models.RiskCritical: 0,
		},
	}
	for _, an := range anomalies {
		summary.SeverityDistribution[an.Severity]++
	}

	return Result{
		Success:          true,
		Summary:          summary,
		Anomalies:        anomalies,
		Trends:           calculateTrends(s),
		SeasonalPatterns: calculateSeasonalPatterns(s),
		Recommendations:  recommendations(anomalies),
		Warnings:         warnings,
		ProcessingTime:   time.Since(started),
	}
}

func runAnalysis(name Analysis, s Series, th Thresholds, now time.Time) (found []Anomaly, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("analysis failed: %v", rec)
		}
	}()
	return analyses[name](s, th, now), nil
}

func recommendations(anomalies []Anomaly) []string {
	counts := make(map[AnomalyType]int)
	critical := 0
	for _, a := range anomalies {
		counts[a.Type]++
		if a.Severity == models.RiskCritical {
			critical++
		}
	}
	out := []string{}
	if n := counts[AnomalyOutlier]; n > 0 {
		out = append(out, fmt.Sprintf("Review the %d outlying amount(s)", n))
	}
	if counts[AnomalyTrendBreak] > 0 {
		out = append(out, "Analyse the trend breaks to identify their causes")
	}
	if counts[AnomalyMissingPeriod] > 0 {
		out = append(out, "Check that entries are complete over the whole period")
	}
	if counts[AnomalyRetroactiveEntry] > 0 {
		out = append(out, "Document the justification of significant back-dated entries")
	}
	if critical > 0 {
		out = append(out, fmt.Sprintf("Handle the %d critical anomaly(ies) first", critical))
	}
	if len(out) == 0 {
		out = append(out, "Temporal coherence is satisfactory overall")
	}
	return out
}

func ptr(f float64) *float64 { return &f }
