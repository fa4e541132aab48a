// Package detector runs statistical fraud heuristics over ledger entries
// and aggregates their flags into a risk report.
package detector

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type detectFunc func(Table, Thresholds) []SuspiciousEntry

var detectors = map[Rule]detectFunc{
	RuleRoundAmounts:          detectRoundAmounts,
	RuleDuplicates:            detectDuplicates,
	RuleTimingAnomalies:       detectTiming,
	RuleBenfordLaw:            detectBenford,
	RuleAccountActivity:       detectAccountActivity,
	RuleSequentialPatterns:    detectSequential,
	RuleThresholdManipulation: detectThresholdManipulation,
	RuleJournalPatterns:       detectJournalPatterns,
	RuleReversalPatterns:      detectReversals,
	RuleEntityDuplications:    detectEntityDuplication,
}

// Detector holds the current thresholds. It is safe for concurrent use;
// every run works on its own copy.
type Detector struct {
	mu         sync.RWMutex
	thresholds Thresholds
}

func NewDetector() *Detector {
	return &Detector{thresholds: DefaultThresholds()}
}

func (d *Detector) Thresholds() Thresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.thresholds.clone()
}

// Configure replaces the thresholds after validating them.
func (d *Detector) Configure(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.thresholds = t.clone()
	d.mu.Unlock()
	return nil
}

type Config struct {
	// EnabledRules defaults to every rule.
	EnabledRules []Rule `json:"enabled_rules,omitempty"`
	// Thresholds overrides the detector's for one run.
	Thresholds *Thresholds `json:"thresholds,omitempty"`
}

type TypeCount struct {
	Type  SuspicionType `json:"type"`
	Count int           `json:"count"`
}

type AccountRisk struct {
	Account        string  `json:"account"`
	AverageRisk    float64 `json:"average_risk"`
	SuspiciousHits int     `json:"suspicious_entries"`
}

type RiskAnalysis struct {
	OverallRiskScore     float64       `json:"overall_risk_score"`
	MostCommonSuspicions []TypeCount   `json:"most_common_suspicions"`
	HighRiskAccounts     []AccountRisk `json:"high_risk_accounts"`
}

type Summary struct {
	TotalEntries      int                      `json:"total_entries"`
	SuspiciousEntries int                      `json:"suspicious_entries"`
	RiskDistribution  map[models.RiskLevel]int `json:"risk_distribution"`
	MethodsUsed       []Rule                   `json:"detection_methods_used"`
}

type Result struct {
	Success           bool              `json:"success"`
	Error             string            `json:"error,omitempty"`
	Summary           Summary           `json:"summary"`
	SuspiciousEntries []SuspiciousEntry `json:"suspicious_entries"`
	RiskAnalysis      RiskAnalysis      `json:"risk_analysis"`
	Recommendations   []string          `json:"recommendations"`
	Warnings          []string          `json:"warnings,omitempty"`
	ProcessingTime    time.Duration     `json:"processing_time"`
}

// DetectRecords prepares loosely typed records and runs Detect.
func (d *Detector) DetectRecords(rows []map[string]any, cfg Config) Result {
	return d.Detect(PrepareTable(rows), cfg)
}

// Detect runs the enabled rules in a fixed order. A rule that fails is
// reported as a warning and the others still run.
func (d *Detector) Detect(t Table, cfg Config) Result {
	started := time.Now()
	if len(t.Entries) == 0 {
		return Result{Success: false, Error: utils.ErrorEmptyDataset.Error()}
	}
	th := d.Thresholds()
	if cfg.Thresholds != nil {
		if err := cfg.Thresholds.Validate(); err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		th = cfg.Thresholds.clone()
	}

	rules := AllRules
	var warnings []string
	if len(cfg.EnabledRules) > 0 {
		enabled := make(map[Rule]bool, len(cfg.EnabledRules))
		for _, r := range cfg.EnabledRules {
			if _, ok := detectors[r]; !ok {
				warnings = append(warnings, fmt.Sprintf("unknown detection rule %q ignored", r))
				continue
			}
			enabled[r] = true
		}
		rules = nil
		for _, r := range AllRules {
			if enabled[r] {
				rules = append(rules, r)
			}
		}
	}

	var flagged []SuspiciousEntry
	for _, r := range rules {
		found, err := runRule(r, t, th)
		if err != nil {
			config.LogError(config.GetLogger(), "detector", "Detect", string(r), len(t.Entries), err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", r, err))
			continue
		}
		flagged = append(flagged, found...)
	}
	sort.SliceStable(flagged, func(a, b int) bool { return flagged[a].RiskScore > flagged[b].RiskScore })

	distribution := map[models.RiskLevel]int{
		models.RiskLow: 0, models.RiskMedium: 0, models.RiskHigh: 0, models.RiskCritical: 0,
	}
	for _, f := range flagged {
		distribution[f.Level]++
	}
	if flagged == nil {
		flagged = []SuspiciousEntry{}
	}

	return Result{
		Success: true,
		Summary: Summary{
			TotalEntries:      len(t.Entries),
			SuspiciousEntries: len(flagged),
			RiskDistribution:  distribution,
			MethodsUsed:       rules,
		},
		SuspiciousEntries: flagged,
		RiskAnalysis:      analyzeRisk(flagged, len(t.Entries)),
		Recommendations:   recommendations(flagged),
		Warnings:          warnings,
		ProcessingTime:    time.Since(started),
	}
}

// runRule turns a panicking rule into an error.
func runRule(r Rule, t Table, th Thresholds) (found []SuspiciousEntry, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rule failed: %v", rec)
		}
	}()
	return detectors[r](t, th), nil
}

func analyzeRisk(flagged []SuspiciousEntry, total int) RiskAnalysis {
	var sum float64
	typeCounts := make(map[SuspicionType]int)
	type acc struct {
		sum float64
		n   int
	}
	accounts := make(map[string]*acc)
	for _, f := range flagged {
		sum += f.RiskScore
		typeCounts[f.Type]++
		if f.Account == "" {
			continue
		}
		a, ok := accounts[f.Account]
		if !ok {
			a = &acc{}
			accounts[f.Account] = a
		}
		a.sum += f.RiskScore
		a.n++
	}

	ra := RiskAnalysis{MostCommonSuspicions: []TypeCount{}, HighRiskAccounts: []AccountRisk{}}
	if total > 0 {
		ra.OverallRiskScore = round(minFloat(sum/float64(total), 1), 4)
	}
	for typ, n := range typeCounts {
		ra.MostCommonSuspicions = append(ra.MostCommonSuspicions, TypeCount{Type: typ, Count: n})
	}
	sort.Slice(ra.MostCommonSuspicions, func(a, b int) bool {
		x, y := ra.MostCommonSuspicions[a], ra.MostCommonSuspicions[b]
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		return x.Type < y.Type
	})
	if len(ra.MostCommonSuspicions) > 5 {
		ra.MostCommonSuspicions = ra.MostCommonSuspicions[:5]
	}
	for account, a := range accounts {
		avg := a.sum / float64(a.n)
		if avg > 0.5 {
			ra.HighRiskAccounts = append(ra.HighRiskAccounts, AccountRisk{Account: account, AverageRisk: round(avg, 4), SuspiciousHits: a.n})
		}
	}
	sort.Slice(ra.HighRiskAccounts, func(a, b int) bool {
		x, y := ra.HighRiskAccounts[a], ra.HighRiskAccounts[b]
		if x.AverageRisk != y.AverageRisk {
			return x.AverageRisk > y.AverageRisk
		}
		return x.Account < y.Account
	})
	if len(ra.HighRiskAccounts) > 10 {
		ra.HighRiskAccounts = ra.HighRiskAccounts[:10]
	}
	return ra
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

var suspicionAdvice = map[SuspicionType][]string{
	SuspicionRoundAmount:        {"Obtain supporting documents for round amount entries"},
	SuspicionDuplicateEntry:     {"Confirm the entries are not booked twice", "Match each entry with a distinct supporting document"},
	SuspicionLateNightEntry:     {"Check who recorded the entry and whether access outside office hours was authorised"},
	SuspicionWeekendEntry:       {"Confirm the business reason for weekend bookings"},
	SuspicionBenfordViolation:   {"Sample entries starting with this digit and vouch them to source documents"},
	SuspicionUnusualAccount:     {"Review the activity of this account with its owner"},
	SuspicionSequential:         {"Check whether the series of amounts reflects split or fabricated transactions"},
	SuspicionJustBelowThreshold: {"Check whether transactions were split to avoid approval limits"},
	SuspicionUnusualJournal:     {"Review the volume and purpose of entries posted to this journal"},
	SuspicionReversalPattern:    {"Obtain the justification for the reversal", "Check whether the reversal moved a result between periods"},
	SuspicionVendorDuplication:  {"Check the third party master data for duplicate records"},
}

func recommendations(flagged []SuspiciousEntry) []string {
	out := []string{}
	if len(flagged) == 0 {
		return append(out, "No suspicious pattern detected, keep the usual review procedures")
	}
	seen := make(map[SuspicionType]bool)
	high := 0
	for _, f := range flagged {
		if f.Level.Level() >= models.RiskHigh.Level() {
			high++
		}
		if seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		if advice, ok := suspicionAdvice[f.Type]; ok {
			out = append(out, advice[0])
		}
	}
	if high > 0 {
		out = append([]string{fmt.Sprintf("Investigate the %d high risk entries first", high)}, out...)
	}
	return utils.UniqueSlice(out)
}
