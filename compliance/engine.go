// Package compliance evaluates ledger entries against the rule set of an
// accounting standard.
package compliance

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"github.com/google/uuid"
)

// Config narrows a validation run. Zero values mean "everything".
type Config struct {
	Categories         []Category      `json:"categories,omitempty"`
	MaxSeverity        models.Severity `json:"max_severity,omitempty"`
	ApplicableAccounts []string        `json:"applicable_accounts,omitempty"`
	Now                *time.Time      `json:"now,omitempty"`
}

// Violation is one rule failure found during a run.
type Violation struct {
	RuleID          string          `json:"rule_id"`
	ViolationID     string          `json:"violation_id"`
	Severity        models.Severity `json:"severity"`
	Category        Category        `json:"category"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	AffectedEntries []string        `json:"affected_entries"`
	ExpectedValue   any             `json:"expected_value,omitempty"`
	ActualValue     any             `json:"actual_value,omitempty"`
	Remediation     []string        `json:"remediation_steps,omitempty"`
	References      []string        `json:"references,omitempty"`
}

type Summary struct {
	TotalRules      int                     `json:"total_rules"`
	RulesChecked    int                     `json:"rules_checked"`
	RulesPassed     int                     `json:"rules_passed"`
	ViolationsFound int                     `json:"violations_found"`
	BySeverity      map[models.Severity]int `json:"by_severity"`
	ByCategory      map[Category]int        `json:"by_category"`
}

// Result of ValidateCompliance. When no rule was checked the score is 1 and
// ScoreApplicable is false.
type Result struct {
	Success         bool            `json:"success"`
	Error           string          `json:"error,omitempty"`
	RunID           string          `json:"run_id"`
	Standard        models.Standard `json:"standard"`
	ComplianceScore float64         `json:"compliance_score"`
	ScoreApplicable bool            `json:"score_applicable"`
	Violations      []Violation     `json:"violations"`
	Summary         Summary         `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// Engine holds the rule registry. It is safe for concurrent use; the rule
// set only changes through AddCustomRule.
type Engine struct {
	mu     sync.RWMutex
	rules  map[models.Standard][]Rule
	checks map[Kind]Check
	now    func() time.Time
}

// NewEngine loads the embedded rule registry.
func NewEngine() (*Engine, error) {
	rules, err := LoadRules(embeddedRules)
	if err != nil {
		return nil, err
	}
	return NewEngineWithRules(rules)
}

// NewEngineWithRules builds an engine over an explicit rule list.
func NewEngineWithRules(rules []Rule) (*Engine, error) {
	e := &Engine{
		rules:  map[models.Standard][]Rule{},
		checks: newRegistry(),
		now:    time.Now,
	}
	for _, r := range rules {
		if err := e.addRule(r); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// AddCustomRule registers a rule at runtime. Its kind must be known and its
// id unique.
func (e *Engine) AddCustomRule(r Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addRule(r)
}

func (e *Engine) addRule(r Rule) error {
	if r.ID == "" {
		return errors.New("rule id is required")
	}
	if _, ok := e.checks[r.Kind]; !ok {
		return fmt.Errorf("rule %s: unknown validation kind %q", r.ID, r.Kind)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
	}
	if _, err := models.ParseStandard(string(r.Standard)); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	for _, rules := range e.rules {
		for _, existing := range rules {
			if existing.ID == r.ID {
				return fmt.Errorf("rule %s already exists", r.ID)
			}
		}
	}
	e.rules[r.Standard] = append(e.rules[r.Standard], r)
	return nil
}

// SupportedStandards lists standards with at least one rule.
func (e *Engine) SupportedStandards() []models.Standard {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []models.Standard
	for _, s := range models.AllStandards {
		if len(e.rules[s]) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// RulesForStandard returns a copy of the standard's rules ordered by id.
func (e *Engine) RulesForStandard(standard models.Standard) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := append([]Rule(nil), e.rules[standard]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateCompliance runs the standard's rules, filtered by cfg, against
// data. A rule whose check fails is reported as a warning violation and the
// run continues.
func (e *Engine) ValidateCompliance(data Dataset, standard models.Standard, cfg Config) Result {
	now := e.now()
	if cfg.Now != nil {
		now = *cfg.Now
	}
	res := Result{
		RunID:     uuid.NewString(),
		Standard:  standard,
		CheckedAt: now,
		Summary: Summary{
			BySeverity: map[models.Severity]int{},
			ByCategory: map[Category]int{},
		},
	}
	rules := e.RulesForStandard(standard)
	if len(rules) == 0 {
		res.Error = fmt.Sprintf("%v: %s", utils.ErrorUnsupportedStandard, standard)
		return res
	}
	res.Summary.TotalRules = len(rules)

	maxSeverity := cfg.MaxSeverity
	if !maxSeverity.Valid() {
		maxSeverity = models.SeverityCritical
	}

	for _, rule := range rules {
		if len(cfg.Categories) > 0 && !containsCategory(cfg.Categories, rule.Category) {
			continue
		}
		if rule.Severity.Level() > maxSeverity.Level() {
			continue
		}
		if !rule.ActiveAt(now) || !rule.AppliesTo(cfg.ApplicableAccounts) {
			continue
		}
		violations := e.runRule(rule, data)
		res.Summary.RulesChecked++
		if len(violations) == 0 {
			res.Summary.RulesPassed++
		}
		for _, v := range violations {
			res.Summary.BySeverity[v.Severity]++
			res.Summary.ByCategory[v.Category]++
		}
		res.Violations = append(res.Violations, violations...)
	}
	res.Summary.ViolationsFound = len(res.Violations)
	res.ComplianceScore, res.ScoreApplicable = complianceScore(res.Summary.ViolationsFound, res.Summary.RulesChecked)
	res.Recommendations = recommendations(standard, res.Summary)
	res.Success = true
	return res
}

// runRule evaluates one rule and converts its findings, or its failure, into
// violations.
func (e *Engine) runRule(rule Rule, data Dataset) []Violation {
	findings, err := evaluate(e.checks[rule.Kind], data, rule.Parameters)
	if err != nil {
		config.LogError(config.GetLogger(), "engine.go", "runRule", rule.ID, nil, err)
		return []Violation{{
			RuleID:      rule.ID,
			ViolationID: rule.ID + "_error",
			Severity:    models.SeverityWarning,
			Category:    rule.Category,
			Title:       rule.Title,
			Description: fmt.Sprintf("rule could not be evaluated: %v", err),
		}}
	}
	out := make([]Violation, 0, len(findings))
	for i, f := range findings {
		out = append(out, Violation{
			RuleID:          rule.ID,
			ViolationID:     fmt.Sprintf("%s_%d", rule.ID, i),
			Severity:        rule.Severity,
			Category:        rule.Category,
			Title:           rule.Title,
			Description:     f.Description,
			AffectedEntries: f.AffectedEntries,
			ExpectedValue:   f.ExpectedValue,
			ActualValue:     f.ActualValue,
			Remediation:     f.Remediation,
			References:      rule.References,
		})
	}
	return out
}

// evaluate turns a panicking check into an error so one rule cannot abort
// the run.
func evaluate(check Check, data Dataset, params Parameters) (findings []Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			findings, err = nil, fmt.Errorf("check panicked: %v", rec)
		}
	}()
	if check == nil {
		return nil, errors.New("no check registered")
	}
	return check.Evaluate(data, params)
}

func complianceScore(violations, checked int) (float64, bool) {
	if checked == 0 {
		return 1, false
	}
	score := 1 - float64(violations)/float64(checked)
	if score < 0 {
		score = 0
	}
	return score, true
}

func containsCategory(list []Category, c Category) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

var standardAdvice = map[models.Standard][]string{
	models.StandardIFRS: {
		"Document fair value measurements for financial instruments",
		"Tie revenue to identified customer contracts",
	},
	models.StandardSYSCOHADA: {
		"Produce the full SYSCOHADA statement set including the TAFIRE",
		"Keep account numbers aligned with the SYSCOHADA chart",
	},
	models.StandardFrenchGAAP: {
		"Complete the notes with methods, post-closing events and commitments",
		"Use at least three digit PCG account numbers",
	},
	models.StandardUSGAAP: {
		"Keep the four digit account ranges consistent across entities",
		"Review revenue cut-off against delivery evidence",
	},
	models.StandardOHADA: {
		"Produce the full OHADA statement set with notes",
	},
}

func recommendations(standard models.Standard, s Summary) []string {
	var out []string
	if n := s.BySeverity[models.SeverityCritical]; n > 0 {
		out = append(out, fmt.Sprintf("Fix the %d critical violations before closing the period", n))
	}
	if n := s.BySeverity[models.SeverityError]; n > 0 {
		out = append(out, fmt.Sprintf("Review the %d non-compliant items", n))
	}
	if n := s.BySeverity[models.SeverityWarning]; n > 0 {
		out = append(out, fmt.Sprintf("Look into %d warnings to strengthen compliance", n))
	}
	if s.ViolationsFound == 0 && s.RulesChecked > 0 {
		out = append(out, "No violations found for the checked rules")
	}
	return append(out, standardAdvice[standard]...)
}
