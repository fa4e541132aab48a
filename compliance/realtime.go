package compliance

import (
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type RealTimeResult struct {
	IsCompliant    bool        `json:"is_compliant"`
	Error          string      `json:"error,omitempty"`
	BlockingErrors []Violation `json:"blocking_errors"`
	Alerts         []Violation `json:"alerts"`
	Warnings       []string    `json:"warnings"`
	Suggestions    []string    `json:"suggestions"`
}

var minAccountLength = map[models.Standard]int{
	models.StandardSYSCOHADA:  2,
	models.StandardOHADA:      2,
	models.StandardFrenchGAAP: 3,
	models.StandardUSGAAP:     4,
}

// ValidateRealTime checks a single entry as it is typed. Only error and
// critical rules run, and checks that need the whole ledger are skipped.
// Critical violations block the entry; errors become alerts.
func (e *Engine) ValidateRealTime(entry Entry, standard models.Standard) RealTimeResult {
	res := RealTimeResult{IsCompliant: true}
	rules := e.RulesForStandard(standard)
	if len(rules) == 0 {
		res.IsCompliant = false
		res.Error = fmt.Sprintf("%v: %s", utils.ErrorUnsupportedStandard, standard)
		return res
	}
	data := Dataset{Entries: []Entry{entry}, realTime: true}
	now := e.now()
	for _, rule := range rules {
		if rule.Severity.Level() < models.SeverityError.Level() || !rule.ActiveAt(now) {
			continue
		}
		if e.checks[rule.Kind].Aggregate() {
			continue
		}
		for _, v := range e.runRule(rule, data) {
			switch {
			case strings.HasSuffix(v.ViolationID, "_error"):
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", rule.ID, v.Description))
			case v.Severity == models.SeverityCritical:
				res.BlockingErrors = append(res.BlockingErrors, v)
				res.IsCompliant = false
			default:
				res.Alerts = append(res.Alerts, v)
			}
		}
	}
	res.Suggestions = entrySuggestions(entry, standard)
	return res
}

func entrySuggestions(entry Entry, standard models.Standard) []string {
	var out []string
	if entry.Account == "" {
		out = append(out, "Provide an account number")
	} else if min, ok := minAccountLength[standard]; ok && len(entry.Account) < min {
		out = append(out, fmt.Sprintf("Use at least %d digits for %s account numbers", min, standard))
	}
	if len(strings.TrimSpace(entry.Description)) < 10 {
		out = append(out, "Use a more descriptive label")
	}
	if entry.Amount.IsZero() && entry.Debit.IsZero() && entry.Credit.IsZero() {
		out = append(out, "Check the amount, it is zero")
	}
	return out
}
