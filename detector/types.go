package detector

import "bitbucket.org/mmdatafocus/audit_backend/models"

type SuspicionType string

const (
	SuspicionRoundAmount        SuspicionType = "round_amount"
	SuspicionDuplicateEntry     SuspicionType = "duplicate_entry"
	SuspicionUnusualTiming      SuspicionType = "unusual_timing"
	SuspicionBenfordViolation   SuspicionType = "benford_law_violation"
	SuspicionUnusualAccount     SuspicionType = "unusual_account_activity"
	SuspicionSequential         SuspicionType = "sequential_manipulation"
	SuspicionJustBelowThreshold SuspicionType = "amount_just_below_threshold"
	SuspicionUnusualJournal     SuspicionType = "unusual_journal_pattern"
	SuspicionWeekendEntry       SuspicionType = "weekend_entry"
	SuspicionLateNightEntry     SuspicionType = "late_night_entry"
	SuspicionReversalPattern    SuspicionType = "reversal_pattern"
	SuspicionGhostEmployee      SuspicionType = "ghost_employee"
	SuspicionVendorDuplication  SuspicionType = "vendor_duplication"
)

// SuspiciousEntry is one flag raised by a detector.
type SuspiciousEntry struct {
	EntryID         string           `json:"entry_id"`
	Account         string           `json:"account,omitempty"`
	Type            SuspicionType    `json:"suspicion_type"`
	Level           models.RiskLevel `json:"suspicion_level"`
	RiskScore       float64          `json:"risk_score"`
	Description     string           `json:"description"`
	Evidence        map[string]any   `json:"evidence"`
	Recommendations []string         `json:"recommendations"`
	RelatedEntries  []string         `json:"related_entries,omitempty"`
}

// Rule names a detector.
type Rule string

const (
	RuleRoundAmounts          Rule = "round_amounts"
	RuleDuplicates            Rule = "duplicates"
	RuleTimingAnomalies       Rule = "timing_anomalies"
	RuleBenfordLaw            Rule = "benford_law"
	RuleAccountActivity       Rule = "account_activity"
	RuleSequentialPatterns    Rule = "sequential_patterns"
	RuleThresholdManipulation Rule = "threshold_manipulation"
	RuleJournalPatterns       Rule = "journal_patterns"
	RuleReversalPatterns      Rule = "reversal_patterns"
	RuleEntityDuplications    Rule = "entity_duplications"
)

// AllRules is the run order.
var AllRules = []Rule{
	RuleRoundAmounts, RuleDuplicates, RuleTimingAnomalies, RuleBenfordLaw, RuleAccountActivity,
	RuleSequentialPatterns, RuleThresholdManipulation, RuleJournalPatterns, RuleReversalPatterns,
	RuleEntityDuplications,
}

type RuleInfo struct {
	Name        Rule   `json:"name"`
	Description string `json:"description"`
}

var ruleDescriptions = map[Rule]string{
	RuleRoundAmounts:          "Over-representation of amounts that are multiples of 100 or 1000",
	RuleDuplicates:            "Same amount, account and label booked within a short time span",
	RuleTimingAnomalies:       "Entries booked late at night or during weekends",
	RuleBenfordLaw:            "Leading digit distribution departing from Benford's law",
	RuleAccountActivity:       "Accounts with an unusual number of transactions",
	RuleSequentialPatterns:    "Long runs of nearly identical amounts",
	RuleThresholdManipulation: "Amounts clustered just below approval thresholds",
	RuleJournalPatterns:       "Journals with an unusual volume of entries",
	RuleReversalPatterns:      "Entries cancelled by an opposite entry within a few days",
	RuleEntityDuplications:    "Near-identical third party names suggesting duplicate vendors",
}

// Rules describes every detector.
func Rules() []RuleInfo {
	out := make([]RuleInfo, 0, len(AllRules))
	for _, r := range AllRules {
		out = append(out, RuleInfo{Name: r, Description: ruleDescriptions[r]})
	}
	return out
}
