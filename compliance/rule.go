package compliance

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type Category string

const (
	CategoryStructure    Category = "structure"
	CategoryValuation    Category = "valuation"
	CategoryPresentation Category = "presentation"
	CategoryDisclosure   Category = "disclosure"
	CategoryRecognition  Category = "recognition"
	CategoryMeasurement  Category = "measurement"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryStructure, CategoryValuation, CategoryPresentation, CategoryDisclosure, CategoryRecognition, CategoryMeasurement:
		return c, nil
	}
	return "", fmt.Errorf("invalid rule category %q", s)
}

// Kind names a validation routine. The set is closed: every kind has exactly
// one Check registered in newRegistry.
type Kind string

const (
	KindChartOfAccounts         Kind = "chart_of_accounts"
	KindFairValue               Kind = "fair_value"
	KindRevenueRecognition      Kind = "revenue_recognition"
	KindFinancialStatements     Kind = "financial_statements"
	KindDepreciation            Kind = "depreciation"
	KindDisclosureNotes         Kind = "disclosure_notes"
	KindBalanceEquation         Kind = "balance_equation"
	KindAccountRanges           Kind = "account_ranges"
	KindMandatoryAccounts       Kind = "mandatory_accounts"
	KindDepreciationConsistency Kind = "depreciation_consistency"
	KindRevenueCutOff           Kind = "revenue_cut_off"
	KindInventoryValuation      Kind = "inventory_valuation"
)

// Parameters is the free-form bag a rule hands to its check.
type Parameters map[string]any

// Decode fills out (a pointer to a parameter struct) from the bag.
func (p Parameters) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(p))
}

// Rule is static configuration: loaded once, never mutated by evaluation.
type Rule struct {
	ID                 string          `json:"rule_id"`
	Standard           models.Standard `json:"standard"`
	Category           Category        `json:"category"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Severity           models.Severity `json:"severity"`
	Kind               Kind            `json:"validation_function"`
	Parameters         Parameters      `json:"parameters,omitempty"`
	References         []string        `json:"references,omitempty"`
	ApplicableAccounts []string        `json:"applicable_accounts,omitempty"`
	EffectiveDate      *time.Time      `json:"effective_date,omitempty"`
	ExpiryDate         *time.Time      `json:"expiry_date,omitempty"`
}

// ActiveAt reports whether now falls inside the rule's validity window.
func (r Rule) ActiveAt(now time.Time) bool {
	if r.EffectiveDate != nil && now.Before(*r.EffectiveDate) {
		return false
	}
	if r.ExpiryDate != nil && now.After(*r.ExpiryDate) {
		return false
	}
	return true
}

// AppliesTo reports whether the rule targets any of accounts. A rule without
// applicable accounts, or an empty account filter, always applies.
func (r Rule) AppliesTo(accounts []string) bool {
	if len(r.ApplicableAccounts) == 0 || len(accounts) == 0 {
		return true
	}
	for _, a := range accounts {
		for _, p := range r.ApplicableAccounts {
			if strings.HasPrefix(a, p) || strings.HasPrefix(p, a) {
				return true
			}
		}
	}
	return false
}

//go:embed rules.yaml
var embeddedRules []byte

type ruleSpec struct {
	ID                 string         `yaml:"id"`
	Standard           string         `yaml:"standard"`
	Category           string         `yaml:"category"`
	Title              string         `yaml:"title"`
	Description        string         `yaml:"description"`
	Severity           string         `yaml:"severity"`
	Kind               string         `yaml:"kind"`
	Parameters         map[string]any `yaml:"parameters"`
	References         []string       `yaml:"references"`
	ApplicableAccounts []string       `yaml:"applicable_accounts"`
	EffectiveDate      string         `yaml:"effective_date"`
	ExpiryDate         string         `yaml:"expiry_date"`
}

// LoadRules decodes a YAML rule list. Every rule must name a known standard,
// category, severity and kind.
func LoadRules(data []byte) ([]Rule, error) {
	var specs []ruleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	rules := make([]Rule, 0, len(specs))
	seen := map[string]bool{}
	for _, s := range specs {
		r, err := s.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", s.ID, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", r.ID)
		}
		seen[r.ID] = true
		rules = append(rules, r)
	}
	return rules, nil
}

func (s ruleSpec) toRule() (Rule, error) {
	if strings.TrimSpace(s.ID) == "" {
		return Rule{}, errors.New("missing id")
	}
	standard, err := models.ParseStandard(s.Standard)
	if err != nil {
		return Rule{}, err
	}
	category, err := ParseCategory(s.Category)
	if err != nil {
		return Rule{}, err
	}
	var severity models.Severity
	if err := severity.UnmarshalText([]byte(s.Severity)); err != nil {
		return Rule{}, err
	}
	r := Rule{
		ID:                 s.ID,
		Standard:           standard,
		Category:           category,
		Title:              s.Title,
		Description:        s.Description,
		Severity:           severity,
		Kind:               Kind(s.Kind),
		Parameters:         Parameters(s.Parameters),
		References:         s.References,
		ApplicableAccounts: s.ApplicableAccounts,
	}
	if r.EffectiveDate, err = parseRuleDate(s.EffectiveDate); err != nil {
		return Rule{}, err
	}
	if r.ExpiryDate, err = parseRuleDate(s.ExpiryDate); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func parseRuleDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}
