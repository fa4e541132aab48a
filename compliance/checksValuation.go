package compliance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"github.com/shopspring/decimal"
)

type keywordParams struct {
	Accounts []string `mapstructure:"accounts"`
	Keywords []string `mapstructure:"keywords"`
}

type fairValueCheck struct{}

func (fairValueCheck) Aggregate() bool { return false }

func (fairValueCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p keywordParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var undocumented []string
	for _, e := range data.Entries {
		if hasAnyPrefix(e.Account, p.Accounts) && !utils.ContainsAny(e.Description, p.Keywords...) {
			undocumented = append(undocumented, e.ID)
		}
	}
	if len(undocumented) == 0 {
		return nil, nil
	}
	return []Finding{{
		Description:     fmt.Sprintf("%d financial instrument entries do not document a fair value measurement", len(undocumented)),
		AffectedEntries: undocumented,
		Remediation:     []string{"Document the fair value hierarchy level", "Reference the valuation technique in the entry label"},
	}}, nil
}

type revenueRecognitionCheck struct{}

func (revenueRecognitionCheck) Aggregate() bool { return false }

func (revenueRecognitionCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p keywordParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var unreferenced, negative []string
	for _, e := range data.Entries {
		if !hasAnyPrefix(e.Account, p.Accounts) {
			continue
		}
		if !utils.ContainsAny(e.Description, p.Keywords...) {
			unreferenced = append(unreferenced, e.ID)
		}
		if e.Amount.IsNegative() {
			negative = append(negative, e.ID)
		}
	}
	var findings []Finding
	if len(unreferenced) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d revenue entries are not linked to a customer contract", len(unreferenced)),
			AffectedEntries: unreferenced,
			Remediation:     []string{"Reference the contract or customer on each revenue entry"},
		})
	}
	if len(negative) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d revenue entries carry a negative amount", len(negative)),
			AffectedEntries: negative,
			ExpectedValue:   "amount >= 0",
			Remediation:     []string{"Book returns and rebates through a dedicated contra account"},
		})
	}
	return findings, nil
}

type depreciationCheck struct{}

func (depreciationCheck) Aggregate() bool { return false }

func (depreciationCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p keywordParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var nonPositive, unlabelled []string
	for _, e := range data.Entries {
		if !hasAnyPrefix(e.Account, p.Accounts) {
			continue
		}
		if !e.Amount.IsPositive() {
			nonPositive = append(nonPositive, e.ID)
		}
		if !utils.ContainsAny(e.Description, p.Keywords...) {
			unlabelled = append(unlabelled, e.ID)
		}
	}
	var findings []Finding
	if len(nonPositive) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d depreciation entries are zero or negative", len(nonPositive)),
			AffectedEntries: nonPositive,
			ExpectedValue:   "amount > 0",
			Remediation:     []string{"Check the depreciation schedule"},
		})
	}
	if len(unlabelled) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d depreciation entries are not labelled as depreciation", len(unlabelled)),
			AffectedEntries: unlabelled,
			Remediation:     []string{"Label depreciation and provision entries explicitly"},
		})
	}
	return findings, nil
}

type consistencyParams struct {
	Accounts     []string `mapstructure:"accounts"`
	MaxVariation float64  `mapstructure:"max_variation"`
	MinEntries   int      `mapstructure:"min_entries"`
}

type depreciationConsistencyCheck struct{}

func (depreciationConsistencyCheck) Aggregate() bool { return true }

// Evaluate groups entries by their three-digit account root and flags amounts
// that stray from the group's average by more than MaxVariation.
func (depreciationConsistencyCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	p := consistencyParams{MaxVariation: 0.5, MinEntries: 3}
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	groups := map[string][]Entry{}
	var order []string
	for _, e := range data.Entries {
		if !hasAnyPrefix(e.Account, p.Accounts) {
			continue
		}
		root := e.Account
		if len(root) > 3 {
			root = root[:3]
		}
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], e)
	}
	var findings []Finding
	for _, root := range order {
		entries := groups[root]
		if len(entries) < p.MinEntries {
			continue
		}
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Amount)
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(entries))))
		if avg.IsZero() {
			continue
		}
		var erratic []string
		for _, e := range entries {
			variation := e.Amount.Sub(avg).Abs().Div(avg.Abs()).InexactFloat64()
			if variation > p.MaxVariation {
				erratic = append(erratic, e.ID)
			}
		}
		if len(erratic) > 0 {
			findings = append(findings, Finding{
				Description:     fmt.Sprintf("inconsistent depreciation charges on accounts %s", root),
				AffectedEntries: erratic,
				ExpectedValue:   avg.StringFixed(2),
				Remediation:     []string{"Confirm the depreciation method was applied consistently"},
			})
		}
	}
	return findings, nil
}

type cutOffParams struct {
	Accounts   []string `mapstructure:"accounts"`
	WindowDays int      `mapstructure:"window_days"`
	Cutoff     string   `mapstructure:"cutoff"`
	Keywords   []string `mapstructure:"keywords"`
}

type revenueCutOffCheck struct{}

func (revenueCutOffCheck) Aggregate() bool { return false }

// Evaluate flags revenue booked within WindowDays of the closing date without
// an invoice or delivery reference. The closing date is the dataset's cut-off
// or, by default, the nearest Cutoff ("MM-DD").
func (revenueCutOffCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	p := cutOffParams{WindowDays: 5, Cutoff: "12-31"}
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	monthDay, err := time.Parse("01-02", p.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff %q", p.Cutoff)
	}
	var flagged []string
	for _, e := range data.Entries {
		if e.Date == nil || !hasAnyPrefix(e.Account, p.Accounts) {
			continue
		}
		var days float64
		if data.CutoffDate != nil {
			days = math.Abs(e.Date.Sub(*data.CutoffDate).Hours() / 24)
		} else {
			// Early January entries are judged against the previous closing.
			days = math.Inf(1)
			for _, y := range []int{e.Date.Year() - 1, e.Date.Year()} {
				cutoff := time.Date(y, monthDay.Month(), monthDay.Day(), 0, 0, 0, 0, e.Date.Location())
				days = math.Min(days, math.Abs(e.Date.Sub(cutoff).Hours()/24))
			}
		}
		if days <= float64(p.WindowDays) && !utils.ContainsAny(e.Description, p.Keywords...) {
			flagged = append(flagged, e.ID)
		}
	}
	if len(flagged) == 0 {
		return nil, nil
	}
	return []Finding{{
		Description:     fmt.Sprintf("%d revenue entries near the closing date lack an invoice or delivery reference", len(flagged)),
		AffectedEntries: flagged,
		Remediation:     []string{"Match closing revenue to delivery notes", "Defer revenue not yet earned"},
	}}, nil
}

type inventoryParams struct {
	Accounts       []string `mapstructure:"accounts"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

type inventoryValuationCheck struct{}

func (inventoryValuationCheck) Aggregate() bool { return false }

func (inventoryValuationCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p inventoryParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var negative, badMethod []string
	for _, e := range data.Entries {
		if !hasAnyPrefix(e.Account, p.Accounts) {
			continue
		}
		if e.Amount.IsNegative() {
			negative = append(negative, e.ID)
		}
		if e.Method != "" && len(p.AllowedMethods) > 0 && !contains(p.AllowedMethods, e.Method) {
			badMethod = append(badMethod, e.ID)
		}
	}
	var findings []Finding
	if len(negative) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d inventory entries carry a negative value", len(negative)),
			AffectedEntries: negative,
			ExpectedValue:   "amount >= 0",
			Remediation:     []string{"Run a physical count and adjust stock accounts"},
		})
	}
	if len(badMethod) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d inventory entries use a valuation method that is not permitted", len(badMethod)),
			AffectedEntries: badMethod,
			ExpectedValue:   strings.Join(p.AllowedMethods, ", "),
			Remediation:     []string{"Switch to a permitted cost formula"},
		})
	}
	return findings, nil
}
