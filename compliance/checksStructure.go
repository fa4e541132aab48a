package compliance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type chartParams struct {
	RequiredClasses []string `mapstructure:"required_classes"`
	ValidClasses    []string `mapstructure:"valid_classes"`
	MinLength       int      `mapstructure:"min_length"`
}

type chartOfAccountsCheck struct{}

func (chartOfAccountsCheck) Aggregate() bool { return false }

func (chartOfAccountsCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p chartParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var findings []Finding

	var invalid []string
	present := map[string]bool{}
	for _, e := range data.Entries {
		if e.Account == "" {
			continue
		}
		class := e.Account[:1]
		present[class] = true
		if len(e.Account) < p.MinLength || (len(p.ValidClasses) > 0 && !contains(p.ValidClasses, class)) {
			invalid = append(invalid, e.ID)
		}
	}
	if len(invalid) > 0 {
		findings = append(findings, Finding{
			Description:     fmt.Sprintf("%d entries use accounts outside the chart of accounts", len(invalid)),
			AffectedEntries: invalid,
			ExpectedValue:   fmt.Sprintf("classes %s, at least %d digits", strings.Join(p.ValidClasses, ","), p.MinLength),
			Remediation:     []string{"Map these accounts to the standard chart of accounts", "Check the account numbering of the source export"},
		})
	}

	if data.realTime || len(p.RequiredClasses) == 0 {
		return findings, nil
	}
	var missing []string
	for _, c := range p.RequiredClasses {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		found := make([]string, 0, len(present))
		for c := range present {
			found = append(found, c)
		}
		sort.Strings(found)
		findings = append(findings, Finding{
			Description:   "missing account classes: " + strings.Join(missing, ", "),
			ExpectedValue: p.RequiredClasses,
			ActualValue:   found,
			Remediation:   []string{"Make sure the import covers the whole trial balance"},
		})
	}
	return findings, nil
}

type balanceParams struct {
	Tolerance float64 `mapstructure:"tolerance"`
}

type balanceEquationCheck struct{}

func (balanceEquationCheck) Aggregate() bool { return true }

func (balanceEquationCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	p := balanceParams{Tolerance: 0.01}
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range data.Entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	diff := debit.Sub(credit).Abs()
	if diff.LessThanOrEqual(decimal.NewFromFloat(p.Tolerance)) {
		return nil, nil
	}
	return []Finding{{
		Description:   fmt.Sprintf("debits and credits differ by %s", diff.StringFixed(2)),
		ExpectedValue: debit.StringFixed(2),
		ActualValue:   credit.StringFixed(2),
		Remediation:   []string{"Find the unbalanced pieces", "Check for missing lines in the export"},
	}}, nil
}

type rangesParams struct {
	Digits int                `mapstructure:"digits"`
	Ranges map[string][]int64 `mapstructure:"ranges"`
}

type accountRangesCheck struct{}

func (accountRangesCheck) Aggregate() bool { return false }

func (accountRangesCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p rangesParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	for class, r := range p.Ranges {
		if len(r) != 2 {
			return nil, fmt.Errorf("range for class %s must have two bounds", class)
		}
	}
	var outside []string
	for _, e := range data.Entries {
		if e.Account == "" {
			continue
		}
		r, ok := p.Ranges[e.Account[:1]]
		if !ok {
			outside = append(outside, e.ID)
			continue
		}
		head := e.Account
		if p.Digits > 0 && len(head) > p.Digits {
			head = head[:p.Digits]
		}
		n, err := strconv.ParseInt(head, 10, 64)
		if err != nil || n < r[0] || n > r[1] {
			outside = append(outside, e.ID)
		}
	}
	if len(outside) == 0 {
		return nil, nil
	}
	return []Finding{{
		Description:     fmt.Sprintf("%d entries use account numbers outside the allowed ranges", len(outside)),
		AffectedEntries: outside,
		Remediation:     []string{"Renumber accounts to the standard ranges"},
	}}, nil
}

type accountsParams struct {
	Accounts []string `mapstructure:"accounts"`
}

type mandatoryAccountsCheck struct{}

func (mandatoryAccountsCheck) Aggregate() bool { return true }

func (mandatoryAccountsCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p accountsParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	var missing []string
	for _, prefix := range p.Accounts {
		found := false
		for _, e := range data.Entries {
			if strings.HasPrefix(e.Account, prefix) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, prefix)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return []Finding{{
		Description:   "mandatory accounts not found: " + strings.Join(missing, ", "),
		ExpectedValue: p.Accounts,
		Remediation:   []string{"Check that the import is complete"},
	}}, nil
}

type requiredItemsParams struct {
	Required []string `mapstructure:"required"`
}

// requiredItemsCheck verifies the presence of financial statements or
// disclosure notes.
type requiredItemsCheck struct {
	statements bool
}

func (requiredItemsCheck) Aggregate() bool { return true }

func (c requiredItemsCheck) Evaluate(data Dataset, params Parameters) ([]Finding, error) {
	var p requiredItemsParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	have, what := data.Notes, "notes"
	if c.statements {
		have, what = data.FinancialStatements, "financial statements"
	}
	var missing []string
	for _, r := range p.Required {
		if !contains(have, r) {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return []Finding{{
		Description:   fmt.Sprintf("missing %s: %s", what, strings.Join(missing, ", ")),
		ExpectedValue: p.Required,
		ActualValue:   have,
		Remediation:   []string{fmt.Sprintf("Produce the missing %s", what)},
	}}, nil
}
