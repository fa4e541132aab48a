package audit

import (
	"strings"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

type Thresholds struct {
	MaterialityPercentage float64         `json:"materiality_percentage"`
	SignificantVariance   float64         `json:"significant_variance"`
	HighRiskAmount        decimal.Decimal `json:"high_risk_amount"`
}

var standardThresholds = map[models.Standard]Thresholds{
	models.StandardIFRS:       {0.05, 0.10, decimal.NewFromInt(100000)},
	models.StandardSYSCOHADA:  {0.05, 0.15, decimal.NewFromInt(50000)},
	models.StandardUSGAAP:     {0.05, 0.10, decimal.NewFromInt(100000)},
	models.StandardFrenchGAAP: {0.05, 0.12, decimal.NewFromInt(75000)},
	models.StandardOHADA:      {0.05, 0.15, decimal.NewFromInt(50000)},
}

// ThresholdsFor returns the thresholds of a standard.
func ThresholdsFor(s models.Standard) (Thresholds, bool) {
	t, ok := standardThresholds[s]
	return t, ok
}

// Role is what an account represents in the statements.
type Role string

const (
	RoleEquity           Role = "equity"
	RoleLongLiabilities  Role = "long_term_liabilities"
	RoleShortLiabilities Role = "short_term_liabilities"
	RoleFixedAssets      Role = "fixed_assets"
	RoleInventory        Role = "inventory"
	RoleReceivables      Role = "receivables"
	RoleCash             Role = "cash"
	RoleExpenses         Role = "expenses"
	RoleRevenue          Role = "revenue"
	// RoleContra covers depreciation, provisions and mixed accounts, which
	// have no expected side.
	RoleContra Role = "contra"
	RoleOther  Role = "other"
)

type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
	NatureNone   Nature = ""
)

func (r Role) Nature() Nature {
	switch r {
	case RoleFixedAssets, RoleInventory, RoleReceivables, RoleCash, RoleExpenses:
		return NatureDebit
	case RoleEquity, RoleLongLiabilities, RoleShortLiabilities, RoleRevenue:
		return NatureCredit
	}
	return NatureNone
}

// Layout maps an account number to its role.
type Layout func(account string) Role

type prefixRole struct {
	prefix string
	role   Role
}

func prefixLayout(table []prefixRole) Layout {
	return func(account string) Role {
		for _, pr := range table {
			if strings.HasPrefix(account, pr.prefix) {
				return pr.role
			}
		}
		return RoleOther
	}
}

// pcgLayout follows the French and OHADA charts: class 1 capital, 2 fixed
// assets, 3 stocks, 4 third parties, 5 cash, 6 expenses, 7 revenue. The
// most specific prefix comes first.
var pcgLayout = prefixLayout([]prefixRole{
	{"16", RoleLongLiabilities},
	{"17", RoleLongLiabilities},
	{"15", RoleContra},
	{"1", RoleEquity},
	{"28", RoleContra},
	{"29", RoleContra},
	{"2", RoleFixedAssets},
	{"39", RoleContra},
	{"3", RoleInventory},
	{"40", RoleShortLiabilities},
	{"41", RoleReceivables},
	{"42", RoleShortLiabilities},
	{"43", RoleShortLiabilities},
	{"44", RoleShortLiabilities},
	{"4", RoleContra},
	{"59", RoleContra},
	{"5", RoleCash},
	{"6", RoleExpenses},
	{"7", RoleRevenue},
})

// usLayout follows the usual four digit US chart.
var usLayout = prefixLayout([]prefixRole{
	{"10", RoleCash},
	{"11", RoleReceivables},
	{"12", RoleReceivables},
	{"13", RoleInventory},
	{"14", RoleInventory},
	{"17", RoleContra},
	{"1", RoleFixedAssets},
	{"25", RoleLongLiabilities},
	{"26", RoleLongLiabilities},
	{"27", RoleLongLiabilities},
	{"2", RoleShortLiabilities},
	{"3", RoleEquity},
	{"4", RoleRevenue},
	{"5", RoleExpenses},
	{"6", RoleExpenses},
	{"7", RoleExpenses},
	{"8", RoleExpenses},
	{"9", RoleExpenses},
})

// LayoutFor returns the account layout of a standard.
func LayoutFor(s models.Standard) Layout {
	if s == models.StandardUSGAAP {
		return usLayout
	}
	return pcgLayout
}
