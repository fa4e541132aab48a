package compliance

// Finding is one problem a check reports. The engine turns findings into
// violations carrying the rule's identity and severity.
type Finding struct {
	Description     string
	AffectedEntries []string
	ExpectedValue   any
	ActualValue     any
	Remediation     []string
}

// Check is a validation routine. Aggregate checks judge a dataset as a
// whole and are skipped when a single entry is validated in real time.
type Check interface {
	Evaluate(data Dataset, params Parameters) ([]Finding, error)
	Aggregate() bool
}

func newRegistry() map[Kind]Check {
	return map[Kind]Check{
		KindChartOfAccounts:         chartOfAccountsCheck{},
		KindFairValue:               fairValueCheck{},
		KindRevenueRecognition:      revenueRecognitionCheck{},
		KindFinancialStatements:     requiredItemsCheck{statements: true},
		KindDepreciation:            depreciationCheck{},
		KindDisclosureNotes:         requiredItemsCheck{},
		KindBalanceEquation:         balanceEquationCheck{},
		KindAccountRanges:           accountRangesCheck{},
		KindMandatoryAccounts:       mandatoryAccountsCheck{},
		KindDepreciationConsistency: depreciationConsistencyCheck{},
		KindRevenueCutOff:           revenueCutOffCheck{},
		KindInventoryValuation:      inventoryValuationCheck{},
	}
}
