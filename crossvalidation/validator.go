// Package crossvalidation reconciles independently submitted accounting
// documents: invoices against payments, balances against ledgers, journals
// and FEC exports.
package crossvalidation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

// Tolerance is the largest difference treated as equal, one cent.
var Tolerance = decimal.New(1, -2)

type ValidationResult struct {
	Level         models.Severity `json:"level"`
	Message       string          `json:"message"`
	Field         string          `json:"field"`
	ExpectedValue any             `json:"expected_value,omitempty"`
	ActualValue   any             `json:"actual_value,omitempty"`
	Documents     []string        `json:"documents"`
	Confidence    float64         `json:"confidence"`
	Hint          string          `json:"hint,omitempty"`
}

type Summary struct {
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Warnings    int `json:"warnings"`
	Errors      int `json:"errors"`
	Critical    int `json:"critical"`
}

type Result struct {
	Success         bool               `json:"success"`
	Error           string             `json:"error,omitempty"`
	Summary         Summary            `json:"validation_summary"`
	Validations     []ValidationResult `json:"validations"`
	Recommendations []string           `json:"recommendations"`
	ProcessingTime  time.Duration      `json:"processing_time"`
}

type PairKind string

const (
	PairInvoicePayment PairKind = "FACTURE_PAIEMENT"
	PairBalanceLedger  PairKind = "BALANCE_GRAND_LIVRE"
	PairJournalBalance PairKind = "JOURNAL_BALANCE"
	PairFECBalance     PairKind = "FEC_BALANCE"
)

type Rule struct {
	Kind           PairKind `json:"kind"`
	Description    string   `json:"description"`
	RequiredFields []string `json:"required_fields"`
	Tolerance      float64  `json:"tolerance_amount"`
}

var rules = []Rule{
	{PairInvoicePayment, "Invoice totals against matching payments", []string{"numero_facture", "montant_ttc", "reference", "montant"}, 0.01},
	{PairBalanceLedger, "Balance account balances against the general ledger", []string{"compte", "solde", "debit", "credit"}, 0.01},
	{PairJournalBalance, "Journal totals against the balance", []string{"debit", "credit"}, 0.01},
	{PairFECBalance, "Balance account balances against the FEC export", []string{"CompteNum", "Debit", "Credit", "solde"}, 0.01},
}

// Rules lists the supported document pairings.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

func validResult(v ValidationResult) ValidationResult {
	if v.Confidence == 0 {
		v.Confidence = 1
	}
	if v.Documents == nil {
		v.Documents = []string{}
	}
	return v
}

// ValidateDocuments runs every pairing the submitted types allow plus the
// generic date and amount checks. Success means no critical finding.
func ValidateDocuments(docs []Document) Result {
	started := time.Now()
	if len(docs) == 0 {
		return Result{Error: "no documents to validate", Validations: []ValidationResult{}, Recommendations: []string{}}
	}
	byType := make(map[DocumentType][]Document)
	for _, d := range docs {
		byType[d.Type] = append(byType[d.Type], d)
	}

	var found []ValidationResult
	var decodeErrs []error
	collect := func(v []ValidationResult, err error) {
		found = append(found, v...)
		if err != nil {
			decodeErrs = append(decodeErrs, err)
		}
	}
	if len(byType[DocumentInvoice]) > 0 && len(byType[DocumentPayment]) > 0 {
		collect(validateInvoicePayment(byType[DocumentInvoice], byType[DocumentPayment]))
	}
	if len(byType[DocumentBalance]) > 0 && len(byType[DocumentGeneralLedger]) > 0 {
		collect(validateBalanceLedger(byType[DocumentBalance], byType[DocumentGeneralLedger], "solde", "Grand Livre"))
	}
	if len(byType[DocumentJournal]) > 0 && len(byType[DocumentBalance]) > 0 {
		collect(validateJournalBalance(byType[DocumentJournal], byType[DocumentBalance]))
	}
	if len(byType[DocumentFEC]) > 0 && len(byType[DocumentBalance]) > 0 {
		collect(validateBalanceLedger(byType[DocumentBalance], byType[DocumentFEC], "solde_fec", "FEC"))
	}
	found = append(found, genericValidations(docs)...)
	for _, err := range decodeErrs {
		found = append(found, ValidationResult{Level: models.SeverityWarning, Message: err.Error(), Field: "data"})
	}

	out := make([]ValidationResult, 0, len(found))
	for _, v := range found {
		out = append(out, validResult(v))
	}
	summary := summarize(out)
	return Result{
		Success:         summary.Critical == 0,
		Summary:         summary,
		Validations:     out,
		Recommendations: recommendations(out),
		ProcessingTime:  time.Since(started),
	}
}

// ValidateDocumentPair validates two documents for one declared pairing.
func ValidateDocumentPair(a, b Document, kind PairKind) Result {
	for _, r := range rules {
		if r.Kind == kind {
			return ValidateDocuments([]Document{a, b})
		}
	}
	return Result{Error: fmt.Sprintf("unsupported validation type %q", kind), Validations: []ValidationResult{}, Recommendations: []string{}}
}

func summarize(vs []ValidationResult) Summary {
	s := Summary{TotalChecks: len(vs)}
	for _, v := range vs {
		switch v.Level {
		case models.SeverityInfo:
			s.Passed++
		case models.SeverityWarning:
			s.Warnings++
		case models.SeverityError:
			s.Errors++
		case models.SeverityCritical:
			s.Critical++
		}
	}
	return s
}

var fieldAdvice = []struct {
	field  string
	advice string
}{
	{"montant", "Check how amounts were keyed and that every document uses the same decimal format"},
	{"solde", "Check balance computations and their consistency across documents"},
	{"solde_fec", "Reconcile the FEC export with the balance account by account"},
	{"equilibre_journaux", "Fix the debit/credit imbalance in the journals"},
	{"total_debit", "Reconcile journal totals with the balance"},
	{"total_credit", "Reconcile journal totals with the balance"},
	{"coherence_dates", "Check that the documents cover consistent dates"},
	{"paiement_correspondant", "Match every invoice with its payment"},
}

func recommendations(vs []ValidationResult) []string {
	flagged := make(map[string]bool)
	for _, v := range vs {
		if v.Level != models.SeverityInfo {
			flagged[v.Field] = true
		}
	}
	out := []string{}
	seen := make(map[string]bool)
	for _, fa := range fieldAdvice {
		if flagged[fa.field] && !seen[fa.advice] {
			seen[fa.advice] = true
			out = append(out, fa.advice)
		}
	}
	if len(out) == 0 {
		out = append(out, "No specific recommendation, documents are consistent overall")
	}
	return out
}
