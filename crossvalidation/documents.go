package crossvalidation

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

type DocumentType string

const (
	DocumentInvoice       DocumentType = "FACTURE"
	DocumentPayment       DocumentType = "PAIEMENT"
	DocumentBalance       DocumentType = "BALANCE"
	DocumentGeneralLedger DocumentType = "GRAND_LIVRE"
	DocumentJournal       DocumentType = "JOURNAL"
	DocumentFEC           DocumentType = "FEC"
)

// Document is one submitted file. Data is a single record for invoices and
// payments and a list of records for ledgers.
type Document struct {
	Type     DocumentType `json:"type" binding:"required"`
	FileName string       `json:"file_name"`
	Data     any          `json:"data"`
}

func (d Document) name(fallback string) string {
	if d.FileName != "" {
		return d.FileName
	}
	return fallback
}

// record returns Data when it is a single record.
func (d Document) record() (map[string]any, bool) {
	m, ok := d.Data.(map[string]any)
	return m, ok
}

// records returns Data when it is a list of records.
func (d Document) records() ([]map[string]any, bool) {
	switch v := d.Data.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
	return nil, false
}

type invoice struct {
	Number string          `mapstructure:"numero_facture"`
	Total  decimal.Decimal `mapstructure:"montant_ttc"`
	Date   string          `mapstructure:"date"`
}

type payment struct {
	Reference string          `mapstructure:"reference"`
	Amount    decimal.Decimal `mapstructure:"montant"`
	Date      string          `mapstructure:"date"`
}

// line is a balance, ledger, journal or FEC row.
type line struct {
	Account string          `mapstructure:"compte"`
	Debit   decimal.Decimal `mapstructure:"debit"`
	Credit  decimal.Decimal `mapstructure:"credit"`
	Balance decimal.Decimal `mapstructure:"solde"`
}

var fieldAliases = map[string][]string{
	"numero_facture": {"numero_facture", "invoice_number", "numero", "facture"},
	"montant_ttc":    {"montant_ttc", "total_ttc", "amount_due", "total"},
	"reference":      {"reference", "ref", "payment_reference", "libelle"},
	"montant":        {"montant", "amount"},
	"date":           {"date", "date_facture", "date_paiement", "EcritureDate"},
	"compte":         {"compte", "account", "account_number", "CompteNum"},
	"debit":          {"debit", "debit_amount", "Debit"},
	"credit":         {"credit", "credit_amount", "Credit"},
	"solde":          {"solde", "balance", "Solde"},
}

// canonical renames the first alias present in raw for every field.
func canonical(raw map[string]any) map[string]any {
	out := make(map[string]any, len(fieldAliases))
	for field, aliases := range fieldAliases {
		for _, a := range aliases {
			if v, ok := raw[a]; ok && v != nil {
				out[field] = v
				break
			}
		}
	}
	return out
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// amountHook parses amounts with the French-tolerant cleaner and rounds them
// half up to cents.
func amountHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	return utils.RoundHalfUp(utils.CleanAmount(data), 2), nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       amountHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(canonical(raw))
}

func decodeLines(rows []map[string]any) ([]line, error) {
	out := make([]line, 0, len(rows))
	for _, r := range rows {
		var l line
		if err := decode(r, &l); err != nil {
			return nil, err
		}
		l.Account = utils.CleanAccountNumber(l.Account)
		out = append(out, l)
	}
	return out, nil
}

func matchesReference(number, reference string) bool {
	number, reference = strings.TrimSpace(number), strings.TrimSpace(reference)
	if number == "" || reference == "" {
		return false
	}
	return strings.Contains(reference, number) || strings.Contains(number, reference)
}
