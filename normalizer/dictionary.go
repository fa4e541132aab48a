package normalizer

import "bitbucket.org/mmdatafocus/audit_backend/models"

// Canonical column names.
const (
	ColumnAccountNumber     = "account_number"
	ColumnAccountName       = "account_name"
	ColumnDebit             = "debit_amount"
	ColumnCredit            = "credit_amount"
	ColumnEntryDate         = "entry_date"
	ColumnDescription       = "description"
	ColumnPieceNumber       = "piece_number"
	ColumnJournalCode       = "journal_code"
	ColumnRecordedAt        = "recorded_at"
	ColumnCurrency          = "currency"
	ColumnCounterpartyPhone = "counterparty_phone"
)

// Dictionary maps a normalized source column name to its canonical name.
type Dictionary map[string]string

var synonyms = map[string][]string{
	ColumnAccountNumber:     {"compte", "numero_compte", "n_compte", "account", "code_compte", "comptenum", "no_compte"},
	ColumnAccountName:       {"libelle", "libelle_compte", "nom_compte", "intitule", "designation", "comptelib"},
	ColumnDebit:             {"debit", "montant_debit", "solde_debiteur"},
	ColumnCredit:            {"credit", "montant_credit", "solde_crediteur"},
	ColumnEntryDate:         {"date", "date_ecriture", "date_operation", "ecrituredate"},
	ColumnDescription:       {"libelle_ecriture", "objet", "motif", "ecriturelib"},
	ColumnPieceNumber:       {"piece", "numero_piece", "n_piece", "reference", "pieceref"},
	ColumnJournalCode:       {"journal", "code_journal", "type_journal", "journalcode"},
	ColumnRecordedAt:        {"date_saisie", "validdate"},
	ColumnCurrency:          {"devise", "idevise"},
	ColumnCounterpartyPhone: {"telephone", "tel", "phone", "telephone_tiers", "phone_number"},
}

// DefaultDictionary returns the French/English synonym table, FEC headers
// included.
func DefaultDictionary() Dictionary {
	d := Dictionary{}
	for canonical, names := range synonyms {
		d[canonical] = canonical
		for _, n := range names {
			d[n] = canonical
		}
	}
	return d
}

var requiredColumns = map[models.ImportType][]string{
	models.ImportTypeBalance: {ColumnAccountNumber, ColumnAccountName, ColumnDebit, ColumnCredit},
	models.ImportTypeJournal: {ColumnEntryDate, ColumnAccountNumber, ColumnDescription, ColumnDebit, ColumnCredit},
	models.ImportTypeGrandLivre: {ColumnEntryDate, ColumnAccountNumber, ColumnDescription, ColumnDebit, ColumnCredit,
		ColumnPieceNumber},
	models.ImportTypeFEC: {ColumnEntryDate, ColumnAccountNumber, ColumnDescription, ColumnDebit, ColumnCredit,
		ColumnPieceNumber, ColumnJournalCode},
}

// RequiredColumns lists the canonical columns an import type must carry.
func RequiredColumns(importType models.ImportType) ([]string, bool) {
	cols, ok := requiredColumns[importType]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cols...), true
}

// FEC headers as published by the French tax administration.
var fecHeaders = []string{
	"JournalCode", "JournalLib", "EcritureNum", "EcritureDate", "CompteNum", "CompteLib",
	"CompAuxNum", "CompAuxLib", "PieceRef", "PieceDate", "EcritureLib", "Debit", "Credit",
	"EcritureLet", "DateLet", "ValidDate", "Montantdevise", "Idevise",
}
