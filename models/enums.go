package models

import (
	"errors"
	"strings"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Level orders severities: info < warning < error < critical.
func (s Severity) Level() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

func (s Severity) Valid() bool { return s.Level() > 0 }

// convert input to enum type
func (s *Severity) UnmarshalText(b []byte) error {
	switch Severity(strings.ToLower(strings.TrimSpace(string(b)))) {
	case SeverityInfo:
		*s = SeverityInfo
	case SeverityWarning:
		*s = SeverityWarning
	case SeverityError:
		*s = SeverityError
	case SeverityCritical:
		*s = SeverityCritical
	default:
		return errors.New("invalid severity")
	}
	return nil
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) Level() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// Score is the weight used when summing anomalies into a risk level.
func (r RiskLevel) Score() int {
	switch r {
	case RiskMedium:
		return 3
	case RiskHigh:
		return 5
	case RiskCritical:
		return 10
	}
	return 1
}

func (r *RiskLevel) UnmarshalText(b []byte) error {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(string(b)))) {
	case RiskLow:
		*r = RiskLow
	case RiskMedium:
		*r = RiskMedium
	case RiskHigh:
		*r = RiskHigh
	case RiskCritical:
		*r = RiskCritical
	default:
		return errors.New("invalid risk level")
	}
	return nil
}

// RiskLevelFromScore buckets a summed score: >=20 critical, >=10 high,
// >=5 medium, else low.
func RiskLevelFromScore(total int) RiskLevel {
	switch {
	case total >= 20:
		return RiskCritical
	case total >= 10:
		return RiskHigh
	case total >= 5:
		return RiskMedium
	}
	return RiskLow
}

type Standard string

const (
	StandardIFRS       Standard = "ifrs"
	StandardSYSCOHADA  Standard = "syscohada"
	StandardFrenchGAAP Standard = "french_gaap"
	StandardUSGAAP     Standard = "us_gaap"
	StandardOHADA      Standard = "ohada"
)

var AllStandards = []Standard{StandardIFRS, StandardSYSCOHADA, StandardFrenchGAAP, StandardUSGAAP, StandardOHADA}

// ParseStandard accepts the canonical names plus the usual aliases
// ("pcg", "us-gaap", "SYSCOHADA").
func ParseStandard(s string) (Standard, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "ifrs":
		return StandardIFRS, nil
	case "syscohada":
		return StandardSYSCOHADA, nil
	case "french_gaap", "pcg", "fr_gaap":
		return StandardFrenchGAAP, nil
	case "us_gaap", "usgaap":
		return StandardUSGAAP, nil
	case "ohada":
		return StandardOHADA, nil
	}
	return "", errors.New("invalid accounting standard")
}

func (s *Standard) UnmarshalText(b []byte) error {
	v, err := ParseStandard(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type ImportType string

const (
	ImportTypeBalance    ImportType = "balance"
	ImportTypeJournal    ImportType = "journal"
	ImportTypeGrandLivre ImportType = "grand_livre"
	ImportTypeFEC        ImportType = "fec"
)

func ParseImportType(s string) (ImportType, error) {
	switch ImportType(strings.ToLower(strings.TrimSpace(s))) {
	case ImportTypeBalance:
		return ImportTypeBalance, nil
	case ImportTypeJournal:
		return ImportTypeJournal, nil
	case ImportTypeGrandLivre, "general_ledger", "ledger":
		return ImportTypeGrandLivre, nil
	case ImportTypeFEC:
		return ImportTypeFEC, nil
	}
	return "", errors.New("invalid import type")
}

func (t *ImportType) UnmarshalText(b []byte) error {
	v, err := ParseImportType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

type ValidationStatus string

const (
	ValidationStatusValid   ValidationStatus = "valid"
	ValidationStatusWarning ValidationStatus = "warning"
	ValidationStatusError   ValidationStatus = "error"
)
