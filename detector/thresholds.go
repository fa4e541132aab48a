package detector

import "bitbucket.org/mmdatafocus/audit_backend/utils"

// Thresholds gathers every tunable number the detectors use. A copy is
// handed to each detector; nothing mutates it during a run.
type Thresholds struct {
	RoundAmountPercentage        float64   `json:"round_amount_percentage" validate:"gt=0,lte=1"`
	DuplicateToleranceHours      float64   `json:"duplicate_tolerance_hours" validate:"gt=0"`
	DuplicateHighRiskHours       float64   `json:"duplicate_high_risk_hours" validate:"gte=0"`
	UnusualTimingHours           []int     `json:"unusual_timing_hours" validate:"dive,gte=0,lte=23"`
	BenfordMinSample             int       `json:"benford_min_sample" validate:"gte=10"`
	BenfordDeviationThreshold    float64   `json:"benford_deviation_threshold" validate:"gt=0,lte=1"`
	AccountActivityZScore        float64   `json:"account_activity_zscore" validate:"gt=0"`
	AccountActivityEscalation    float64   `json:"account_activity_escalation" validate:"gt=0"`
	SequenceMinLength            int       `json:"sequence_min_length" validate:"gte=2"`
	SequenceHighLength           int       `json:"sequence_high_length" validate:"gte=2"`
	SequenceTolerance            float64   `json:"sequence_tolerance" validate:"gte=0"`
	ThresholdProximityPercentage float64   `json:"threshold_proximity_percentage" validate:"gt=0,lt=1"`
	ThresholdConcentration       float64   `json:"threshold_concentration" validate:"gt=0,lte=1"`
	WatchedThresholds            []float64 `json:"watched_thresholds" validate:"dive,gt=0"`
	JournalZScore                float64   `json:"journal_zscore" validate:"gt=0"`
	ReversalDaysWindow           int       `json:"reversal_days_window" validate:"gt=0"`
	ReversalTolerance            float64   `json:"reversal_tolerance" validate:"gte=0"`
	EntitySimilarity             float64   `json:"entity_similarity" validate:"gt=0,lte=1"`
	EntityMinWords               int       `json:"entity_min_words" validate:"gte=1"`
	EntityMinGroupSize           int       `json:"entity_min_group_size" validate:"gte=2"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		RoundAmountPercentage:        0.15,
		DuplicateToleranceHours:      24,
		DuplicateHighRiskHours:       1,
		UnusualTimingHours:           []int{22, 23, 0, 1, 2, 3, 4, 5},
		BenfordMinSample:             50,
		BenfordDeviationThreshold:    0.05,
		AccountActivityZScore:        2.0,
		AccountActivityEscalation:    3.0,
		SequenceMinLength:            5,
		SequenceHighLength:           10,
		SequenceTolerance:            0.01,
		ThresholdProximityPercentage: 0.05,
		ThresholdConcentration:       0.5,
		WatchedThresholds:            []float64{1000, 5000, 10000, 50000, 100000},
		JournalZScore:                2.5,
		ReversalDaysWindow:           7,
		ReversalTolerance:            0.01,
		EntitySimilarity:             0.8,
		EntityMinWords:               2,
		EntityMinGroupSize:           3,
	}
}

func (t Thresholds) Validate() error {
	return utils.ValidateStruct(t)
}

func (t Thresholds) clone() Thresholds {
	t.UnusualTimingHours = append([]int(nil), t.UnusualTimingHours...)
	t.WatchedThresholds = append([]float64(nil), t.WatchedThresholds...)
	return t
}
