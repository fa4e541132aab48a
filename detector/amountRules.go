package detector

import (
	"fmt"
	"math"
	"sort"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

// floating slack for tolerance comparisons on two-decimal amounts
const epsilon = 1e-9

func detectRoundAmounts(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Amount || len(t.Entries) == 0 {
		return nil
	}
	var rounds []int
	for i, e := range t.Entries {
		if e.Amount != 0 && isMultiple(e.Amount, 100) {
			rounds = append(rounds, i)
		}
	}
	share := float64(len(rounds)) / float64(len(t.Entries))
	if share <= th.RoundAmountPercentage {
		return nil
	}
	out := make([]SuspiciousEntry, 0, len(rounds))
	for _, i := range rounds {
		e := t.Entries[i]
		risk, multiple := 0.2, 100
		if isMultiple(e.Amount, 1000) {
			risk, multiple = 0.3, 1000
		}
		level := models.RiskLow
		if risk > 0.25 {
			level = models.RiskMedium
		}
		out = append(out, SuspiciousEntry{
			EntryID:     e.ID,
			Account:     e.Account,
			Type:        SuspicionRoundAmount,
			Level:       level,
			RiskScore:   risk,
			Description: fmt.Sprintf("Round amount %.2f (multiple of %d)", e.Amount, multiple),
			Evidence: map[string]any{
				"amount":           e.Amount,
				"multiple_of":      multiple,
				"round_percentage": round(share*100, 2),
			},
			Recommendations: suspicionAdvice[SuspicionRoundAmount],
		})
	}
	return out
}

func detectBenford(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Amount {
		return nil
	}
	var amounts []float64
	var idx []int
	for i, e := range t.Entries {
		if e.Amount > 0 {
			amounts = append(amounts, e.Amount)
			idx = append(idx, i)
		}
	}
	if len(amounts) < th.BenfordMinSample {
		return nil
	}
	analysis := AnalyzeBenford(amounts)
	var out []SuspiciousEntry
	for d := 1; d <= 9; d++ {
		dev := analysis.Deviation[d]
		if dev <= th.BenfordDeviationThreshold {
			continue
		}
		level := models.RiskLow
		if dev > 0.1 {
			level = models.RiskMedium
		}
		for k, i := range idx {
			if FirstDigit(amounts[k]) != d {
				continue
			}
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionBenfordViolation,
				Level:       level,
				RiskScore:   math.Min(dev*2, 1),
				Description: fmt.Sprintf("Leading digit %d is over or under represented", d),
				Evidence: map[string]any{
					"digit":              d,
					"observed_frequency": round(analysis.Observed[d], 4),
					"expected_frequency": round(BenfordExpected[d], 4),
					"deviation":          round(dev, 4),
					"chi_square":         round(analysis.ChiSquare, 4),
				},
				Recommendations: suspicionAdvice[SuspicionBenfordViolation],
			})
		}
	}
	return out
}

func detectSequential(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Amount {
		return nil
	}
	var idx []int
	for i, e := range t.Entries {
		if e.Amount != 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return t.Entries[idx[a]].Amount < t.Entries[idx[b]].Amount })

	var out []SuspiciousEntry
	start := 0
	for k := 1; k <= len(idx); k++ {
		if k < len(idx) && t.Entries[idx[k]].Amount-t.Entries[idx[k-1]].Amount <= th.SequenceTolerance+epsilon {
			continue
		}
		run := idx[start:k]
		start = k
		if len(run) < th.SequenceMinLength {
			continue
		}
		ids := make([]string, len(run))
		for n, i := range run {
			ids[n] = t.Entries[i].ID
		}
		level := models.RiskMedium
		if len(run) > th.SequenceHighLength {
			level = models.RiskHigh
		}
		first, last := t.Entries[run[0]].Amount, t.Entries[run[len(run)-1]].Amount
		for _, i := range run {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionSequential,
				Level:       level,
				RiskScore:   math.Min(float64(len(run))/20, 1),
				Description: fmt.Sprintf("Part of a run of %d nearly identical amounts", len(run)),
				Evidence: map[string]any{
					"sequence_length": len(run),
					"range_start":     first,
					"range_end":       last,
				},
				Recommendations: suspicionAdvice[SuspicionSequential],
				RelatedEntries:  others(ids, e.ID),
			})
		}
	}
	return out
}

func detectThresholdManipulation(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Amount {
		return nil
	}
	var out []SuspiciousEntry
	for _, limit := range th.WatchedThresholds {
		proximity := limit * th.ThresholdProximityPercentage
		var near []int
		window := 0
		for i, e := range t.Entries {
			if e.Amount >= limit-proximity*10 && e.Amount <= limit+proximity*10 {
				window++
			}
			if e.Amount >= limit-proximity && e.Amount < limit {
				near = append(near, i)
			}
		}
		if window == 0 || len(near) == 0 {
			continue
		}
		concentration := float64(len(near)) / float64(window)
		if concentration <= th.ThresholdConcentration {
			continue
		}
		for _, i := range near {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionJustBelowThreshold,
				Level:       models.RiskMedium,
				RiskScore:   concentration,
				Description: fmt.Sprintf("Amount %.2f sits just below the %.0f threshold", e.Amount, limit),
				Evidence: map[string]any{
					"amount":        e.Amount,
					"threshold":     limit,
					"distance":      round(limit-e.Amount, 2),
					"concentration": round(concentration, 4),
				},
				Recommendations: suspicionAdvice[SuspicionJustBelowThreshold],
			})
		}
	}
	return out
}
