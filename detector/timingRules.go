package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

func detectDuplicates(t Table, th Thresholds) []SuspiciousEntry {
	present := 0
	for _, ok := range []bool{t.Columns.Amount, t.Columns.Account, t.Columns.Description} {
		if ok {
			present++
		}
	}
	if present < 2 || !t.Columns.Date {
		return nil
	}

	var keys []string
	groups := make(map[string][]int)
	for i, e := range t.Entries {
		key := fmt.Sprintf("%.2f|%s|%s", e.Amount, e.Account, normalizeLabel(e.Description))
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}

	var out []SuspiciousEntry
	for _, key := range keys {
		var dated []int
		for _, i := range groups[key] {
			if t.Entries[i].Date != nil {
				dated = append(dated, i)
			}
		}
		if len(dated) < 2 {
			continue
		}
		earliest, latest := *t.Entries[dated[0]].Date, *t.Entries[dated[0]].Date
		ids := make([]string, len(dated))
		for n, i := range dated {
			d := *t.Entries[i].Date
			if d.Before(earliest) {
				earliest = d
			}
			if d.After(latest) {
				latest = d
			}
			ids[n] = t.Entries[i].ID
		}
		span := latest.Sub(earliest).Hours()
		if span > th.DuplicateToleranceHours {
			continue
		}
		risk := 0.6
		if span <= th.DuplicateHighRiskHours {
			risk = 0.8
		}
		level := models.RiskMedium
		if risk > 0.7 {
			level = models.RiskHigh
		}
		for _, i := range dated {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionDuplicateEntry,
				Level:       level,
				RiskScore:   risk,
				Description: fmt.Sprintf("Possible duplicate, %d similar entries within %.1f hours", len(dated), span),
				Evidence: map[string]any{
					"duplicate_count": len(dated),
					"time_span_hours": round(span, 2),
					"amount":          e.Amount,
				},
				Recommendations: suspicionAdvice[SuspicionDuplicateEntry],
				RelatedEntries:  others(ids, e.ID),
			})
		}
	}
	return out
}

func detectTiming(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Date {
		return nil
	}
	lateHours := make(map[int]bool, len(th.UnusualTimingHours))
	for _, h := range th.UnusualTimingHours {
		lateHours[h] = true
	}
	var out []SuspiciousEntry
	for _, e := range t.Entries {
		if e.Date == nil {
			continue
		}
		if e.HasTime && lateHours[e.Date.Hour()] {
			out = append(out, SuspiciousEntry{
				EntryID:         e.ID,
				Account:         e.Account,
				Type:            SuspicionLateNightEntry,
				Level:           models.RiskMedium,
				RiskScore:       0.4,
				Description:     fmt.Sprintf("Entry recorded at %s", e.Date.Format("15:04")),
				Evidence:        map[string]any{"hour": e.Date.Hour()},
				Recommendations: suspicionAdvice[SuspicionLateNightEntry],
			})
		}
		if wd := e.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			out = append(out, SuspiciousEntry{
				EntryID:         e.ID,
				Account:         e.Account,
				Type:            SuspicionWeekendEntry,
				Level:           models.RiskLow,
				RiskScore:       0.2,
				Description:     fmt.Sprintf("Entry dated on a %s", wd),
				Evidence:        map[string]any{"weekday": wd.String()},
				Recommendations: suspicionAdvice[SuspicionWeekendEntry],
			})
		}
	}
	return out
}

// detectReversals pairs an entry with a later opposite entry on the same
// account. Each entry takes part in at most one pair.
func detectReversals(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Amount || !t.Columns.Date {
		return nil
	}
	var cands []int
	for i, e := range t.Entries {
		if e.Date != nil && e.Signed != 0 {
			cands = append(cands, i)
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		return t.Entries[cands[a]].Date.Before(*t.Entries[cands[b]].Date)
	})

	window := time.Duration(th.ReversalDaysWindow) * 24 * time.Hour
	used := make(map[int]bool)
	var out []SuspiciousEntry
	for a, i := range cands {
		if used[i] {
			continue
		}
		orig := t.Entries[i]
		for _, j := range cands[a+1:] {
			rev := t.Entries[j]
			dt := rev.Date.Sub(*orig.Date)
			if dt > window {
				break
			}
			if dt <= 0 || used[j] || (t.Columns.Account && orig.Account != rev.Account) {
				continue
			}
			if math.Abs(orig.Signed+rev.Signed) >= th.ReversalTolerance {
				continue
			}
			used[i], used[j] = true, true
			days := int(dt.Hours() / 24)
			risk := math.Max(0.3, 1-float64(days)/float64(th.ReversalDaysWindow))
			level := models.RiskMedium
			if days <= 1 {
				level = models.RiskHigh
			}
			evidence := map[string]any{
				"days_between":    days,
				"original_amount": orig.Signed,
				"reversal_amount": rev.Signed,
			}
			for _, pair := range [][2]Entry{{orig, rev}, {rev, orig}} {
				out = append(out, SuspiciousEntry{
					EntryID:         pair[0].ID,
					Account:         pair[0].Account,
					Type:            SuspicionReversalPattern,
					Level:           level,
					RiskScore:       risk,
					Description:     fmt.Sprintf("Entry reversed within %d days", days),
					Evidence:        evidence,
					Recommendations: suspicionAdvice[SuspicionReversalPattern],
					RelatedEntries:  []string{pair[1].ID},
				})
			}
			break
		}
	}
	return out
}
