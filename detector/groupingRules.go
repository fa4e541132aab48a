package detector

import (
	"fmt"
	"math"
	"strings"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

type countedKey struct {
	key     string
	entries []int
}

func countBy(t Table, key func(Entry) string) []countedKey {
	var out []countedKey
	pos := make(map[string]int)
	for i, e := range t.Entries {
		k := key(e)
		if k == "" {
			continue
		}
		n, ok := pos[k]
		if !ok {
			n = len(out)
			pos[k] = n
			out = append(out, countedKey{key: k})
		}
		out[n].entries = append(out[n].entries, i)
	}
	return out
}

// zScores returns |count-mean|/std per key, nil when the spread is zero.
func zScores(groups []countedKey) []float64 {
	counts := make([]float64, len(groups))
	for i, g := range groups {
		counts[i] = float64(len(g.entries))
	}
	m, s := mean(counts), sampleStd(counts)
	if s == 0 {
		return nil
	}
	z := make([]float64, len(counts))
	for i, c := range counts {
		z[i] = math.Abs(c-m) / s
	}
	return z
}

func detectAccountActivity(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Account {
		return nil
	}
	groups := countBy(t, func(e Entry) string { return e.Account })
	z := zScores(groups)
	var out []SuspiciousEntry
	for n, g := range groups {
		if z == nil || z[n] <= th.AccountActivityZScore {
			continue
		}
		level := models.RiskLow
		if z[n] > th.AccountActivityEscalation {
			level = models.RiskMedium
		}
		for _, i := range g.entries {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionUnusualAccount,
				Level:       level,
				RiskScore:   math.Min(z[n]/5, 1),
				Description: fmt.Sprintf("Account %s has an unusual number of transactions (%d)", g.key, len(g.entries)),
				Evidence: map[string]any{
					"transaction_count": len(g.entries),
					"z_score":           round(z[n], 4),
				},
				Recommendations: suspicionAdvice[SuspicionUnusualAccount],
			})
		}
	}
	return out
}

// journal flags only the first few entries of an outlying journal
const journalSampleSize = 5

func detectJournalPatterns(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Journal {
		return nil
	}
	groups := countBy(t, func(e Entry) string { return e.Journal })
	z := zScores(groups)
	var out []SuspiciousEntry
	for n, g := range groups {
		if z == nil || z[n] <= th.JournalZScore {
			continue
		}
		level := models.RiskLow
		if z[n] > 3 {
			level = models.RiskMedium
		}
		sample := g.entries
		if len(sample) > journalSampleSize {
			sample = sample[:journalSampleSize]
		}
		for _, i := range sample {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionUnusualJournal,
				Level:       level,
				RiskScore:   math.Min(z[n]/5, 1),
				Description: fmt.Sprintf("Journal %s has an unusual volume of entries (%d)", g.key, len(g.entries)),
				Evidence: map[string]any{
					"journal":     g.key,
					"entry_count": len(g.entries),
					"z_score":     round(z[n], 4),
				},
				Recommendations: suspicionAdvice[SuspicionUnusualJournal],
			})
		}
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(a, b int) {
	if ra, rb := u.find(a), u.find(b); ra != rb {
		u[rb] = ra
	}
}

// detectEntityDuplication clusters near-identical labels. A cluster needs at
// least two label variants; a single label repeated is regular activity.
func detectEntityDuplication(t Table, th Thresholds) []SuspiciousEntry {
	if !t.Columns.Description {
		return nil
	}
	var labels []string
	var sets []map[string]bool
	entriesOf := make(map[string][]int)
	for i, e := range t.Entries {
		label := normalizeLabel(e.Description)
		if label == "" {
			continue
		}
		if _, ok := entriesOf[label]; !ok {
			ws := wordSet(label)
			if len(strings.Fields(label)) <= th.EntityMinWords {
				continue
			}
			labels = append(labels, label)
			sets = append(sets, ws)
		}
		entriesOf[label] = append(entriesOf[label], i)
	}

	uf := newUnionFind(len(labels))
	for a := 0; a < len(labels); a++ {
		for b := a + 1; b < len(labels); b++ {
			if jaccard(sets[a], sets[b]) > th.EntitySimilarity {
				uf.union(a, b)
			}
		}
	}
	clusters := make(map[int][]int)
	var roots []int
	for n := range labels {
		r := uf.find(n)
		if _, ok := clusters[r]; !ok {
			roots = append(roots, r)
		}
		clusters[r] = append(clusters[r], n)
	}

	var out []SuspiciousEntry
	for _, r := range roots {
		members := clusters[r]
		if len(members) < 2 {
			continue
		}
		var idx []int
		variants := make([]string, 0, len(members))
		for _, n := range members {
			variants = append(variants, labels[n])
			idx = append(idx, entriesOf[labels[n]]...)
		}
		if len(idx) < th.EntityMinGroupSize {
			continue
		}
		ids := make([]string, len(idx))
		for k, i := range idx {
			ids[k] = t.Entries[i].ID
		}
		for _, i := range idx {
			e := t.Entries[i]
			out = append(out, SuspiciousEntry{
				EntryID:     e.ID,
				Account:     e.Account,
				Type:        SuspicionVendorDuplication,
				Level:       models.RiskMedium,
				RiskScore:   0.5,
				Description: fmt.Sprintf("Label belongs to a group of %d near-identical names", len(variants)),
				Evidence: map[string]any{
					"variants":    variants,
					"group_size":  len(idx),
					"description": e.Description,
				},
				Recommendations: suspicionAdvice[SuspicionVendorDuplication],
				RelatedEntries:  others(ids, e.ID),
			})
		}
	}
	return out
}
