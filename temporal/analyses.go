package temporal

import (
	"fmt"
	"math"
	"time"

	"bitbucket.org/mmdatafocus/audit_backend/models"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// std is the population deviation when sample is false.
func std(xs []float64, sample bool) float64 {
	n := float64(len(xs))
	if sample {
		n--
	}
	if n <= 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / n)
}

// linearFit is an ordinary least squares fit of ys against 0..n-1.
func linearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	xMean := (n - 1) / 2
	yMean := mean(ys)
	var sxx, sxy float64
	for i, y := range ys {
		dx := float64(i) - xMean
		sxx += dx * dx
		sxy += dx * (y - yMean)
	}
	if sxx == 0 {
		return 0, yMean
	}
	slope = sxy / sxx
	return slope, yMean - slope*xMean
}

func accounts(p Point) []string {
	if p.Account == "" {
		return []string{}
	}
	return []string{p.Account}
}

func analyzeTrend(s Series, th Thresholds, _ time.Time) []Anomaly {
	if !s.HasAmount || len(s.Points) < th.MinSeriesLength {
		return nil
	}
	m := s.byMonth()
	if len(m.sums) < 3 {
		return nil
	}
	slope, intercept := linearFit(m.sums)
	var out []Anomaly
	for i, actual := range m.sums {
		expected := slope*float64(i) + intercept
		if expected == 0 {
			continue
		}
		deviation := math.Abs(actual-expected) / math.Abs(expected)
		if deviation <= th.TrendDeviation {
			continue
		}
		severity := models.RiskMedium
		if deviation > 0.5 {
			severity = models.RiskHigh
		}
		out = append(out, Anomaly{
			Type:          AnomalyTrendBreak,
			Severity:      severity,
			Description:   fmt.Sprintf("Trend break in %s", m.keys[i]),
			Period:        m.keys[i],
			ExpectedValue: ptr(expected),
			ActualValue:   ptr(actual),
			Confidence:    math.Min(deviation, 1),
			Recommendations: []string{
				"Check the entries booked during this period",
				"Look for exceptional events in the month",
			},
			AffectedAccounts: []string{},
		})
	}
	return out
}

// analyzeSeasonality compares each amount with the other amounts of the
// same calendar month.
func analyzeSeasonality(s Series, th Thresholds, _ time.Time) []Anomaly {
	if !s.HasAmount || len(s.Points) < th.MinSeasonalLength {
		return nil
	}
	var byMonth [13][]Point
	for _, p := range s.Points {
		byMonth[p.Date.Month()] = append(byMonth[p.Date.Month()], p)
	}
	var out []Anomaly
	for month := 1; month <= 12; month++ {
		points := byMonth[month]
		if len(points) < 2 {
			continue
		}
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Amount
		}
		m, sd := mean(values), std(values, true)
		if sd == 0 {
			continue
		}
		for _, p := range points {
			z := math.Abs(p.Amount-m) / sd
			if z <= th.SeasonalDeviation {
				continue
			}
			severity := models.RiskMedium
			if z > 2 {
				severity = models.RiskHigh
			}
			out = append(out, Anomaly{
				Type:          AnomalySeasonalDeviation,
				Severity:      severity,
				Description:   fmt.Sprintf("Seasonal deviation in month %02d", month),
				Period:        fmt.Sprintf("month %02d", month),
				ExpectedValue: ptr(m),
				ActualValue:   ptr(p.Amount),
				Confidence:    math.Min(z/3, 1),
				Recommendations: []string{
					"Check whether the activity justifies this variation",
					"Compare with the same month of previous years",
				},
				AffectedAccounts: accounts(p),
			})
		}
	}
	return out
}

func detectOutliers(s Series, th Thresholds, _ time.Time) []Anomaly {
	if !s.HasAmount || len(s.Points) < th.MinSeriesLength {
		return nil
	}
	values := s.amounts()
	m, sd := mean(values), std(values, false)
	if sd == 0 {
		return nil
	}
	var out []Anomaly
	for _, p := range s.Points {
		z := math.Abs(p.Amount-m) / sd
		if z <= th.OutlierZScore {
			continue
		}
		severity := models.RiskMedium
		switch {
		case z > 3:
			severity = models.RiskCritical
		case z > 2.5:
			severity = models.RiskHigh
		}
		out = append(out, Anomaly{
			Type:          AnomalyOutlier,
			Severity:      severity,
			Description:   fmt.Sprintf("Outlying amount %.2f", p.Amount),
			Period:        p.Date.Format("2006-01-02"),
			ExpectedValue: ptr(m),
			ActualValue:   ptr(p.Amount),
			Confidence:    math.Min(z/3, 1),
			Recommendations: []string{
				"Check how this entry was keyed",
				"Vouch the amount to its supporting document",
			},
			AffectedAccounts: accounts(p),
		})
	}
	return out
}

// minimum number of intervals for a frequency analysis
const minIntervals = 6

func analyzeFrequency(s Series, _ Thresholds, _ time.Time) []Anomaly {
	if len(s.Points) < minIntervals+1 {
		return nil
	}
	gaps := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		gaps = append(gaps, math.Floor(s.Points[i].Date.Sub(s.Points[i-1].Date).Hours()/24))
	}
	m, sd := mean(gaps), std(gaps, true)
	if sd == 0 {
		return nil
	}
	var out []Anomaly
	for i, gap := range gaps {
		z := math.Abs(gap-m) / sd
		if z <= 2 || gap <= m*2 {
			continue
		}
		severity := models.RiskMedium
		if gap >= m*5 {
			severity = models.RiskHigh
		}
		out = append(out, Anomaly{
			Type:          AnomalyInconsistentFrequency,
			Severity:      severity,
			Description:   fmt.Sprintf("Unusual interval of %.0f days between entries", gap),
			Period:        s.Points[i+1].Date.Format("2006-01-02"),
			ExpectedValue: ptr(m),
			ActualValue:   ptr(gap),
			Confidence:    math.Min(z/3, 1),
			Recommendations: []string{
				"Check whether entries are missing in this period",
				"Review how regularly the books are kept",
			},
			AffectedAccounts: []string{},
		})
	}
	return out
}

func weekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// detectGaps reports Monday to Sunday weeks without any entry.
func detectGaps(s Series, _ Thresholds, _ time.Time) []Anomaly {
	if len(s.Points) < 2 {
		return nil
	}
	seen := make(map[time.Time]bool)
	for _, p := range s.Points {
		seen[weekStart(p.Date)] = true
	}
	last := weekStart(s.Points[len(s.Points)-1].Date)
	var out []Anomaly
	for w := weekStart(s.Points[0].Date); !w.After(last); w = w.AddDate(0, 0, 7) {
		if seen[w] {
			continue
		}
		label := w.Format("2006-01-02") + "/" + w.AddDate(0, 0, 6).Format("2006-01-02")
		out = append(out, Anomaly{
			Type:        AnomalyMissingPeriod,
			Severity:    models.RiskMedium,
			Description: fmt.Sprintf("No entry during the week %s", label),
			Period:      label,
			Confidence:  1,
			Recommendations: []string{
				"Check whether entries were expected this week",
				"Review the completeness of the books",
			},
			AffectedAccounts: []string{},
		})
	}
	return out
}

func analyzeRetroactive(s Series, th Thresholds, now time.Time) []Anomaly {
	var out []Anomaly
	for _, p := range s.Points {
		if p.Recorded == nil {
			continue
		}
		days := int(p.Recorded.Sub(p.Date).Hours() / 24)
		if days <= th.RetroactiveDays {
			continue
		}
		severity := models.RiskMedium
		if days > 90 {
			severity = models.RiskHigh
		}
		out = append(out, Anomaly{
			Type:        AnomalyRetroactiveEntry,
			Severity:    severity,
			Description: fmt.Sprintf("Entry recorded %d days after its date", days),
			Period:      p.Date.Format("2006-01-02"),
			ActualValue: ptr(float64(days)),
			Confidence:  1,
			Recommendations: []string{
				"Check the justification of this back-dated entry",
				"Make sure prior periods reflect its impact",
			},
			AffectedAccounts: accounts(p),
		})
	}
	for _, p := range s.Points {
		if !p.Date.After(now) {
			continue
		}
		days := int(p.Date.Sub(now).Hours() / 24)
		severity := models.RiskMedium
		if days > 30 {
			severity = models.RiskHigh
		}
		out = append(out, Anomaly{
			Type:        AnomalyFutureEntry,
			Severity:    severity,
			Description: fmt.Sprintf("Entry dated %d days in the future", days),
			Period:      p.Date.Format("2006-01-02"),
			ActualValue: ptr(float64(days)),
			Confidence:  1,
			Recommendations: []string{
				"Check the date of this entry",
				"Correct it if it is a keying error",
			},
			AffectedAccounts: accounts(p),
		})
	}
	return out
}

func calculateTrends(s Series) Trends {
	var t Trends
	if !s.HasAmount || len(s.Points) < 2 {
		return t
	}
	m := s.byMonth()
	if len(m.sums) > 1 {
		slope, _ := linearFit(m.sums)
		direction := "stable"
		if slope > 0 {
			direction = "increasing"
		} else if slope < 0 {
			direction = "decreasing"
		}
		t.MonthlyTrend = &MonthlyTrend{Slope: slope, Direction: direction, Strength: math.Abs(slope) / (mean(m.sums) + 1e-10)}
	}
	if len(m.sums) > 2 {
		c := std(m.sums, false) / (mean(m.sums) + 1e-10)
		level := models.RiskLow
		if c > 0.5 {
			level = models.RiskHigh
		} else if c > 0.2 {
			level = models.RiskMedium
		}
		t.Volatility = &Volatility{Coefficient: c, Level: level}
	}
	return t
}

// minimum number of records for monthly patterns
const minPatternRecords = 13

func calculateSeasonalPatterns(s Series) SeasonalPatterns {
	var p SeasonalPatterns
	if !s.HasAmount || len(s.Points) < minPatternRecords {
		return p
	}
	var sums [13]float64
	var counts [13]int
	for _, pt := range s.Points {
		sums[pt.Date.Month()] += pt.Amount
		counts[pt.Date.Month()]++
	}
	p.MonthlyPattern = make(map[int]float64)
	for month := 1; month <= 12; month++ {
		if counts[month] == 0 {
			continue
		}
		avg := sums[month] / float64(counts[month])
		p.MonthlyPattern[month] = avg
		if p.PeakMonth == 0 || avg > p.MonthlyPattern[p.PeakMonth] {
			p.PeakMonth = month
		}
		if p.LowMonth == 0 || avg < p.MonthlyPattern[p.LowMonth] {
			p.LowMonth = month
		}
	}
	p.SeasonalityRatio = p.MonthlyPattern[p.PeakMonth] / (p.MonthlyPattern[p.LowMonth] + 1e-10)
	return p
}
