package services

import (
	"cmp"
	"math"
	"slices"
	"time"

	"moneymind/internal/core"
)

// PatternReport holds recurring groups plus transactions that could not be
// considered.
type PatternReport struct {
	Patterns []core.PatternMatch
	Failures []core.ItemError
}

// PatternDetector finds recurring payments such as subscriptions and bills.
// It is stateless; every call recomputes from its input.
type PatternDetector struct {
	cfg PatternConfig
}

func NewPatternDetector(cfg PatternConfig) *PatternDetector {
	if cfg.MinOccurrences < 2 {
		cfg.MinOccurrences = DefaultMinOccurrences
	}
	return &PatternDetector{cfg: cfg}
}

type patternGroup struct {
	key     string
	members []core.Transaction
}

// DetectRecurring groups transactions by normalized merchant (or
// description) and currency. A group is recurring when at least
// MinOccurrences of its members have amounts within the tolerance band.
// Output is sorted by key.
func (d *PatternDetector) DetectRecurring(txns []core.Transaction) PatternReport {
	var report PatternReport
	groups := map[string]*patternGroup{}
	var keys []string
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			report.Failures = append(report.Failures, core.ItemError{Kind: "transaction", ID: t.ID, Err: err})
			continue
		}
		label := core.NormalizeText(t.Label())
		if label == "" {
			continue
		}
		key := label + "|" + t.Amount.Currency
		g, ok := groups[key]
		if !ok {
			g = &patternGroup{key: key}
			groups[key] = g
			keys = append(keys, key)
		}
		g.members = append(g.members, t)
	}
	slices.Sort(keys)

	for _, key := range keys {
		g := groups[key]
		if len(g.members) < d.cfg.MinOccurrences {
			continue
		}
		cluster := d.bestCluster(g.members)
		if len(cluster) < d.cfg.MinOccurrences {
			continue
		}
		report.Patterns = append(report.Patterns, d.buildMatch(key, cluster))
	}
	return report
}

// bestCluster returns the largest subset whose amounts span no more than
// the tolerance band. Ties go to the lowest amounts.
func (d *PatternDetector) bestCluster(members []core.Transaction) []core.Transaction {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		return cmp.Compare(a.Amount.Amount, b.Amount.Amount)
	})

	amounts := make([]float64, len(sorted))
	for i, t := range sorted {
		amounts[i] = math.Abs(float64(t.Amount.Amount))
	}
	band := d.cfg.AmountTolerance + int64(math.Round(median(amounts)*d.cfg.TolerancePercent/100))

	bestStart, bestLen := 0, 0
	start := 0
	for end := range sorted {
		for sorted[end].Amount.Amount-sorted[start].Amount.Amount > band {
			start++
		}
		if n := end - start + 1; n > bestLen {
			bestStart, bestLen = start, n
		}
	}
	return sorted[bestStart : bestStart+bestLen]
}

func (d *PatternDetector) buildMatch(key string, cluster []core.Transaction) core.PatternMatch {
	byDate := slices.Clone(cluster)
	slices.SortStableFunc(byDate, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	ids := make([]string, len(byDate))
	amounts := make([]float64, len(byDate))
	for i, t := range byDate {
		ids[i] = t.ID
		amounts[i] = float64(t.Amount.Amount)
	}
	gaps := make([]float64, 0, len(byDate)-1)
	for i := 1; i < len(byDate); i++ {
		gaps = append(gaps, byDate[i].Date.Sub(byDate[i-1].Date.Time).Hours()/24)
	}

	first, last := byDate[0], byDate[len(byDate)-1]
	match := core.PatternMatch{
		Key:                       key,
		RepresentativeDescription: last.Label(),
		MatchedTransactionIDs:     ids,
		Amount:                    core.NewMoney(int64(math.Round(median(amounts))), last.Amount.Currency),
		Cadence:                   core.CadenceIrregular,
		LastSeen:                  last.Date,
		CategoryID:                dominantCategory(byDate),
	}

	medGap, gapSpread := robustSpread(gaps)
	interval := time.Duration(medGap * float64(day))
	match.IntervalEstimate = &interval
	match.Cadence = ClassifyCadence(interval)
	if s, err := GetCadenceStrategy(match.Cadence); err == nil {
		match.NextExpected = s.Next(last.Date, first.Date)
	}

	regularity := 0.0
	if medGap > 0 {
		regularity = max(0, 1-gapSpread/medGap)
	}
	volume := min(1, float64(len(byDate))/6)
	match.Confidence = round2(0.5*regularity + 0.5*volume)
	return match
}

// dominantCategory is the most frequent assigned category, ties by ID.
func dominantCategory(txns []core.Transaction) string {
	counts := map[string]int{}
	for _, t := range txns {
		if t.CategoryID != "" {
			counts[t.CategoryID]++
		}
	}
	best, bestN := "", 0
	for id, n := range counts {
		if n > bestN || (n == bestN && id < best) {
			best, bestN = id, n
		}
	}
	return best
}
