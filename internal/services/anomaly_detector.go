package services

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"moneymind/internal/core"
)

// SkipInsufficientSample marks a category with too little history to judge.
const SkipInsufficientSample = "insufficient_sample"

// SkippedCategory records a category the detector did not evaluate.
type SkippedCategory struct {
	CategoryID string             `json:"category_id"`
	Currency   string             `json:"currency"`
	Metric     core.AnomalyMetric `json:"metric"`
	SampleSize int                `json:"sample_size"`
	Reason     string             `json:"reason"`
}

type AnomalyReport struct {
	Anomalies []core.Anomaly
	Skipped   []SkippedCategory
	Failures  []core.ItemError
}

// AnomalyDetector flags expenses that deviate from their category's history
// by more than SpreadMultiple robust spreads (scaled MAD around the median).
type AnomalyDetector struct {
	cfg AnomalyConfig
}

func NewAnomalyDetector(cfg AnomalyConfig) *AnomalyDetector {
	if cfg.MinSampleSize < 2 {
		cfg.MinSampleSize = DefaultMinSampleSize
	}
	if cfg.SpreadMultiple <= 0 {
		cfg.SpreadMultiple = DefaultSpreadMultiple
	}
	return &AnomalyDetector{cfg: cfg}
}

type categoryKey struct {
	categoryID string
	currency   string
}

// DetectAnomalies evaluates categorized expenses per (category, currency).
// Two metrics are checked: single transaction amounts, and monthly category
// totals (months without spend between the first and last active month
// count as zero). Only upward monthly spikes are reported. Results are
// ordered by category, currency, metric, then date.
func (d *AnomalyDetector) DetectAnomalies(txns []core.Transaction) AnomalyReport {
	var report AnomalyReport
	groups := map[categoryKey][]core.Transaction{}
	var keys []categoryKey
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			report.Failures = append(report.Failures, core.ItemError{Kind: "transaction", ID: t.ID, Err: err})
			continue
		}
		if !t.IsExpense() || !t.IsCategorized() {
			continue
		}
		k := categoryKey{t.CategoryID, t.Amount.Currency}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
	}
	slices.SortFunc(keys, func(a, b categoryKey) int {
		if c := cmp.Compare(a.categoryID, b.categoryID); c != 0 {
			return c
		}
		return cmp.Compare(a.currency, b.currency)
	})

	for _, k := range keys {
		members := groups[k]
		slices.SortStableFunc(members, func(a, b core.Transaction) int {
			if c := a.Date.Compare(b.Date.Time); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		d.transactionAnomalies(k, members, &report)
		d.monthlyAnomalies(k, members, &report)
	}
	return report
}

func (d *AnomalyDetector) skip(k categoryKey, metric core.AnomalyMetric, n int, report *AnomalyReport) bool {
	if n >= d.cfg.MinSampleSize {
		return false
	}
	report.Skipped = append(report.Skipped, SkippedCategory{
		CategoryID: k.categoryID, Currency: k.currency, Metric: metric,
		SampleSize: n, Reason: SkipInsufficientSample,
	})
	return true
}

func (d *AnomalyDetector) transactionAnomalies(k categoryKey, members []core.Transaction, report *AnomalyReport) {
	if d.skip(k, core.MetricTransactionAmount, len(members), report) {
		return
	}
	values := make([]float64, len(members))
	for i, t := range members {
		values[i] = float64(t.Amount.Abs().Amount)
	}
	med, spread := robustSpread(values)
	if spread == 0 {
		return
	}
	for i, t := range members {
		deviation := math.Abs(values[i] - med)
		if deviation <= d.cfg.SpreadMultiple*spread {
			continue
		}
		report.Anomalies = append(report.Anomalies, d.anomaly(k, core.MetricTransactionAmount, values[i], med, spread, func(a *core.Anomaly) {
			a.TransactionID = t.ID
			a.Period = t.Date.String()
		}))
	}
}

func (d *AnomalyDetector) monthlyAnomalies(k categoryKey, members []core.Transaction, report *AnomalyReport) {
	// Already reported as skipped by the transaction metric.
	if len(members) < d.cfg.MinSampleSize {
		return
	}
	first, last := members[0].Date, members[len(members)-1].Date
	totals := map[string]float64{}
	for _, t := range members {
		totals[monthKey(t.Date.Year(), t.Date.Month())] += float64(t.Amount.Abs().Amount)
	}
	var months []string
	for y, m := first.Year(), first.Month(); y < last.Year() || (y == last.Year() && m <= last.Month()); {
		months = append(months, monthKey(y, m))
		if m++; m > 12 {
			y, m = y+1, 1
		}
	}
	if d.skip(k, core.MetricMonthlySpend, len(months), report) {
		return
	}
	values := make([]float64, len(months))
	for i, mk := range months {
		values[i] = totals[mk]
	}
	med, spread := robustSpread(values)
	if spread == 0 {
		return
	}
	for i, mk := range months {
		if values[i]-med <= d.cfg.SpreadMultiple*spread {
			continue
		}
		report.Anomalies = append(report.Anomalies, d.anomaly(k, core.MetricMonthlySpend, values[i], med, spread, func(a *core.Anomaly) {
			a.Period = mk
		}))
	}
}

func (d *AnomalyDetector) anomaly(k categoryKey, metric core.AnomalyMetric, observed, med, spread float64, set func(*core.Anomaly)) core.Anomaly {
	band := d.cfg.SpreadMultiple * spread
	money := func(v float64) core.Money { return core.NewMoney(int64(math.Round(v)), k.currency) }
	a := core.Anomaly{
		CategoryID: k.categoryID,
		Metric:     metric,
		Observed:   money(observed),
		Median:     money(med),
		ExpectedRange: core.AmountRange{
			Low:  money(max(0, med-band)),
			High: money(med + band),
		},
		Severity: round2(math.Abs(observed-med) / spread),
	}
	set(&a)
	return a
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
