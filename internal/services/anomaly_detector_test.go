package services

import (
	"testing"

	"moneymind/internal/core"
)

func groceryHistory(t *testing.T) []core.Transaction {
	return []core.Transaction{
		expense(t, "g1", "2025-01-10", 5000, "Market", "groc"),
		expense(t, "g2", "2025-02-10", 5200, "Market", "groc"),
		expense(t, "g3", "2025-03-10", 4800, "Market", "groc"),
		expense(t, "g4", "2025-04-10", 5100, "Market", "groc"),
		expense(t, "g5", "2025-05-10", 4900, "Market", "groc"),
		expense(t, "g6", "2025-06-10", 30000, "Market", "groc"),
	}
}

func TestDetectAnomalies_FlagsOutliers(t *testing.T) {
	report := NewAnomalyDetector(DefaultAnomalyConfig()).DetectAnomalies(groceryHistory(t))

	var txnHits, monthHits []core.Anomaly
	for _, a := range report.Anomalies {
		switch a.Metric {
		case core.MetricTransactionAmount:
			txnHits = append(txnHits, a)
		case core.MetricMonthlySpend:
			monthHits = append(monthHits, a)
		}
	}

	if len(txnHits) != 1 || txnHits[0].TransactionID != "g6" {
		t.Fatalf("transaction anomalies = %+v, want g6 only", txnHits)
	}
	a := txnHits[0]
	if a.CategoryID != "groc" || a.Period != "2025-06-10" {
		t.Errorf("unexpected anomaly %+v", a)
	}
	if a.Median.Amount != 5050 {
		t.Errorf("median = %d, want 5050", a.Median.Amount)
	}
	if a.Severity <= 100 {
		t.Errorf("severity = %v, want a large multiple of the spread", a.Severity)
	}
	if a.ExpectedRange.Low.Amount > 5050 || a.ExpectedRange.High.Amount < 5050 || a.Observed.Amount <= a.ExpectedRange.High.Amount {
		t.Errorf("range %+v does not exclude observed %v", a.ExpectedRange, a.Observed)
	}

	if len(monthHits) != 1 || monthHits[0].Period != "2025-06" {
		t.Fatalf("monthly anomalies = %+v, want 2025-06 only", monthHits)
	}
}

func TestDetectAnomalies_MinimumSample(t *testing.T) {
	txns := groceryHistory(t)[2:]

	report := NewAnomalyDetector(DefaultAnomalyConfig()).DetectAnomalies(txns)
	if len(report.Anomalies) != 0 {
		t.Fatalf("expected no anomalies below the minimum sample, got %+v", report.Anomalies)
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("skipped = %+v, want one entry", report.Skipped)
	}
	s := report.Skipped[0]
	if s.CategoryID != "groc" || s.SampleSize != 4 || s.Reason != SkipInsufficientSample {
		t.Errorf("unexpected skip %+v", s)
	}
}

func TestDetectAnomalies_IgnoresIncomeAndUncategorized(t *testing.T) {
	txns := groceryHistory(t)[:5]
	txns = append(txns,
		core.Transaction{ID: "inc", Date: date(t, "2025-06-01"), Amount: core.NewMoney(900000, "EUR"), Description: "Salary", CategoryID: "groc"},
		expense(t, "u1", "2025-06-02", 900000, "Unknown", ""),
	)
	report := NewAnomalyDetector(DefaultAnomalyConfig()).DetectAnomalies(txns)
	if len(report.Anomalies) != 0 {
		t.Fatalf("expected no anomalies, got %+v", report.Anomalies)
	}
}

func TestDetectAnomalies_IdenticalAmounts(t *testing.T) {
	var txns []core.Transaction
	for i, d := range []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22", "2025-01-29"} {
		txns = append(txns, expense(t, string(rune('a'+i)), d, 1000, "Bus pass", "util"))
	}
	report := NewAnomalyDetector(DefaultAnomalyConfig()).DetectAnomalies(txns)
	if len(report.Anomalies) != 0 {
		t.Fatalf("identical amounts must not be anomalous, got %+v", report.Anomalies)
	}
}

func TestRobustSpread(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMedian float64
		wantSpread float64
	}{
		{name: "empty", values: nil},
		{name: "constant", values: []float64{4, 4, 4}, wantMedian: 4},
		{name: "mad collapses", values: []float64{10, 10, 10, 10, 20}, wantMedian: 10, wantSpread: 2},
		{name: "scaled mad", values: []float64{1, 2, 3, 4, 5}, wantMedian: 3, wantSpread: madScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s := robustSpread(tt.values)
			if m != tt.wantMedian || s != tt.wantSpread {
				t.Errorf("robustSpread() = (%v, %v), want (%v, %v)", m, s, tt.wantMedian, tt.wantSpread)
			}
		})
	}
}
