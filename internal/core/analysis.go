package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	SourceRule SuggestionSource = "RULE"
	SourceAI   SuggestionSource = "AI"
)

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceBiweekly  Cadence = "biweekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
	CadenceIrregular Cadence = "irregular"
)

const (
	MetricTransactionAmount AnomalyMetric = "transaction_amount"
	MetricMonthlySpend      AnomalyMetric = "monthly_category_spend"
)

type (
	SuggestionSource string
	Cadence          string
	AnomalyMetric    string

	// CategorySuggestion is a categorization guess tagged with where it came from.
	CategorySuggestion struct {
		Category   Category         `json:"category"`
		Confidence float64          `json:"confidence"`
		Source     SuggestionSource `json:"source"`
	}

	// PatternMatch is a group of recurring transactions. Recomputed on every run.
	PatternMatch struct {
		Key                       string         `json:"key"`
		RepresentativeDescription string         `json:"representative_description"`
		MatchedTransactionIDs     []string       `json:"matched_transaction_ids"`
		IntervalEstimate          *time.Duration `json:"interval_estimate,omitempty"`
		Confidence                float64        `json:"confidence"`
		Amount                    Money          `json:"amount"`
		Cadence                   Cadence        `json:"cadence"`
		LastSeen                  Date           `json:"last_seen"`
		NextExpected              Date           `json:"next_expected,omitempty"`
		CategoryID                string         `json:"category_id,omitempty"`
	}

	// AmountRange is an inclusive band of expected amounts.
	AmountRange struct {
		Low  Money `json:"low"`
		High Money `json:"high"`
	}

	// Anomaly flags either a single transaction (TransactionID set) or a
	// category month (Metric MetricMonthlySpend, Period set).
	Anomaly struct {
		TransactionID string        `json:"transaction_id,omitempty"`
		CategoryID    string        `json:"category_id"`
		Period        string        `json:"period,omitempty"`
		Metric        AnomalyMetric `json:"metric"`
		Observed      Money         `json:"observed"`
		Median        Money         `json:"median"`
		ExpectedRange AmountRange   `json:"expected_range"`
		Severity      float64       `json:"severity"`
	}
)

func (s CategorySuggestion) String() string {
	return fmt.Sprintf("%s (%.2f, %s)", s.Category.Name, s.Confidence, s.Source)
}

// Priority orders insights. Higher values sort first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority accepts HIGH, MEDIUM and LOW in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return PriorityHigh, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	}
	return PriorityLow, fmt.Errorf("unknown priority %q", s)
}

const (
	InsightBudgetExceeded  InsightKind = "budget_exceeded"
	InsightBudgetWarning   InsightKind = "budget_warning"
	InsightBudgetOnTrack   InsightKind = "budget_on_track"
	InsightUnusualSpending InsightKind = "unusual_spending"
	InsightRecurring       InsightKind = "recurring_payment"
	InsightSpendingSummary InsightKind = "spending_summary"
)

type (
	InsightKind string

	// Evidence points at the finding an insight was derived from.
	Evidence struct {
		Budget   *BudgetEvaluation `json:"budget,omitempty"`
		Anomaly  *Anomaly          `json:"anomaly,omitempty"`
		Pattern  *PatternMatch     `json:"pattern,omitempty"`
		Overview *MonthOverview    `json:"overview,omitempty"`
	}

	Insight struct {
		Kind        InsightKind `json:"kind"`
		CategoryTag string      `json:"category_tag"`
		Message     string      `json:"message"`
		Priority    Priority    `json:"priority"`
		Evidence    Evidence    `json:"evidence"`
	}
)
