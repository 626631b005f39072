package core

import (
	"fmt"
	"strings"
)

const (
	PeriodWeekly    Period = "WEEKLY"
	PeriodMonthly   Period = "MONTHLY"
	PeriodQuarterly Period = "QUARTERLY"
	PeriodYearly    Period = "YEARLY"
)

type (
	Period string

	// Budget caps spend on a category (and its descendants) over
	// [StartDate, EndDate].
	Budget struct {
		ID         string `json:"id"`
		CategoryID string `json:"category_id"`
		Limit      Money  `json:"limit"`
		Period     Period `json:"period"`
		StartDate  Date   `json:"start_date"`
		EndDate    Date   `json:"end_date"`
	}

	// BudgetEvaluation is derived on every evaluation and never stored.
	BudgetEvaluation struct {
		Budget         Budget  `json:"budget"`
		Spent          Money   `json:"spent"`
		Remaining      Money   `json:"remaining"`
		PercentageUsed float64 `json:"percentage_used"`
		IsExceeded     bool    `json:"is_exceeded"`
	}
)

// ParsePeriod accepts the period names case-insensitively.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidBudget, s)
}

// PeriodWindow returns the inclusive date range of the period containing anchor.
// Weeks start on Monday.
func PeriodWindow(p Period, anchor Date) (Date, Date, error) {
	y, m := anchor.Year(), anchor.Month()
	switch p {
	case PeriodWeekly:
		offset := (int(anchor.Weekday()) + 6) % 7
		start := anchor.AddDays(-offset)
		return start, start.AddDays(6), nil
	case PeriodMonthly:
		start := NewDate(y, m, 1)
		return start, NewDate(y, m+1, 1).AddDays(-1), nil
	case PeriodQuarterly:
		q := (m - 1) / 3
		start := NewDate(y, q*3+1, 1)
		return start, NewDate(y, q*3+4, 1).AddDays(-1), nil
	case PeriodYearly:
		return NewDate(y, 1, 1), NewDate(y, 12, 31), nil
	}
	return Date{}, Date{}, fmt.Errorf("%w: unknown period %q", ErrInvalidBudget, p)
}

// NewBudgetForPeriod builds a budget whose window is the period containing anchor.
func NewBudgetForPeriod(id, categoryID string, limit Money, p Period, anchor Date) (Budget, error) {
	start, end, err := PeriodWindow(p, anchor)
	if err != nil {
		return Budget{}, err
	}
	b := Budget{ID: id, CategoryID: categoryID, Limit: limit, Period: p, StartDate: start, EndDate: end}
	return b, b.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidBudget)
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return fmt.Errorf("%w %s: empty category", ErrInvalidBudget, b.ID)
	}
	if err := b.Limit.Validate(); err != nil {
		return fmt.Errorf("%w %s: limit: %v", ErrInvalidBudget, b.ID, err)
	}
	if b.Limit.IsNegative() {
		return fmt.Errorf("%w %s: negative limit", ErrInvalidBudget, b.ID)
	}
	if _, err := ParsePeriod(string(b.Period)); err != nil {
		return err
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("%w %s: missing dates", ErrInvalidBudget, b.ID)
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return fmt.Errorf("%w %s: end date before start date", ErrInvalidBudget, b.ID)
	}
	return nil
}

// Contains reports whether d falls within the budget window, inclusive.
func (b Budget) Contains(d Date) bool {
	return d.Between(b.StartDate, b.EndDate)
}
