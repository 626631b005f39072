package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"moneymind/internal/core"
)

var hundred = decimal.NewFromInt(100)

// BudgetReport holds the evaluations that succeeded and the budgets that
// could not be evaluated.
type BudgetReport struct {
	Evaluations []core.BudgetEvaluation
	Failures    []core.ItemError
}

// BudgetTracker aggregates spend against budget limits. Spend in a
// sub-category counts toward every ancestor's budget.
type BudgetTracker struct {
	tree *core.CategoryTree
}

func NewBudgetTracker(tree *core.CategoryTree) *BudgetTracker {
	return &BudgetTracker{tree: tree}
}

// Evaluate sums the absolute value of expenses in the budget's category
// subtree dated within the budget window, inclusive. An expense in another
// currency aborts the evaluation with core.ErrCurrencyMismatch.
func (b *BudgetTracker) Evaluate(budget core.Budget, txns []core.Transaction) (core.BudgetEvaluation, error) {
	if err := budget.Validate(); err != nil {
		return core.BudgetEvaluation{}, err
	}
	spent := core.NewMoney(0, budget.Limit.Currency)
	inBudget := core.And(
		core.Expenses(),
		core.ByDateRange(budget.StartDate, budget.EndDate),
		core.ByCategoryTree(b.tree, budget.CategoryID),
	)
	for _, t := range core.Select(txns, inBudget) {
		var err error
		if spent, err = spent.Add(t.Amount.Abs()); err != nil {
			return core.BudgetEvaluation{}, fmt.Errorf("budget %s, transaction %s: %w", budget.ID, t.ID, err)
		}
	}

	remaining, err := budget.Limit.Sub(spent)
	if err != nil {
		return core.BudgetEvaluation{}, err
	}
	return core.BudgetEvaluation{
		Budget:         budget,
		Spent:          spent,
		Remaining:      remaining,
		PercentageUsed: percentageUsed(spent, budget.Limit),
		IsExceeded:     spent.Amount > budget.Limit.Amount,
	}, nil
}

// percentageUsed is spent/limit*100 clamped to [0, 100], rounded to two
// decimals. A zero limit counts as fully used.
func percentageUsed(spent, limit core.Money) float64 {
	if limit.Amount <= 0 {
		if spent.Amount > 0 {
			return 100
		}
		return 0
	}
	pct := decimal.NewFromInt(spent.Amount).Mul(hundred).Div(decimal.NewFromInt(limit.Amount))
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2).InexactFloat64()
}

// EvaluateAll evaluates every budget; one failing budget does not stop the rest.
func (b *BudgetTracker) EvaluateAll(budgets []core.Budget, txns []core.Transaction) BudgetReport {
	var report BudgetReport
	for _, budget := range budgets {
		eval, err := b.Evaluate(budget, txns)
		if err != nil {
			report.Failures = append(report.Failures, core.ItemError{Kind: "budget", ID: budget.ID, Err: err})
			continue
		}
		report.Evaluations = append(report.Evaluations, eval)
	}
	return report
}
