package sheets

import (
	"context"

	"moneymind/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionReader lists transactions dated within [from, to]. Zero
	// dates leave that side of the range open.
	TransactionReader interface {
		ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
	}

	// CategoryReader returns the full category tree in storage order.
	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// SnapshotReader supplies everything an analysis run needs.
	SnapshotReader interface {
		TransactionReader
		CategoryReader
		BudgetReader
	}

	// AssignmentWriter commits category assignments. Implementations apply
	// the whole batch or nothing.
	AssignmentWriter interface {
		ApplyAssignments(ctx context.Context, txns []core.Transaction) error
	}

	// InsightWriter stores the insight report of one month, replacing any
	// previous report for that month.
	InsightWriter interface {
		WriteInsights(ctx context.Context, year, month int, insights []core.Insight) error
	}
)
