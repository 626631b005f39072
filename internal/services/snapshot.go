package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"moneymind/internal/core"
	"moneymind/internal/sheets"
)

// Snapshot is an immutable view of the data one run operates on.
type Snapshot struct {
	Transactions []core.Transaction
	Tree         *core.CategoryTree
	Budgets      []core.Budget
}

// LoadSnapshot reads transactions, categories and budgets concurrently and
// validates the category tree.
func LoadSnapshot(ctx context.Context, src sheets.SnapshotReader, from, to core.Date) (Snapshot, error) {
	var (
		txns       []core.Transaction
		categories []core.Category
		budgets    []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if txns, err = src.ListTransactions(gctx, from, to); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if categories, err = src.ListCategories(gctx); err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if budgets, err = src.ListBudgets(gctx); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	tree, err := core.NewCategoryTree(categories)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return Snapshot{Transactions: txns, Tree: tree, Budgets: budgets}, nil
}
