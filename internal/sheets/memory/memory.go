package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"moneymind/internal/core"
)

// Store keeps the whole data set in memory. It implements every sheets
// port and is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	categories []core.Category
	txns       []core.Transaction
	budgets    []core.Budget
	insights   map[[2]int][]core.Insight
}

func New(categories []core.Category, txns []core.Transaction, budgets []core.Budget) *Store {
	return &Store{
		categories: slices.Clone(categories),
		txns:       cloneTransactions(txns),
		budgets:    slices.Clone(budgets),
		insights:   map[[2]int][]core.Insight{},
	}
}

// NewFromSeed builds a store from a parsed seed.
func NewFromSeed(seed Seed) *Store {
	return New(seed.Categories, seed.Transactions, seed.Budgets)
}

// NewFromFile loads a YAML seed file. An empty path yields a store with
// the default categories and no transactions.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(DefaultCategories(), nil, nil), nil
	}
	seed, err := LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromSeed(seed), nil
}

// DefaultCategories is a small starter tree.
func DefaultCategories() []core.Category {
	mk := func(id, name, color, icon, parent string) core.Category {
		return core.Category{ID: id, Name: name, Color: color, Icon: icon, ParentID: parent, IsActive: true}
	}
	return []core.Category{
		mk("housing", "Housing", "#795548", "home", ""),
		mk("utilities", "Utilities", "#607d8b", "bolt", "housing"),
		mk("groceries", "Groceries", "#4caf50", "cart", ""),
		mk("dining", "Dining", "#ff9800", "utensils", ""),
		mk("transport", "Transport", "#2196f3", "car", ""),
		mk("entertainment", "Entertainment", "#9c27b0", "film", ""),
		mk("health", "Health", "#f44336", "heart", ""),
		mk("shopping", "Shopping", "#e91e63", "bag", ""),
		mk("transfers", "Transfers", "#9e9e9e", "exchange", ""),
		mk("salary", "Salary", "#8bc34a", "wallet", ""),
	}
}

// ListTransactions returns transactions dated within [from, to], ordered
// by date then ID. Zero bounds are open.
func (s *Store) ListTransactions(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.txns {
		if !from.IsZero() && t.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && t.Date.After(to.Time) {
			continue
		}
		out = append(out, t.WithCategory(t.CategoryID))
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories), nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.budgets), nil
}

// ApplyAssignments updates categories by transaction ID. Unknown IDs fail
// the whole call before anything changes.
func (s *Store) ApplyAssignments(_ context.Context, txns []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.txns))
	for i, t := range s.txns {
		index[t.ID] = i
	}
	for _, t := range txns {
		if _, ok := index[t.ID]; !ok {
			return fmt.Errorf("transaction %s not found", t.ID)
		}
	}
	for _, t := range txns {
		i := index[t.ID]
		s.txns[i] = s.txns[i].WithCategory(t.CategoryID)
	}
	return nil
}

// WriteInsights replaces the stored insights of a month.
func (s *Store) WriteInsights(_ context.Context, year, month int, insights []core.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[[2]int{year, month}] = slices.Clone(insights)
	return nil
}

// Insights returns what WriteInsights stored for a month.
func (s *Store) Insights(year, month int) []core.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.insights[[2]int{year, month}])
}

func cloneTransactions(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		out[i] = t.WithCategory(t.CategoryID)
	}
	return out
}
