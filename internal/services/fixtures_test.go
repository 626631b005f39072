package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moneymind/internal/core"
	"moneymind/internal/llm"
)

func testCategories() []core.Category {
	mk := func(id, name, parent string, active bool) core.Category {
		return core.Category{ID: id, Name: name, Color: "#336699", Icon: "tag", ParentID: parent, IsActive: active}
	}
	return []core.Category{
		mk("ent", "Entertainment", "", true),
		mk("groc", "Groceries", "", true),
		mk("produce", "Produce", "groc", true),
		mk("transfers", "Transfers", "", true),
		mk("util", "Utilities", "", true),
		mk("old", "Old Stuff", "", false),
	}
}

func testTree(t *testing.T) *core.CategoryTree {
	t.Helper()
	tree, err := core.NewCategoryTree(testCategories())
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	return tree
}

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func expense(t *testing.T, id, day string, cents int64, desc, category string) core.Transaction {
	t.Helper()
	return core.Transaction{
		ID:          id,
		AccountID:   "acc-1",
		Date:        date(t, day),
		Amount:      core.NewMoney(-cents, "EUR"),
		Description: desc,
		CategoryID:  category,
	}
}

// fakeCategorizer is a scripted llm.Categorizer.
type fakeCategorizer struct {
	resp        llm.CategorizeResponse
	err         error
	delay       time.Duration
	suggestions []llm.Suggestion
	calls       atomic.Int32
}

func (f *fakeCategorizer) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCategorizer) Categorize(ctx context.Context, _ llm.CategorizeRequest) (llm.CategorizeResponse, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return llm.CategorizeResponse{}, err
	}
	return f.resp, f.err
}

func (f *fakeCategorizer) SuggestCategories(ctx context.Context, _ llm.SuggestRequest) ([]llm.Suggestion, error) {
	f.calls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.suggestions, f.err
}

// fakeTextGenerator prefixes every finding message.
type fakeTextGenerator struct {
	err   error
	short bool
}

func (f *fakeTextGenerator) GenerateInsightText(_ context.Context, findings []llm.Finding) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(findings))
	for _, fd := range findings {
		out = append(out, "Heads up: "+fd.Message)
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// fakeStore is an in-memory snapshot source and sink.
type fakeStore struct {
	mu           sync.Mutex
	txns         []core.Transaction
	categories   []core.Category
	budgets      []core.Budget
	listErr      error
	applyErr     error
	applied      [][]core.Transaction
	insights     []core.Insight
	insightMonth [2]int
}

func (s *fakeStore) ListTransactions(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
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
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) ListCategories(context.Context) ([]core.Category, error) {
	return s.categories, nil
}

func (s *fakeStore) ListBudgets(context.Context) ([]core.Budget, error) {
	return s.budgets, nil
}

func (s *fakeStore) ApplyAssignments(_ context.Context, txns []core.Transaction) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, txns)
	byID := map[string]string{}
	for _, t := range txns {
		byID[t.ID] = t.CategoryID
	}
	for i, t := range s.txns {
		if c, ok := byID[t.ID]; ok {
			s.txns[i].CategoryID = c
		}
	}
	return nil
}

func (s *fakeStore) WriteInsights(_ context.Context, year, month int, insights []core.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insightMonth = [2]int{year, month}
	s.insights = insights
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []core.TransactionCategorized
	err    error
}

func (p *fakePublisher) PublishCategorized(_ context.Context, evt core.TransactionCategorized) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

var errBoom = errors.New("boom")
