package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"moneymind/internal/core"
)

const testSeed = `
currency: EUR
categories:
  - id: ent
    name: Entertainment
    color: "#9c27b0"
    icon: film
  - id: groc
    name: Groceries
    budget_limit: "500.00"
  - id: produce
    name: Produce
    parent: groc
  - id: legacy
    name: Legacy
    active: false
transactions:
  - id: t1
    date: 2025-10-02
    amount: "-15.99"
    description: NETFLIX.COM
    tags: [Subscription, subscription]
  - id: t2
    date: 2025-09-28
    amount: "-42.10"
    merchant: Corner Market
    description: Card payment
    category: groc
  - id: t3
    date: 2025-10-05
    amount: "1200"
    currency: USD
    description: Payroll
budgets:
  - id: b-groc
    category: groc
    limit: "500"
    period: monthly
    start: 2025-10-01
  - id: b-ent
    category: ent
    limit: "30"
    period: MONTHLY
    start: 2025-10-01
    end: 2025-10-15
`

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(testSeed))
	if err != nil {
		t.Fatalf("ParseSeed() error = %v", err)
	}
	if len(seed.Categories) != 4 || len(seed.Transactions) != 3 || len(seed.Budgets) != 2 {
		t.Fatalf("unexpected sizes: %d categories, %d transactions, %d budgets",
			len(seed.Categories), len(seed.Transactions), len(seed.Budgets))
	}
	if _, err := core.NewCategoryTree(seed.Categories); err != nil {
		t.Fatalf("seed categories do not form a tree: %v", err)
	}

	groc := seed.Categories[1]
	if groc.Color == "" || groc.Icon == "" || !groc.IsActive {
		t.Errorf("defaults not applied: %+v", groc)
	}
	if groc.BudgetLimit == nil || groc.BudgetLimit.Amount != 50000 {
		t.Errorf("budget limit = %v, want 500.00", groc.BudgetLimit)
	}
	if seed.Categories[3].IsActive {
		t.Error("legacy should be inactive")
	}

	t1 := seed.Transactions[0]
	if t1.Amount != core.NewMoney(-1599, "EUR") {
		t.Errorf("amount = %v, want -15.99 EUR", t1.Amount)
	}
	if len(t1.Tags) != 1 || t1.Tags[0] != "subscription" {
		t.Errorf("tags = %v, want [subscription]", t1.Tags)
	}
	if seed.Transactions[2].Amount.Currency != "USD" {
		t.Errorf("currency override ignored")
	}

	if got := seed.Budgets[0].EndDate.String(); got != "2025-10-31" {
		t.Errorf("derived end = %s, want 2025-10-31", got)
	}
	if got := seed.Budgets[1].EndDate.String(); got != "2025-10-15" {
		t.Errorf("explicit end = %s, want 2025-10-15", got)
	}
}

func TestParseSeedErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "categories: [\n"},
		{"bad date", "transactions:\n  - id: x\n    date: 02/10/2025\n    amount: \"1\"\n"},
		{"bad amount", "transactions:\n  - id: x\n    date: 2025-10-02\n    amount: abc\n"},
		{"bad period", "budgets:\n  - id: b\n    category: c\n    limit: \"1\"\n    period: daily\n    start: 2025-10-01\n"},
		{"end before start", "budgets:\n  - id: b\n    category: c\n    limit: \"1\"\n    period: monthly\n    start: 2025-10-10\n    end: 2025-10-01\n"},
		{"empty tag", "transactions:\n  - id: x\n    date: 2025-10-02\n    amount: \"1\"\n    tags: [\" \"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestStorePorts(t *testing.T) {
	seed, err := ParseSeed([]byte(testSeed))
	if err != nil {
		t.Fatal(err)
	}
	s := NewFromSeed(seed)
	ctx := context.Background()

	october, err := s.ListTransactions(ctx, core.NewDate(2025, 10, 1), core.NewDate(2025, 10, 31))
	if err != nil || len(october) != 2 || october[0].ID != "t1" || october[1].ID != "t3" {
		t.Fatalf("unexpected october: %+v err=%v", october, err)
	}
	all, _ := s.ListTransactions(ctx, core.Date{}, core.Date{})
	if len(all) != 3 || all[0].ID != "t2" {
		t.Fatalf("expected all transactions ordered by date, got %+v", all)
	}

	// Returned slices are copies.
	all[0].CategoryID = "mutated"
	all[1].Tags[0] = "mutated"
	again, _ := s.ListTransactions(ctx, core.Date{}, core.Date{})
	if again[0].CategoryID != "groc" || again[1].Tags[0] != "subscription" {
		t.Fatal("store state leaked through ListTransactions")
	}

	if err := s.ApplyAssignments(ctx, []core.Transaction{{ID: "t1", CategoryID: "ent"}, {ID: "nope", CategoryID: "ent"}}); err == nil {
		t.Fatal("expected error for unknown transaction")
	}
	again, _ = s.ListTransactions(ctx, core.NewDate(2025, 10, 2), core.NewDate(2025, 10, 2))
	if again[0].CategoryID != "" {
		t.Fatal("failed ApplyAssignments must not change anything")
	}
	if err := s.ApplyAssignments(ctx, []core.Transaction{{ID: "t1", CategoryID: "ent"}}); err != nil {
		t.Fatalf("ApplyAssignments() error = %v", err)
	}
	again, _ = s.ListTransactions(ctx, core.NewDate(2025, 10, 2), core.NewDate(2025, 10, 2))
	if again[0].CategoryID != "ent" {
		t.Fatalf("assignment not applied: %+v", again[0])
	}

	insights := []core.Insight{{Kind: core.InsightSpendingSummary, CategoryTag: "overall", Message: "m"}}
	if err := s.WriteInsights(ctx, 2025, 10, insights); err != nil {
		t.Fatal(err)
	}
	if got := s.Insights(2025, 10); len(got) != 1 {
		t.Fatalf("insights = %v", got)
	}
	if got := s.Insights(2025, 9); len(got) != 0 {
		t.Fatalf("unexpected insights for september: %v", got)
	}
}

func TestNewFromFile(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatal(err)
	}
	cats, _ := s.ListCategories(context.Background())
	if _, err := core.NewCategoryTree(cats); err != nil || len(cats) == 0 {
		t.Fatalf("default categories invalid: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	budgets, _ := s.ListBudgets(context.Background())
	if len(budgets) != 2 {
		t.Fatalf("budgets = %d, want 2", len(budgets))
	}

	if _, err := NewFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
