package rules

import (
	"errors"
	"testing"

	"moneymind/internal/core"
)

func testTree(t *testing.T) *core.CategoryTree {
	t.Helper()
	mk := func(id, name string, active bool) core.Category {
		return core.Category{ID: id, Name: name, Color: "#123456", Icon: "tag", IsActive: active}
	}
	tree, err := core.NewCategoryTree([]core.Category{
		mk("ent", "Entertainment", true),
		mk("groc", "Groceries", true),
		mk("rest", "Restaurants", true),
		mk("salary", "Salary", true),
		mk("old", "Old Stuff", false),
	})
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func int64p(v int64) *int64 { return &v }

func txn(desc, merchant string, amount int64) core.Transaction {
	return core.Transaction{ID: "t", Date: core.NewDate(2025, 1, 1), Description: desc, Merchant: merchant, Amount: core.NewMoney(amount, "EUR")}
}

func TestCategorizeNetflixRule(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "netflix", Match: MatchDescriptionContains, Pattern: "NETFLIX", Category: "Entertainment", Confidence: 0.95},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}
	got := e.Categorize(txn("NETFLIX.COM", "", -1599))
	if got == nil {
		t.Fatal("expected a suggestion")
	}
	if got.Category.ID != "ent" || got.Confidence != 0.95 || got.Source != core.SourceRule {
		t.Fatalf("unexpected suggestion %+v", got)
	}
}

func TestCategorizeSpecificityOrder(t *testing.T) {
	rules := []Rule{
		{ID: "kw", Match: MatchDescriptionContains, Pattern: "coffee", Category: "rest", Confidence: 0.6},
		{ID: "merchant-contains", Match: MatchMerchantContains, Pattern: "market", Category: "groc", Confidence: 0.7},
		{ID: "regex", Match: MatchRegex, Pattern: `^card \d+`, Category: "ent", Confidence: 0.8},
		{ID: "exact", Match: MatchMerchantExact, Pattern: "Corner Market", Category: "groc", Confidence: 0.99},
	}
	e, err := NewEngine(rules, testTree(t))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		desc     string
		merchant string
		want     string
		conf     float64
	}{
		{"exact merchant beats keyword", "coffee beans", "corner  market", "groc", 0.99},
		{"regex beats contains", "CARD 1234 coffee", "", "ent", 0.8},
		{"merchant contains beats description keyword", "coffee", "Super Market", "groc", 0.7},
		{"keyword only", "morning coffee", "", "rest", 0.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Categorize(txn(tc.desc, tc.merchant, -500))
			if got == nil || got.Category.ID != tc.want || got.Confidence != tc.conf {
				t.Fatalf("want %s (%.2f), got %+v", tc.want, tc.conf, got)
			}
		})
	}
}

func TestCategorizePriorityAndLoadOrder(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "first", Match: MatchDescriptionContains, Pattern: "shop", Category: "rest", Confidence: 0.5},
		{ID: "second", Match: MatchDescriptionContains, Pattern: "shop", Category: "groc", Confidence: 0.5, Priority: -1},
		{ID: "third", Match: MatchDescriptionContains, Pattern: "shop", Category: "ent", Confidence: 0.5, Priority: -1},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Categorize(txn("shop", "", -1)); got == nil || got.Category.ID != "groc" {
		t.Fatalf("expected lower priority value then load order to win, got %+v", got)
	}
}

func TestCategorizeEmptyDescription(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "any", Match: MatchRegex, Pattern: ".*", Category: "groc", Confidence: 1},
		{ID: "merchant", Match: MatchMerchantExact, Pattern: "lidl", Category: "groc", Confidence: 1},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, desc := range []string{"", "   ", "\t\n"} {
		if got := e.Categorize(txn(desc, "Lidl", -100)); got != nil {
			t.Fatalf("description %q matched %+v", desc, got)
		}
	}
}

func TestCategorizeAmountConstraints(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "salary", Match: MatchDescriptionContains, Pattern: "acme", Category: "salary", Confidence: 0.9, Direction: DirectionIncome},
		{ID: "big", Match: MatchDescriptionContains, Pattern: "acme", Category: "ent", Confidence: 0.8, Direction: DirectionExpense, MinAmount: int64p(10000)},
		{ID: "small", Match: MatchDescriptionContains, Pattern: "acme", Category: "rest", Confidence: 0.7, MaxAmount: int64p(9999)},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		amount int64
		want   string
	}{
		{250000, "salary"},
		{-15000, "ent"},
		{-500, "rest"},
	}
	for _, tc := range cases {
		got := e.Categorize(txn("ACME corp", "", tc.amount))
		if got == nil || got.Category.ID != tc.want {
			t.Fatalf("amount %d: want %s, got %+v", tc.amount, tc.want, got)
		}
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "a", Match: MatchDescriptionContains, Pattern: "uber", Category: "rest", Confidence: 0.6},
		{ID: "b", Match: MatchRegex, Pattern: "uber\\s*eats", Category: "rest", Confidence: 0.85},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}
	in := txn("UBER EATS 123", "", -2300)
	first := e.Categorize(in)
	for i := 0; i < 50; i++ {
		got := e.Categorize(in)
		if got == nil || *got != *first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
	if e.Categorize(txn("no match here", "", -1)) != nil {
		t.Fatal("expected nil for unmatched description")
	}
}

func TestNewEngineRejectsInvalidRules(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
	}{
		{"unknown kind", Rule{Match: "fuzzy", Pattern: "x", Category: "groc", Confidence: 0.5}},
		{"empty pattern", Rule{Match: MatchRegex, Pattern: " ", Category: "groc", Confidence: 0.5}},
		{"bad regex", Rule{Match: MatchRegex, Pattern: "(", Category: "groc", Confidence: 0.5}},
		{"confidence", Rule{Match: MatchRegex, Pattern: "x", Category: "groc", Confidence: 1.5}},
		{"direction", Rule{Match: MatchRegex, Pattern: "x", Category: "groc", Confidence: 0.5, Direction: "sideways"}},
		{"amount bounds", Rule{Match: MatchRegex, Pattern: "x", Category: "groc", Confidence: 0.5, MinAmount: int64p(10), MaxAmount: int64p(1)}},
		{"unknown category", Rule{Match: MatchRegex, Pattern: "x", Category: "nope", Confidence: 0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEngine([]Rule{tc.rule}, testTree(t)); !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	e, err := NewEngine([]Rule{
		{ID: "netflix", Match: MatchDescriptionContains, Pattern: "netflix", Category: "ent", Confidence: 0.95},
		{ID: "spotify", Match: MatchDescriptionContains, Pattern: "spotify", Category: "ent", Confidence: 0.9},
		{ID: "lidl", Match: MatchMerchantExact, Pattern: "lidl", Category: "groc", Confidence: 0.9},
	}, testTree(t))
	if err != nil {
		t.Fatal(err)
	}

	got := e.Suggest("NETFLX subscription")
	if len(got) != 1 || got[0].Category.ID != "ent" {
		t.Fatalf("expected fuzzy entertainment hit, got %v", got)
	}
	if got[0].Confidence >= 0.95 || got[0].Confidence <= 0 {
		t.Fatalf("fuzzy confidence should be scaled down, got %.3f", got[0].Confidence)
	}

	got = e.Suggest("lidl")
	if len(got) != 1 || got[0].Category.ID != "groc" || got[0].Confidence != 0.9 {
		t.Fatalf("expected exact groceries hit, got %v", got)
	}

	if got := e.Suggest("   "); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
	if got := e.Suggest("completely unrelated words"); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - id: netflix
    match: Description_Contains
    pattern: NETFLIX
    category: Entertainment
    confidence: 0.95
  - id: rent
    match: regex
    pattern: "^rent "
    category: groc
    confidence: 0.8
    direction: Expense
    min_amount: 50000
`)
	rules, err := ParseRules(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Match != MatchDescriptionContains || rules[1].Direction != DirectionExpense {
		t.Fatalf("kinds not normalized: %+v", rules)
	}
	if rules[1].MinAmount == nil || *rules[1].MinAmount != 50000 {
		t.Fatalf("min amount not decoded: %+v", rules[1])
	}
	if _, err := NewEngine(rules, testTree(t)); err != nil {
		t.Fatalf("parsed rules should build an engine: %v", err)
	}
}
