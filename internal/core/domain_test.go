package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateBetweenIsInclusive(t *testing.T) {
	start, end := NewDate(2025, 3, 1), NewDate(2025, 3, 31)
	for _, d := range []Date{start, end, NewDate(2025, 3, 15)} {
		if !d.Between(start, end) {
			t.Fatalf("%s should be within range", d)
		}
	}
	if NewDate(2025, 4, 1).Between(start, end) || NewDate(2025, 2, 28).Between(start, end) {
		t.Fatal("dates outside range matched")
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 2, 3))
	if err != nil || string(b) != `"2025-02-03"` {
		t.Fatalf("marshal: %s err=%v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-12-31"`), &d); err != nil || !d.Equal(NewDate(2024, 12, 31).Time) {
		t.Fatalf("unmarshal: %v err=%v", d, err)
	}
}

func TestTransactionWithCategoryDoesNotMutate(t *testing.T) {
	orig := Transaction{ID: "t1", Date: NewDate(2025, 1, 1), Amount: NewMoney(-100, "EUR"), CategoryID: "old", Tags: []string{"a"}}
	updated := orig.WithCategory("new")
	if orig.CategoryID != "old" {
		t.Fatalf("original mutated: %s", orig.CategoryID)
	}
	if updated.CategoryID != "new" {
		t.Fatalf("expected new category, got %s", updated.CategoryID)
	}
	updated.Tags[0] = "changed"
	if orig.Tags[0] != "a" {
		t.Fatal("tags share backing array")
	}
}

func TestTransactionTags(t *testing.T) {
	txn := Transaction{ID: "t1"}
	txn, err := txn.WithTag("  Travel ")
	if err != nil {
		t.Fatal(err)
	}
	txn, _ = txn.WithTag("business")
	txn, _ = txn.WithTag("travel")
	if len(txn.Tags) != 2 || txn.Tags[0] != "business" || txn.Tags[1] != "travel" {
		t.Fatalf("unexpected tags %v", txn.Tags)
	}
	if !txn.HasTag("TRAVEL") {
		t.Fatal("expected tag lookup to be case-insensitive")
	}
	txn = txn.WithoutTag("travel")
	if txn.HasTag("travel") || len(txn.Tags) != 1 {
		t.Fatalf("tag not removed: %v", txn.Tags)
	}
	if _, err := txn.WithTag(" "); !errors.Is(err, ErrEmptyTag) {
		t.Fatalf("expected ErrEmptyTag, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{ID: "t", Date: NewDate(2025, 1, 1), Amount: NewMoney(-1, "EUR")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Transaction{
		{Date: NewDate(2025, 1, 1), Amount: NewMoney(1, "EUR")},
		{ID: "t", Amount: NewMoney(1, "EUR")},
		{ID: "t", Date: NewDate(2025, 1, 1), Amount: Money{Amount: 1}},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestItemErrorUnwraps(t *testing.T) {
	err := error(ItemError{Kind: "budget", ID: "b1", Err: ErrCurrencyMismatch})
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatal("expected errors.Is to see wrapped error")
	}
	if err.Error() != "budget b1: currency mismatch" {
		t.Fatalf("got %q", err.Error())
	}
}

func TestFilters(t *testing.T) {
	txns := []Transaction{
		{ID: "1", Date: NewDate(2025, 1, 5), Amount: NewMoney(-500, "EUR"), Merchant: "Lidl", CategoryID: "groceries"},
		{ID: "2", Date: NewDate(2025, 2, 5), Amount: NewMoney(-5000, "EUR"), Description: "Rent February", CategoryID: "housing"},
		{ID: "3", Date: NewDate(2025, 1, 20), Amount: NewMoney(200000, "EUR"), Description: "Salary"},
	}
	jan := ByDateRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31))

	got := Select(txns, And(jan, Expenses()))
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("and: %v", got)
	}
	got = Select(txns, Or(ByMerchant("lidl"), ByDescription("rent")))
	if len(got) != 2 {
		t.Fatalf("or: %v", got)
	}
	got = Select(txns, Not(Uncategorized()))
	if len(got) != 2 {
		t.Fatalf("not: %v", got)
	}
	got = Select(txns, ByAmountRange(1000, 10000))
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("amount range: %v", got)
	}
	got = Select(txns, And(ByCategory("housing"), ByCurrency("EUR")))
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("category and currency: %v", got)
	}
	if got = Select(txns, ByCurrency("USD")); len(got) != 0 {
		t.Fatalf("currency: %v", got)
	}
}
