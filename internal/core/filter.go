package core

import "strings"

// Filter selects transactions. Filters compose with And, Or and Not.
type Filter func(Transaction) bool

func ByCategory(categoryID string) Filter {
	return func(t Transaction) bool { return t.CategoryID == categoryID }
}

// ByCategoryTree matches the category and all of its descendants.
func ByCategoryTree(tree *CategoryTree, categoryID string) Filter {
	return func(t Transaction) bool { return tree.IsWithin(t.CategoryID, categoryID) }
}

func ByDateRange(start, end Date) Filter {
	return func(t Transaction) bool { return t.Date.Between(start, end) }
}

// ByAmountRange matches absolute amounts in [min, max] minor units.
func ByAmountRange(min, max int64) Filter {
	return func(t Transaction) bool {
		a := t.Amount.Abs().Amount
		return a >= min && a <= max
	}
}

func ByCurrency(currency string) Filter {
	return func(t Transaction) bool { return t.Amount.Currency == currency }
}

func ByMerchant(merchant string) Filter {
	merchant = strings.ToLower(strings.TrimSpace(merchant))
	return func(t Transaction) bool {
		return merchant != "" && strings.Contains(strings.ToLower(t.Merchant), merchant)
	}
}

func ByDescription(substr string) Filter {
	substr = strings.ToLower(strings.TrimSpace(substr))
	return func(t Transaction) bool {
		return substr != "" && strings.Contains(strings.ToLower(t.Description), substr)
	}
}

func Expenses() Filter { return Transaction.IsExpense }

func Uncategorized() Filter {
	return func(t Transaction) bool { return !t.IsCategorized() }
}

func And(fs ...Filter) Filter {
	return func(t Transaction) bool {
		for _, f := range fs {
			if !f(t) {
				return false
			}
		}
		return true
	}
}

func Or(fs ...Filter) Filter {
	return func(t Transaction) bool {
		for _, f := range fs {
			if f(t) {
				return true
			}
		}
		return false
	}
}

func Not(f Filter) Filter {
	return func(t Transaction) bool { return !f(t) }
}

// Select returns the transactions matching f, preserving order.
func Select(txns []Transaction, f Filter) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if f(t) {
			out = append(out, t)
		}
	}
	return out
}
