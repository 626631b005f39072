package core

import (
	"cmp"
	"slices"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month in one currency.
type MonthOverview struct {
	Year             int              `json:"year"`
	Month            int              `json:"month"` // 1-12
	Currency         string           `json:"currency"`
	Income           Money            `json:"income"`
	Expenses         Money            `json:"expenses"` // absolute value
	Net              Money            `json:"net"`
	TransactionCount int              `json:"transaction_count"`
	TopCategories    []CategoryAmount `json:"top_categories"`
}

const uncategorizedName = "Uncategorized"

// SummarizeMonth builds one overview per currency seen in the month, sorted
// by currency code. TopCategories holds at most topN expense categories,
// largest first, ties by name.
func SummarizeMonth(year, month int, txns []Transaction, tree *CategoryTree, topN int) []MonthOverview {
	start := NewDate(year, month, 1)
	end := NewDate(year, month+1, 1).AddDays(-1)

	byCurrency := map[string]*MonthOverview{}
	spend := map[string]map[string]int64{}
	for _, t := range txns {
		if !t.Date.Between(start, end) {
			continue
		}
		cur := t.Amount.Currency
		ov, ok := byCurrency[cur]
		if !ok {
			ov = &MonthOverview{Year: year, Month: month, Currency: cur,
				Income: NewMoney(0, cur), Expenses: NewMoney(0, cur), Net: NewMoney(0, cur)}
			byCurrency[cur] = ov
			spend[cur] = map[string]int64{}
		}
		ov.TransactionCount++
		ov.Net.Amount += t.Amount.Amount
		switch {
		case t.IsIncome():
			ov.Income.Amount += t.Amount.Amount
		case t.IsExpense():
			ov.Expenses.Amount -= t.Amount.Amount
			spend[cur][t.CategoryID] -= t.Amount.Amount
		}
	}

	out := make([]MonthOverview, 0, len(byCurrency))
	for cur, ov := range byCurrency {
		cats := make([]CategoryAmount, 0, len(spend[cur]))
		for id, amt := range spend[cur] {
			name := uncategorizedName
			if c, ok := tree.Get(id); ok {
				name = c.Name
			}
			cats = append(cats, CategoryAmount{CategoryID: id, Name: name, Amount: NewMoney(amt, cur)})
		}
		slices.SortFunc(cats, func(a, b CategoryAmount) int {
			if c := cmp.Compare(b.Amount.Amount, a.Amount.Amount); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
		if topN > 0 && len(cats) > topN {
			cats = cats[:topN]
		}
		ov.TopCategories = cats
		out = append(out, *ov)
	}
	slices.SortFunc(out, func(a, b MonthOverview) int { return cmp.Compare(a.Currency, b.Currency) })
	return out
}
