package memory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moneymind/internal/core"
)

// Seed is a complete data set loaded from a YAML seed file.
type Seed struct {
	Categories   []core.Category
	Transactions []core.Transaction
	Budgets      []core.Budget
}

type seedFile struct {
	Currency     string            `yaml:"currency"`
	Categories   []seedCategory    `yaml:"categories"`
	Transactions []seedTransaction `yaml:"transactions"`
	Budgets      []seedBudget      `yaml:"budgets"`
}

type seedCategory struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Color       string `yaml:"color"`
	Icon        string `yaml:"icon"`
	Parent      string `yaml:"parent"`
	Active      *bool  `yaml:"active"`
	BudgetLimit string `yaml:"budget_limit"`
}

type seedTransaction struct {
	ID          string   `yaml:"id"`
	Account     string   `yaml:"account"`
	Date        string   `yaml:"date"`
	Amount      string   `yaml:"amount"`
	Currency    string   `yaml:"currency"`
	Description string   `yaml:"description"`
	Merchant    string   `yaml:"merchant"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

type seedBudget struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Limit    string `yaml:"limit"`
	Currency string `yaml:"currency"`
	Period   string `yaml:"period"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

// LoadSeedFile reads and parses a YAML seed file.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed decodes a seed document. Amounts are decimal strings; a
// top-level currency is the default for entries that omit one. Budgets
// without an end date span the period containing their start date.
func ParseSeed(data []byte) (Seed, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	defaultCurrency := strings.TrimSpace(doc.Currency)
	if defaultCurrency == "" {
		defaultCurrency = "EUR"
	}
	pick := func(c string) string {
		if strings.TrimSpace(c) == "" {
			return defaultCurrency
		}
		return c
	}

	var seed Seed
	for _, c := range doc.Categories {
		cat := core.Category{
			ID:       c.ID,
			Name:     c.Name,
			Color:    c.Color,
			Icon:     c.Icon,
			ParentID: c.Parent,
			IsActive: c.Active == nil || *c.Active,
		}
		if cat.Color == "" {
			cat.Color = "#9e9e9e"
		}
		if cat.Icon == "" {
			cat.Icon = "tag"
		}
		if c.BudgetLimit != "" {
			m, err := core.ParseDecimal(c.BudgetLimit, defaultCurrency)
			if err != nil {
				return Seed{}, fmt.Errorf("category %s budget limit: %w", c.ID, err)
			}
			cat.BudgetLimit = &m
		}
		seed.Categories = append(seed.Categories, cat)
	}

	for _, t := range doc.Transactions {
		d, err := core.ParseDate(t.Date)
		if err != nil {
			return Seed{}, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		amount, err := core.ParseDecimal(t.Amount, pick(t.Currency))
		if err != nil {
			return Seed{}, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		txn := core.Transaction{
			ID:          t.ID,
			AccountID:   t.Account,
			Date:        d,
			Amount:      amount,
			Description: t.Description,
			Merchant:    t.Merchant,
			CategoryID:  t.Category,
		}
		for _, tag := range t.Tags {
			if txn, err = txn.WithTag(tag); err != nil {
				return Seed{}, fmt.Errorf("transaction %s: %w", t.ID, err)
			}
		}
		seed.Transactions = append(seed.Transactions, txn)
	}

	for _, b := range doc.Budgets {
		budget, err := b.toBudget(pick(b.Currency))
		if err != nil {
			return Seed{}, err
		}
		seed.Budgets = append(seed.Budgets, budget)
	}
	return seed, nil
}

func (b seedBudget) toBudget(currency string) (core.Budget, error) {
	limit, err := core.ParseDecimal(b.Limit, currency)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s limit: %w", b.ID, err)
	}
	period, err := core.ParsePeriod(b.Period)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s: %w", b.ID, err)
	}
	start, err := core.ParseDate(b.Start)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s start: %w", b.ID, err)
	}
	if b.End == "" {
		return core.NewBudgetForPeriod(b.ID, b.Category, limit, period, start)
	}
	end, err := core.ParseDate(b.End)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %s end: %w", b.ID, err)
	}
	budget := core.Budget{ID: b.ID, CategoryID: b.Category, Limit: limit, Period: period, StartDate: start, EndDate: end}
	return budget, budget.Validate()
}
