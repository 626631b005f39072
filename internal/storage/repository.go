package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"moneymind/internal/core"

	_ "modernc.org/sqlite"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// dateBounds turns optional bounds into a WHERE fragment; zero dates are open.
func dateBounds(from, to core.Date) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, to.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTransactions implements sheets.TransactionReader
func (r *SQLiteRepository) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	where, args := dateBounds(from, to)

	rows, err := r.db.QueryContext(ctx, `SELECT t.id, t.account_id, t.date, t.amount_cents, t.currency,
		t.description, t.merchant, t.category_id
		FROM transactions t`+where+` ORDER BY t.date, t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		txns  []core.Transaction
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			t        core.Transaction
			day      string
			cents    int64
			currency string
			category sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &day, &cents, &currency, &t.Description, &t.Merchant, &category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		t.Amount = core.NewMoney(cents, currency)
		t.CategoryID = category.String
		index[t.ID] = len(txns)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx, `SELECT g.transaction_id, g.tag
		FROM transaction_tags g JOIN transactions t ON t.id = g.transaction_id`+where+`
		ORDER BY g.transaction_id, g.tag`, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var id, tag string
		if err := tagRows.Scan(&id, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := index[id]; ok {
			txns[i].Tags = append(txns[i].Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return txns, nil
}

// ListCategories implements sheets.CategoryReader
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color, icon, parent_id, is_active,
		budget_limit_cents, budget_currency
		FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var (
			c        core.Category
			parent   sql.NullString
			limit    sql.NullInt64
			currency sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &parent, &c.IsActive, &limit, &currency); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ParentID = parent.String
		if limit.Valid {
			m := core.NewMoney(limit.Int64, currency.String)
			c.BudgetLimit = &m
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListBudgets implements sheets.BudgetReader
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category_id, limit_cents, currency, period, start_date, end_date
		FROM budgets ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b          core.Budget
			cents      int64
			currency   string
			period     string
			start, end string
		)
		if err := rows.Scan(&b.ID, &b.CategoryID, &cents, &currency, &period, &start, &end); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Limit = core.NewMoney(cents, currency)
		b.Period = core.Period(period)
		if b.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		if b.EndDate, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ApplyAssignments implements sheets.AssignmentWriter. Either every
// transaction is updated or none is.
func (r *SQLiteRepository) ApplyAssignments(ctx context.Context, txns []core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range txns {
			res, err := tx.ExecContext(ctx,
				`UPDATE transactions SET category_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				nullable(t.CategoryID), t.ID)
			if err != nil {
				return fmt.Errorf("assign transaction %s: %w", t.ID, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("%w: %s", ErrTransactionNotFound, t.ID)
			}
		}
		slog.InfoContext(ctx, "Category assignments saved to SQLite", "count", len(txns))
		return nil
	})
}

// WriteInsights implements sheets.InsightWriter. A month's previous
// insights are replaced.
func (r *SQLiteRepository) WriteInsights(ctx context.Context, year, month int, insights []core.Insight) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM insights WHERE year = ? AND month = ?`, year, month); err != nil {
			return fmt.Errorf("clear insights: %w", err)
		}
		for i, in := range insights {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO insights (year, month, position, kind, category_tag, priority, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				year, month, i, string(in.Kind), in.CategoryTag, in.Priority.String(), in.Message)
			if err != nil {
				return fmt.Errorf("insert insight %d: %w", i, err)
			}
		}
		slog.InfoContext(ctx, "Insights saved to SQLite", "year", year, "month", month, "count", len(insights))
		return nil
	})
}

// ListInsights returns the stored insights of a month in their ranked order.
// Evidence is not persisted.
func (r *SQLiteRepository) ListInsights(ctx context.Context, year, month int) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, category_tag, priority, message
		FROM insights WHERE year = ? AND month = ? ORDER BY position`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var out []core.Insight
	for rows.Next() {
		var (
			in       core.Insight
			kind     string
			priority string
		)
		if err := rows.Scan(&kind, &in.CategoryTag, &priority, &in.Message); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Kind = core.InsightKind(kind)
		if in.Priority, err = core.ParsePriority(priority); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpsertCategories inserts or replaces categories, keeping the given order.
// Parents must come before their children.
func (r *SQLiteRepository) UpsertCategories(ctx context.Context, categories []core.Category) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for i, c := range categories {
			if err := c.Validate(); err != nil {
				return err
			}
			var (
				limit    sql.NullInt64
				currency sql.NullString
			)
			if c.BudgetLimit != nil {
				limit = sql.NullInt64{Int64: c.BudgetLimit.Amount, Valid: true}
				currency = sql.NullString{String: c.BudgetLimit.Currency, Valid: true}
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO categories
				(id, name, color, icon, parent_id, is_active, budget_limit_cents, budget_currency, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color, icon = excluded.icon,
					parent_id = excluded.parent_id, is_active = excluded.is_active,
					budget_limit_cents = excluded.budget_limit_cents, budget_currency = excluded.budget_currency,
					sort_order = excluded.sort_order`,
				c.ID, c.Name, c.Color, c.Icon, nullable(c.ParentID), c.IsActive, limit, currency, i)
			if err != nil {
				return fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// UpsertTransactions inserts or replaces transactions and their tags.
func (r *SQLiteRepository) UpsertTransactions(ctx context.Context, txns []core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range txns {
			if err := t.Validate(); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO transactions
				(id, account_id, date, amount_cents, currency, description, merchant, category_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET account_id = excluded.account_id, date = excluded.date,
					amount_cents = excluded.amount_cents, currency = excluded.currency,
					description = excluded.description, merchant = excluded.merchant,
					category_id = excluded.category_id, updated_at = CURRENT_TIMESTAMP`,
				t.ID, t.AccountID, t.Date.Format(dateLayout), t.Amount.Amount, t.Amount.Currency,
				t.Description, t.Merchant, nullable(t.CategoryID))
			if err != nil {
				return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, t.ID); err != nil {
				return fmt.Errorf("clear tags %s: %w", t.ID, err)
			}
			for _, tag := range slices.Compact(slices.Sorted(slices.Values(t.Tags))) {
				if _, err := tx.ExecContext(ctx, `INSERT INTO transaction_tags (transaction_id, tag) VALUES (?, ?)`, t.ID, tag); err != nil {
					return fmt.Errorf("insert tag %s/%s: %w", t.ID, tag, err)
				}
			}
		}
		return nil
	})
}

// UpsertBudgets inserts or replaces budgets.
func (r *SQLiteRepository) UpsertBudgets(ctx context.Context, budgets []core.Budget) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, b := range budgets {
			if err := b.Validate(); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO budgets
				(id, category_id, limit_cents, currency, period, start_date, end_date)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET category_id = excluded.category_id, limit_cents = excluded.limit_cents,
					currency = excluded.currency, period = excluded.period,
					start_date = excluded.start_date, end_date = excluded.end_date`,
				b.ID, b.CategoryID, b.Limit.Amount, b.Limit.Currency, string(b.Period),
				b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout))
			if err != nil {
				return fmt.Errorf("upsert budget %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
