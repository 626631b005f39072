package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"moneymind/internal/cache"
	"moneymind/internal/core"
	ports "moneymind/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config names the spreadsheet and the tabs the client works with.
type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	CategoriesSheet   string
	BudgetsSheet      string
	AssignmentsSheet  string
	InsightsSheet     string
	// Currency applies to rows without a currency column value.
	Currency string
	// CacheTTL bounds how long sheet reads are reused. Zero disables caching.
	CacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	def := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	def(&c.TransactionsSheet, "Transactions")
	def(&c.CategoriesSheet, "Categories")
	def(&c.BudgetsSheet, "Budgets")
	def(&c.AssignmentsSheet, "Assignments")
	def(&c.InsightsSheet, "Insights")
	def(&c.Currency, "EUR")
	return c
}

// Client reads the snapshot from a spreadsheet. Source tabs are never
// modified: category assignments are appended to a separate tab and laid
// over the transactions on read.
type Client struct {
	svc  *gsheet.Service
	cfg  Config
	rows *cache.LRUCache[[][]any]
}

var (
	_ ports.SnapshotReader   = (*Client)(nil)
	_ ports.AssignmentWriter = (*Client)(nil)
	_ ports.InsightWriter    = (*Client)(nil)
)

// New creates a client authenticated with service account credentials
// taken from the environment.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{svc: svc, cfg: cfg}
	if cfg.CacheTTL > 0 {
		c.rows = cache.NewLRUCache[[][]any](16, cfg.CacheTTL)
	}
	return c
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// RowCache exposes the read cache for periodic cleanup. It is nil when
// caching is disabled.
func (c *Client) RowCache() cache.Cleaner {
	if c.rows == nil {
		return nil
	}
	return c.rows
}

// InvalidateCache forgets every cached sheet read.
func (c *Client) InvalidateCache() {
	if c.rows != nil {
		c.rows.Purge()
	}
}

func (c *Client) forget(sheet string) {
	if c.rows != nil {
		c.rows.Delete(fmt.Sprintf("%s!A:Z", sheet))
	}
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	if c.rows != nil {
		if values, ok := c.rows.Get(rng); ok {
			return values, nil
		}
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if c.rows != nil {
		c.rows.Set(rng, resp.Values)
	}
	return resp.Values, nil
}

func logSkipped(ctx context.Context, sheet string, skipped []core.ItemError) {
	for _, e := range skipped {
		slog.WarnContext(ctx, "Skipping malformed sheet row", "sheet", sheet, "kind", e.Kind, "id", e.ID, "error", e.Err)
	}
}

// ListTransactions reads the transactions tab, applies the latest
// assignment of each transaction and filters by date.
func (c *Client) ListTransactions(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	values, err := c.readSheet(ctx, c.cfg.TransactionsSheet)
	if err != nil {
		return nil, err
	}
	txns, skipped, err := parseTransactions(values, c.cfg.Currency)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, c.cfg.TransactionsSheet, skipped)

	assignValues, err := c.readSheet(ctx, c.cfg.AssignmentsSheet)
	if err != nil {
		return nil, err
	}
	assigned := parseAssignments(assignValues)

	out := txns[:0]
	for _, t := range txns {
		if !from.IsZero() && t.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && t.Date.After(to.Time) {
			continue
		}
		if cat, ok := assigned[t.ID]; ok {
			t = t.WithCategory(cat)
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	values, err := c.readSheet(ctx, c.cfg.CategoriesSheet)
	if err != nil {
		return nil, err
	}
	cats, skipped, err := parseCategories(values, c.cfg.Currency)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, c.cfg.CategoriesSheet, skipped)
	return cats, nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	values, err := c.readSheet(ctx, c.cfg.BudgetsSheet)
	if err != nil {
		return nil, err
	}
	budgets, skipped, err := parseBudgets(values, c.cfg.Currency)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, c.cfg.BudgetsSheet, skipped)
	return budgets, nil
}

// ApplyAssignments appends one row per transaction to the assignments tab
// in a single request. Unknown transaction IDs reject the whole batch.
func (c *Client) ApplyAssignments(ctx context.Context, txns []core.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	values, err := c.readSheet(ctx, c.cfg.TransactionsSheet)
	if err != nil {
		return err
	}
	known, _, err := parseTransactions(values, c.cfg.Currency)
	if err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(known))
	for _, t := range known {
		ids[t.ID] = struct{}{}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rows := make([][]any, 0, len(txns))
	for _, t := range txns {
		if _, ok := ids[t.ID]; !ok {
			return fmt.Errorf("transaction %s not found", t.ID)
		}
		rows = append(rows, []any{t.ID, t.CategoryID, now})
	}

	rng := fmt.Sprintf("%s!A:C", c.cfg.AssignmentsSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append assignments to %s: %w", c.cfg.AssignmentsSheet, err)
	}
	c.forget(c.cfg.AssignmentsSheet)
	return nil
}

// WriteInsights rewrites the insights tab with the rows of other months
// kept and the given month's rows replaced.
func (c *Client) WriteInsights(ctx context.Context, year, month int, insights []core.Insight) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	sheet := c.cfg.InsightsSheet
	existing, err := c.readSheet(ctx, sheet)
	if err != nil {
		return err
	}
	rows := mergeInsightRows(existing, year, month, insights)

	rng := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.cfg.SpreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.cfg.SpreadsheetID, fmt.Sprintf("%s!A1", sheet), &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	c.forget(sheet)
	slog.InfoContext(ctx, "Insights exported", "sheet", sheet, "year", year, "month", month, "count", len(insights))
	return nil
}
