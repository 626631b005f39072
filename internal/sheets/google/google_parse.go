package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneymind/internal/core"
)

var insightHeader = []any{"Year", "Month", "Position", "Priority", "Kind", "Category", "Message"}

// sheetDateLayouts are tried in order when a date cell is not ISO formatted.
var sheetDateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "2/1/2006"}

// columns maps header names to indexes of one tab.
type columns struct {
	headers []string
	index   map[string]int
}

func readHeader(sheet string, values [][]any, required ...string) (columns, error) {
	if len(values) == 0 {
		return columns{}, nil
	}
	headers := toStrings(values[0])
	cols := columns{headers: headers, index: map[string]int{}}
	var missing []string
	for _, name := range required {
		if indexOf(headers, name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("unexpected %s header: missing %s; got headers=%v", sheet, strings.Join(missing, ","), headers)
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	idx, ok := c.index[name]
	if !ok {
		idx = indexOf(c.headers, name)
		c.index[name] = idx
	}
	return safeGet(row, idx)
}

func parseSheetDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("invalid date %q", s)
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// parseTransactions converts the transactions tab. Columns ID, Date,
// Amount and Description are required; Currency, Merchant, Category,
// Account and Tags (comma separated) are optional. Rows that cannot be
// parsed are returned as skipped.
func parseTransactions(values [][]any, currency string) ([]core.Transaction, []core.ItemError, error) {
	cols, err := readHeader("transactions", values, "ID", "Date", "Amount", "Description")
	if err != nil {
		return nil, nil, err
	}
	var out []core.Transaction
	var skipped []core.ItemError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := cols.get(row, "ID")
		if id == "" {
			if cols.get(row, "Amount") != "" {
				skipped = append(skipped, core.ItemError{Kind: "transaction", ID: fmt.Sprintf("row %d", i+1), Err: core.ErrEmptyID})
			}
			continue
		}
		t, err := transactionFromRow(cols, row, currency)
		if err != nil {
			skipped = append(skipped, core.ItemError{Kind: "transaction", ID: id, Err: err})
			continue
		}
		out = append(out, t)
	}
	return out, skipped, nil
}

func transactionFromRow(cols columns, row []string, currency string) (core.Transaction, error) {
	d, err := parseSheetDate(cols.get(row, "Date"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseDecimal(cols.get(row, "Amount"), orDefault(cols.get(row, "Currency"), currency))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          cols.get(row, "ID"),
		AccountID:   cols.get(row, "Account"),
		Date:        d,
		Amount:      amount,
		Description: cols.get(row, "Description"),
		Merchant:    cols.get(row, "Merchant"),
		CategoryID:  cols.get(row, "Category"),
	}
	for _, tag := range strings.Split(cols.get(row, "Tags"), ",") {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if t, err = t.WithTag(tag); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, t.Validate()
}

// parseCategories converts the categories tab. ID and Name are required.
func parseCategories(values [][]any, currency string) ([]core.Category, []core.ItemError, error) {
	cols, err := readHeader("categories", values, "ID", "Name")
	if err != nil {
		return nil, nil, err
	}
	var out []core.Category
	var skipped []core.ItemError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := cols.get(row, "ID")
		if id == "" {
			continue
		}
		c := core.Category{
			ID:       id,
			Name:     cols.get(row, "Name"),
			ParentID: cols.get(row, "Parent"),
			Color:    orDefault(cols.get(row, "Color"), "#9e9e9e"),
			Icon:     orDefault(cols.get(row, "Icon"), "tag"),
			IsActive: parseBool(cols.get(row, "Active"), true),
		}
		if limit := cols.get(row, "Budget"); limit != "" {
			m, err := core.ParseDecimal(limit, currency)
			if err != nil {
				skipped = append(skipped, core.ItemError{Kind: "category", ID: id, Err: err})
				continue
			}
			c.BudgetLimit = &m
		}
		if err := c.Validate(); err != nil {
			skipped = append(skipped, core.ItemError{Kind: "category", ID: id, Err: err})
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

// parseBudgets converts the budgets tab. A row without End spans the
// period containing Start.
func parseBudgets(values [][]any, currency string) ([]core.Budget, []core.ItemError, error) {
	cols, err := readHeader("budgets", values, "ID", "Category", "Limit", "Period", "Start")
	if err != nil {
		return nil, nil, err
	}
	var out []core.Budget
	var skipped []core.ItemError
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := cols.get(row, "ID")
		if id == "" {
			continue
		}
		b, err := budgetFromRow(cols, row, currency)
		if err != nil {
			skipped = append(skipped, core.ItemError{Kind: "budget", ID: id, Err: err})
			continue
		}
		out = append(out, b)
	}
	return out, skipped, nil
}

func budgetFromRow(cols columns, row []string, currency string) (core.Budget, error) {
	limit, err := core.ParseDecimal(cols.get(row, "Limit"), orDefault(cols.get(row, "Currency"), currency))
	if err != nil {
		return core.Budget{}, err
	}
	period, err := core.ParsePeriod(cols.get(row, "Period"))
	if err != nil {
		return core.Budget{}, err
	}
	start, err := parseSheetDate(cols.get(row, "Start"))
	if err != nil {
		return core.Budget{}, err
	}
	id, category := cols.get(row, "ID"), cols.get(row, "Category")
	if cols.get(row, "End") == "" {
		return core.NewBudgetForPeriod(id, category, limit, period, start)
	}
	end, err := parseSheetDate(cols.get(row, "End"))
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{ID: id, CategoryID: category, Limit: limit, Period: period, StartDate: start, EndDate: end}
	return b, b.Validate()
}

// parseAssignments returns the latest category per transaction. Rows are
// in append order, so later rows win. The first row is a header when its
// first cell is "Transaction".
func parseAssignments(values [][]any) map[string]string {
	out := make(map[string]string, len(values))
	for i, v := range values {
		row := toStrings(v)
		id, cat := safeGet(row, 0), safeGet(row, 1)
		if i == 0 && strings.EqualFold(id, "Transaction") {
			continue
		}
		if id == "" {
			continue
		}
		out[id] = cat
	}
	return out
}

// mergeInsightRows builds the full contents of the insights tab: the
// header, every row of other months, then the given month's insights.
func mergeInsightRows(existing [][]any, year, month int, insights []core.Insight) [][]any {
	rows := [][]any{insightHeader}
	for i, v := range existing {
		row := toStrings(v)
		if i == 0 && indexOf(row, "Year") == 0 {
			continue
		}
		y, yerr := strconv.Atoi(safeGet(row, 0))
		m, merr := strconv.Atoi(safeGet(row, 1))
		if yerr != nil || merr != nil || (y == year && m == month) {
			continue
		}
		rows = append(rows, v)
	}
	for i, in := range insights {
		rows = append(rows, []any{year, month, i + 1, in.Priority.String(), string(in.Kind), in.CategoryTag, in.Message})
	}
	return rows
}

// cellString renders a cell as read with UNFORMATTED_VALUE. Numbers
// arrive as float64 and must not be printed in exponent form.
func cellString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
