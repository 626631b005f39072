package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymind/internal/core"
	"moneymind/internal/llm"
)

// InsightReport is the result of one monthly insight run. Insights are
// ordered by priority, highest first; ties keep generation order (budget,
// anomaly, pattern, summary).
type InsightReport struct {
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	Insights  []core.Insight       `json:"insights"`
	Overviews []core.MonthOverview `json:"overviews"`
	Skipped   []SkippedCategory    `json:"skipped,omitempty"`
	Failures  []core.ItemError     `json:"-"`
	// TextEnriched reports whether messages were rewritten by the text
	// generator. TextError holds the reason when enrichment was skipped.
	TextEnriched bool   `json:"text_enriched"`
	TextError    string `json:"text_error,omitempty"`
}

// InsightGenerator merges budget, anomaly and pattern findings into a
// ranked list of insights.
type InsightGenerator struct {
	tree      *core.CategoryTree
	patterns  *PatternDetector
	budgets   *BudgetTracker
	anomalies *AnomalyDetector
	text      llm.TextGenerator
	cfg       InsightConfig
}

// NewInsightGenerator wires the analysis components. text may be nil.
func NewInsightGenerator(tree *core.CategoryTree, patterns *PatternDetector, budgets *BudgetTracker, anomalies *AnomalyDetector, text llm.TextGenerator, cfg InsightConfig) *InsightGenerator {
	return &InsightGenerator{tree: tree, patterns: patterns, budgets: budgets, anomalies: anomalies, text: text, cfg: cfg}
}

// GenerateMonthlyInsights analyzes the month containing month. History up
// to the end of that month feeds pattern and anomaly statistics; only
// anomalies dated within the month are reported, and only budgets whose
// window overlaps the month are evaluated. It never fails: analysis errors
// are collected in Failures and text generation problems in TextError.
func (g *InsightGenerator) GenerateMonthlyInsights(ctx context.Context, month core.Date, txns []core.Transaction, budgets []core.Budget) InsightReport {
	start, end, _ := core.PeriodWindow(core.PeriodMonthly, month)
	report := InsightReport{Year: start.Year(), Month: start.Month()}

	history := core.Select(txns, func(t core.Transaction) bool { return !t.Date.After(end.Time) })
	var active []core.Budget
	for _, b := range budgets {
		if !b.EndDate.Before(start.Time) && !b.StartDate.After(end.Time) {
			active = append(active, b)
		}
	}

	// The detectors share the read-only snapshot and write to separate reports.
	var (
		patternReport PatternReport
		budgetReport  BudgetReport
		anomalyReport AnomalyReport
	)
	var eg errgroup.Group
	eg.Go(func() error {
		patternReport = g.patterns.DetectRecurring(history)
		return nil
	})
	eg.Go(func() error {
		budgetReport = g.budgets.EvaluateAll(active, txns)
		return nil
	})
	eg.Go(func() error {
		anomalyReport = g.anomalies.DetectAnomalies(history)
		return nil
	})
	eg.Go(func() error {
		report.Overviews = core.SummarizeMonth(report.Year, report.Month, txns, g.tree, g.cfg.TopCategories)
		return nil
	})
	_ = eg.Wait()

	report.Failures = append(report.Failures, budgetReport.Failures...)
	report.Failures = append(report.Failures, anomalyReport.Failures...)
	report.Failures = append(report.Failures, patternReport.Failures...)
	report.Skipped = anomalyReport.Skipped

	var insights []core.Insight
	for _, eval := range budgetReport.Evaluations {
		insights = append(insights, g.budgetInsight(eval))
	}
	for _, a := range g.monthAnomalies(anomalyReport.Anomalies, start, end) {
		insights = append(insights, g.anomalyInsight(a))
	}
	for _, p := range patternReport.Patterns {
		insights = append(insights, g.patternInsight(p))
	}
	for i := range report.Overviews {
		insights = append(insights, summaryInsight(&report.Overviews[i]))
	}

	slices.SortStableFunc(insights, func(a, b core.Insight) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	report.Insights = insights

	g.enrich(ctx, &report)

	slog.InfoContext(ctx, "Generated monthly insights",
		"year", report.Year,
		"month", report.Month,
		"insights", len(report.Insights),
		"failures", len(report.Failures),
		"text_enriched", report.TextEnriched)
	return report
}

// monthAnomalies keeps anomalies inside [start, end], most severe first.
func (g *InsightGenerator) monthAnomalies(all []core.Anomaly, start, end core.Date) []core.Anomaly {
	month := fmt.Sprintf("%04d-%02d", start.Year(), start.Month())
	var out []core.Anomaly
	for _, a := range all {
		switch a.Metric {
		case core.MetricMonthlySpend:
			if a.Period == month {
				out = append(out, a)
			}
		default:
			if d, err := core.ParseDate(a.Period); err == nil && d.Between(start, end) {
				out = append(out, a)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b core.Anomaly) int { return cmp.Compare(b.Severity, a.Severity) })
	return out
}

func (g *InsightGenerator) categoryName(id string) string {
	if c, ok := g.tree.Get(id); ok {
		return c.Name
	}
	if id == "" {
		return "Uncategorized"
	}
	return id
}

func (g *InsightGenerator) budgetInsight(eval core.BudgetEvaluation) core.Insight {
	name := g.categoryName(eval.Budget.CategoryID)
	in := core.Insight{CategoryTag: name, Evidence: core.Evidence{Budget: &eval}}
	switch {
	case eval.IsExceeded:
		in.Kind = core.InsightBudgetExceeded
		in.Priority = core.PriorityHigh
		in.Message = fmt.Sprintf("Budget for %s exceeded: spent %s of %s (%s over).",
			name, eval.Spent, eval.Budget.Limit, eval.Remaining.Neg())
	case eval.PercentageUsed >= g.cfg.WarnPercent:
		in.Kind = core.InsightBudgetWarning
		in.Priority = core.PriorityMedium
		in.Message = fmt.Sprintf("You have used %.0f%% of your %s budget (%s of %s, %s left).",
			eval.PercentageUsed, name, eval.Spent, eval.Budget.Limit, eval.Remaining)
	default:
		in.Kind = core.InsightBudgetOnTrack
		in.Priority = core.PriorityLow
		in.Message = fmt.Sprintf("%s budget on track: %s of %s used (%.0f%%).",
			name, eval.Spent, eval.Budget.Limit, eval.PercentageUsed)
	}
	return in
}

func (g *InsightGenerator) anomalyInsight(a core.Anomaly) core.Insight {
	name := g.categoryName(a.CategoryID)
	in := core.Insight{Kind: core.InsightUnusualSpending, CategoryTag: name, Priority: core.PriorityLow, Evidence: core.Evidence{Anomaly: &a}}
	if a.Severity > g.cfg.HighSeverity {
		in.Priority = core.PriorityHigh
	}
	if a.Metric == core.MetricMonthlySpend {
		in.Message = fmt.Sprintf("Spending on %s in %s reached %s, well above the usual %s.",
			name, a.Period, a.Observed, a.Median)
	} else {
		in.Message = fmt.Sprintf("Unusual %s expense of %s on %s (typically %s to %s).",
			name, a.Observed, a.Period, a.ExpectedRange.Low, a.ExpectedRange.High)
	}
	return in
}

func (g *InsightGenerator) patternInsight(p core.PatternMatch) core.Insight {
	tag := g.categoryName(p.CategoryID)
	msg := fmt.Sprintf("Recurring payment %q of %s seen %d times", p.RepresentativeDescription, p.Amount.Abs(), len(p.MatchedTransactionIDs))
	if p.Cadence != core.CadenceIrregular {
		msg += fmt.Sprintf(" (%s, next expected %s)", p.Cadence, p.NextExpected)
	}
	return core.Insight{
		Kind:        core.InsightRecurring,
		CategoryTag: tag,
		Message:     msg + ".",
		Priority:    core.PriorityLow,
		Evidence:    core.Evidence{Pattern: &p},
	}
}

func summaryInsight(ov *core.MonthOverview) core.Insight {
	msg := fmt.Sprintf("In %04d-%02d you earned %s and spent %s (net %s) across %d transactions.",
		ov.Year, ov.Month, ov.Income, ov.Expenses, ov.Net, ov.TransactionCount)
	if len(ov.TopCategories) > 0 {
		top := ov.TopCategories[0]
		msg += fmt.Sprintf(" Top category: %s with %s.", top.Name, top.Amount)
	}
	return core.Insight{
		Kind:        core.InsightSpendingSummary,
		CategoryTag: "overall",
		Message:     msg,
		Priority:    core.PriorityLow,
		Evidence:    core.Evidence{Overview: ov},
	}
}

// enrich rewrites messages through the text generator. Priorities and
// evidence are never touched; any failure leaves the plain messages.
func (g *InsightGenerator) enrich(ctx context.Context, report *InsightReport) {
	if g.text == nil || len(report.Insights) == 0 {
		return
	}
	findings := make([]llm.Finding, len(report.Insights))
	for i, in := range report.Insights {
		findings[i] = llm.Finding{Kind: string(in.Kind), Category: in.CategoryTag, Priority: in.Priority.String(), Message: in.Message}
	}
	timeout := g.cfg.TextTimeout
	if timeout <= 0 {
		timeout = DefaultTextTimeout
	}
	texts, err := callWithTimeout(ctx, timeout, func(ctx context.Context) ([]string, error) {
		return g.text.GenerateInsightText(ctx, findings)
	})
	if err == nil && len(texts) != len(findings) {
		err = fmt.Errorf("got %d texts for %d findings", len(texts), len(findings))
	}
	if err != nil {
		slog.WarnContext(ctx, "Insight text generation unavailable, keeping plain messages", "error", err)
		report.TextError = fmt.Errorf("%w: %w", core.ErrCapabilityUnavailable, err).Error()
		return
	}
	for i, text := range texts {
		if text != "" {
			report.Insights[i].Message = text
		}
	}
	report.TextEnriched = true
}

// insightDeadline bounds a whole insight run started by a worker.
const insightDeadline = 2 * time.Minute
