package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneymind/internal/amqp"
	"moneymind/internal/cache"
	"moneymind/internal/core"
	"moneymind/internal/log"
	"moneymind/internal/services"
	"moneymind/internal/sheets"
)

// seenTTL bounds how long a handled event ID suppresses redeliveries.
const seenTTL = time.Hour

// InsightGenerator regenerates and stores one month's insight report.
type InsightGenerator interface {
	Generate(ctx context.Context, month core.Date) (services.InsightReport, error)
}

// InsightWorker keeps stored insights current as transactions get
// categorized.
type InsightWorker struct {
	transactions sheets.TransactionReader
	insights     InsightGenerator
	seen         *cache.LRUCache[struct{}]
}

func NewInsightWorker(transactions sheets.TransactionReader, insights InsightGenerator, seenSize int) *InsightWorker {
	return &InsightWorker{
		transactions: transactions,
		insights:     insights,
		seen:         cache.NewLRUCache[struct{}](seenSize, seenTTL),
	}
}

// SeenCache exposes the redelivery filter for periodic cleanup.
func (w *InsightWorker) SeenCache() cache.Cleaner {
	return w.seen
}

// HandleCategorized regenerates the insights of the month the categorized
// transaction belongs to. A returned error asks the broker to redeliver.
func (w *InsightWorker) HandleCategorized(ctx context.Context, msg *amqp.CategorizedMessage) error {
	fields := log.NewFields().WithOperation(log.OpConsume).WithCategorized(msg.Event())

	if _, ok := w.seen.Get(msg.EventID); ok {
		slog.DebugContext(ctx, "Skipping redelivered event", fields.ToSlice()...)
		return nil
	}

	txn, found, err := w.findTransaction(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if !found {
		slog.WarnContext(ctx, "Categorized transaction not found, dropping event", fields.ToSlice()...)
		w.seen.Set(msg.EventID, struct{}{})
		return nil
	}

	month := core.NewDate(txn.Date.Year(), txn.Date.Month(), 1)
	report, err := w.insights.Generate(ctx, month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to regenerate insights", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("regenerate insights for %d-%02d: %w", month.Year(), month.Month(), err)
	}
	w.seen.Set(msg.EventID, struct{}{})

	slog.InfoContext(ctx, "Insights regenerated",
		fields.WithPeriod(report.Year, report.Month).ToSlice()...)
	return nil
}

// RefreshMonth regenerates the report of the month containing now. Workers
// call it at startup to recover from events missed while down.
func (w *InsightWorker) RefreshMonth(ctx context.Context, now time.Time) error {
	month := core.NewDate(now.Year(), int(now.Month()), 1)
	report, err := w.insights.Generate(ctx, month)
	if err != nil {
		return fmt.Errorf("refresh insights: %w", err)
	}
	slog.InfoContext(ctx, "Insights refreshed",
		log.FieldYear, report.Year,
		log.FieldMonth, report.Month,
		log.FieldCount, len(report.Insights),
		"text_enriched", report.TextEnriched)
	return nil
}

func (w *InsightWorker) findTransaction(ctx context.Context, id string) (core.Transaction, bool, error) {
	txns, err := w.transactions.ListTransactions(ctx, core.Date{}, core.Date{})
	if err != nil {
		return core.Transaction{}, false, err
	}
	for _, t := range txns {
		if t.ID == id {
			return t, true, nil
		}
	}
	return core.Transaction{}, false, nil
}
