package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moneymind/internal/amqp"
	"moneymind/internal/core"
	"moneymind/internal/services"
	"moneymind/internal/sheets/memory"
)

type fakeGenerator struct {
	mu     sync.Mutex
	months []string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, month core.Date) (services.InsightReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.months = append(f.months, month.String())
	if f.err != nil {
		return services.InsightReport{}, f.err
	}
	return services.InsightReport{Year: month.Year(), Month: month.Month()}, nil
}

type failingReader struct{}

func (failingReader) ListTransactions(context.Context, core.Date, core.Date) ([]core.Transaction, error) {
	return nil, errors.New("store down")
}

func newStore() *memory.Store {
	return memory.New(memory.DefaultCategories(), []core.Transaction{
		{ID: "t1", Date: core.NewDate(2025, 9, 14), Amount: core.NewMoney(-1599, "EUR"), Description: "NETFLIX.COM"},
	}, nil)
}

func message(eventID, txnID string) *amqp.CategorizedMessage {
	return &amqp.CategorizedMessage{EventID: eventID, TransactionID: txnID, CategoryID: "entertainment", Source: core.SourceRule, Confidence: 0.95}
}

func TestInsightWorker_HandleCategorized(t *testing.T) {
	ctx := context.Background()

	t.Run("regenerates the transaction month once per event", func(t *testing.T) {
		gen := &fakeGenerator{}
		w := NewInsightWorker(newStore(), gen, 10)

		if err := w.HandleCategorized(ctx, message("e1", "t1")); err != nil {
			t.Fatalf("HandleCategorized() error = %v", err)
		}
		if err := w.HandleCategorized(ctx, message("e1", "t1")); err != nil {
			t.Fatalf("redelivery error = %v", err)
		}
		if len(gen.months) != 1 || gen.months[0] != "2025-09-01" {
			t.Fatalf("months = %v, want [2025-09-01]", gen.months)
		}
	})

	t.Run("unknown transaction is dropped", func(t *testing.T) {
		gen := &fakeGenerator{}
		w := NewInsightWorker(newStore(), gen, 10)
		if err := w.HandleCategorized(ctx, message("e2", "missing")); err != nil {
			t.Fatalf("HandleCategorized() error = %v", err)
		}
		if len(gen.months) != 0 {
			t.Fatalf("unexpected generation: %v", gen.months)
		}
	})

	t.Run("store failure requests redelivery", func(t *testing.T) {
		w := NewInsightWorker(failingReader{}, &fakeGenerator{}, 10)
		if err := w.HandleCategorized(ctx, message("e3", "t1")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("generation failure is retried", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("sheets quota")}
		w := NewInsightWorker(newStore(), gen, 10)
		if err := w.HandleCategorized(ctx, message("e4", "t1")); err == nil {
			t.Fatal("expected error")
		}
		gen.err = nil
		if err := w.HandleCategorized(ctx, message("e4", "t1")); err != nil {
			t.Fatalf("retry error = %v", err)
		}
		if len(gen.months) != 2 {
			t.Fatalf("a failed event must not be marked as seen: %v", gen.months)
		}
	})
}

func TestInsightWorker_RefreshMonth(t *testing.T) {
	gen := &fakeGenerator{}
	w := NewInsightWorker(newStore(), gen, 10)
	if err := w.RefreshMonth(context.Background(), time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if gen.months[0] != "2025-10-01" {
		t.Errorf("months = %v", gen.months)
	}
	if w.SeenCache() == nil {
		t.Error("expected a seen cache")
	}

	gen.err = errors.New("boom")
	if err := w.RefreshMonth(context.Background(), time.Now()); err == nil {
		t.Error("expected error")
	}
}
