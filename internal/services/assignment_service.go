package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"moneymind/internal/core"
	"moneymind/internal/sheets"
)

// EventPublisher delivers TransactionCategorized events to subscribers.
type EventPublisher interface {
	PublishCategorized(ctx context.Context, evt core.TransactionCategorized) error
}

// AssignmentService commits categorization results to storage and then
// publishes their events in categorization order.
type AssignmentService struct {
	store     sheets.AssignmentWriter
	publisher EventPublisher
}

// NewAssignmentService wires storage and publishing. publisher may be nil.
func NewAssignmentService(store sheets.AssignmentWriter, publisher EventPublisher) *AssignmentService {
	return &AssignmentService{
		store:     store,
		publisher: publisher,
	}
}

// Commit stores every successful assignment of batch in one call, then
// publishes the events. Publishing failures are logged and do not undo the
// stored assignments.
func (s *AssignmentService) Commit(ctx context.Context, batch BatchResult) (int, error) {
	succeeded := batch.Succeeded()
	if len(succeeded) == 0 {
		return 0, nil
	}
	if s.store == nil {
		return 0, fmt.Errorf("assignment service not properly initialized")
	}

	txns := make([]core.Transaction, len(succeeded))
	for i, r := range succeeded {
		txns[i] = r.Transaction
	}
	if err := s.store.ApplyAssignments(ctx, txns); err != nil {
		return 0, fmt.Errorf("apply assignments: %w", err)
	}

	for _, evt := range batch.Events {
		if err := s.publish(ctx, evt); err != nil {
			slog.ErrorContext(ctx, "Failed to publish categorized event",
				"transaction_id", evt.TransactionID,
				"event_id", evt.EventID,
				"error", err)
		}
	}
	return len(txns), nil
}

func (s *AssignmentService) publish(ctx context.Context, evt core.TransactionCategorized) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "transaction_id", evt.TransactionID)
		return nil
	}
	return s.publisher.PublishCategorized(ctx, evt)
}

// Close closes the publisher when it holds resources. The store belongs
// to the caller.
func (s *AssignmentService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
