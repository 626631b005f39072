package core

import (
	"time"

	"github.com/google/uuid"
)

// TransactionCategorized is emitted once per successful categorization.
// The core only builds the value; delivery belongs to an event sink.
type TransactionCategorized struct {
	EventID       string           `json:"event_id"`
	TransactionID string           `json:"transaction_id"`
	CategoryID    string           `json:"category_id"`
	Source        SuggestionSource `json:"source"`
	Confidence    float64          `json:"confidence"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

func NewTransactionCategorized(txn Transaction, s CategorySuggestion, at time.Time) TransactionCategorized {
	return TransactionCategorized{
		EventID:       uuid.NewString(),
		TransactionID: txn.ID,
		CategoryID:    s.Category.ID,
		Source:        s.Source,
		Confidence:    s.Confidence,
		OccurredAt:    at.UTC(),
	}
}
