package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"moneymind/internal/core"
)

// CategorizedMessage carries a TransactionCategorized event. Consumers
// reload the transaction from storage when they need more than the IDs.
type CategorizedMessage struct {
	EventID       string                `json:"event_id"`
	TransactionID string                `json:"transaction_id"`
	CategoryID    string                `json:"category_id"`
	Source        core.SuggestionSource `json:"source"`
	Confidence    float64               `json:"confidence"`
	OccurredAt    time.Time             `json:"occurred_at"`
	Timestamp     time.Time             `json:"timestamp"`
}

// NewCategorizedMessage wraps an event, stamping the publish time
func NewCategorizedMessage(evt core.TransactionCategorized) *CategorizedMessage {
	return &CategorizedMessage{
		EventID:       evt.EventID,
		TransactionID: evt.TransactionID,
		CategoryID:    evt.CategoryID,
		Source:        evt.Source,
		Confidence:    evt.Confidence,
		OccurredAt:    evt.OccurredAt,
		Timestamp:     time.Now(),
	}
}

// Event converts the message back to the domain event
func (m *CategorizedMessage) Event() core.TransactionCategorized {
	return core.TransactionCategorized{
		EventID:       m.EventID,
		TransactionID: m.TransactionID,
		CategoryID:    m.CategoryID,
		Source:        m.Source,
		Confidence:    m.Confidence,
		OccurredAt:    m.OccurredAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *CategorizedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CategorizedMessageFromJSON decodes a message and checks the required IDs
func CategorizedMessageFromJSON(data []byte) (*CategorizedMessage, error) {
	var msg CategorizedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" || msg.TransactionID == "" || msg.CategoryID == "" {
		return nil, fmt.Errorf("categorized message missing ids")
	}
	return &msg, nil
}
