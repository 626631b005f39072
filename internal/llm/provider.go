// Package llm holds the AI capabilities the engine calls out to: transaction
// categorization and insight text generation.
package llm

import (
	"context"
	"errors"

	"moneymind/internal/core"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrNoCategories  = errors.New("no categories to choose from")
)

// Categorizer classifies a transaction into one of the given category names.
type Categorizer interface {
	Categorize(ctx context.Context, req CategorizeRequest) (CategorizeResponse, error)
	SuggestCategories(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
}

// TextGenerator turns structured findings into human-readable sentences,
// one per finding and in the same order.
type TextGenerator interface {
	GenerateInsightText(ctx context.Context, findings []Finding) ([]string, error)
}

type CategorizeRequest struct {
	Description string     `json:"description"`
	Merchant    string     `json:"merchant,omitempty"`
	Amount      core.Money `json:"amount"`
	Categories  []string   `json:"categories"`
}

type CategorizeResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type SuggestRequest struct {
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Limit       int      `json:"limit"`
}

type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Finding is the structured form of an insight handed to text generation.
type Finding struct {
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}
