package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymind/internal/core"
	"moneymind/internal/llm"
	"moneymind/internal/rules"
)

// CategorizationResult is the outcome of one successful categorization.
type CategorizationResult struct {
	// Transaction is a copy of the input with the category applied.
	Transaction core.Transaction
	Suggestion  core.CategorySuggestion
	// LowConfidence is set when the AI failed and a rule suggestion below
	// the auto-accept threshold was used instead.
	LowConfidence bool
	Event         core.TransactionCategorized
}

// BatchResult keeps input order. Results[i] is the zero value when input i
// failed; Events holds one event per success in input order.
type BatchResult struct {
	Results  []CategorizationResult
	Events   []core.TransactionCategorized
	Failures []core.ItemError
}

// Succeeded returns the successful results in input order.
func (b BatchResult) Succeeded() []CategorizationResult {
	out := make([]CategorizationResult, 0, len(b.Events))
	for _, r := range b.Results {
		if r.Event.EventID != "" {
			out = append(out, r)
		}
	}
	return out
}

// CategorizationService runs rules first and falls back to the AI
// capability when no rule is confident enough.
type CategorizationService struct {
	rules *rules.Engine
	ai    llm.Categorizer
	tree  *core.CategoryTree
	cfg   CategorizationConfig
	now   func() time.Time
}

// NewCategorizationService wires the orchestrator. ai may be nil, in which
// case every AI call fails with core.ErrCapabilityUnavailable.
func NewCategorizationService(engine *rules.Engine, ai llm.Categorizer, tree *core.CategoryTree, cfg CategorizationConfig) *CategorizationService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.SuggestionLimit < 1 {
		cfg.SuggestionLimit = DefaultSuggestionLimit
	}
	return &CategorizationService{rules: engine, ai: ai, tree: tree, cfg: cfg, now: time.Now}
}

// CategorizeTransaction assigns a category to txn. The input is never
// modified; the result carries an updated copy and the domain event.
func (s *CategorizationService) CategorizeTransaction(ctx context.Context, txn core.Transaction) (CategorizationResult, error) {
	ruleHit := s.rules.Categorize(txn)
	if ruleHit != nil && ruleHit.Confidence > s.cfg.AutoAcceptThreshold {
		return s.apply(txn, *ruleHit, false)
	}

	aiHit, err := s.askAI(ctx, txn)
	if err == nil {
		return s.apply(txn, aiHit, false)
	}

	if ruleHit != nil {
		slog.WarnContext(ctx, "AI categorization unavailable, using low confidence rule match",
			"transaction_id", txn.ID,
			"category", ruleHit.Category.Name,
			"confidence", ruleHit.Confidence,
			"error", err)
		return s.apply(txn, *ruleHit, true)
	}
	return CategorizationResult{}, fmt.Errorf("%w: transaction %s: %w", core.ErrCategorizationFailed, txn.ID, err)
}

func (s *CategorizationService) askAI(ctx context.Context, txn core.Transaction) (core.CategorySuggestion, error) {
	if s.ai == nil {
		return core.CategorySuggestion{}, fmt.Errorf("%w: no AI categorizer configured", core.ErrCapabilityUnavailable)
	}
	req := llm.CategorizeRequest{
		Description: txn.Description,
		Merchant:    txn.Merchant,
		Amount:      txn.Amount,
		Categories:  s.activeNames(),
	}
	resp, err := callWithTimeout(ctx, s.cfg.AITimeout, func(ctx context.Context) (llm.CategorizeResponse, error) {
		return s.ai.Categorize(ctx, req)
	})
	if err != nil {
		return core.CategorySuggestion{}, fmt.Errorf("%w: %w", core.ErrCapabilityUnavailable, err)
	}
	c, ok := s.tree.Resolve(strings.TrimSpace(resp.Category))
	if !ok {
		return core.CategorySuggestion{}, fmt.Errorf("%w: AI returned unknown category %q", core.ErrCapabilityUnavailable, resp.Category)
	}
	if !c.IsActive {
		return core.CategorySuggestion{}, fmt.Errorf("%w: AI returned inactive category %q", core.ErrCapabilityUnavailable, c.Name)
	}
	return core.CategorySuggestion{Category: c, Confidence: clamp01(resp.Confidence), Source: core.SourceAI}, nil
}

// apply enforces that only active categories are assigned.
func (s *CategorizationService) apply(txn core.Transaction, sugg core.CategorySuggestion, low bool) (CategorizationResult, error) {
	c, ok := s.tree.Get(sugg.Category.ID)
	if !ok {
		return CategorizationResult{}, fmt.Errorf("%w: transaction %s: %w %s", core.ErrInvalidCategoryAssignment, txn.ID, core.ErrCategoryNotFound, sugg.Category.ID)
	}
	if !c.IsActive {
		return CategorizationResult{}, fmt.Errorf("%w: transaction %s: category %s is inactive", core.ErrInvalidCategoryAssignment, txn.ID, c.Name)
	}
	sugg.Category = c
	return CategorizationResult{
		Transaction:   txn.WithCategory(c.ID),
		Suggestion:    sugg,
		LowConfidence: low,
		Event:         core.NewTransactionCategorized(txn, sugg, s.now()),
	}, nil
}

// CategorizeBatch categorizes transactions in parallel. Failures are
// collected per transaction; results and events keep input order.
func (s *CategorizationService) CategorizeBatch(ctx context.Context, txns []core.Transaction) BatchResult {
	results := make([]CategorizationResult, len(txns))
	errs := make([]error, len(txns))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, t := range txns {
		g.Go(func() error {
			results[i], errs[i] = s.CategorizeTransaction(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Results: results}
	for i, err := range errs {
		if err != nil {
			out.Failures = append(out.Failures, core.ItemError{Kind: "transaction", ID: txns[i].ID, Err: err})
			continue
		}
		out.Events = append(out.Events, results[i].Event)
	}
	return out
}

// SuggestCategories ranks candidate categories for a description, for user
// review. It never fails: AI errors are logged and rule suggestions are
// returned alone. Inactive categories are left out.
func (s *CategorizationService) SuggestCategories(ctx context.Context, description string) []core.CategorySuggestion {
	if strings.TrimSpace(description) == "" {
		return []core.CategorySuggestion{}
	}
	best := map[string]core.CategorySuggestion{}
	keep := func(sugg core.CategorySuggestion) {
		c, ok := s.tree.Get(sugg.Category.ID)
		if !ok || !c.IsActive {
			return
		}
		sugg.Category = c
		if prev, ok := best[c.ID]; !ok || sugg.Confidence > prev.Confidence {
			best[c.ID] = sugg
		}
	}

	for _, sugg := range s.rules.Suggest(description) {
		keep(sugg)
	}
	if s.ai != nil {
		aiSuggestions, err := callWithTimeout(ctx, s.cfg.AITimeout, func(ctx context.Context) ([]llm.Suggestion, error) {
			return s.ai.SuggestCategories(ctx, llm.SuggestRequest{
				Description: description,
				Categories:  s.activeNames(),
				Limit:       s.cfg.SuggestionLimit,
			})
		})
		if err != nil {
			slog.WarnContext(ctx, "AI suggestions unavailable", "error", errors.Join(core.ErrCapabilityUnavailable, err))
		}
		for _, a := range aiSuggestions {
			if c, ok := s.tree.Resolve(strings.TrimSpace(a.Category)); ok {
				keep(core.CategorySuggestion{Category: c, Confidence: clamp01(a.Confidence), Source: core.SourceAI})
			}
		}
	}

	out := make([]core.CategorySuggestion, 0, len(best))
	for _, sugg := range best {
		out = append(out, sugg)
	}
	rules.SortSuggestions(out)
	if len(out) > s.cfg.SuggestionLimit {
		out = out[:s.cfg.SuggestionLimit]
	}
	return out
}

func (s *CategorizationService) activeNames() []string {
	active := s.tree.Active()
	names := make([]string, len(active))
	for i, c := range active {
		names[i] = c.Name
	}
	return names
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
