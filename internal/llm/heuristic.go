package llm

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// HeuristicProvider is an offline Categorizer based on keyword hints and
// token overlap. It never blocks and is used when no model is configured.
type HeuristicProvider struct {
	hints map[string][]string
}

// defaultHints maps description keywords to words expected in category names.
var defaultHints = map[string][]string{
	"uber":      {"transport", "travel"},
	"lyft":      {"transport", "travel"},
	"shell":     {"transport", "fuel", "car"},
	"aldi":      {"grocer", "food"},
	"lidl":      {"grocer", "food"},
	"tesco":     {"grocer", "food"},
	"amazon":    {"shopping"},
	"ebay":      {"shopping"},
	"netflix":   {"entertainment", "subscription"},
	"spotify":   {"entertainment", "subscription"},
	"pharmacy":  {"health"},
	"salary":    {"salary", "income"},
	"payroll":   {"salary", "income"},
	"transfer":  {"transfer"},
	"pmt to":    {"transfer"},
	"rent":      {"housing", "rent"},
	"insurance": {"insurance"},
}

func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{hints: defaultHints}
}

func (h *HeuristicProvider) Categorize(ctx context.Context, req CategorizeRequest) (CategorizeResponse, error) {
	if err := ctx.Err(); err != nil {
		return CategorizeResponse{}, err
	}
	if len(req.Categories) == 0 {
		return CategorizeResponse{}, ErrNoCategories
	}
	desc := strings.ToLower(req.Description + " " + req.Merchant)
	bestCat, bestScore := "", 0.0
	for _, cat := range req.Categories {
		if score := h.score(desc, cat); score > bestScore {
			bestScore, bestCat = score, cat
		}
	}
	if bestCat == "" {
		return CategorizeResponse{}, ErrEmptyResponse
	}
	return CategorizeResponse{Category: bestCat, Confidence: bestScore}, nil
}

func (h *HeuristicProvider) SuggestCategories(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	desc := strings.ToLower(req.Description)
	var out []Suggestion
	for _, cat := range req.Categories {
		if score := h.score(desc, cat); score > 0 {
			out = append(out, Suggestion{Category: cat, Confidence: score})
		}
	}
	slices.SortStableFunc(out, func(a, b Suggestion) int { return cmp.Compare(b.Confidence, a.Confidence) })
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (h *HeuristicProvider) score(desc, cat string) float64 {
	catLower := strings.ToLower(cat)
	if strings.Contains(desc, catLower) {
		return 0.9
	}
	for keyword, words := range h.hints {
		if !strings.Contains(desc, keyword) {
			continue
		}
		for _, w := range words {
			if strings.Contains(catLower, w) {
				return 0.8
			}
		}
	}
	return textSimilarity(desc, catLower)
}

// textSimilarity is a token overlap (Jaccard) ratio in [0,1].
func textSimilarity(a, b string) float64 {
	aTokens := tokens(a)
	bTokens := tokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	intersect := 0
	for t := range aTokens {
		if _, ok := bTokens[t]; ok {
			intersect++
		}
	}
	union := len(aTokens) + len(bTokens) - intersect
	return float64(intersect) / float64(union)
}

func tokens(s string) map[string]struct{} {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == '*' || r == '.'
	})
	out := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		out[p] = struct{}{}
	}
	return out
}
