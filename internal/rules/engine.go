package rules

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"moneymind/internal/core"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy suggestion.
const DefaultFuzzyThreshold = 0.75

type compiledRule struct {
	Rule
	pattern  string
	re       *regexp.Regexp
	category core.Category
	rank     int
	seq      int
}

// Engine evaluates an ordered rule set. It holds no mutable state after
// NewEngine returns and is safe for concurrent use.
type Engine struct {
	rules          []compiledRule
	fuzzyThreshold float64
}

// NewEngine validates and orders rules. Categories are resolved against
// tree by ID first, then by name. Rules pointing at inactive categories
// are kept; the caller decides whether an assignment is allowed.
func NewEngine(rules []Rule, tree *core.CategoryTree) (*Engine, error) {
	e := &Engine{fuzzyThreshold: DefaultFuzzyThreshold}
	for i, r := range rules {
		rank, ok := r.Match.rank()
		if !ok {
			return nil, fmt.Errorf("%w %s: unknown match kind %q", ErrInvalidRule, r.label(), r.Match)
		}
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("%w %s: empty pattern", ErrInvalidRule, r.label())
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("%w %s: confidence %.2f outside [0,1]", ErrInvalidRule, r.label(), r.Confidence)
		}
		switch r.Direction {
		case DirectionAny, DirectionExpense, DirectionIncome:
		default:
			return nil, fmt.Errorf("%w %s: unknown direction %q", ErrInvalidRule, r.label(), r.Direction)
		}
		if r.MinAmount != nil && r.MaxAmount != nil && *r.MinAmount > *r.MaxAmount {
			return nil, fmt.Errorf("%w %s: min amount above max amount", ErrInvalidRule, r.label())
		}
		c, ok := tree.Resolve(r.Category)
		if !ok {
			return nil, fmt.Errorf("%w %s: %w %q", ErrInvalidRule, r.label(), core.ErrCategoryNotFound, r.Category)
		}
		cr := compiledRule{Rule: r, pattern: core.NormalizeText(r.Pattern), category: c, rank: rank, seq: i}
		if r.Match == MatchRegex {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w %s: %v", ErrInvalidRule, r.label(), err)
			}
			cr.re = re
		}
		e.rules = append(e.rules, cr)
	}
	slices.SortStableFunc(e.rules, func(a, b compiledRule) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return e, nil
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int { return len(e.rules) }

// Categorize returns the suggestion of the first matching rule, or nil.
// Transactions with an empty or whitespace-only description never match.
func (e *Engine) Categorize(txn core.Transaction) *core.CategorySuggestion {
	desc := core.NormalizeText(txn.Description)
	if desc == "" {
		return nil
	}
	merchant := core.NormalizeText(txn.Merchant)
	for _, r := range e.rules {
		if !r.amountMatches(txn.Amount) {
			continue
		}
		if r.textMatches(desc, merchant, txn.Description) {
			return &core.CategorySuggestion{Category: r.category, Confidence: r.Confidence, Source: core.SourceRule}
		}
	}
	return nil
}

func (r compiledRule) amountMatches(m core.Money) bool {
	switch r.Direction {
	case DirectionExpense:
		if !m.IsNegative() {
			return false
		}
	case DirectionIncome:
		if !m.IsPositive() {
			return false
		}
	}
	abs := m.Abs().Amount
	if r.MinAmount != nil && abs < *r.MinAmount {
		return false
	}
	if r.MaxAmount != nil && abs > *r.MaxAmount {
		return false
	}
	return true
}

func (r compiledRule) textMatches(desc, merchant, raw string) bool {
	switch r.Match {
	case MatchMerchantExact:
		return merchant != "" && merchant == r.pattern
	case MatchDescriptionExact:
		return desc == r.pattern
	case MatchRegex:
		return r.re.MatchString(raw)
	case MatchMerchantContains:
		return merchant != "" && strings.Contains(merchant, r.pattern)
	case MatchDescriptionContains:
		return strings.Contains(desc, r.pattern)
	}
	return false
}

// Suggest ranks categories for a free-text description, for user review.
// Direct hits carry the rule confidence; near misses are scored by
// Levenshtein similarity and scaled down accordingly. One suggestion per
// category, highest confidence first, ties by category name.
func (e *Engine) Suggest(description string) []core.CategorySuggestion {
	desc := core.NormalizeText(description)
	if desc == "" {
		return nil
	}
	best := map[string]core.CategorySuggestion{}
	for _, r := range e.rules {
		score := 0.0
		switch {
		case r.textMatches(desc, desc, description):
			score = r.Confidence
		case r.Match != MatchRegex:
			if sim := similarity(desc, r.pattern); sim >= e.fuzzyThreshold {
				score = r.Confidence * sim
			}
		}
		if score <= 0 {
			continue
		}
		if prev, ok := best[r.category.ID]; !ok || score > prev.Confidence {
			best[r.category.ID] = core.CategorySuggestion{Category: r.category, Confidence: score, Source: core.SourceRule}
		}
	}
	out := make([]core.CategorySuggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	SortSuggestions(out)
	return out
}

// SortSuggestions orders by confidence descending, then category name.
func SortSuggestions(s []core.CategorySuggestion) {
	slices.SortFunc(s, func(a, b core.CategorySuggestion) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Category.Name, b.Category.Name)
	})
}

// similarity compares pattern against every word window of text with the
// same word count and returns the best 1 - distance/maxLen score.
func similarity(text, pattern string) float64 {
	words := strings.Fields(text)
	n := len(strings.Fields(pattern))
	if n == 0 {
		return 0
	}
	if len(words) < n {
		return ratio(text, pattern)
	}
	best := 0.0
	for i := 0; i+n <= len(words); i++ {
		if s := ratio(strings.Join(words[i:i+n], " "), pattern); s > best {
			best = s
		}
	}
	return best
}

func ratio(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
