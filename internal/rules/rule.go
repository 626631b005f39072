// Package rules implements the deterministic categorization rule engine.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MatchMerchantExact       MatchKind = "merchant_exact"
	MatchDescriptionExact    MatchKind = "description_exact"
	MatchRegex               MatchKind = "regex"
	MatchMerchantContains    MatchKind = "merchant_contains"
	MatchDescriptionContains MatchKind = "description_contains"
)

const (
	DirectionAny     Direction = ""
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

type (
	// MatchKind selects the predicate a rule applies. Kinds are ranked by
	// specificity; see rank.
	MatchKind string

	Direction string

	// Rule maps a description/merchant predicate to a category.
	// Category may be a category ID or name. Amount bounds are absolute
	// minor units and inclusive.
	Rule struct {
		ID         string    `yaml:"id"`
		Name       string    `yaml:"name"`
		Match      MatchKind `yaml:"match"`
		Pattern    string    `yaml:"pattern"`
		Category   string    `yaml:"category"`
		Confidence float64   `yaml:"confidence"`
		Priority   int       `yaml:"priority"`
		Direction  Direction `yaml:"direction"`
		MinAmount  *int64    `yaml:"min_amount"`
		MaxAmount  *int64    `yaml:"max_amount"`
	}

	ruleFile struct {
		Rules []Rule `yaml:"rules"`
	}
)

var (
	ErrInvalidRule = errors.New("invalid rule")
)

// rank orders kinds from most to least specific.
func (k MatchKind) rank() (int, bool) {
	switch k {
	case MatchMerchantExact:
		return 0, true
	case MatchDescriptionExact:
		return 1, true
	case MatchRegex:
		return 2, true
	case MatchMerchantContains:
		return 3, true
	case MatchDescriptionContains:
		return 4, true
	}
	return 0, false
}

func (r Rule) label() string {
	if r.ID != "" {
		return r.ID
	}
	if r.Name != "" {
		return r.Name
	}
	return r.Pattern
}

// ParseRules decodes a YAML rule document:
//
//	rules:
//	  - id: netflix
//	    match: description_contains
//	    pattern: NETFLIX
//	    category: Entertainment
//	    confidence: 0.95
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	for i := range f.Rules {
		f.Rules[i].Match = MatchKind(strings.ToLower(strings.TrimSpace(string(f.Rules[i].Match))))
		f.Rules[i].Direction = Direction(strings.ToLower(strings.TrimSpace(string(f.Rules[i].Direction))))
	}
	return f.Rules, nil
}

// LoadRulesFile reads and decodes a YAML rule file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}
