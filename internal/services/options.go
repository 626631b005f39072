// Package services provides the categorization and insight business logic.
package services

import "time"

// Defaults for the tunable thresholds. The config package overrides them
// from the environment.
const (
	DefaultAutoAcceptThreshold = 0.9
	DefaultAITimeout           = 8 * time.Second
	DefaultConcurrency         = 4
	DefaultSuggestionLimit     = 5

	DefaultMinOccurrences = 3

	DefaultMinSampleSize  = 5
	DefaultSpreadMultiple = 3.0

	DefaultWarnPercent   = 80.0
	DefaultHighSeverity  = 5.0
	DefaultTextTimeout   = 10 * time.Second
	DefaultTopCategories = 3
)

// CategorizationConfig tunes the categorization orchestrator.
type CategorizationConfig struct {
	// AutoAcceptThreshold: a rule suggestion strictly above it skips the AI.
	AutoAcceptThreshold float64
	AITimeout           time.Duration
	Concurrency         int
	SuggestionLimit     int
}

func DefaultCategorizationConfig() CategorizationConfig {
	return CategorizationConfig{
		AutoAcceptThreshold: DefaultAutoAcceptThreshold,
		AITimeout:           DefaultAITimeout,
		Concurrency:         DefaultConcurrency,
		SuggestionLimit:     DefaultSuggestionLimit,
	}
}

// PatternConfig tunes recurring payment detection.
type PatternConfig struct {
	MinOccurrences int
	// AmountTolerance is the allowed spread of amounts inside a group, in
	// minor units. Zero means amounts must match exactly.
	AmountTolerance int64
	// TolerancePercent widens the band by a share of the group's median amount.
	TolerancePercent float64
}

func DefaultPatternConfig() PatternConfig {
	return PatternConfig{MinOccurrences: DefaultMinOccurrences}
}

// AnomalyConfig tunes outlier detection.
type AnomalyConfig struct {
	MinSampleSize  int
	SpreadMultiple float64
}

func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{MinSampleSize: DefaultMinSampleSize, SpreadMultiple: DefaultSpreadMultiple}
}

// InsightConfig tunes insight priorities and text enrichment.
type InsightConfig struct {
	WarnPercent   float64
	HighSeverity  float64
	TextTimeout   time.Duration
	TopCategories int
}

func DefaultInsightConfig() InsightConfig {
	return InsightConfig{
		WarnPercent:   DefaultWarnPercent,
		HighSeverity:  DefaultHighSeverity,
		TextTimeout:   DefaultTextTimeout,
		TopCategories: DefaultTopCategories,
	}
}
