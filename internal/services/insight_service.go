package services

import (
	"context"
	"fmt"
	"log/slog"

	"moneymind/internal/core"
	"moneymind/internal/llm"
	"moneymind/internal/sheets"
)

// AnalysisConfig groups the thresholds of the analysis components.
type AnalysisConfig struct {
	Pattern PatternConfig
	Anomaly AnomalyConfig
	Insight InsightConfig
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Pattern: DefaultPatternConfig(),
		Anomaly: DefaultAnomalyConfig(),
		Insight: DefaultInsightConfig(),
	}
}

// InsightService loads a snapshot, generates a month's insights and
// optionally stores them.
type InsightService struct {
	source sheets.SnapshotReader
	writer sheets.InsightWriter
	text   llm.TextGenerator
	cfg    AnalysisConfig
}

// NewInsightService wires the service. writer and text may be nil.
func NewInsightService(source sheets.SnapshotReader, writer sheets.InsightWriter, text llm.TextGenerator, cfg AnalysisConfig) *InsightService {
	return &InsightService{source: source, writer: writer, text: text, cfg: cfg}
}

// NewGenerator builds an InsightGenerator over tree with the configured thresholds.
func (s *InsightService) NewGenerator(tree *core.CategoryTree) *InsightGenerator {
	return NewInsightGenerator(tree,
		NewPatternDetector(s.cfg.Pattern),
		NewBudgetTracker(tree),
		NewAnomalyDetector(s.cfg.Anomaly),
		s.text,
		s.cfg.Insight,
	)
}

// Generate runs the monthly insight pipeline for the month containing month.
// Only loading the snapshot and writing the report can fail.
func (s *InsightService) Generate(ctx context.Context, month core.Date) (InsightReport, error) {
	ctx, cancel := context.WithTimeout(ctx, insightDeadline)
	defer cancel()

	_, end, err := core.PeriodWindow(core.PeriodMonthly, month)
	if err != nil {
		return InsightReport{}, err
	}
	snap, err := LoadSnapshot(ctx, s.source, core.Date{}, end)
	if err != nil {
		return InsightReport{}, err
	}

	report := s.NewGenerator(snap.Tree).GenerateMonthlyInsights(ctx, month, snap.Transactions, snap.Budgets)
	for _, f := range report.Failures {
		slog.WarnContext(ctx, "Insight analysis skipped item", "kind", f.Kind, "id", f.ID, "error", f.Err)
	}

	if s.writer != nil {
		if err := s.writer.WriteInsights(ctx, report.Year, report.Month, report.Insights); err != nil {
			return report, fmt.Errorf("write insights: %w", err)
		}
	}
	return report, nil
}
