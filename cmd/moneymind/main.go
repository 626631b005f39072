package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneymind/internal/cli"
	"moneymind/internal/config"
	"moneymind/internal/core"
	"moneymind/internal/log"
	"moneymind/internal/rules"
	"moneymind/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()

	var (
		monthFlag  = flag.String("month", time.Now().Format("2006-01"), "month to report on (YYYY-MM)")
		seedFlag   = flag.String("seed", cfg.SeedFile, "YAML seed file for memory and sqlite backends")
		categorize = flag.Bool("categorize", true, "categorize pending transactions before reporting")
		suggest    = flag.String("suggest", "", "print category suggestions for a description and exit")
		outFlag    = flag.String("out", "", "write the JSON report to this file instead of stdout")
	)
	flag.Parse()
	cfg.SeedFile = *seedFlag

	logger := cli.SetupLogger(cfg, log.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	month, err := core.ParseDate(*monthFlag + "-01")
	if err != nil {
		logger.Error("Invalid -month, expected YYYY-MM", "month", *monthFlag, log.FieldError, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, runOptions{
		month:      month,
		categorize: *categorize,
		suggest:    *suggest,
		out:        *outFlag,
	}); err != nil {
		logger.Error("Run failed", log.FieldError, err)
		os.Exit(1)
	}
}

type runOptions struct {
	month      core.Date
	categorize bool
	suggest    string
	out        string
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, opts runOptions) error {
	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()
	be := res.Backend

	ai, text, err := cli.NewAI(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init AI provider: %w", err)
	}
	ruleSet, err := cli.LoadRules(cfg)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if opts.suggest != "" {
		snap, err := services.LoadSnapshot(ctx, be, core.Date{}, core.Date{})
		if err != nil {
			return err
		}
		engine, err := rules.NewEngine(ruleSet, snap.Tree)
		if err != nil {
			return fmt.Errorf("build rule engine: %w", err)
		}
		svc := services.NewCategorizationService(engine, ai, snap.Tree, cfg.CategorizationConfig())
		return enc.Encode(svc.SuggestCategories(ctx, opts.suggest))
	}

	if opts.categorize {
		assignments := services.NewAssignmentService(be, cli.NewPublisher(cfg, logger))
		defer assignments.Close()

		pcfg := cfg.ProcessorConfig()
		pcfg.BatchSize = 0
		processor := services.NewCategorizationProcessor(be, ruleSet, ai, assignments, cfg.CategorizationConfig(), pcfg)
		count, err := processor.ProcessPending(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("categorize pending: %w", err)
		}
		logger.Info("Categorization complete", log.FieldCount, count)
	}

	insights := services.NewInsightService(be, be, text, cfg.AnalysisConfig())
	report, err := insights.Generate(ctx, opts.month)
	if err != nil {
		return err
	}
	logger.Info("Insight report generated",
		log.FieldYear, report.Year,
		log.FieldMonth, report.Month,
		log.FieldCount, len(report.Insights))
	return enc.Encode(report)
}
