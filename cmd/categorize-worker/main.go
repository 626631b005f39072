package main

import (
	"context"
	"os"
	"time"

	"moneymind/internal/cache"
	"moneymind/internal/cli"
	"moneymind/internal/config"
	"moneymind/internal/log"
	"moneymind/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentCategorize)

	logger.Info("Starting categorize-worker")
	cli.MustValidate(logger, cfg)

	res, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	ai, _, err := cli.NewAI(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize AI provider", "provider", cfg.LLMProvider, log.FieldError, err)
		os.Exit(1)
	}
	ruleSet, err := cli.LoadRules(cfg)
	if err != nil {
		logger.Error("Failed to load rules", "path", cfg.RulesFile, log.FieldError, err)
		os.Exit(1)
	}

	// Assignments are committed to the backend; events go to AMQP when configured
	assignments := services.NewAssignmentService(res.Backend, cli.NewPublisher(cfg, logger))
	defer assignments.Close()

	processor := services.NewCategorizationProcessor(res.Backend, ruleSet, ai, assignments,
		cfg.CategorizationConfig(), cfg.ProcessorConfig())

	if failed := processor.FailedCache(); failed != nil {
		caches := cache.NewManager()
		caches.Register(failed)
		caches.StartCleanup(10 * time.Minute)
		defer caches.Stop()
	}

	logger.Info("Categorization processor configured",
		"interval", cfg.CategorizeInterval,
		"batch_size", cfg.CategorizeBatchSize,
		"retry_after", cfg.CategorizeRetryAfter,
		"rules", len(ruleSet),
		"provider", cfg.LLMProvider)

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down categorize-worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Processor did not stop cleanly", log.FieldError, err)
		}
	})
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start processor", log.FieldError, err)
		cancel()
		<-done
		return
	}

	cli.WaitForShutdown(ctx, done)
}
