package main

import (
	"context"
	"errors"
	"os"
	"time"

	"moneymind/internal/amqp"
	"moneymind/internal/cache"
	"moneymind/internal/cli"
	"moneymind/internal/config"
	"moneymind/internal/log"
	"moneymind/internal/services"
	"moneymind/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting insight-worker")
	cli.MustValidate(logger, cfg)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the insight worker")
		os.Exit(1)
	}

	res, err := cli.OpenBackend(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	_, text, err := cli.NewAI(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize AI provider", "provider", cfg.LLMProvider, log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Reports are written back to the backend, which exports them to the
	// insights tab when running on Sheets
	insights := services.NewInsightService(res.Backend, res.Backend, text, cfg.AnalysisConfig())
	insightWorker := worker.NewInsightWorker(res.Backend, insights, 10000)

	caches := cache.NewManager()
	caches.Register(insightWorker.SeenCache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down insight-worker...")
	})
	defer cancel()

	// On startup, refresh the current month in case events were missed
	if err := insightWorker.RefreshMonth(ctx, time.Now()); err != nil {
		logger.Error("Startup refresh failed", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.ConsumeCategorized(ctx, insightWorker.HandleCategorized); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
