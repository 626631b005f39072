// Package cli provides the initialization shared by cmd/moneymind,
// cmd/categorize-worker and cmd/insight-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"moneymind/internal/amqp"
	"moneymind/internal/backend"
	"moneymind/internal/config"
	"moneymind/internal/llm"
	"moneymind/internal/log"
	"moneymind/internal/rules"
	"moneymind/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: component, Output: os.Stdout})
	log.SetDefault(logger)
	return logger
}

// MustValidate exits the process when the configuration is invalid.
func MustValidate(logger *log.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
}

// NewAI returns the configured categorizer and text generator. Either may
// be nil: "none" disables both, "heuristic" has no text generation.
func NewAI(ctx context.Context, cfg *config.Config) (llm.Categorizer, llm.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "none":
		return nil, nil, nil
	case "heuristic":
		return llm.NewHeuristicProvider(), nil, nil
	case "gemini":
		p, err := llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	}
	return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
}

// LoadRules reads RULES_FILE. No file means no rules.
func LoadRules(cfg *config.Config) ([]rules.Rule, error) {
	if cfg.RulesFile == "" {
		return nil, nil
	}
	return rules.LoadRulesFile(cfg.RulesFile)
}

// OpenBackend opens the configured data backend.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
}

// NewPublisher connects to AMQP when AMQP_URL is set. A connection
// failure is logged and yields no publisher.
func NewPublisher(cfg *config.Config, logger *log.Logger) services.EventPublisher {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - categorization events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown cancels the returned context on SIGINT/SIGTERM or when
// cancel is called, after running cleanup bounded by timeout. done is
// closed once cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (ctx context.Context, cancel context.CancelFunc, done <-chan struct{}) {
	ctx, cancel = context.WithCancel(context.Background())
	finished := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(finished)
	}()

	return ctx, cancel, finished
}

// WaitForShutdown blocks until shutdown has completed.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
