package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"moneymind/internal/log"
	"moneymind/internal/services"
)

type Config struct {
	// Backend selection: memory, sqlite or sheets
	DataBackend string
	SeedFile    string

	// Database
	SQLiteDBPath string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	TransactionsSheet   string
	CategoriesSheet     string
	BudgetsSheet        string
	AssignmentsSheet    string
	InsightsSheet       string
	SheetsCacheTTL      time.Duration

	DefaultCurrency string

	// AI: none, heuristic or gemini
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	// Categorization
	RulesFile             string
	AutoAcceptThreshold   float64
	CategorizeConcurrency int
	CategorizeInterval    time.Duration
	CategorizeBatchSize   int
	CategorizeLookback    time.Duration
	CategorizeRetryAfter  time.Duration

	// Analysis
	PatternMinOccurrences   int
	PatternAmountTolerance  int64
	PatternTolerancePercent float64
	AnomalyMinSample        int
	AnomalySpreadMultiple   float64
	AnomalyHighSeverity     float64
	BudgetWarnPercent       float64

	LogLevel string
}

var (
	validBackends  = []string{"memory", "sqlite", "sheets"}
	validProviders = []string{"none", "heuristic", "gemini"}
)

func Load() *Config {
	return &Config{
		DataBackend: getEnv("DATA_BACKEND", "memory"),
		SeedFile:    getEnv("SEED_FILE", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneymind.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneymind"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_categorized"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		TransactionsSheet:   getEnv("GOOGLE_TRANSACTIONS_SHEET", "Transactions"),
		CategoriesSheet:     getEnv("GOOGLE_CATEGORIES_SHEET", "Categories"),
		BudgetsSheet:        getEnv("GOOGLE_BUDGETS_SHEET", "Budgets"),
		AssignmentsSheet:    getEnv("GOOGLE_ASSIGNMENTS_SHEET", "Assignments"),
		InsightsSheet:       getEnv("GOOGLE_INSIGHTS_SHEET", "Insights"),
		SheetsCacheTTL:      getEnvDuration("SHEETS_CACHE_TTL", time.Minute),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),

		LLMProvider:  getEnv("LLM_PROVIDER", "heuristic"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:    getEnvDuration("AI_TIMEOUT", services.DefaultAITimeout),

		RulesFile:             getEnv("RULES_FILE", ""),
		AutoAcceptThreshold:   getEnvFloat("AUTO_ACCEPT_THRESHOLD", services.DefaultAutoAcceptThreshold),
		CategorizeConcurrency: getEnvInt("CATEGORIZE_CONCURRENCY", services.DefaultConcurrency),
		CategorizeInterval:    getEnvDuration("CATEGORIZE_INTERVAL", 30*time.Second),
		CategorizeBatchSize:   getEnvInt("CATEGORIZE_BATCH_SIZE", 50),
		CategorizeLookback:    getEnvDuration("CATEGORIZE_LOOKBACK", 0),
		CategorizeRetryAfter:  getEnvDuration("CATEGORIZE_RETRY_AFTER", time.Hour),

		PatternMinOccurrences:   getEnvInt("PATTERN_MIN_OCCURRENCES", services.DefaultMinOccurrences),
		PatternAmountTolerance:  int64(getEnvInt("PATTERN_AMOUNT_TOLERANCE", 0)),
		PatternTolerancePercent: getEnvFloat("PATTERN_TOLERANCE_PERCENT", 0),
		AnomalyMinSample:        getEnvInt("ANOMALY_MIN_SAMPLE", services.DefaultMinSampleSize),
		AnomalySpreadMultiple:   getEnvFloat("ANOMALY_SPREAD_MULTIPLE", services.DefaultSpreadMultiple),
		AnomalyHighSeverity:     getEnvFloat("ANOMALY_HIGH_SEVERITY", services.DefaultHighSeverity),
		BudgetWarnPercent:       getEnvFloat("BUDGET_WARN_PERCENT", services.DefaultWarnPercent),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}
	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); err != nil {
			errors = append(errors, fmt.Sprintf("rules file does not exist: %s", c.RulesFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validProviders, c.LLMProvider) {
		errors = append(errors, fmt.Sprintf("invalid LLM provider '%s': must be one of %v", c.LLMProvider, validProviders))
	}
	if c.LLMProvider == "gemini" && c.GeminiAPIKey == "" {
		errors = append(errors, "GEMINI_API_KEY is required when using the gemini provider")
	}
	if c.AITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be positive", c.AITimeout))
	}

	if c.AutoAcceptThreshold < 0 || c.AutoAcceptThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid auto-accept threshold %v: must be between 0 and 1", c.AutoAcceptThreshold))
	}
	if c.CategorizeConcurrency < 1 || c.CategorizeConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid categorize concurrency %d: must be between 1 and 64", c.CategorizeConcurrency))
	}
	if c.CategorizeBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid categorize batch size %d: must be at least 1", c.CategorizeBatchSize))
	} else if c.CategorizeBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid categorize batch size %d: must be at most 1000", c.CategorizeBatchSize))
	}
	if c.CategorizeInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid categorize interval %v: must be at least 1 second", c.CategorizeInterval))
	} else if c.CategorizeInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid categorize interval %v: must be at most 24 hours", c.CategorizeInterval))
	}
	if c.CategorizeLookback < 0 {
		errors = append(errors, fmt.Sprintf("invalid categorize lookback %v: must not be negative", c.CategorizeLookback))
	}
	if c.CategorizeRetryAfter < 0 {
		errors = append(errors, fmt.Sprintf("invalid categorize retry delay %v: must not be negative", c.CategorizeRetryAfter))
	}

	if c.PatternMinOccurrences < 3 {
		errors = append(errors, fmt.Sprintf("invalid pattern min occurrences %d: must be at least 3", c.PatternMinOccurrences))
	}
	if c.PatternAmountTolerance < 0 || c.PatternTolerancePercent < 0 {
		errors = append(errors, "pattern amount tolerances must not be negative")
	}
	if c.AnomalyMinSample < 2 {
		errors = append(errors, fmt.Sprintf("invalid anomaly min sample %d: must be at least 2", c.AnomalyMinSample))
	}
	if c.AnomalySpreadMultiple <= 0 {
		errors = append(errors, fmt.Sprintf("invalid anomaly spread multiple %v: must be positive", c.AnomalySpreadMultiple))
	}
	if c.AnomalyHighSeverity < c.AnomalySpreadMultiple {
		errors = append(errors, fmt.Sprintf("invalid anomaly high severity %v: must be at least the spread multiple", c.AnomalyHighSeverity))
	}
	if c.BudgetWarnPercent <= 0 || c.BudgetWarnPercent > 100 {
		errors = append(errors, fmt.Sprintf("invalid budget warn percent %v: must be in (0, 100]", c.BudgetWarnPercent))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// CategorizationConfig returns the orchestrator settings.
func (c *Config) CategorizationConfig() services.CategorizationConfig {
	cfg := services.DefaultCategorizationConfig()
	cfg.AutoAcceptThreshold = c.AutoAcceptThreshold
	cfg.AITimeout = c.AITimeout
	cfg.Concurrency = c.CategorizeConcurrency
	return cfg
}

// ProcessorConfig returns the background categorization settings.
func (c *Config) ProcessorConfig() services.ProcessorConfig {
	return services.ProcessorConfig{
		PollInterval: c.CategorizeInterval,
		BatchSize:    c.CategorizeBatchSize,
		Lookback:     c.CategorizeLookback,
		RetryAfter:   c.CategorizeRetryAfter,
	}
}

// AnalysisConfig returns the pattern, anomaly and insight settings.
func (c *Config) AnalysisConfig() services.AnalysisConfig {
	cfg := services.DefaultAnalysisConfig()
	cfg.Pattern.MinOccurrences = c.PatternMinOccurrences
	cfg.Pattern.AmountTolerance = c.PatternAmountTolerance
	cfg.Pattern.TolerancePercent = c.PatternTolerancePercent
	cfg.Anomaly.MinSampleSize = c.AnomalyMinSample
	cfg.Anomaly.SpreadMultiple = c.AnomalySpreadMultiple
	cfg.Insight.HighSeverity = c.AnomalyHighSeverity
	cfg.Insight.WarnPercent = c.BudgetWarnPercent
	cfg.Insight.TextTimeout = c.AITimeout
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
