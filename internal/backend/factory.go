package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneymind/internal/cache"
	gsheet "moneymind/internal/sheets/google"
	"moneymind/internal/sheets/memory"
	"moneymind/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		if err := seedRepository(ctx, repo, config.SeedFile); err != nil {
			return nil, errors.Join(err, repo.Close())
		}
		f.logger.Info("Seeded SQLite backend", "seed_file", config.SeedFile)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

// seedRepository upserts a seed file so repeated runs are idempotent.
func seedRepository(ctx context.Context, repo *storage.SQLiteRepository, path string) error {
	seed, err := memory.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if err := repo.UpsertCategories(ctx, seed.Categories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if err := repo.UpsertTransactions(ctx, seed.Transactions); err != nil {
		return fmt.Errorf("seed transactions: %w", err)
	}
	if err := repo.UpsertBudgets(ctx, seed.Budgets); err != nil {
		return fmt.Errorf("seed budgets: %w", err)
	}
	return nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		TransactionsSheet: config.TransactionsSheet,
		CategoriesSheet:   config.CategoriesSheet,
		BudgetsSheet:      config.BudgetsSheet,
		AssignmentsSheet:  config.AssignmentsSheet,
		InsightsSheet:     config.InsightsSheet,
		Currency:          config.DefaultCurrency,
		CacheTTL:          config.SheetsCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	var cleanup CleanupFunc
	if rows := cli.RowCache(); rows != nil {
		manager := cache.NewManager()
		manager.Register(rows)
		manager.StartCleanup(max(config.SheetsCacheTTL, time.Second))
		cleanup = func() error {
			manager.Stop()
			return nil
		}
	}

	f.logger.Info("Initialized Google Sheets backend", "cache_ttl", config.SheetsCacheTTL)

	return &BackendResult{
		Backend: cli,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Backend: store,
	}, nil
}
