package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneymind/internal/cache"
	"moneymind/internal/core"
	"moneymind/internal/llm"
	"moneymind/internal/rules"
	"moneymind/internal/sheets"
)

// ProcessorConfig holds configuration for the categorization processor
type ProcessorConfig struct {
	// PollInterval is how often to look for uncategorized transactions (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of transactions categorized per cycle (default: 50)
	BatchSize int

	// Lookback limits the scan to recent transactions; zero scans everything (default: 0)
	Lookback time.Duration

	// RetryAfter is how long a transaction that failed to categorize is
	// left out of new batches; zero retries it every cycle (default: 1h)
	RetryAfter time.Duration
}

// failedCacheSize bounds the number of remembered failures.
const failedCacheSize = 10000

// DefaultProcessorConfig returns sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
		RetryAfter:   time.Hour,
	}
}

// CategorizationProcessor periodically categorizes uncategorized
// transactions, commits the assignments and publishes their events.
type CategorizationProcessor struct {
	source      sheets.SnapshotReader
	rules       []rules.Rule
	ai          llm.Categorizer
	assignments *AssignmentService
	catConfig   CategorizationConfig
	config      ProcessorConfig
	failed      *cache.LRUCache[struct{}]

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCategorizationProcessor creates a new categorization processor
func NewCategorizationProcessor(
	source sheets.SnapshotReader,
	ruleSet []rules.Rule,
	ai llm.Categorizer,
	assignments *AssignmentService,
	catConfig CategorizationConfig,
	config ProcessorConfig,
) *CategorizationProcessor {
	p := &CategorizationProcessor{
		source:      source,
		rules:       ruleSet,
		ai:          ai,
		assignments: assignments,
		catConfig:   catConfig,
		config:      config,
	}
	if config.RetryAfter > 0 {
		p.failed = cache.NewLRUCache[struct{}](failedCacheSize, config.RetryAfter)
	}
	return p
}

// FailedCache exposes the recently failed transaction IDs for periodic
// cleanup. It is nil when RetryAfter is zero.
func (p *CategorizationProcessor) FailedCache() cache.Cleaner {
	if p.failed == nil {
		return nil
	}
	return p.failed
}

// skipRecentFailures drops transactions that failed within RetryAfter so
// they cannot hold the head of every batch.
func (p *CategorizationProcessor) skipRecentFailures(pending []core.Transaction) []core.Transaction {
	if p.failed == nil {
		return pending
	}
	return core.Select(pending, func(t core.Transaction) bool {
		_, seen := p.failed.Get(t.ID)
		return !seen
	})
}

// ProcessPending categorizes up to BatchSize uncategorized transactions
// from a fresh snapshot. The rule engine is rebuilt on every cycle so
// category changes are picked up.
func (p *CategorizationProcessor) ProcessPending(ctx context.Context, now time.Time) (int, error) {
	if p.source == nil || p.assignments == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	var from core.Date
	if p.config.Lookback > 0 {
		from = core.DateOf(now.Add(-p.config.Lookback))
	}
	snap, err := LoadSnapshot(ctx, p.source, from, core.Date{})
	if err != nil {
		return 0, err
	}
	engine, err := rules.NewEngine(p.rules, snap.Tree)
	if err != nil {
		return 0, fmt.Errorf("build rule engine: %w", err)
	}

	pending := p.skipRecentFailures(core.Select(snap.Transactions, core.Uncategorized()))
	if len(pending) == 0 {
		return 0, nil
	}
	if p.config.BatchSize > 0 && len(pending) > p.config.BatchSize {
		pending = pending[:p.config.BatchSize]
	}

	slog.InfoContext(ctx, "Categorizing pending transactions",
		"pending", len(pending),
		"rules", engine.Len())

	svc := NewCategorizationService(engine, p.ai, snap.Tree, p.catConfig)
	batch := svc.CategorizeBatch(ctx, pending)
	for _, f := range batch.Failures {
		slog.WarnContext(ctx, "Failed to categorize transaction",
			"transaction_id", f.ID,
			"error", f.Err)
		if p.failed != nil {
			p.failed.Set(f.ID, struct{}{})
		}
	}

	committed, err := p.assignments.Commit(ctx, batch)
	if err != nil {
		return 0, err
	}

	lowConfidence := 0
	for _, r := range batch.Succeeded() {
		if r.LowConfidence {
			lowConfidence++
		}
	}
	slog.InfoContext(ctx, "Categorization cycle complete",
		"committed", committed,
		"failed", len(batch.Failures),
		"low_confidence", lowConfidence)

	return committed, nil
}

// Start begins the processing loop. Returns an error if already running.
func (p *CategorizationProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("categorization processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Categorization processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *CategorizationProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Categorization processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Categorization processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *CategorizationProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *CategorizationProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	interval := p.config.PollInterval
	if interval <= 0 {
		interval = DefaultProcessorConfig().PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *CategorizationProcessor) cycle(ctx context.Context) {
	if _, err := p.ProcessPending(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Categorization cycle failed", "error", err)
	}
}
