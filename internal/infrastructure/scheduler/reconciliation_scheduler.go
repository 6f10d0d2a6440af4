package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepResult summarizes one drift-correction pass. Discrepant counts records
// whose provider state differed from the local mirror; Corrected is the
// subset whose subscription status actually changed.
type SweepResult struct {
	Checked    int `json:"checked"`
	Discrepant int `json:"discrepant"`
	Corrected  int `json:"corrected"`
	Alerted    int `json:"alerted"`
	Failed     int `json:"failed"`
}

// DriftSweeper compares stale local subscription mirrors against the
// provider's authoritative records and corrects them
type DriftSweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// ReconciliationSchedulerConfig holds configuration for the reconciliation scheduler
type ReconciliationSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is how often the sweep runs
	Interval time.Duration

	// SweepTimeout is the maximum time for one sweep
	SweepTimeout time.Duration
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:      true,
		Interval:     time.Hour,
		SweepTimeout: 10 * time.Minute,
	}
}

// ReconciliationScheduler periodically runs the billing drift-correction
// sweep. Webhooks are the primary source of subscription state; the sweep is
// the safety net for deliveries that never arrived.
type ReconciliationScheduler struct {
	sweeper   DriftSweeper
	logger    *zap.Logger
	config    ReconciliationSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconciliationScheduler creates a new reconciliation scheduler
func NewReconciliationScheduler(
	sweeper DriftSweeper,
	logger *zap.Logger,
	config ReconciliationSchedulerConfig,
) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		sweeper: sweeper,
		logger:  logger,
		config:  config,
	}
}

// Start starts the reconciliation scheduler
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reconciliation scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Reconciliation scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

// run sweeps on the configured interval until the context is canceled
func (s *ReconciliationScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass with a bounded deadline
func (s *ReconciliationScheduler) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.sweeper.Sweep(sweepCtx)
	if err != nil {
		s.logger.Error("Reconciliation sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Reconciliation sweep completed",
		zap.Int("checked", result.Checked),
		zap.Int("discrepant", result.Discrepant),
		zap.Int("corrected", result.Corrected),
		zap.Int("alerted", result.Alerted),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)),
	)
}
