package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PendingTenantProcessor drains the queue of tenants waiting to be
// provisioned. It returns how many tenants it worked on.
type PendingTenantProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
}

// ProvisioningWorkerConfig holds configuration for the provisioning worker
type ProvisioningWorkerConfig struct {
	// Enabled determines if the worker is active
	Enabled bool

	// PollInterval is how often the worker looks for pending tenants
	PollInterval time.Duration

	// RunTimeout is the maximum time for one polling run
	RunTimeout time.Duration
}

// DefaultProvisioningWorkerConfig returns default configuration
func DefaultProvisioningWorkerConfig() ProvisioningWorkerConfig {
	return ProvisioningWorkerConfig{
		Enabled:      true,
		PollInterval: 5 * time.Second,
		RunTimeout:   2 * time.Minute,
	}
}

// ProvisioningWorker polls for tenants stuck in the provisioning state and
// drives them to completion. Provisioning is asynchronous: tenant signup
// returns immediately and this worker does the actual resource creation.
type ProvisioningWorker struct {
	processor PendingTenantProcessor
	logger    *zap.Logger
	config    ProvisioningWorkerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewProvisioningWorker creates a new provisioning worker
func NewProvisioningWorker(
	processor PendingTenantProcessor,
	logger *zap.Logger,
	config ProvisioningWorkerConfig,
) *ProvisioningWorker {
	return &ProvisioningWorker{
		processor: processor,
		logger:    logger,
		config:    config,
	}
}

// Start starts the provisioning worker
func (w *ProvisioningWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	if !w.config.Enabled {
		w.mu.Unlock()
		w.logger.Info("Provisioning worker is disabled")
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Provisioning worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the worker
func (w *ProvisioningWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Provisioning worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Provisioning worker stop timed out")
		return ctx.Err()
	}
}

// run polls until the context is canceled
func (w *ProvisioningWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain anything already pending before the first tick
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll runs one processing pass with a bounded deadline
func (w *ProvisioningWorker) poll(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	processed, err := w.processor.ProcessPending(runCtx)
	if err != nil {
		w.logger.Error("Provisioning pass failed", zap.Error(err))
		return
	}

	if processed > 0 {
		w.logger.Info("Provisioning pass completed",
			zap.Int("tenants_processed", processed),
		)
	}
}
