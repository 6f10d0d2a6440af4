package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProcessor struct {
	calls atomic.Int32
}

func (p *stubProcessor) ProcessPending(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

type stubSweeper struct {
	calls atomic.Int32
}

func (s *stubSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	s.calls.Add(1)
	return SweepResult{Checked: 2, Corrected: 1}, nil
}

func TestProvisioningWorker_PollsProcessor(t *testing.T) {
	processor := &stubProcessor{}
	worker := NewProvisioningWorker(processor, zap.NewNop(), ProvisioningWorkerConfig{
		Enabled:      true,
		PollInterval: 10 * time.Millisecond,
		RunTimeout:   time.Second,
	})

	require.NoError(t, worker.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(stopCtx))
}

func TestProvisioningWorker_DisabledDoesNothing(t *testing.T) {
	processor := &stubProcessor{}
	worker := NewProvisioningWorker(processor, zap.NewNop(), ProvisioningWorkerConfig{
		Enabled:      false,
		PollInterval: time.Millisecond,
		RunTimeout:   time.Second,
	})

	require.NoError(t, worker.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, processor.calls.Load())
}

func TestProvisioningWorker_StartIsIdempotent(t *testing.T) {
	processor := &stubProcessor{}
	worker := NewProvisioningWorker(processor, zap.NewNop(), DefaultProvisioningWorkerConfig())

	require.NoError(t, worker.Start(context.Background()))
	require.NoError(t, worker.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(stopCtx))
	require.NoError(t, worker.Stop(stopCtx))
}

func TestReconciliationScheduler_SweepsOnInterval(t *testing.T) {
	sweeper := &stubSweeper{}
	scheduler := NewReconciliationScheduler(sweeper, zap.NewNop(), ReconciliationSchedulerConfig{
		Enabled:      true,
		Interval:     10 * time.Millisecond,
		SweepTimeout: time.Second,
	})

	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))
}

func TestReconciliationScheduler_DisabledDoesNothing(t *testing.T) {
	sweeper := &stubSweeper{}
	scheduler := NewReconciliationScheduler(sweeper, zap.NewNop(), ReconciliationSchedulerConfig{
		Enabled:  false,
		Interval: time.Millisecond,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, sweeper.calls.Load())
}
