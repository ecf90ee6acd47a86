package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"courier-sync/internal/core/logger"
	"courier-sync/internal/features/reconcile/domain"
	"courier-sync/internal/features/reconcile/ports"

	"go.uber.org/zap"
)

// PeriodicRunner triggers a run on every tick. A tick is skipped while a run is in progress.
type PeriodicRunner struct {
	runs     ports.RunService
	interval time.Duration
	running  atomic.Bool
	inflight sync.WaitGroup
	logger   *zap.Logger

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewPeriodicRunner creates a new PeriodicRunner.
func NewPeriodicRunner(runs ports.RunService, interval time.Duration) *PeriodicRunner {
	return &PeriodicRunner{
		runs:     runs,
		interval: interval,
		logger:   logger.Named("periodic"),
	}
}

// Start launches the ticker loop. It returns immediately.
func (p *PeriodicRunner) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil || p.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.stop = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.logger.Info("Periodic reconciliation started", zap.Duration("interval", p.interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.inflight.Add(1)
				go func() {
					defer p.inflight.Done()
					p.Tick(ctx)
				}()
			}
		}
	}()
}

// Tick runs once unless a previous run is still going. It reports whether a run happened.
func (p *PeriodicRunner) Tick(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("Previous reconciliation run still in progress, skipping tick")
		return false
	}
	defer p.running.Store(false)

	if _, err := p.runs.RunOnce(ctx, domain.RunOptions{}); err != nil {
		p.logger.Error("Periodic reconciliation run failed", zap.Error(err))
	}
	return true
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *PeriodicRunner) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
	p.inflight.Wait()
}
