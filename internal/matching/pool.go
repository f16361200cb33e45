package matching

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/cofounder-matcher/internal/logging"
)

// ErrPoolClosed is returned by Dispatch after Stop
var ErrPoolClosed = errors.New("matching: worker pool closed")

// Pool is an in-process Dispatcher that runs jobs on a fixed set of goroutines
type Pool struct {
	runner  Runner
	log     *logging.Logger
	workers int
	queue   chan uuid.UUID

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of workers and queue capacity
func NewPool(runner Runner, workers, queueSize int, log *logging.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Pool{
		runner:  runner,
		log:     log.Component("worker"),
		workers: workers,
		queue:   make(chan uuid.UUID, queueSize),
	}
}

// Start launches the workers. Jobs run with ctx; once ctx is done, jobs still
// queued are handed to the runner with the cancelled ctx, which fails them
// without running.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for jobID := range p.queue {
					p.run(ctx, jobID)
				}
			}()
		}
		p.log.Info("worker pool started", "workers", p.workers)
	})
}

func (p *Pool) run(ctx context.Context, jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job runner panic", "job_id", jobID, "panic", r)
		}
	}()
	if err := p.runner.RunJob(ctx, jobID); err != nil {
		p.log.Warn("job finished with error", "job_id", jobID, "error", err)
	}
}

// Dispatch queues jobID, blocking while the queue is full
func (p *Pool) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new jobs, lets workers drain the queue and waits for them
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
