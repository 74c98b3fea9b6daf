package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// ErrPoolShutdown is returned when a run is submitted to a shut-down pool.
var ErrPoolShutdown = errors.New("run pool is shut down")

// RunFunc executes one graph run and reports its outcome. The Result may be
// nil when err is non-nil.
type RunFunc func(ctx context.Context) (*Result, error)

// PoolMetrics is a snapshot of the pool's run accounting. Halted covers every
// terminal status short of completion (iteration cap, cancellation).
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Halted    int64 `json:"halted"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// RunPool bounds the number of graph runs executing concurrently. Each run
// owns its own State and Graph, so the pool only limits concurrency; it adds
// no synchronization between runs.
type RunPool struct {
	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	done   chan struct{}
	closed bool

	active    atomic.Int64
	completed atomic.Int64
	halted    atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
}

// NewRunPool creates a pool executing at most size runs at once.
func NewRunPool(size int) *RunPool {
	if size <= 0 {
		size = 1
	}
	return &RunPool{
		slots: make(chan struct{}, size),
		done:  make(chan struct{}),
	}
}

// Submit starts fn on the pool. It blocks while the pool is at capacity and
// respects context cancellation during the wait. Returns ErrPoolShutdown once
// Shutdown has been called.
func (p *RunPool) Submit(ctx context.Context, fn RunFunc) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}

	// wg.Add must happen under the same lock Shutdown takes before wg.Wait,
	// and closed must be re-checked once the slot is held.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	p.active.Add(1)
	p.mu.Unlock()

	go p.execute(ctx, fn)
	return nil
}

// acquire claims a concurrency slot or reports why it cannot.
func (p *RunPool) acquire(ctx context.Context) error {
	select {
	case <-p.done:
		return ErrPoolShutdown
	default:
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolShutdown
	}
}

func (p *RunPool) execute(ctx context.Context, fn RunFunc) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.failed.Add(1)
		}
		p.active.Add(-1)
		<-p.slots
		p.wg.Done()
	}()

	result, err := fn(ctx)
	switch {
	case err != nil:
		p.failed.Add(1)
	case result != nil && result.Status != schema.RunStatusCompleted:
		p.halted.Add(1)
	default:
		p.completed.Add(1)
	}
}

// Wait blocks until every submitted run has finished.
func (p *RunPool) Wait() {
	p.wg.Wait()
}

// Shutdown rejects new submissions and waits for in-flight runs to finish.
// Safe to call more than once.
func (p *RunPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Metrics returns a snapshot of the pool's run accounting.
func (p *RunPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Halted:    p.halted.Load(),
		Failed:    p.failed.Load(),
		Panics:    p.panics.Load(),
	}
}
