// Package workerpool provides the bounded worker pool that services the
// work items of one connector binding.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors
var (
	ErrPoolClosed  = errors.New("workerpool: pool is closed")
	ErrInvalidSize = errors.New("workerpool: invalid pool size")
)

// Task is one unit of work. Tasks observe ctx for shutdown.
type Task func(ctx context.Context)

// Config holds worker pool configuration.
type Config struct {
	// Size is the number of workers in the pool.
	Size int
	// QueueSize is the task queue buffer size.
	QueueSize int
	// IdleTimeout is how long an idle worker survives beyond the first.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Size:        4,
		QueueSize:   256,
		IdleTimeout: 30 * time.Second,
	}
}

// Pool is a fixed-size worker pool. Closing the pool abandons queued tasks:
// work submitted but not yet started is never run after Close.
type Pool struct {
	config Config
	tasks  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	active int32
}

// New creates and starts a worker pool.
func New(config Config) (*Pool, error) {
	if config.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if config.QueueSize < 0 {
		return nil, ErrInvalidSize
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: config,
		tasks:  make(chan Task, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < config.Size; i++ {
		p.startWorker()
	}
	return p, nil
}

func (p *Pool) startWorker() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		idleTimer := time.NewTimer(p.config.IdleTimeout)
		defer idleTimer.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-idleTimer.C:
				idleTimer.Reset(p.config.IdleTimeout)
			case task := <-p.tasks:
				// The select picks arbitrarily when both cases are ready;
				// an abandoned task must not run after Close.
				if p.closed.Load() {
					return
				}
				atomic.AddInt32(&p.active, 1)
				p.run(task)
				atomic.AddInt32(&p.active, -1)
				idleTimer.Reset(p.config.IdleTimeout)
			}
		}
	}()
}

func (p *Pool) run(task Task) {
	defer func() {
		// A panicking task must not take its worker down with it.
		recover()
	}()
	task(p.ctx)
}

// Submit enqueues a task. It blocks only when the queue is full.
func (p *Pool) Submit(task Task) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close stops the pool. Running tasks observe ctx cancellation; queued
// tasks are abandoned. Idempotent.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.cancel()
	p.wg.Wait()
}

// Stats holds pool statistics.
type Stats struct {
	Workers int
	Pending int
	Active  int
	Closed  bool
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	pending := len(p.tasks)
	closed := p.closed.Load()
	if closed {
		// Abandoned work is not pending: nothing will ever run it.
		pending = 0
	}
	return Stats{
		Workers: p.config.Size,
		Pending: pending,
		Active:  int(atomic.LoadInt32(&p.active)),
		Closed:  closed,
	}
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	return p.closed.Load()
}
