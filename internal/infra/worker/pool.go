// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrQueueFull is returned by Submit when every worker is busy and the
// buffer is saturated. Callers treat delivery as best-effort.
var ErrQueueFull = errors.New("worker queue full")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Task errors are
// the task's own responsibility; the pool never inspects them beyond
// discarding the return value.
type Pool struct {
	tasks   chan Task
	quit    chan struct{}
	wg      sync.WaitGroup
	workers int
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		tasks:   make(chan Task, workers*4),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.tasks:
			if task != nil {
				_ = task(ctx)
			}
		}
	}
}

// Stop signals the workers and waits for in-flight tasks to finish.
// Buffered tasks that no worker picked up are abandoned.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
