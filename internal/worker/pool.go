// Package worker runs blocking work (poster rendering) on a fixed set of
// goroutines so scheduler and HTTP goroutines are never held by it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	// ErrPoolClosed is returned when submitting to a stopped pool.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolNotStarted is returned when submitting before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")
)

// Task is a unit of work. The returned string is the task's output, e.g. a
// poster path.
type Task func(ctx context.Context) (string, error)

// Result is the outcome of one Task.
type Result struct {
	Value    string
	Err      error
	Duration time.Duration
}

type job struct {
	ctx    context.Context
	task   Task
	result chan Result
}

// Pool is a fixed-size goroutine pool.
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	workers int
	started bool
	stopped bool
	mu      sync.Mutex
}

// NewPool creates a pool whose queue holds bufferSize pending tasks.
func NewPool(bufferSize int) *Pool {
	return &Pool{
		jobs: make(chan job, bufferSize),
	}
}

// Start launches workerCount workers.
func (p *Pool) Start(workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pool already started")
	}
	if workerCount <= 0 {
		return fmt.Errorf("invalid worker count: %d", workerCount)
	}

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(id)
		}(i)
	}

	p.workers = workerCount
	p.started = true
	return nil
}

func (p *Pool) run(id int) {
	for j := range p.jobs {
		j.result <- execute(id, j)
	}
}

func execute(id int, j job) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d recovered from panic: %v", id, r)
			res = Result{Err: fmt.Errorf("task panicked: %v", r)}
		}
		res.Duration = time.Since(start)
	}()

	if err := j.ctx.Err(); err != nil {
		return Result{Err: err}
	}
	value, err := j.task(j.ctx)
	return Result{Value: value, Err: err}
}

// Submit queues task and returns a channel that receives exactly one Result.
// It blocks while the queue is full, until ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil, ErrPoolNotStarted
	}
	if p.stopped {
		return nil, ErrPoolClosed
	}

	// Holding the lock while sending keeps Stop from closing jobs under us.
	j := job{ctx: ctx, task: task, result: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		return j.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits task and waits for its result.
func (p *Pool) Do(ctx context.Context, task Task) (string, error) {
	ch, err := p.Submit(ctx, task)
	if err != nil {
		return "", err
	}
	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stop rejects new tasks and waits for queued ones to finish.
func (p *Pool) Stop() {
	markStopped := func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.started || p.stopped {
			return false
		}
		p.stopped = true
		close(p.jobs)
		return true
	}
	if markStopped() {
		p.wg.Wait()
	}
}

// WorkerCount returns the number of running workers.
func (p *Pool) WorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// IsStarted reports whether Start has been called.
func (p *Pool) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}
