// Package worker runs case verifications concurrently. Each job is scoped
// to one case directory, so jobs never share mutable state.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of verification work.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one executed job.
type Result interface {
	GetError() error
}

// Pool fans submitted jobs out to a fixed set of workers. Results are
// appended to a slice as jobs finish, so submission never blocks on
// collection and a batch of any size drains.
type Pool struct {
	workers int
	jobs    chan Job
	wg      sync.WaitGroup

	mu      sync.Mutex
	results []Result
}

// NewPool creates a pool. A non-positive worker count runs one worker.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job),
	}
}

// Start launches the workers. They exit when Wait closes the job queue or
// when ctx is cancelled, whichever comes first.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		// Cancellation wins over queued work.
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.collect(job.Execute(ctx))
		}
	}
}

func (p *Pool) collect(result Result) {
	p.mu.Lock()
	p.results = append(p.results, result)
	p.mu.Unlock()
}

// Submit hands a job to a worker, blocking until one is free. A job
// submitted after ctx is cancelled is dropped.
func (p *Pool) Submit(ctx context.Context, job Job) {
	select {
	case <-ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the job queue, waits for the workers to drain it, and
// returns every collected result.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	return p.results
}
