package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results are drained by a collector goroutine, so any number of jobs may be
// submitted between Start and Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collector  *ResultCollector
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs observe ctx.
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collector:  NewResultCollector(),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool. It must be called before Submit.
func (p *Pool) Start() {
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) collect() {
	defer close(p.collected)
	for result := range p.results {
		p.collector.Add(result)
	}
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit submits a job to the pool for execution. Jobs submitted after the
// pool is cancelled are dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// Wait waits for all jobs to complete and returns the results in completion
// order.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.results)
	<-p.collected
	p.cancelFunc()

	return p.collector.Results()
}

// ResultCollector provides a safer way to collect results as they arrive
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns all collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
