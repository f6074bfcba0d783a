// Package worker provides the fan-out pool used by each pipeline stage.
// All tasks within a stage are independent; Wait is the stage barrier.
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
// Results are collected as they arrive, so callers may submit any
// number of jobs before calling Wait without filling the result
// channel.
type Pool struct {
	workers     int
	jobQueue    chan Job
	results     chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
	collected   []Result
	collectDone chan struct{}
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan Job, workers*2),
		results:     make(chan Result, workers*2),
		ctx:         ctx,
		cancelFunc:  cancel,
		collectDone: make(chan struct{}),
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

func (p *Pool) collect() {
	for result := range p.results {
		p.collected = append(p.collected, result)
	}
	close(p.collectDone)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit submits a job to the pool for execution
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for all submitted jobs to complete, and
// returns their results. This is the synchronization barrier between
// pipeline stages: every job's writes are visible once Wait returns.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	return p.collected
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// FirstError scans a batch of results and returns the first failure, if
// any. Stages are fail-fast: one bad result aborts the whole run.
func FirstError(results []Result) error {
	for _, r := range results {
		if err := r.GetError(); err != nil {
			return err
		}
	}
	return nil
}
