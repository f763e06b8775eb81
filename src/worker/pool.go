package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Task is a unit of background work, such as writing an export file. It
// returns the path of what it produced.
type Task func(ctx context.Context) (string, error)

// ResultCallback is invoked on task completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(path string, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	task Task
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: Starting %s", j.name)
				path, err := runWithContext(j.ctx, j.task)
				log.Printf("Worker: %s completed, path=%q, err=%v", j.name, path, err)
				j.cb(path, err)
			}
		}()
	}
}

// Submit enqueues a task if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, name string, task Task, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, name: name, task: task, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// runWithContext runs task, returning early once ctx is done.
func runWithContext(ctx context.Context, task Task) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return task(ctx)
	}
	resCh := make(chan struct {
		path string
		err  error
	}, 1)
	go func() {
		path, err := task(ctx)
		resCh <- struct {
			path string
			err  error
		}{path, err}
	}()
	select {
	case r := <-resCh:
		return r.path, r.err
	case <-ctx.Done():
		// The task may keep running in the background; its result is dropped.
		return "", ctx.Err()
	}
}
