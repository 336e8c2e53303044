package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultJobTimeout is the safety ceiling for one job run. Compute and
// submit runs may traverse large datasets and legitimately take hours.
const DefaultJobTimeout = 10 * time.Hour

// Job is a unit of asynchronous work.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Queue is a channel-backed job queue with a single worker loop. Execution
// is at-least-once; jobs recover idempotently through their own error
// handling. The queue can be paused while a period computation runs.
type Queue struct {
	name    string
	jobs    chan Job
	quit    chan struct{}
	timeout time.Duration
	logger  *log.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool

	wg sync.WaitGroup

	// observe is called after every job run; nil is allowed.
	observe func(job string, err error, elapsed time.Duration)
}

// NewQueue constructs a queue. A non-positive timeout falls back to
// DefaultJobTimeout.
func NewQueue(name string, buffer int, timeout time.Duration, logger *log.Logger) *Queue {
	if buffer <= 0 {
		buffer = 16
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	q := &Queue{
		name:    name,
		jobs:    make(chan Job, buffer),
		quit:    make(chan struct{}),
		timeout: timeout,
		logger:  logger,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetObserver installs a per-run callback, used for metrics.
func (q *Queue) SetObserver(fn func(job string, err error, elapsed time.Duration)) {
	q.mu.Lock()
	q.observe = fn
	q.mu.Unlock()
}

// Enqueue queues a job for the worker.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job == nil {
		return errors.New("jobs: nil job")
	}
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return errors.New("jobs: queue closed")
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the worker loop until ctx is canceled.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.quit:
				return
			case job := <-q.jobs:
				if job == nil {
					continue
				}
				q.waitWhilePaused()
				q.run(ctx, job)
			}
		}
	}()
}

// Pause stops the worker from picking up further jobs. The job currently
// running is not interrupted.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	if q.logger != nil {
		q.logger.Printf("jobs: queue %s paused", q.name)
	}
}

// Resume lets the worker pick up jobs again.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.cond.Broadcast()
	if q.logger != nil {
		q.logger.Printf("jobs: queue %s resumed", q.name)
	}
}

// Close stops accepting jobs and waits for the worker to stop. The job
// currently running finishes first.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.quit)
	}
	q.paused = false
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}

func (q *Queue) waitWhilePaused() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.paused && !q.closed {
		q.cond.Wait()
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	started := time.Now()
	err := execute(jobCtx, job)
	elapsed := time.Since(started)

	q.mu.Lock()
	observe := q.observe
	q.mu.Unlock()
	if observe != nil {
		observe(job.Name(), err, elapsed)
	}
	if q.logger != nil {
		if err != nil {
			q.logger.Printf("jobs: %s failed after %s: %v", job.Name(), elapsed.Round(time.Millisecond), err)
		} else {
			q.logger.Printf("jobs: %s finished in %s", job.Name(), elapsed.Round(time.Millisecond))
		}
	}
}

// execute runs the job, converting panics into errors so a broken job
// cannot take the worker down.
func execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("jobs: panic in %s: %v", job.Name(), r)
		}
	}()
	return job.Execute(ctx)
}
