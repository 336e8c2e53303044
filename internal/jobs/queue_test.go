package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
	done chan struct{}
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Execute(ctx context.Context) error {
	defer close(j.done)
	return j.fn(ctx)
}

func TestQueue_RunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue("test", 4, time.Minute, nil)
	q.Start(ctx)

	var ran atomic.Int32
	job := &funcJob{name: "noop", done: make(chan struct{}), fn: func(context.Context) error {
		ran.Add(1)
		return nil
	}}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	if got := ran.Load(); got != 1 {
		t.Fatalf("expected one run, got %d", got)
	}
}

func TestQueue_ObserverSeesFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue("test", 4, time.Minute, nil)
	results := make(chan error, 1)
	q.SetObserver(func(_ string, err error, _ time.Duration) {
		results <- err
	})
	q.Start(ctx)

	boom := errors.New("boom")
	job := &funcJob{name: "failing", done: make(chan struct{}), fn: func(context.Context) error {
		return boom
	}}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case err := <-results:
		if !errors.Is(err, boom) {
			t.Fatalf("observer saw %v, want boom", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer not called")
	}
}

func TestQueue_SetObserverAfterStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue("test", 4, time.Minute, nil)
	q.Start(ctx)

	// Installing the observer on a running queue must be safe and seen by
	// subsequent runs.
	results := make(chan string, 1)
	q.SetObserver(func(job string, _ error, _ time.Duration) {
		results <- job
	})

	job := &funcJob{name: "late-observed", done: make(chan struct{}), fn: func(context.Context) error {
		return nil
	}}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case name := <-results:
		if name != "late-observed" {
			t.Fatalf("observer saw %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer not called")
	}
}

func TestQueue_PanicBecomesError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue("test", 4, time.Minute, nil)
	results := make(chan error, 1)
	q.SetObserver(func(_ string, err error, _ time.Duration) {
		results <- err
	})
	q.Start(ctx)

	job := &funcJob{name: "panicking", done: make(chan struct{}), fn: func(context.Context) error {
		panic("kaboom")
	}}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case err := <-results:
		if err == nil {
			t.Fatal("expected panic to surface as error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer not called")
	}
}

func TestQueue_PauseHoldsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue("test", 4, time.Minute, nil)
	q.Pause()
	q.Start(ctx)

	job := &funcJob{name: "held", done: make(chan struct{}), fn: func(context.Context) error {
		return nil
	}}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-job.done:
		t.Fatal("job ran while the queue was paused")
	case <-time.After(100 * time.Millisecond):
	}

	q.Resume()
	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run after resume")
	}
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := NewQueue("test", 1, time.Minute, nil)
	q.Close()
	job := &funcJob{name: "late", done: make(chan struct{}), fn: func(context.Context) error { return nil }}
	if err := q.Enqueue(context.Background(), job); err == nil {
		t.Fatal("expected enqueue on a closed queue to fail")
	}
}
