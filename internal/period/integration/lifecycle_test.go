package integration

import (
	"context"
	"testing"
	"time"

	"settlement-periods/internal/jobs"
	"settlement-periods/internal/period/application"
	period "settlement-periods/internal/period/domain"
	"settlement-periods/internal/period/infrastructure/memory"
	"settlement-periods/internal/settings"
	"settlement-periods/internal/statuscache"
	"settlement-periods/internal/workers"
)

// TestLifecycle drives one period through the full cycle with the real job
// queue running asynchronously: create, compute, review, submit, closed.
func TestLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	staging := memory.NewStaging()
	staging.SeedCurrentProperty(1, "balance", 250)
	staging.SeedCurrentProperty(2, "balance", 75)
	repo := memory.NewRepository(staging)
	store := settings.NewMemoryStore()
	cache := statuscache.New()

	queue := jobs.NewQueue("periods", 4, time.Minute, nil)
	queue.Start(ctx)
	defer queue.Close()

	control, err := workers.NewService(store, nil)
	if err != nil {
		t.Fatalf("new worker service: %v", err)
	}
	control.Register(jobs.NewQueue("telemetry", 4, time.Minute, nil))

	computer := application.ComputerFunc(func(_ context.Context, periodID int64) error {
		staging.AddTempTransaction(periodID, 1, "settlement", 250)
		staging.AddTempTransaction(periodID, 2, "settlement", 75)
		return nil
	})

	svc, err := application.NewService(repo, staging, computer, queue, control, store, cache, time.Minute, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	p, err := svc.Create(ctx, "Period - 1", from, from.AddDate(0, 0, 7), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Compute(ctx, p.ID, nil); err != nil {
		t.Fatalf("compute: %v", err)
	}
	waitForStatus(t, svc, p.ID, period.StatusReview)

	staged, err := staging.TempTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("temp transactions: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 staged transactions, got %d", len(staged))
	}

	if _, err := svc.Submit(ctx, p.ID, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForStatus(t, svc, p.ID, period.StatusClosed)

	promoted, err := staging.Transactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(promoted) != 2 {
		t.Fatalf("expected 2 promoted transactions, got %d", len(promoted))
	}

	logs, err := svc.StatusLogs(ctx, p.ID)
	if err != nil {
		t.Fatalf("status logs: %v", err)
	}
	wantTo := []period.Status{
		period.StatusClosed, period.StatusClosing, period.StatusSubmitted,
		period.StatusReview, period.StatusComputing, period.StatusPending,
		period.StatusOpen,
	}
	if len(logs) != len(wantTo) {
		t.Fatalf("expected %d log rows, got %d", len(wantTo), len(logs))
	}
	for i, want := range wantTo {
		if logs[i].StatusTo != want {
			t.Fatalf("log[%d].status_to = %s, want %s", i, logs[i].StatusTo, want)
		}
	}

	// A closed period frees the admission slot.
	next, err := svc.CreateNext(ctx, logsPeriod(t, svc, ctx, p.ID), nil)
	if err != nil {
		t.Fatalf("create next: %v", err)
	}
	if next.Status != period.StatusOpen {
		t.Fatalf("next period status = %s, want open", next.Status)
	}
}

func waitForStatus(t *testing.T, svc *application.Service, id int64, want period.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := svc.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get period: %v", err)
		}
		if p.Status == want {
			return
		}
		if p.Status == period.StatusError {
			t.Fatalf("period ended in error while waiting for %s", want)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
}

func logsPeriod(t *testing.T, svc *application.Service, ctx context.Context, id int64) *period.Period {
	t.Helper()
	p, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get period: %v", err)
	}
	return p
}
