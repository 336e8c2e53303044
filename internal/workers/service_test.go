package workers

import (
	"context"
	"testing"

	"settlement-periods/internal/settings"
)

type stubConsumer struct {
	paused  int
	resumed int
}

func (s *stubConsumer) Pause()  { s.paused++ }
func (s *stubConsumer) Resume() { s.resumed++ }

func TestToggle(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	svc, err := NewService(store, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	first := &stubConsumer{}
	second := &stubConsumer{}
	svc.Register(first)
	svc.Register(second)

	if err := svc.Toggle(ctx, false, ReasonPeriodCompute); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if first.paused != 1 || second.paused != 1 {
		t.Fatalf("expected both consumers paused, got %d/%d", first.paused, second.paused)
	}
	value, _ := store.Value(ctx, settings.ToEnableWorkersAlias)
	if settings.BoolValue(value) {
		t.Fatal("workers-enabled flag should be false")
	}

	if err := svc.Toggle(ctx, true, ReasonManual); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if first.resumed != 1 || second.resumed != 1 {
		t.Fatalf("expected both consumers resumed, got %d/%d", first.resumed, second.resumed)
	}
	value, _ = store.Value(ctx, settings.ToEnableWorkersAlias)
	if !settings.BoolValue(value) {
		t.Fatal("workers-enabled flag should be true")
	}
}
