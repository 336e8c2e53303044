package period

import (
	"sort"
	"testing"
	"time"
)

func TestCanTransition_LegalChain(t *testing.T) {
	chain := []Status{StatusOpen, StatusPending, StatusComputing, StatusReview, StatusSubmitted, StatusClosing, StatusClosed}
	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(chain[i], chain[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", chain[i], chain[i+1])
		}
	}
}

func TestCanTransition_FailurePaths(t *testing.T) {
	if !CanTransition(StatusComputing, StatusError) {
		t.Fatal("computing -> error must be legal")
	}
	if !CanTransition(StatusClosing, StatusError) {
		t.Fatal("closing -> error must be legal")
	}
	if !CanTransition(StatusReview, StatusOpen) {
		t.Fatal("review -> open (reset) must be legal")
	}
}

func TestCanTransition_TerminalAndCanceled(t *testing.T) {
	for _, from := range []Status{StatusClosed, StatusError, StatusCanceled} {
		for _, to := range StatusPriorityOrder {
			if CanTransition(from, to) {
				t.Fatalf("%s -> %s must not be legal", from, to)
			}
		}
	}
	for _, from := range StatusPriorityOrder {
		if CanTransition(from, StatusCanceled) {
			t.Fatalf("no transition may produce canceled, got %s -> canceled", from)
		}
	}
}

func TestTransition_NoOpOnSameStatus(t *testing.T) {
	p := &Period{Status: StatusOpen}
	if err := p.Transition(StatusOpen); err != nil {
		t.Fatalf("same-status transition should be a no-op: %v", err)
	}
	if p.Status != StatusOpen {
		t.Fatalf("status changed unexpectedly: %s", p.Status)
	}
}

func TestTransition_Illegal(t *testing.T) {
	p := &Period{Status: StatusOpen}
	if err := p.Transition(StatusClosed); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if p.Status != StatusOpen {
		t.Fatalf("status must not change on illegal transition, got %s", p.Status)
	}
	if err := p.Transition(Status("bogus")); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition for unknown status, got %v", err)
	}
}

func TestStatusPriority_Ordering(t *testing.T) {
	statuses := []Status{StatusClosed, StatusOpen, StatusError, StatusReview}
	sort.Slice(statuses, func(i, j int) bool {
		return StatusPriority(statuses[i]) < StatusPriority(statuses[j])
	})
	want := []Status{StatusOpen, StatusReview, StatusClosed, StatusError}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("priority order mismatch at %d: got %s want %s", i, statuses[i], want[i])
		}
	}
}

func TestIsClosed(t *testing.T) {
	for _, tc := range []struct {
		status Status
		closed bool
	}{
		{StatusOpen, false},
		{StatusPending, false},
		{StatusComputing, false},
		{StatusReview, false},
		{StatusSubmitted, false},
		{StatusClosing, false},
		{StatusCanceled, false},
		{StatusError, true},
		{StatusClosed, true},
	} {
		p := &Period{Status: tc.status}
		if p.IsClosed() != tc.closed {
			t.Fatalf("IsClosed(%s) = %v, want %v", tc.status, p.IsClosed(), tc.closed)
		}
	}
}

func TestFullPeriod(t *testing.T) {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	p := &Period{DateFrom: from, DateTo: to}
	if got := p.FullPeriod(); got != "2024-01-01 - 2024-01-08" {
		t.Fatalf("full period mismatch: %s", got)
	}
	p = &Period{DateFrom: from}
	if got := p.FullPeriod(); got != "2024-01-01" {
		t.Fatalf("full period with only date_from: %s", got)
	}
	p = &Period{}
	if got := p.FullPeriod(); got != "" {
		t.Fatalf("full period of zero dates should be empty, got %q", got)
	}
}
