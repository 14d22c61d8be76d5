package orchestrator

import (
	"testing"
	"time"
)

func TestAFController_EngageSetsDeadline(t *testing.T) {
	a := newAFController(time.Second)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if a.Engaged() {
		t.Fatalf("fresh controller must not be engaged")
	}
	if _, ok := a.Deadline(); ok {
		t.Fatalf("no deadline expected while released")
	}

	a.Engage(t0)
	deadline, ok := a.Deadline()
	if !ok || !deadline.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected deadline %v, got %v ok=%v", t0.Add(time.Second), deadline, ok)
	}
}

func TestAFController_DueOnlyAtOrAfterDeadline(t *testing.T) {
	a := newAFController(time.Second)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.Engage(t0)

	if a.Due(t0.Add(999 * time.Millisecond)) {
		t.Fatalf("due fired before the deadline")
	}
	if !a.Due(t0.Add(time.Second)) {
		t.Fatalf("due should fire at the deadline")
	}
}

func TestAFController_DisengageCancelsTimerPath(t *testing.T) {
	a := newAFController(time.Second)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.Engage(t0)
	a.Disengage()

	if a.Engaged() {
		t.Fatalf("expected released state")
	}
	if a.Due(t0.Add(2 * time.Second)) {
		t.Fatalf("a cancelled deadline must never come due")
	}
}
