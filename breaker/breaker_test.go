package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

func TestNew_Defaults(t *testing.T) {
	b := New("youtube", Config{})

	if b.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.config.FailureThreshold)
	}
	if b.config.SuccessThreshold != 2 {
		t.Errorf("SuccessThreshold = %d, want 2", b.config.SuccessThreshold)
	}
	if b.config.RecoveryTimeout != 30*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 30s", b.config.RecoveryTimeout)
	}
	if b.config.HalfOpenMaxProbes != 1 {
		t.Errorf("HalfOpenMaxProbes = %d, want 1", b.config.HalfOpenMaxProbes)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
	if b.Dependency() != "youtube" {
		t.Errorf("Dependency() = %q, want youtube", b.Dependency())
	}
}

func TestBreaker_OpensAtFailureThreshold(t *testing.T) {
	b := New("dep", Config{FailureThreshold: 3})

	for i := 0; i < 2; i++ {
		if !b.CanAttempt() {
			t.Fatalf("CanAttempt() = false after %d failures, want true", i)
		}
		b.RecordFailure()
		if b.State() != StateClosed {
			t.Fatalf("after %d failures, state = %v, want closed", i+1, b.State())
		}
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Errorf("after 3 failures, state = %v, want open", b.State())
	}
	if b.CanAttempt() {
		t.Error("CanAttempt() = true while open, want false")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("dep", Config{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures should not open; the counter was fully reset.
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}

	m := b.Metrics()
	if m.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", m.ConsecutiveFailures)
	}
}

func TestBreaker_RecoveryTimeoutMovesToHalfOpen(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Second,
		Clock:            clock,
	})

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	clock.Advance(29 * time.Second)
	if b.CanAttempt() {
		t.Error("CanAttempt() = true before recovery timeout, want false")
	}

	clock.Advance(time.Second)
	if !b.CanAttempt() {
		t.Error("CanAttempt() = false at recovery timeout, want true")
	}
	if b.state != StateHalfOpen {
		t.Errorf("state = %v, want half-open", b.state)
	}
}

func TestBreaker_RetryAfter(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		RecoveryTimeout:  30 * time.Second,
		Clock:            clock,
	})

	if b.RetryAfter() != 0 {
		t.Errorf("RetryAfter() while closed = %v, want 0", b.RetryAfter())
	}

	b.RecordFailure()
	if got := b.RetryAfter(); got != 30*time.Second {
		t.Errorf("RetryAfter() = %v, want 30s", got)
	}

	clock.Advance(10 * time.Second)
	if got := b.RetryAfter(); got != 20*time.Second {
		t.Errorf("RetryAfter() = %v, want 20s", got)
	}

	clock.Advance(20 * time.Second)
	if got := b.RetryAfter(); got != 0 {
		t.Errorf("RetryAfter() after timeout = %v, want 0", got)
	}
}

func TestBreaker_HalfOpenSuccessesCloseCircuit(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		RecoveryTimeout:  time.Second,
		Clock:            clock,
	})

	b.RecordFailure()
	clock.Advance(time.Second)

	if !b.CanAttempt() {
		t.Fatal("first probe rejected")
	}
	b.RecordSuccess()
	if b.State() != StateHalfOpen {
		t.Fatalf("after 1 success, state = %v, want half-open", b.State())
	}

	if !b.CanAttempt() {
		t.Fatal("second probe rejected")
	}
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("after 2 successes, state = %v, want closed", b.State())
	}

	m := b.Metrics()
	if m.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", m.ConsecutiveFailures)
	}
	if !m.OpenedAt.IsZero() {
		t.Errorf("OpenedAt = %v, want zero after close", m.OpenedAt)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Second,
		Clock:            clock,
	})

	b.RecordFailure()
	openedAt := b.Metrics().OpenedAt

	clock.Advance(time.Second)
	if !b.CanAttempt() {
		t.Fatal("probe rejected")
	}

	clock.Advance(500 * time.Millisecond)
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if !b.Metrics().OpenedAt.After(openedAt) {
		t.Error("reopening did not restart the recovery timeout")
	}
	if b.CanAttempt() {
		t.Error("CanAttempt() = true immediately after reopen, want false")
	}
}

func TestBreaker_HalfOpenProbeLimit(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold:  1,
		SuccessThreshold:  3,
		HalfOpenMaxProbes: 2,
		RecoveryTimeout:   time.Second,
		Clock:             clock,
	})

	b.RecordFailure()
	clock.Advance(time.Second)

	if !b.CanAttempt() {
		t.Fatal("probe 1 rejected")
	}
	if !b.CanAttempt() {
		t.Fatal("probe 2 rejected")
	}
	if b.CanAttempt() {
		t.Error("probe 3 admitted past the limit")
	}

	// Concluding a probe frees its slot.
	b.RecordSuccess()
	if !b.CanAttempt() {
		t.Error("probe slot not released after RecordSuccess")
	}
}

func TestBreaker_AbandonReleasesProbeSlot(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold:  1,
		SuccessThreshold:  1,
		HalfOpenMaxProbes: 1,
		RecoveryTimeout:   time.Second,
		Clock:             clock,
	})

	b.RecordFailure()
	clock.Advance(time.Second)

	if !b.CanAttempt() {
		t.Fatal("probe rejected")
	}
	if b.CanAttempt() {
		t.Fatal("second probe admitted past the limit")
	}

	// The probe went nowhere: no outcome, just a freed slot.
	b.Abandon()

	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if b.Metrics().ConsecutiveSuccesses != 0 {
		t.Errorf("ConsecutiveSuccesses = %d, want 0", b.Metrics().ConsecutiveSuccesses)
	}
	if !b.CanAttempt() {
		t.Error("probe slot not released after Abandon")
	}
	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_AbandonOutsideHalfOpenIsNoop(t *testing.T) {
	b := New("dep", Config{FailureThreshold: 2})

	b.RecordFailure()
	b.Abandon()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
	if b.Metrics().ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", b.Metrics().ConsecutiveFailures)
	}
}

func TestBreaker_StrayRecordsAfterWindowDoNotTransition(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		RecoveryTimeout:  time.Second,
		Clock:            clock,
	})

	b.RecordFailure()
	clock.Advance(2 * time.Second)

	// Records from attempts that were never admitted arrive after the
	// window elapsed. They must not perform the open-to-half-open move,
	// count as probe successes, or reopen the circuit.
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	if b.Metrics().ConsecutiveSuccesses != 0 {
		t.Errorf("ConsecutiveSuccesses = %d, want 0", b.Metrics().ConsecutiveSuccesses)
	}

	// Only CanAttempt admits the first probe.
	if !b.CanAttempt() {
		t.Fatal("probe rejected after recovery timeout")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open", b.State())
	}
}

func TestBreaker_RecordsWhileOpenAreIgnored(t *testing.T) {
	clock := quartz.NewMock(t)
	b := New("dep", Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		Clock:            clock,
	})

	b.RecordFailure()
	openedAt := b.Metrics().OpenedAt

	clock.Advance(time.Second)
	b.RecordSuccess()
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open", b.State())
	}
	if got := b.Metrics().OpenedAt; !got.Equal(openedAt) {
		t.Errorf("OpenedAt changed from %v to %v while open", openedAt, got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := New("dep", Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	b.Reset()

	if b.State() != StateClosed {
		t.Errorf("after Reset, state = %v, want closed", b.State())
	}
	m := b.Metrics()
	if m.ConsecutiveFailures != 0 || m.ConsecutiveSuccesses != 0 {
		t.Errorf("counters not cleared: %+v", m)
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	type transition struct {
		dep      string
		from, to State
	}

	var mu sync.Mutex
	var transitions []transition

	clock := quartz.NewMock(t)
	b := New("instagram-api", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Second,
		Clock:            clock,
		OnStateChange: func(dep string, from, to State) {
			mu.Lock()
			transitions = append(transitions, transition{dep, from, to})
			mu.Unlock()
		},
	})

	b.RecordFailure()
	clock.Advance(time.Second)
	if !b.CanAttempt() {
		t.Fatal("probe rejected")
	}
	b.RecordSuccess()

	mu.Lock()
	defer mu.Unlock()

	want := []transition{
		{"instagram-api", StateClosed, StateOpen},
		{"instagram-api", StateOpen, StateHalfOpen},
		{"instagram-api", StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d: %v", len(transitions), len(want), transitions)
	}
	for i, w := range want {
		if transitions[i] != w {
			t.Errorf("transition[%d] = %v, want %v", i, transitions[i], w)
		}
	}
}

func TestBreaker_ConcurrentFailuresOpenExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	opens := 0

	b := New("dep", Config{
		FailureThreshold: 50,
		RecoveryTimeout:  time.Hour,
		OnStateChange: func(dep string, from, to State) {
			if to == StateOpen {
				mu.Lock()
				opens++
				mu.Unlock()
			}
		},
	})

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			b.RecordFailure()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if b.State() != StateOpen {
		t.Errorf("state = %v, want open", b.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if opens != 1 {
		t.Errorf("opened %d times, want exactly 1", opens)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
