package health

import (
	"testing"
	"time"

	"github.com/jonwraymond/callops/breaker"
)

func TestFromState(t *testing.T) {
	tests := []struct {
		state breaker.State
		want  Status
	}{
		{breaker.StateClosed, StatusHealthy},
		{breaker.StateHalfOpen, StatusDegraded},
		{breaker.StateOpen, StatusUnhealthy},
	}

	for _, tt := range tests {
		if got := FromState(tt.state); got != tt.want {
			t.Errorf("FromState(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status.String() = %v, want %v", got, tt.want)
		}
	}
}

func TestDependencyChecker_Check(t *testing.T) {
	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	checker := NewDependencyChecker(reg)

	reg.Get("up")
	reg.Get("down").RecordFailure()

	results := checker.Check()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	if results["up"].Status != StatusHealthy {
		t.Errorf("up = %v, want healthy", results["up"].Status)
	}
	if results["down"].Status != StatusUnhealthy {
		t.Errorf("down = %v, want unhealthy", results["down"].Status)
	}
	if results["down"].RetryAfter <= 0 {
		t.Errorf("down RetryAfter = %v, want > 0", results["down"].RetryAfter)
	}
	if results["up"].RetryAfter != 0 {
		t.Errorf("up RetryAfter = %v, want 0", results["up"].RetryAfter)
	}
}

func TestDependencyChecker_Overall(t *testing.T) {
	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	checker := NewDependencyChecker(reg)

	if got := checker.Overall(); got != StatusHealthy {
		t.Errorf("empty registry Overall() = %v, want healthy", got)
	}

	reg.Get("a")
	if got := checker.Overall(); got != StatusHealthy {
		t.Errorf("Overall() = %v, want healthy", got)
	}

	reg.Get("b").RecordFailure()
	if got := checker.Overall(); got != StatusUnhealthy {
		t.Errorf("Overall() = %v, want unhealthy", got)
	}
}
