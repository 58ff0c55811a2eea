package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NoLayers(), KindNoLayers},
		{EmptyLayer("Background"), KindEmptyLayer},
		{BadTraitImage("x.png", errors.New("boom")), KindBadTraitImage},
		{InsufficientDiversity(10, 4), KindInsufficientDiversity},
		{Timeout(), KindTimeout},
		{Cancelled(), KindCancelled},
		{OutOfMemory(errors.New("alloc")), KindOutOfMemory},
		{fmt.Errorf("wrapped: %w", Timeout()), KindTimeout},
		{errors.New("plain"), KindIOError},
	}
	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError("/tmp/x", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
}

func TestRetryable(t *testing.T) {
	if !Timeout().Retryable() || !IOError("p", nil).Retryable() {
		t.Fatal("timeout and io errors should be retryable")
	}
	if InsufficientDiversity(2, 1).Retryable() || Cancelled().Retryable() {
		t.Fatal("diversity and cancel failures are not retryable")
	}
}

func TestInsufficientDiversityMessage(t *testing.T) {
	err := InsufficientDiversity(500, 256)
	msg := err.Error()
	want := "requested 500 unique items but catalog only supports 256 combinations"
	if msg != want {
		t.Fatalf("message = %q, want %q", msg, want)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning} {
		if s.Terminal() {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}
