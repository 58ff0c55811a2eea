package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"artengine/internal/domain"
)

func TestPollRunsQueuedJobToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, reg, _ := newTestEngine(t, Options{})
	job, err := eng.Submit(ctx, baseRequest(2), twoLayerTree(t))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- eng.Poll(ctx, 10*time.Millisecond)
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := reg.Get(context.Background(), job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == domain.JobStatusCompleted {
			break
		}
		if got.Status.Terminal() {
			t.Fatalf("job ended %q: %s", got.Status, got.Message)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %q", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Poll returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Poll did not stop after cancellation")
	}
}
