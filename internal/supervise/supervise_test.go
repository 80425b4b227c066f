package supervise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spetr/docvec/pkg/types"
)

func TestRunProbeSucceedsAndChildExits(t *testing.T) {
	s := New(Config{
		Probe:         func(ctx context.Context) error { return nil },
		ProbeInterval: 10 * time.Millisecond,
		ProbeRetries:  3,
	})

	err := s.Run(context.Background(), "true")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunChildFailureIsReported(t *testing.T) {
	s := New(Config{
		Probe:         func(ctx context.Context) error { return nil },
		ProbeInterval: 10 * time.Millisecond,
		ProbeRetries:  3,
	})

	err := s.Run(context.Background(), "false")
	if err == nil {
		t.Fatal("Run() with failing child should return its exit error")
	}
}

func TestRunProbeBudgetExhausted(t *testing.T) {
	var probes atomic.Int32
	s := New(Config{
		Probe: func(ctx context.Context) error {
			probes.Add(1)
			return errors.New("connection refused")
		},
		ProbeInterval: 10 * time.Millisecond,
		ProbeRetries:  3,
	})

	err := s.Run(context.Background(), "sleep", "30")
	if !errors.Is(err, types.ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if got := probes.Load(); got != 3 {
		t.Errorf("probe attempts = %d, want 3", got)
	}
}

func TestRunProbeSucceedsAfterRetries(t *testing.T) {
	var probes atomic.Int32
	s := New(Config{
		Probe: func(ctx context.Context) error {
			if probes.Add(1) < 3 {
				return errors.New("still starting")
			}
			return nil
		},
		ProbeInterval: 10 * time.Millisecond,
		ProbeRetries:  10,
	})

	err := s.Run(context.Background(), "sleep", "1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := probes.Load(); got != 3 {
		t.Errorf("probe attempts = %d, want 3", got)
	}
}

func TestRunMissingBinary(t *testing.T) {
	s := New(Config{
		Probe:         func(ctx context.Context) error { return nil },
		ProbeInterval: 10 * time.Millisecond,
		ProbeRetries:  1,
	})

	err := s.Run(context.Background(), "definitely-not-a-real-binary-1234")
	if err == nil {
		t.Fatal("Run() with missing binary should fail")
	}
}

func TestRunChildDiesBeforeReady(t *testing.T) {
	s := New(Config{
		Probe: func(ctx context.Context) error {
			return errors.New("connection refused")
		},
		ProbeInterval: 50 * time.Millisecond,
		ProbeRetries:  100,
	})

	start := time.Now()
	err := s.Run(context.Background(), "true")
	if !errors.Is(err, types.ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("supervisor kept probing after the child exited")
	}
}
