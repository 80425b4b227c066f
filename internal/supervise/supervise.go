// Package supervise starts a backend child process and gates on its
// readiness before handing control back, so compose-style deployments can
// wrap a store server and its consumers in one command.
package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/spetr/docvec/pkg/types"
)

// Default values
const (
	DefaultProbeInterval = 2 * time.Second
	DefaultProbeRetries  = 15
)

// Probe checks whether the supervised backend is ready to serve. The
// store's Ping is the usual implementation.
type Probe func(ctx context.Context) error

// Config contains supervisor configuration.
type Config struct {
	Probe         Probe
	Logger        *slog.Logger
	ProbeInterval time.Duration // Default: 2s
	ProbeRetries  int           // probe budget before giving up, Default: 15
}

// Supervisor runs one child process and verifies it becomes reachable.
type Supervisor struct {
	probe    Probe
	logger   *slog.Logger
	interval time.Duration
	retries  int
}

// New creates a new supervisor.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	retries := cfg.ProbeRetries
	if retries <= 0 {
		retries = DefaultProbeRetries
	}
	return &Supervisor{
		probe:    cfg.Probe,
		logger:   logger,
		interval: interval,
		retries:  retries,
	}
}

// Run starts the child command, waits until the probe succeeds, then
// blocks until the child exits and returns its exit error. When the probe
// budget runs out the child is terminated and Run fails fast with
// types.ErrBackendUnavailable.
func (s *Supervisor) Run(ctx context.Context, name string, args ...string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	s.logger.Info("child started", "command", name, "pid", cmd.Process.Pid)

	var waitErr error
	exited := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	if err := s.waitReady(runCtx, exited); err != nil {
		cancel()
		<-exited
		return err
	}

	s.logger.Info("backend ready, supervising until exit", "command", name)
	<-exited
	if waitErr != nil {
		return fmt.Errorf("%s exited: %w", name, waitErr)
	}
	s.logger.Info("child exited cleanly", "command", name)
	return nil
}

// waitReady polls the probe until it succeeds, the budget is exhausted,
// or the child dies first.
func (s *Supervisor) waitReady(ctx context.Context, exited <-chan struct{}) error {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, s.interval)
		lastErr = s.probe(probeCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		s.logger.Debug("backend not ready", "attempt", attempt, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return fmt.Errorf("%w: child exited before becoming ready", types.ErrBackendUnavailable)
		case <-time.After(s.interval):
		}
	}
	return fmt.Errorf("%w: not ready after %d probes: %v", types.ErrBackendUnavailable, s.retries, lastErr)
}
