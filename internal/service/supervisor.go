package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/logging"
)

const (
	// DefaultTickInterval is the interval between supervisor ticks.
	DefaultTickInterval = 5 * time.Second

	// DefaultConcurrency bounds per-tick launch evaluations.
	DefaultConcurrency = 8
)

// Supervisor is the auto-advance loop. Each tick it lists the active
// launches from the store and evaluates each one through the launcher.
// It holds no launch state of its own: everything it needs is re-read
// from the durable record, so it can be stopped and restarted freely
// and survives process restarts without recovery logic.
type Supervisor struct {
	launcher *Launcher
	store    core.LaunchStore
	logger   *logging.Logger

	tickInterval time.Duration
	concurrency  int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// For testing
	tickerFactory func(time.Duration) *time.Ticker
}

// SupervisorConfig holds configuration for the Supervisor.
type SupervisorConfig struct {
	Launcher     *Launcher
	Store        core.LaunchStore
	Logger       *logging.Logger
	TickInterval time.Duration
	Concurrency  int
}

// NewSupervisor creates a supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Supervisor{
		launcher:      cfg.Launcher,
		store:         cfg.Store,
		logger:        cfg.Logger,
		tickInterval:  cfg.TickInterval,
		concurrency:   cfg.Concurrency,
		tickerFactory: time.NewTicker,
	}
}

// Start begins the supervisor loop. Starting an already running
// supervisor is a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	go s.runLoop(ctx)

	s.logger.Info("supervisor started",
		"tick_interval", s.tickInterval, "concurrency", s.concurrency)
	return nil
}

// runLoop is the main supervisor loop.
func (s *Supervisor) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := s.tickerFactory(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.Info("supervisor stopping")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick evaluates every active launch once, with bounded fan-out. A
// failing launch never blocks the others; its error is logged and the
// next tick retries from the durable record.
func (s *Supervisor) tick(ctx context.Context) {
	launches, err := s.store.ListActiveLaunches(ctx)
	if err != nil {
		s.logger.Error("supervisor: listing active launches failed", "error", err)
		return
	}
	if len(launches) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, launch := range launches {
		id := launch.ID
		g.Go(func() error {
			if err := s.launcher.Step(gctx, id); err != nil {
				s.logger.Warn("supervisor: step failed", "launch", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Stop gracefully stops the loop, waiting for the in-flight tick.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		s.logger.Info("supervisor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
