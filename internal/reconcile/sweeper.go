package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper schedules the periodic full sweep. Stop prevents new cycles
// from starting; a pass already in flight finishes on its own.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	last *SweepReport
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(engine *Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop: one pass immediately, then one per
// interval.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("sweep loop started", "interval", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report := s.engine.SweepAll(ctx)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if report.FirstErr != "" {
		s.logger.Warn("sweep completed with errors",
			"guilds", len(report.Guilds),
			"duration", report.Finished.Sub(report.Started),
			"first_error", report.FirstErr,
		)
		return
	}
	s.logger.Debug("sweep completed",
		"guilds", len(report.Guilds),
		"duration", report.Finished.Sub(report.Started),
	)
}

// Stop cancels scheduling and waits for the loop goroutine to exit. An
// in-flight pass observes the cancellation at its next member boundary.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// LastReport returns a copy of the most recent sweep report, or nil
// before the first pass completes.
func (s *Sweeper) LastReport() *SweepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	report := *s.last
	report.Guilds = make(map[string]SweepStats, len(s.last.Guilds))
	for k, v := range s.last.Guilds {
		report.Guilds[k] = v
	}
	return &report
}
