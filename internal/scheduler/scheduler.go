// Package scheduler runs refresh cycles on a timer. Cycles fire on a fixed
// poll interval by default, or on a cron schedule when one is configured.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/syncer"
)

// Scheduler triggers refresh cycles periodically.
type Scheduler struct {
	mu sync.Mutex

	syncer *syncer.Syncer
	cfg    config.SyncConfig
	logger *slog.Logger

	parser   cron.Parser
	schedule cron.Schedule

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	nextRun time.Time
}

// New creates a scheduler. An invalid cron expression in the config is
// rejected here rather than silently falling back to the poll interval.
func New(s *syncer.Syncer, cfg config.SyncConfig, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sched := &Scheduler{
		syncer: s,
		cfg:    cfg,
		logger: logger,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}

	if cfg.Schedule != "" {
		parsed, err := sched.parser.Parse(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid sync.schedule: %w", err)
		}
		sched.schedule = parsed
	}

	return sched, nil
}

// NextRun returns when the next cycle is due.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// Start begins the background cycle loop. The first cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	if s.schedule != nil {
		s.logger.Info("scheduler started", slog.String("schedule", s.cfg.Schedule))
	} else {
		s.logger.Info("scheduler started", slog.Duration("poll_interval", s.cfg.PollInterval))
	}
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	s.runCycle()

	for {
		wait := s.untilNext()

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runCycle()
		}
	}
}

// untilNext computes the delay before the next cycle and records when it
// is due.
func (s *Scheduler) untilNext() time.Duration {
	now := time.Now()

	var next time.Time
	if s.schedule != nil {
		next = s.schedule.Next(now)
	} else {
		next = now.Add(s.cfg.PollInterval)
	}

	s.mu.Lock()
	s.nextRun = next
	s.mu.Unlock()

	return time.Until(next)
}

func (s *Scheduler) runCycle() {
	stats, err := s.syncer.RunCycle(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled refresh cycle failed", slog.Any("error", err))
		return
	}
	s.logger.Debug("scheduled refresh cycle finished",
		slog.Int("inserted", stats.Inserted),
		slog.Duration("duration", stats.Duration),
	)
}
