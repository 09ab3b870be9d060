package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/rs/zerolog"
)

// Task is one unit of periodic background work, for example sweeping
// expired admin sessions.
type Task func(ctx context.Context) error

// Scheduler runs a Task on a fixed interval until stopped. A panicking or
// failing run is logged and the next tick proceeds normally.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	log      zerolog.Logger

	running atomic.Bool
	runs    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string, interval time.Duration, task Task, log zerolog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if task == nil {
		return nil, errors.New("task must not be nil")
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		log:      logger.Component(log, "scheduler").With().Str("task", name).Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the loop and runs the task once immediately. It returns
// false when already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info().Dur("interval", s.interval).Msg("scheduler started")

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return true
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	s.log.Info().Int64("runs", s.runs.Load()).Msg("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("scheduler task panic recovered")
		}
	}()

	start := time.Now()
	s.runs.Add(1)
	if err := s.task(ctx); err != nil {
		s.log.Warn().Err(err).Msg("scheduler task failed")
		return
	}
	s.log.Debug().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("scheduler task completed")
}
