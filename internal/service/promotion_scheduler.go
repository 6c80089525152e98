package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/robfig/cron/v3"
)

// DefaultPromotionSchedule runs the worker once a minute.
const DefaultPromotionSchedule = "@every 1m"

// PromotionScheduler fires a PromotionWorker on a cron schedule. It owns the
// timer: nothing runs before Start and nothing runs after Stop returns.
type PromotionScheduler struct {
	worker *PromotionWorker
	clock  timeutil.Clock
	logger *slog.Logger
	cron   *cron.Cron
	entry  cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func NewPromotionScheduler(worker *PromotionWorker, schedule string, clock timeutil.Clock, logger *slog.Logger) (*PromotionScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if schedule == "" {
		schedule = DefaultPromotionSchedule
	}

	cl := cronLogger{logger: logger}
	s := &PromotionScheduler{
		worker: worker,
		clock:  clock,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	id, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("parsing promotion schedule %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing the worker. Calling Start twice is a no-op.
func (s *PromotionScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.started = true
	s.cron.Start()
	s.logger.Info("promotion scheduler started", "next_run", s.Next().Format(time.RFC3339))
}

// Stop cancels any in-flight run and waits for it to return, or for ctx to
// expire.
func (s *PromotionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.Info("promotion scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled fire time, or the zero time when stopped.
func (s *PromotionScheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *PromotionScheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	report, err := s.worker.Run(ctx, s.clock.Now())
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.InfoContext(ctx, "promotion run skipped: previous run still in progress")
	case err != nil:
		s.logger.ErrorContext(ctx, "promotion run failed", "error", err)
	case len(report.Failed) > 0:
		s.logger.WarnContext(ctx, "promotion run finished with failures",
			"failed", len(report.Failed), "error", report.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
