package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bytevault/server/internal/billing"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is the slice of the billing engine the scheduler invokes.
type Runner interface {
	RunForPeriod(ctx context.Context, period billing.Period) (*billing.RunResult, error)
}

// Scheduler fires the monthly billing run. The default schedule is
// midnight UTC on the first of the month, billing the month that just
// ended.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduler creates a new billing scheduler
func NewScheduler(runner Runner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the billing job under spec (e.g. "0 0 1 * *") and
// starts the cron loop in its own goroutine.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("failed to schedule billing run: %w", err)
	}
	s.cron.Start()
	s.logger.Info("billing scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("billing scheduler stopped")
}

// runOnce bills the month before the fire time. The engine's run lock and
// the idempotent invoice writes make an accidental double fire harmless.
func (s *Scheduler) runOnce() {
	period := billing.PreviousPeriod(s.now())
	s.logger.Info("scheduled billing run starting", zap.String("period", period.String()))

	result, err := s.runner.RunForPeriod(context.Background(), period)
	if err != nil {
		s.logger.Error("scheduled billing run failed",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("scheduled billing run finished",
		zap.String("period", result.Period.String()),
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("already_billed", result.AlreadyBilled),
		zap.Int("skipped_zero", result.SkippedZero),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("duration", result.Duration()),
	)
}
