package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// amountScale is the precision invoices are stored at. An amount that
// rounds to zero at this scale is suppressed like any other zero.
const amountScale = 6

// RunConfig tunes the billing run coordinator.
type RunConfig struct {
	// Concurrency bounds the per-user fan-out.
	Concurrency int
	// UserTimeout bounds one user's accumulate+resolve+persist so a hung
	// account cannot stall the whole run.
	UserTimeout time.Duration
	// MaxRetries is the number of retries (after the first attempt) on
	// transient store errors, at per-user granularity.
	MaxRetries int
	// RetryInitialInterval seeds the exponential backoff between retries.
	RetryInitialInterval time.Duration
}

// DefaultRunConfig returns the coordinator defaults used when a field is
// left at its zero value.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Concurrency:          8,
		UserTimeout:          30 * time.Second,
		MaxRetries:           3,
		RetryInitialInterval: 500 * time.Millisecond,
	}
}

// Coordinator orchestrates one billing pass over all users for one target
// period. Users are independent: one user's failure never blocks or
// corrupts another's, and the run returns a structured result instead of
// failing part-way.
type Coordinator struct {
	users    UserSource
	usage    *Accumulator
	rates    *RateResolver
	invoices InvoiceStore
	logger   *zap.Logger
	cfg      RunConfig
	now      func() time.Time
}

// NewCoordinator creates a new billing run coordinator
func NewCoordinator(stores Stores, logger *zap.Logger, cfg RunConfig) *Coordinator {
	def := DefaultRunConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = def.UserTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}

	return &Coordinator{
		users:    stores.Users,
		usage:    NewAccumulator(stores.Files, logger),
		rates:    NewRateResolver(stores.Prices, logger),
		invoices: stores.Invoices,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type billOutcome int

const (
	outcomeCreated billOutcome = iota
	outcomeAlreadyBilled
	outcomeZero
)

// Run bills every user for the given period. Safe to re-trigger: invoice
// writes are idempotent on (user, year, month), so a rerun after a crash
// or a double-fired schedule never double-bills. Cancelling ctx stops the
// run between users; invoices already committed remain valid.
func (c *Coordinator) Run(ctx context.Context, period Period) (*RunResult, error) {
	result := &RunResult{
		Period:  period,
		Started: c.now(),
	}

	userIDs, err := c.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	c.logger.Info("starting billing run",
		zap.String("period", period.String()),
		zap.Int("users", len(userIDs)),
		zap.Int("concurrency", c.cfg.Concurrency),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, userID := range userIDs {
		if gctx.Err() != nil {
			break
		}
		userID := userID
		g.Go(func() error {
			outcome, inv, err := c.billUser(gctx, period, userID)

			mu.Lock()
			defer mu.Unlock()
			result.UsersProcessed++
			switch {
			case err != nil:
				result.Failures = append(result.Failures, UserFailure{
					UserID: userID,
					Reason: err.Error(),
				})
				c.logger.Warn("failed to bill user",
					zap.String("user_id", userID.String()),
					zap.String("period", period.String()),
					zap.Error(err),
				)
			case outcome == outcomeCreated:
				result.InvoicesCreated++
				result.Invoices = append(result.Invoices, inv)
			case outcome == outcomeAlreadyBilled:
				result.AlreadyBilled++
			case outcome == outcomeZero:
				result.SkippedZero++
			}
			// Per-user failures are collected, never propagated: returning
			// an error here would cancel the sibling users.
			return nil
		})
	}

	_ = g.Wait()
	result.Finished = c.now()

	c.logger.Info("billing run finished",
		zap.String("period", period.String()),
		zap.Int("invoices_created", result.InvoicesCreated),
		zap.Int("already_billed", result.AlreadyBilled),
		zap.Int("skipped_zero", result.SkippedZero),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("duration", result.Duration()),
	)

	return result, nil
}

// billUser computes usage, resolves the rate and persists at most one
// invoice for a single user. Transient store errors are retried with
// exponential backoff; a missing plan is permanent and surfaces
// immediately.
func (c *Coordinator) billUser(ctx context.Context, period Period, userID uuid.UUID) (billOutcome, Invoice, error) {
	uctx, cancel := context.WithTimeout(ctx, c.cfg.UserTimeout)
	defer cancel()

	var outcome billOutcome
	var created Invoice

	attempt := func() error {
		usage, err := c.usage.ComputeUsage(uctx, userID, period.Start(), period.End())
		if err != nil {
			return err
		}

		rate, err := c.rates.ResolveRate(uctx, userID, c.now())
		if err != nil {
			if errors.Is(err, ErrNoPlan) {
				return backoff.Permanent(err)
			}
			return err
		}

		amount := decimal.NewFromFloat(usage).Mul(rate).Round(amountScale)
		if !amount.IsPositive() {
			outcome = outcomeZero
			return nil
		}

		inv := Invoice{
			ID:        uuid.New(),
			UserID:    userID,
			Year:      period.Year,
			Month:     int(period.Month),
			Amount:    amount,
			CreatedAt: c.now(),
		}
		wasCreated, err := c.invoices.CreateIfAbsent(uctx, inv)
		if err != nil {
			return err
		}
		if wasCreated {
			outcome = outcomeCreated
			created = inv
		} else {
			// An invoice already exists for this (user, period): a rerun
			// or a concurrent run got here first. Benign.
			outcome = outcomeAlreadyBilled
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInitialInterval
	err := backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), uctx))

	return outcome, created, err
}
