package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytevault/server/internal/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	periods []billing.Period
	err     error
}

func (f *fakeRunner) RunForPeriod(_ context.Context, period billing.Period) (*billing.RunResult, error) {
	f.periods = append(f.periods, period)
	if f.err != nil {
		return nil, f.err
	}
	return &billing.RunResult{Period: period}, nil
}

func TestRunOnceBillsPreviousMonth(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 5, 0, time.UTC) }

	s.runOnce()

	require.Len(t, runner.periods, 1)
	assert.Equal(t, billing.Period{Year: 2024, Month: time.January}, runner.periods[0])
}

func TestRunOnceAcrossYearBoundary(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	s.runOnce()

	require.Len(t, runner.periods, 1)
	assert.Equal(t, billing.Period{Year: 2023, Month: time.December}, runner.periods[0])
}

func TestRunOnceSwallowsRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("lock held")}
	s := NewScheduler(runner, zap.NewNop())

	// Must not panic; the next scheduled fire should still happen.
	s.runOnce()
	assert.Len(t, runner.periods, 1)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, zap.NewNop())
	assert.Error(t, s.Start("not a cron spec"))
}
