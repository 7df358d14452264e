package billing

import (
	"context"
	"testing"
	"time"

	"github.com/bytevault/server/pkg/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(env *testEnv, locker Locker) (*Engine, *events.Bus) {
	logger := zap.NewNop()
	bus := events.NewBus(logger)
	engine := NewEngine(env.stores(), locker, bus, logger, RunConfig{
		Concurrency:          4,
		UserTimeout:          5 * time.Second,
		MaxRetries:           1,
		RetryInitialInterval: time.Millisecond,
	}, time.Hour)
	return engine, bus
}

func TestEngineRunForPeriod(t *testing.T) {
	env := newTestEnv()
	addBillableUser(env)
	engine, bus := newTestEngine(env, newFakeLocker())

	finished := make(chan events.Event, 1)
	bus.Subscribe(events.EventBillingRunFinished, func(_ context.Context, ev events.Event) error {
		finished <- ev
		return nil
	})

	result, err := engine.RunForPeriod(context.Background(), janPeriod)
	require.NoError(t, err)
	assert.Equal(t, 1, result.InvoicesCreated)

	select {
	case ev := <-finished:
		assert.Equal(t, "2024-01", ev.Payload["period"])
		assert.Equal(t, 1, ev.Payload["invoices_created"])
	case <-time.After(time.Second):
		t.Fatal("billing.run_finished event was not published")
	}

	// The lock is released after the run, so a rerun proceeds (and is a
	// no-op thanks to idempotent invoice writes).
	second, err := engine.RunForPeriod(context.Background(), janPeriod)
	require.NoError(t, err)
	assert.Equal(t, 0, second.InvoicesCreated)
	assert.Equal(t, 1, second.AlreadyBilled)
}

func TestEngineRefusesOverlappingRun(t *testing.T) {
	env := newTestEnv()
	addBillableUser(env)
	locker := newFakeLocker()
	engine, _ := newTestEngine(env, locker)

	// Simulate another run already holding the period lock.
	held, err := locker.AcquireLock(context.Background(), "billing:run:2024-01", time.Hour)
	require.NoError(t, err)
	require.True(t, held)

	_, err = engine.RunForPeriod(context.Background(), janPeriod)
	assert.ErrorIs(t, err, ErrRunInProgress)

	// A different period is not blocked.
	result, err := engine.RunForPeriod(context.Background(), Period{Year: 2024, Month: time.February})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestEngineRunPrevious(t *testing.T) {
	env := newTestEnv()
	userID := addBillableUser(env)
	engine, _ := newTestEngine(env, newFakeLocker())

	// Scheduled on February 1st, the run bills January.
	now := time.Date(2024, time.February, 1, 0, 0, 5, 0, time.UTC)
	result, err := engine.RunPrevious(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, janPeriod, result.Period)
	inv, ok := env.invoices.get(userID, 2024, 1)
	require.True(t, ok)
	assert.Equal(t, 1, inv.Month)
}

func TestEnginePreviewAmount(t *testing.T) {
	env := newTestEnv()
	userID := addBillableUser(env)
	engine, _ := newTestEngine(env, newFakeLocker())

	usage, amount, err := engine.PreviewAmount(context.Background(), userID, janPeriod)
	require.NoError(t, err)

	assert.Equal(t, 1_900_800_000.0, usage)
	assert.True(t, amount.Equal(decimal.RequireFromString("190.08")), "amount = %s", amount)
	assert.Zero(t, env.invoices.count(), "preview must not persist anything")
}

func TestEngineListInvoices(t *testing.T) {
	env := newTestEnv()
	userID := addBillableUser(env)
	engine, _ := newTestEngine(env, newFakeLocker())

	_, err := engine.RunForPeriod(context.Background(), janPeriod)
	require.NoError(t, err)

	invoices, err := engine.ListInvoices(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, userID, invoices[0].UserID)
}
