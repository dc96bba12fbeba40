package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"airtime/internal/core"
	"airtime/internal/services/ussd"

	"github.com/stretchr/testify/assert"
)

type sweeperFunc func(ctx context.Context) ([]ussd.BalanceResult, error)

func (f sweeperFunc) UpdateAllBalances(ctx context.Context) ([]ussd.BalanceResult, error) {
	return f(ctx)
}

func TestTickCountsFailures(t *testing.T) {
	w := NewWorker(sweeperFunc(func(context.Context) ([]ussd.BalanceResult, error) {
		return []ussd.BalanceResult{
			{SIMID: 1, Operator: "ORANGE SN", Balance: "1500"},
			{SIMID: 2, Operator: "TIGO SN", Err: core.ErrBackendTimeout},
			{SIMID: 3, Operator: "EXPRESSO SN", Balance: "20"},
		}, nil
	}), time.Minute)

	ok, failed := w.tick(context.Background())
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}

func TestTickSurvivesListingError(t *testing.T) {
	w := NewWorker(sweeperFunc(func(context.Context) ([]ussd.BalanceResult, error) {
		return nil, errors.New("db down")
	}), time.Minute)

	ok, failed := w.tick(context.Background())
	assert.Zero(t, ok)
	assert.Zero(t, failed)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	w := NewWorker(sweeperFunc(func(context.Context) ([]ussd.BalanceResult, error) {
		calls.Add(1)
		return nil, nil
	}), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunDisabled(t *testing.T) {
	w := NewWorker(sweeperFunc(func(context.Context) ([]ussd.BalanceResult, error) {
		t.Fatal("disabled worker must not sweep")
		return nil, nil
	}), 0)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}
