package command

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/services/reconcile"
	"airtime/internal/services/ussd"
	"airtime/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	UpdateAllBalancesFunc func(ctx context.Context) ([]ussd.BalanceResult, error)
	TransferAirtimeFunc   func(ctx context.Context, s *sim.SIM, destination, amount, pin string) (ussd.TransferResult, error)
}

func (m *mockEngine) UpdateAllBalances(ctx context.Context) ([]ussd.BalanceResult, error) {
	return m.UpdateAllBalancesFunc(ctx)
}

func (m *mockEngine) TransferAirtime(ctx context.Context, s *sim.SIM, destination, amount, pin string) (ussd.TransferResult, error) {
	return m.TransferAirtimeFunc(ctx, s, destination, amount, pin)
}

type mockReconciler struct {
	operators         map[string]bool
	HandleInboundFunc func(ctx context.Context, identity, text string) (reconcile.Outcome, error)
}

func (m *mockReconciler) IsOperator(identity string) bool { return m.operators[identity] }

func (m *mockReconciler) HandleInbound(ctx context.Context, identity, text string) (reconcile.Outcome, error) {
	return m.HandleInboundFunc(ctx, identity, text)
}

func directory() *operator.Directory {
	return operator.NewDirectory(
		&operator.Definition{Short: "ORANGE SN", SubscriberPattern: regexp.MustCompile(`^(\+?221|0)?(77)\d{7}$`)},
		&operator.Definition{Short: "TIGO SN", SubscriberPattern: regexp.MustCompile(`^(\+?221|0)?(76)\d{7}$`)},
	)
}

func seededSIMs(t *testing.T, operators ...string) (*memory.Store, []*sim.SIM) {
	t.Helper()
	store := memory.New()
	var out []*sim.SIM
	for _, name := range operators {
		v, err := sim.NewSIM(name, "modem-"+name)
		require.NoError(t, err)
		require.NoError(t, store.SIMs().Save(context.Background(), v))
		out = append(out, v)
	}
	return store, out
}

func TestHandleRoutesOperatorMessagesToReconciler(t *testing.T) {
	var got string
	rec := &mockReconciler{
		operators: map[string]bool{"ORANGE": true},
		HandleInboundFunc: func(_ context.Context, identity, text string) (reconcile.Outcome, error) {
			got = identity + "|" + text
			return reconcile.Outcome{}, nil
		},
	}
	store, _ := seededSIMs(t)
	d := NewDispatcher(&mockEngine{}, rec, store.SIMs(), directory())

	reply, err := d.Handle(context.Background(), "ORANGE", "balance 201")
	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Empty(t, reply.Text)
	assert.Equal(t, "ORANGE|balance 201", got)
}

func TestHandleBalance(t *testing.T) {
	engine := &mockEngine{UpdateAllBalancesFunc: func(context.Context) ([]ussd.BalanceResult, error) {
		return []ussd.BalanceResult{
			{SIMID: 1, Operator: "ORANGE SN", Balance: "1500"},
			{SIMID: 2, Operator: "TIGO SN", Err: core.ErrBackendUnavailable},
		}, nil
	}}
	store, _ := seededSIMs(t)
	d := NewDispatcher(engine, &mockReconciler{}, store.SIMs(), directory())

	reply, err := d.Handle(context.Background(), "+221770000000", "Balance please")
	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Equal(t, "ORANGE SN #1: 1500\nTIGO SN #2: Modem unavailable", reply.Text)
}

func TestHandleSendPicksSIMByDestinationNetwork(t *testing.T) {
	store, sims := seededSIMs(t, "ORANGE SN", "TIGO SN")
	var from *sim.SIM
	engine := &mockEngine{TransferAirtimeFunc: func(_ context.Context, s *sim.SIM, destination, amount, pin string) (ussd.TransferResult, error) {
		from = s
		assert.Equal(t, "100", amount)
		assert.Equal(t, "1234", pin)
		return ussd.TransferResult{Reply: "Votre transfert est en cours"}, nil
	}}
	d := NewDispatcher(engine, &mockReconciler{}, store.SIMs(), directory())

	reply, err := d.Handle(context.Background(), "+221770000000", "send 761234567 100 1234")
	require.NoError(t, err)
	assert.Equal(t, "Votre transfert est en cours", reply.Text)
	assert.Equal(t, sims[1].ID, from.ID)

	_, err = d.Handle(context.Background(), "+221770000000", "SEND 331234567 100 1234")
	require.NoError(t, err)
	assert.Equal(t, sims[0].ID, from.ID, "falls back to the first sim")
}

func TestHandleSendFailuresBecomeReasons(t *testing.T) {
	store, _ := seededSIMs(t, "ORANGE SN")
	tests := []struct {
		err  error
		want string
	}{
		{core.ErrTransferBusy, "Please try again later."},
		{&core.ValidationError{Code: core.InternationalPrefix}, "Please try again without international prefix"},
		{errors.New("db down"), "Unknown. Please try again later."},
	}
	for _, tt := range tests {
		engine := &mockEngine{TransferAirtimeFunc: func(context.Context, *sim.SIM, string, string, string) (ussd.TransferResult, error) {
			return ussd.TransferResult{}, tt.err
		}}
		d := NewDispatcher(engine, &mockReconciler{}, store.SIMs(), directory())

		reply, err := d.Handle(context.Background(), "+221770000000", "send 772720297 100")
		assert.ErrorIs(t, err, tt.err)
		assert.Equal(t, tt.want, reply.Text)
	}
}

func TestHandleSendWithoutSIMs(t *testing.T) {
	store, _ := seededSIMs(t)
	d := NewDispatcher(&mockEngine{}, &mockReconciler{}, store.SIMs(), directory())

	reply, err := d.Handle(context.Background(), "+221770000000", "send 772720297 100")
	assert.ErrorIs(t, err, core.ErrMissingSIM)
	assert.Equal(t, "No SIM available", reply.Text)
}

func TestHandleIgnoresOtherText(t *testing.T) {
	store, _ := seededSIMs(t)
	d := NewDispatcher(&mockEngine{}, &mockReconciler{}, store.SIMs(), directory())

	for _, text := range []string{"", "   ", "hello", "sendme 1 2"} {
		reply, err := d.Handle(context.Background(), "+221770000000", text)
		require.NoError(t, err)
		assert.False(t, reply.Handled, text)
	}
}
