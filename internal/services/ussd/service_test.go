package ussd

import (
	"context"
	"errors"
	"sync"
	"testing"

	"airtime/internal/core"
	"airtime/internal/domain/notification"
	"airtime/internal/domain/operator"
	"airtime/internal/domain/sim"
	"airtime/internal/domain/transaction"
	"airtime/internal/provider"
	"airtime/internal/services/admission"
	"airtime/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orange() *operator.Definition {
	return &operator.Definition{
		CountryCode:      "SN",
		Short:            "ORANGE SN",
		Numeric:          "60801",
		BalanceCommand:   "#123#",
		TransferTemplate: operator.MustParseTemplate("#116*1*%(destination)d*%(amount)d*%(PIN)d#"),
		Identities:       []string{"ORANGE"},
	}
}

func tigo() *operator.Definition {
	return &operator.Definition{
		CountryCode:      "SN",
		Short:            "TIGO SN",
		Numeric:          "60802",
		BalanceCommand:   "#555#",
		TransferTemplate: operator.MustParseTemplate("*555*{destination}*{amount}*{PIN}#"),
		Identities:       []string{"TIGO"},
	}
}

// modem records commands and answers through reply.
type modem struct {
	mu       sync.Mutex
	commands []string
	reply    func(backendID, command string) (string, error)
}

func (m *modem) Execute(_ context.Context, backendID, command string) (string, error) {
	m.mu.Lock()
	m.commands = append(m.commands, command)
	m.mu.Unlock()
	return m.reply(backendID, command)
}

func (m *modem) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func replying(text string) *modem {
	return &modem{reply: func(string, string) (string, error) { return text, nil }}
}

type fixture struct {
	store *memory.Store
	svc   *Service
}

func newFixture(t *testing.T, exec provider.Executor) *fixture {
	t.Helper()
	store := memory.New()
	dir := operator.NewDirectory(orange(), tigo())
	return &fixture{
		store: store,
		svc:   NewService(dir, store, exec, admission.NewGuard(store.Transactions(), nil)),
	}
}

func (f *fixture) addSIM(t *testing.T, operatorName, backendID string) *sim.SIM {
	t.Helper()
	v, err := sim.NewSIM(operatorName, backendID)
	require.NoError(t, err)
	require.NoError(t, f.store.SIMs().Save(context.Background(), v))
	return v
}

func TestParseBalance(t *testing.T) {
	tests := map[string]string{
		"Your balance is 1500 CFA":       "1500",
		"Solde: 1500F, bonus 20 min":     "20",
		"Service unavailable":            "Service unavailable",
		"-5 units":                       "-5 units",
		"12.50 left":                     "12.50 left",
		"0 credit":                       "0",
		"Credit 300 valid until 01/2025": "300",
	}
	for reply, want := range tests {
		assert.Equal(t, want, ParseBalance(reply), reply)
	}
}

func TestCheckBalance(t *testing.T) {
	ctx := context.Background()
	m := replying("Your balance is 1500 CFA")
	f := newFixture(t, m)
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	res, err := f.svc.CheckBalance(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, "1500", res.Balance)
	assert.Equal(t, []string{"#123#"}, m.sent())

	stored, err := f.store.SIMs().FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500", stored.Balance)

	notes, err := f.store.Notifications().List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notification.TypeBalance, notes[0].Type)
	assert.Equal(t, notification.IdentityUSSD, notes[0].Identity)
	assert.Equal(t, "Your balance is 1500 CFA", notes[0].Text)
}

func TestCheckBalanceUnparsedReplyKeptVerbatim(t *testing.T) {
	f := newFixture(t, replying("Service unavailable"))
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	res, err := f.svc.CheckBalance(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "Service unavailable", res.Balance)
}

func TestCheckBalanceFailures(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, replying("  "))
	v := f.addSIM(t, "ORANGE SN", "modem-1")
	_, err := f.svc.CheckBalance(ctx, v)
	assert.ErrorIs(t, err, core.ErrNoResponse)
	stored, _ := f.store.SIMs().FindByID(ctx, v.ID)
	assert.Empty(t, stored.Balance)

	m := replying("1")
	f = newFixture(t, m)
	v = f.addSIM(t, "EXPRESSO SN", "modem-1")
	_, err = f.svc.CheckBalance(ctx, v)
	assert.ErrorIs(t, err, core.ErrUnknownOperator)
	assert.Empty(t, m.sent())
}

func TestUpdateAllBalancesContinuesPastFailures(t *testing.T) {
	m := &modem{reply: func(backendID, _ string) (string, error) {
		if backendID == "modem-2" {
			return "", core.ErrBackendTimeout
		}
		return "Solde 700", nil
	}}
	f := newFixture(t, m)
	a := f.addSIM(t, "ORANGE SN", "modem-1")
	b := f.addSIM(t, "TIGO SN", "modem-2")
	c := f.addSIM(t, "ORANGE SN", "modem-3")

	results, err := f.svc.UpdateAllBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, a.ID, results[0].SIMID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "700", results[0].Balance)

	assert.Equal(t, b.ID, results[1].SIMID)
	assert.ErrorIs(t, results[1].Err, core.ErrBackendTimeout)

	assert.Equal(t, c.ID, results[2].SIMID)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "700", results[2].Balance)
}

func TestTransferAirtime(t *testing.T) {
	ctx := context.Background()
	m := replying("Votre transfert est en cours")
	f := newFixture(t, m)
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	res, err := f.svc.TransferAirtime(ctx, v, "772720297", "100", "")
	require.NoError(t, err)
	assert.Equal(t, "Votre transfert est en cours", res.Reply)
	assert.Equal(t, []string{"#116*1*772720297*100*#"}, m.sent())

	require.NotNil(t, res.Transfer)
	assert.Equal(t, transaction.ResultPending, res.Transfer.Result)
	assert.Equal(t, int64(100), res.Transfer.Amount)
	assert.Equal(t, "772720297", res.Transfer.Destination)
	assert.NotEmpty(t, res.Transfer.Reference)

	pending, err := f.store.Transactions().FindPendingTransfers(ctx, "ORANGE SN")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.Transfer.ID, pending[0].ID)
}

func TestTransferAirtimeBusy(t *testing.T) {
	ctx := context.Background()
	m := replying("ok")
	f := newFixture(t, m)
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	_, err := f.svc.TransferAirtime(ctx, v, "772720297", "100", "1234")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.TransferAirtime(ctx, v, "772720298", "50", "1234")
		assert.ErrorIs(t, err, core.ErrTransferBusy)
		assert.Equal(t, "Please try again later.", core.Reason(err))
	}
	assert.Len(t, m.sent(), 1, "busy requests must not reach the modem")

	listed, err := f.store.Transactions().ListTransfers(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// other operators are unaffected
	w := f.addSIM(t, "TIGO SN", "modem-2")
	_, err = f.svc.TransferAirtime(ctx, w, "761234567", "50", "0000")
	require.NoError(t, err)
}

func TestTransferAirtimeRejectedBeforeIO(t *testing.T) {
	ctx := context.Background()
	m := replying("ok")
	f := newFixture(t, m)
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	_, err := f.svc.TransferAirtime(ctx, v, "+221772720297", "100", "1234")
	assert.True(t, core.IsValidation(err, core.InternationalPrefix))
	assert.Equal(t, "Please try again without international prefix", core.Reason(err))

	_, err = f.svc.TransferAirtime(ctx, v, "772720297", "", "1234")
	assert.True(t, core.IsValidation(err, core.MissingField))

	_, err = f.svc.TransferAirtime(ctx, v, "772720297", "99999999999999999999", "1234")
	assert.True(t, core.IsValidation(err, core.InvalidAmount))

	assert.Empty(t, m.sent())
	listed, _ := f.store.Transactions().ListTransfers(ctx, 10, 0)
	assert.Empty(t, listed)
}

func TestTransferAirtimeBackendFailures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		reply string
		err   error
		want  error
	}{
		{"no response", "", nil, core.ErrNoResponse},
		{"timeout", "", core.ErrBackendTimeout, core.ErrBackendTimeout},
		{"unavailable", "", core.ErrBackendUnavailable, core.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &modem{reply: func(string, string) (string, error) { return tt.reply, tt.err }})
			v := f.addSIM(t, "ORANGE SN", "modem-1")

			_, err := f.svc.TransferAirtime(ctx, v, "772720297", "100", "1234")
			assert.ErrorIs(t, err, tt.want)

			pending, _ := f.store.Transactions().FindPendingTransfers(ctx, "ORANGE SN")
			assert.Empty(t, pending, "failed transfers leave the operator free")
		})
	}
}

func TestTransferAirtimeUnknownOperator(t *testing.T) {
	f := newFixture(t, replying("ok"))
	v := f.addSIM(t, "EXPRESSO SN", "modem-1")

	_, err := f.svc.TransferAirtime(context.Background(), v, "772720297", "100", "1234")
	assert.True(t, errors.Is(err, core.ErrUnknownOperator))
}

func TestRechargeAirtimeNotImplemented(t *testing.T) {
	f := newFixture(t, replying("ok"))
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	_, err := f.svc.RechargeAirtime(context.Background(), v, "1234567890")
	assert.ErrorIs(t, err, core.ErrNotImplemented)
}

func TestSIMLookup(t *testing.T) {
	f := newFixture(t, replying("ok"))
	v := f.addSIM(t, "ORANGE SN", "modem-1")

	got, err := f.svc.SIM(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	_, err = f.svc.SIM(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrUnknownSIM)
}
