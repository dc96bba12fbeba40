package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/provider"
	"airtime/internal/services/admission"
	"airtime/internal/services/command"
	"airtime/internal/services/data"
	"airtime/internal/services/reconcile"
	"airtime/internal/services/ussd"
	"airtime/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "s3cret"

const networks = `[{
  "Country Name": "Senegal",
  "Country Code": "SN",
  "Operator Short": "ORANGE SN",
  "Operator Numeric": "60801",
  "USSD Balance": "#123#",
  "USSD Transfer": "#116*1*%(destination)d*%(amount)d*%(PIN)d#",
  "Subscriber Pattern": "^(\\+?221|0)?(77)\\d{7}$",
  "Operator Identities": ["ORANGE"]
}]`

func newServer(t *testing.T, exec provider.Executor) *httptest.Server {
	t.Helper()
	dir, err := operator.Load("test", strings.NewReader(networks), operator.FormatJSON)
	require.NoError(t, err)

	store := memory.New()
	guard := admission.NewGuard(store.Transactions(), nil)
	engine := ussd.NewService(dir, store, exec, guard)
	reconciler := reconcile.NewService(dir, store, guard)

	srv := httptest.NewServer(NewRouter(RouterDependencies{
		AdminToken:  token,
		DataService: data.NewService(dir, store),
		Engine:      engine,
		Dispatcher:  command.NewDispatcher(engine, reconciler, store.SIMs(), dir),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Token", token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func replying(text string) provider.Executor {
	return provider.ExecutorFunc(func(context.Context, string, string) (string, error) { return text, nil })
}

func TestHealth(t *testing.T) {
	srv := newServer(t, replying("ok"))
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoutesNeedToken(t *testing.T) {
	srv := newServer(t, replying("ok"))
	resp, err := http.Get(srv.URL + "/api/v1/sims")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t, replying("Votre transfert est en cours"))

	status, body := call(t, srv, http.MethodPost, "/api/v1/sims", map[string]string{"operator": "ORANGE SN", "backend_id": "modem-1"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), body["id"])

	status, body = call(t, srv, http.MethodPost, "/api/v1/sims/1/transfers", map[string]any{"destination": "+221772720297", "amount": 100})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Please try again without international prefix", body["error"])

	status, body = call(t, srv, http.MethodPost, "/api/v1/sims/1/transfers", map[string]any{"destination": "772720297", "amount": 100})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "Votre transfert est en cours", body["reply"])

	status, body = call(t, srv, http.MethodPost, "/api/v1/sims/1/transfers", map[string]any{"destination": "772720298", "amount": "50"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Please try again later.", body["error"])

	status, body = call(t, srv, http.MethodPost, "/inbound", map[string]string{"identity": "ORANGE", "text": "201 Transfert reussi"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["handled"])

	status, body = call(t, srv, http.MethodGet, "/api/v1/transfers", nil)
	require.Equal(t, http.StatusOK, status)
	transfers := body["transfers"].([]any)
	require.Len(t, transfers, 1)
	assert.Equal(t, "success", transfers[0].(map[string]any)["result"])

	status, body = call(t, srv, http.MethodGet, "/api/v1/notifications?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), body["limit"])
	assert.Len(t, body["notifications"], 1)
}

func TestBalanceOverHTTP(t *testing.T) {
	srv := newServer(t, replying("Your balance is 1500 CFA"))
	status, _ := call(t, srv, http.MethodPost, "/api/v1/sims", map[string]string{"operator": "ORANGE SN", "backend_id": "modem-1"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, http.MethodPost, "/api/v1/sims/1/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1500", body["balance"])

	status, _ = call(t, srv, http.MethodPost, "/api/v1/sims/42/balance", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, srv, http.MethodPost, "/api/v1/balances/sweep", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 1)
}

func TestBackendErrorsMapToGatewayStatuses(t *testing.T) {
	srv := newServer(t, provider.ExecutorFunc(func(context.Context, string, string) (string, error) {
		return "", core.ErrBackendTimeout
	}))
	status, _ := call(t, srv, http.MethodPost, "/api/v1/sims", map[string]string{"operator": "ORANGE SN", "backend_id": "modem-1"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, http.MethodPost, "/api/v1/sims/1/balance", nil)
	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "Please try again later.", body["error"])
}

func TestInboundCommandReply(t *testing.T) {
	srv := newServer(t, replying("Your balance is 1500 CFA"))
	status, _ := call(t, srv, http.MethodPost, "/api/v1/sims", map[string]string{"operator": "ORANGE SN", "backend_id": "modem-1"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, http.MethodPost, "/inbound", map[string]string{"identity": "+221770000000", "text": "balance"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ORANGE SN #1: 1500", body["text"])

	status, body = call(t, srv, http.MethodPost, "/inbound", map[string]string{"identity": "+221770000000", "text": "send +221772720297 100"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Please try again without international prefix", body["text"])
}
