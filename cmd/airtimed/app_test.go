package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airtime/internal/config"
	httpx "airtime/internal/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorsFile = "../../configs/mobile_networks.json"

func TestNewAppInMemory(t *testing.T) {
	cfg = config.Cfg{
		App:       config.AppCfg{Env: "dev", Port: "0"},
		Sec:       config.SecurityCfg{AdminToken: "secret"},
		Operators: config.OperatorsCfg{File: operatorsFile},
	}
	a, err := newApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.directory.Len())
	assert.Nil(t, a.ping)

	router := httpx.NewRouter(a.routerDeps())

	body := strings.NewReader(`{"operator":"ORANGE SN","backend_id":"modem-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sims", body)
	req.Header.Set("X-Admin-Token", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// no gateway configured: the balance check reaches the registry and fails there
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sims/1/balance", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/inbound", strings.NewReader(`{"identity":"ORANGE","text":"201 ok"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, true, reply["handled"])
}

func TestNewAppRejectsBadDirectory(t *testing.T) {
	cfg = config.Cfg{Operators: config.OperatorsCfg{File: "does-not-exist.json"}}
	_, err := newApp(context.Background())
	assert.Error(t, err)
}

func TestOperatorsCommand(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("OPERATORS_FILE", operatorsFile)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"operators"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "ORANGE SN")
	assert.Contains(t, out.String(), "60801")
	assert.Contains(t, out.String(), "ORANGE,Orange")
}

func TestSweepNeedsDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_DSN", "")
	t.Setenv("OPERATORS_FILE", operatorsFile)

	rootCmd.SetArgs([]string{"sweep"})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}
