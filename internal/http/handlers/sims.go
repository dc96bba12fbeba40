package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"airtime/internal/core"
	"airtime/internal/domain/sim"
	"airtime/internal/services/data"
	"airtime/internal/services/ussd"

	"github.com/go-chi/chi/v5"
)

// ListSIMs returns every registered SIM with its cached balance
func ListSIMs(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sims, err := dataService.ListSIMs(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sims": sims})
	}
}

// RegisterSIM adds a SIM: {"operator": "ORANGE SN", "backend_id": "modem-1"}
func RegisterSIM(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Operator  string `json:"operator"`
			BackendID string `json:"backend_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		v, err := dataService.RegisterSIM(r.Context(), req.Operator, req.BackendID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

// CheckBalance runs a balance query on one SIM
func CheckBalance(engine *ussd.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSIM(w, r, engine)
		if !ok {
			return
		}
		res, err := engine.CheckBalance(r.Context(), s)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SweepBalances checks every SIM; per-SIM failures are reported inline
func SweepBalances(engine *ussd.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := engine.UpdateAllBalances(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		type row struct {
			ussd.BalanceResult
			Error string `json:"error,omitempty"`
		}
		out := make([]row, 0, len(results))
		for _, res := range results {
			out = append(out, row{BalanceResult: res, Error: core.Reason(res.Err)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": out})
	}
}

// Transfer sends airtime from one SIM:
// {"destination": "772720297", "amount": 100, "pin": "1234"}
func Transfer(engine *ussd.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Destination string      `json:"destination"`
			Amount      json.Number `json:"amount"`
			PIN         string      `json:"pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		s, ok := loadSIM(w, r, engine)
		if !ok {
			return
		}

		res, err := engine.TransferAirtime(r.Context(), s, req.Destination, req.Amount.String(), req.PIN)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"transfer": data.NewTransferView(res.Transfer),
			"reply":    res.Reply,
		})
	}
}

func loadSIM(w http.ResponseWriter, r *http.Request, engine *ussd.Service) (*sim.SIM, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid sim id", http.StatusBadRequest)
		return nil, false
	}
	s, err := engine.SIM(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}
