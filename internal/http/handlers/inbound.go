package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"airtime/internal/core"
	"airtime/internal/services/command"
)

type inboundResponse struct {
	command.Reply
	Error string `json:"error,omitempty"`
}

// Inbound accepts a message from the router: {"identity": "...", "text": "..."}.
// Refusals are part of the reply; only infrastructure failures return 5xx so
// the router retries.
func Inbound(dispatcher *command.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identity string `json:"identity"`
			Text     string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Identity) == "" {
			http.Error(w, "identity is required", http.StatusBadRequest)
			return
		}

		reply, err := dispatcher.Handle(r.Context(), req.Identity, req.Text)
		if err != nil && !core.Known(err) {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inboundResponse{Reply: reply, Error: core.Reason(err)})
	}
}
