package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"airtime/internal/core"

	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var ve *core.ValidationError
	var be *core.BackendError
	switch {
	case errors.Is(err, core.ErrTransferUnrecorded):
		return http.StatusInternalServerError
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownOperator), errors.Is(err, core.ErrUnknownSIM), errors.Is(err, core.ErrMissingSIM):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTransferBusy), errors.Is(err, core.ErrAmbiguousState):
		return http.StatusConflict
	case errors.Is(err, core.ErrBackendTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrBackendUnavailable), errors.Is(err, core.ErrNoResponse), errors.As(err, &be):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: core.Reason(err)}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		body.Detail = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
