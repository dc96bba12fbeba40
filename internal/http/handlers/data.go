package handlers

import (
	"net/http"
	"strconv"

	"airtime/internal/services/data"
)

// ListOperators returns the loaded operator directory
func ListOperators(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"operators": dataService.ListOperators()})
	}
}

// ListTransfers handles transfer listing requests using the data service
func ListTransfers(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := dataService.ListTransfers(r.Context(), parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ListNotifications handles notification listing requests using the data service
func ListNotifications(dataService *data.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := dataService.ListNotifications(r.Context(), parseListRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseListRequest parses pagination parameters from query string
func parseListRequest(r *http.Request) data.ListRequest {
	req := data.ListRequest{}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}
	return req
}
