package httpx

import (
	"context"
	"net/http"
	"time"

	"airtime/internal/http/handlers"
	middlewarex "airtime/internal/http/middleware"
	"airtime/internal/services/command"
	"airtime/internal/services/data"
	"airtime/internal/services/ussd"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	AdminToken  string
	DataService *data.Service
	Engine      *ussd.Service
	Dispatcher  *command.Dispatcher
	// Ping checks the record store; nil for the in-memory store.
	Ping func(ctx context.Context) error
}

// NewRouter creates the HTTP router
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middlewarex.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", health(deps.Ping))

	// Inbound messages from the SMS/USSD router
	r.Post("/inbound", handlers.Inbound(deps.Dispatcher))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.AdminToken))

		r.Get("/operators", handlers.ListOperators(deps.DataService))
		r.Get("/sims", handlers.ListSIMs(deps.DataService))
		r.Post("/sims", handlers.RegisterSIM(deps.DataService))
		r.Post("/sims/{id}/balance", handlers.CheckBalance(deps.Engine))
		r.Post("/sims/{id}/transfers", handlers.Transfer(deps.Engine))
		r.Post("/balances/sweep", handlers.SweepBalances(deps.Engine))
		r.Get("/transfers", handlers.ListTransfers(deps.DataService))
		r.Get("/notifications", handlers.ListNotifications(deps.DataService))
	})

	return r
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				log.Error().Err(err).Msg("health: store unreachable")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
