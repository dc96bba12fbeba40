package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airtime/internal/core/sweep"
	httpx "airtime/internal/http"
	"airtime/internal/messaging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the inbound consumer and the balance sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	go sweep.NewWorker(a.engine, cfg.Sweep.Every).Run(ctx)

	if cfg.AMQP.URL != "" {
		consumer, err := messaging.NewConsumer(cfg.AMQP, a.dispatcher)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("inbound consumer stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      httpx.NewRouter(a.routerDeps()),
		ReadTimeout: 15 * time.Second,
		// a transfer waits on the modem for up to the USSD timeout
		WriteTimeout: cfg.Modem.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("airtime API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return err
	}
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
	return nil
}
