package main

import (
	"context"
	"fmt"

	"airtime/internal/domain/operator"
	httpx "airtime/internal/http"
	"airtime/internal/provider"
	"airtime/internal/provider/gateway"
	"airtime/internal/services/admission"
	"airtime/internal/services/command"
	"airtime/internal/services/data"
	"airtime/internal/services/reconcile"
	"airtime/internal/services/ussd"
	"airtime/internal/store/memory"
	"airtime/internal/store/postgres"
	"airtime/internal/store/redislock"
	"airtime/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// app is the wired service graph shared by the subcommands.
type app struct {
	directory  *operator.Directory
	store      repositories.Store
	engine     *ussd.Service
	reconciler *reconcile.Service
	dispatcher *command.Dispatcher
	data       *data.Service
	ping       func(ctx context.Context) error
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) routerDeps() httpx.RouterDependencies {
	return httpx.RouterDependencies{
		AdminToken:  cfg.Sec.AdminToken,
		DataService: a.data,
		Engine:      a.engine,
		Dispatcher:  a.dispatcher,
		Ping:        a.ping,
	}
}

func newApp(ctx context.Context) (*app, error) {
	directory, err := operator.LoadFile(cfg.Operators.File)
	if err != nil {
		return nil, err
	}
	log.Info().Int("operators", directory.Len()).Str("file", cfg.Operators.File).Msg("operator directory loaded")

	a := &app{directory: directory}

	if cfg.DB.DSN == "" {
		log.Warn().Msg("DB_DSN not set, keeping records in memory")
		a.store = memory.New()
	} else {
		pool, err := postgres.Open(ctx, cfg.DB.DSN, cfg.DB.ConnectWait)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}
		a.store = postgres.NewRepo(pool)
		a.ping = pool.Ping
	}

	var locker admission.Locker
	if cfg.Redis.Addr != "" {
		client, err := redislock.Connect(ctx, cfg.Redis.Addr, cfg.DB.ConnectWait)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		locker = redislock.New(client, cfg.Redis.LockTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, admission locks are local to this process")
	}

	registry := provider.NewRegistry()
	if cfg.Modem.GatewayURL != "" {
		registry.SetFallback(gateway.New(cfg.Modem.GatewayURL, cfg.Modem.Timeout))
	} else {
		log.Warn().Msg("MODEM_GATEWAY_URL not set, every backend is unavailable")
	}

	guard := admission.NewGuard(a.store.Transactions(), locker)
	a.engine = ussd.NewService(directory, a.store, registry, guard)
	a.reconciler = reconcile.NewService(directory, a.store, guard)
	a.dispatcher = command.NewDispatcher(a.engine, a.reconciler, a.store.SIMs(), directory)
	a.data = data.NewService(directory, a.store)
	return a, nil
}

func mustStore() error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required for this command")
	}
	return nil
}
