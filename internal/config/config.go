package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port string }

// DBCfg.ConnectWait bounds how long startup retries an unreachable database.
type DBCfg struct {
	DSN         string
	ConnectWait time.Duration
}

// RedisCfg: an empty Addr means admission locks are in-process only.
type RedisCfg struct {
	Addr    string
	LockTTL time.Duration
}

type SecurityCfg struct {
	AdminToken string // guards the /api/v1 routes
}

type ModemCfg struct {
	GatewayURL string
	Timeout    time.Duration
}

type OperatorsCfg struct{ File string }

// SweepCfg: zero disables the scheduled balance sweep.
type SweepCfg struct{ Every time.Duration }

// AMQPCfg: an empty URL disables the inbound consumer.
type AMQPCfg struct{ URL, Exchange, Queue, RoutingKey string }

type Cfg struct {
	App       AppCfg
	DB        DBCfg
	Redis     RedisCfg
	Sec       SecurityCfg
	Modem     ModemCfg
	Operators OperatorsCfg
	Sweep     SweepCfg
	AMQP      AMQPCfg
}

// IsDev is true when APP_ENV=dev. Dev runs keep records in memory.
func (c Cfg) IsDev() bool { return c.App.Env == "dev" }

// Load reads .env (if present) then the environment.
func Load() (Cfg, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Cfg{}, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_CONNECT_WAIT", "30s")
	v.SetDefault("LOCK_TTL", "2m")
	v.SetDefault("OPERATORS_FILE", "configs/mobile_networks.json")
	v.SetDefault("MODEM_TIMEOUT_SEC", 30)
	v.SetDefault("SWEEP_EVERY", "0")
	v.SetDefault("AMQP_EXCHANGE", "airtime.inbound")
	v.SetDefault("AMQP_QUEUE", "airtime.inbound.messages")
	v.SetDefault("AMQP_ROUTING_KEY", "inbound.message")

	cfg := Cfg{
		App: AppCfg{
			Env:  v.GetString("APP_ENV"),
			Port: v.GetString("APP_PORT"),
		},
		DB: DBCfg{
			DSN:         v.GetString("DB_DSN"),
			ConnectWait: v.GetDuration("DB_CONNECT_WAIT"),
		},
		Redis: RedisCfg{
			Addr:    strings.TrimSpace(v.GetString("REDIS_ADDR")),
			LockTTL: v.GetDuration("LOCK_TTL"),
		},
		Sec: SecurityCfg{AdminToken: strings.TrimSpace(v.GetString("ADMIN_TOKEN"))},
		Modem: ModemCfg{
			GatewayURL: strings.TrimSpace(v.GetString("MODEM_GATEWAY_URL")),
			Timeout:    time.Duration(v.GetInt("MODEM_TIMEOUT_SEC")) * time.Second,
		},
		Operators: OperatorsCfg{File: v.GetString("OPERATORS_FILE")},
		Sweep:     SweepCfg{Every: v.GetDuration("SWEEP_EVERY")},
		AMQP: AMQPCfg{
			URL:        strings.TrimSpace(v.GetString("AMQP_URL")),
			Exchange:   v.GetString("AMQP_EXCHANGE"),
			Queue:      v.GetString("AMQP_QUEUE"),
			RoutingKey: v.GetString("AMQP_ROUTING_KEY"),
		},
	}

	// Fail fast on required settings
	if cfg.DB.DSN == "" && !cfg.IsDev() {
		return cfg, errors.New("DB_DSN is required (or APP_ENV=dev for the in-memory store)")
	}
	if cfg.Modem.Timeout <= 0 {
		return cfg, fmt.Errorf("MODEM_TIMEOUT_SEC must be positive, got %d", v.GetInt("MODEM_TIMEOUT_SEC"))
	}
	if cfg.Redis.LockTTL <= cfg.Modem.Timeout {
		return cfg, fmt.Errorf("LOCK_TTL (%s) must exceed the modem timeout (%s)", cfg.Redis.LockTTL, cfg.Modem.Timeout)
	}
	if cfg.Sweep.Every < 0 {
		return cfg, fmt.Errorf("SWEEP_EVERY must not be negative")
	}
	return cfg, nil
}

func MustLoad() Cfg {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	return cfg
}
