// Package redislock provides a per-key lock shared by every airtimed
// instance pointed at the same Redis.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect dials Redis and waits up to maxWait for it to answer.
func Connect(ctx context.Context, addr string, maxWait time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	ping := func() error { return client.Ping(ctx).Err() }
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Str("addr", addr).Dur("retry_in", next).Msg("redis ping failed")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type Locker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New returns a locker whose locks expire after ttl if never released.
func New(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, prefix: "airtime:lock:"}
}

// TryLock takes key without waiting. ok is false when someone else holds it.
func (l *Locker) TryLock(ctx context.Context, key string) (unlock func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	full := l.prefix + key
	ok, err = l.client.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock = func(ctx context.Context) error {
		if err := release.Run(ctx, l.client, []string{full}, token).Err(); err != nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}
	return unlock, true, nil
}
