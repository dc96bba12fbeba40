package redislock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T, ctx context.Context) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestLockerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client, err := Connect(ctx, startRedis(t, ctx), 10*time.Second)
	require.NoError(t, err)
	defer client.Close()

	a := New(client, time.Minute)
	b := New(client, time.Minute)

	unlock, ok, err := a.TryLock(ctx, "ORANGE SN")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.TryLock(ctx, "ORANGE SN")
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	other, ok, err := b.TryLock(ctx, "TIGO SN")
	require.NoError(t, err)
	require.True(t, ok, "locks are per key")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, ok, err := b.TryLock(ctx, "ORANGE SN")
	require.NoError(t, err)
	require.True(t, ok)

	// a stale unlock from the first holder must not free the new lock
	require.NoError(t, unlock(ctx))
	_, ok, err = a.TryLock(ctx, "ORANGE SN")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, again(ctx))
}

func TestLockExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client, err := Connect(ctx, startRedis(t, ctx), 10*time.Second)
	require.NoError(t, err)
	defer client.Close()

	l := New(client, 200*time.Millisecond)
	_, ok, err := l.TryLock(ctx, "ORANGE SN")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, err := l.TryLock(ctx, "ORANGE SN")
		return err == nil && ok
	}, 3*time.Second, 50*time.Millisecond)
}
