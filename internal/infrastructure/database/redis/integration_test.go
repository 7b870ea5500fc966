//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
)

func TestFingerprintStore_RealRedis(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(ctx, &Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewFingerprintStore(client, logging.NewNopLogger(), WithPrefix("it:"), WithTTL(time.Minute))
	want := testFingerprint(t)

	require.NoError(t, store.Save(ctx, "CCO", 2, 256, want))
	got, found, err := store.Load(ctx, "CCO", 2, 256)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want.Bits, got.Bits)

	ttl, err := client.rdb.TTL(ctx, store.key("CCO", 2, 256)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
}
