package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-events/internal/cache"
)

func TestViewsNilSafety(t *testing.T) {
	ctx := context.Background()

	// A nil Views is a no-op cache, not a panic.
	var views *cache.Views
	_, ok := views.Get(ctx, cache.EventViewKey("event1"))
	assert.False(t, ok)
	views.Set(ctx, cache.EventViewKey("event1"), "{}")
	views.Invalidate(ctx, cache.EventViewKey("event1"))

	// Same for a Views without a client.
	views = cache.NewViews(nil, time.Minute)
	_, ok = views.Get(ctx, cache.EventListKey())
	assert.False(t, ok)
}

// TestViewsIntegration exercises the view cache against a real Redis container
func TestViewsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	views := cache.NewViews(client, time.Minute)

	// Miss before any write.
	_, ok := views.Get(ctx, cache.EventViewKey("event1"))
	assert.False(t, ok, "Expected a cold cache miss")

	// Set then hit.
	views.Set(ctx, cache.EventViewKey("event1"), `{"id":"event1"}`)
	body, ok := views.Get(ctx, cache.EventViewKey("event1"))
	require.True(t, ok, "Expected a hit after Set")
	assert.Equal(t, `{"id":"event1"}`, body)

	// Invalidation drops only the named views.
	views.Set(ctx, cache.EventListKey(), `[]`)
	views.Invalidate(ctx, cache.EventViewKey("event1"))

	_, ok = views.Get(ctx, cache.EventViewKey("event1"))
	assert.False(t, ok, "Expected the invalidated view to be gone")

	_, ok = views.Get(ctx, cache.EventListKey())
	assert.True(t, ok, "Expected untouched views to survive invalidation")
}

func TestViewsTTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	views := cache.NewViews(client, time.Second)

	views.Set(ctx, cache.UserTicketsKey("user1"), `[]`)
	_, ok := views.Get(ctx, cache.UserTicketsKey("user1"))
	require.True(t, ok)

	time.Sleep(1500 * time.Millisecond)

	_, ok = views.Get(ctx, cache.UserTicketsKey("user1"))
	assert.False(t, ok, "Expected the view to expire with its TTL")
}
