//go:build integration

package swarm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}

	return redisURL, cleanup
}

// TestStore_TrailLifecycleAgainstRealRedis exercises the full deposit path
// (hash write, cell list trim, pub/sub event) against a real Redis server.
func TestStore_TrailLifecycleAgainstRealRedis(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	store, err := NewStore(opts, "integration-test", StoreConfig{Resolution: 0, CellCapacity: 3})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	sub, err := store.SubscribeTrailEvents(ctx)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	time.Sleep(100 * time.Millisecond)

	// Overfill one cell to exercise trimming.
	for i := 0; i < 5; i++ {
		sig := TrailSignature{
			ID:                 fmt.Sprintf("sig-%d", i),
			EmittingNodeID:     "node-int",
			PositionAtEmission: Position{1.2, 3.4},
			Timestamp:          time.Now().UTC(),
			RoleAtEmission:     RolePilgrim,
			RelevanceScore:     0.5,
			ValueProposition:   0.5,
		}
		if err := store.RecordTrail(ctx, &sig); err != nil {
			t.Fatalf("Failed to record trail %d: %v", i, err)
		}
	}

	trails, err := store.CellTrails(ctx, Position{1.0, 3.0})
	if err != nil {
		t.Fatalf("Failed to query cell trails: %v", err)
	}
	if len(trails) != 3 {
		t.Fatalf("Expected cell trimmed to 3 trails, got %d", len(trails))
	}
	if trails[0].ID != "sig-4" {
		t.Errorf("Expected newest trail first, got %s", trails[0].ID)
	}

	// At least one deposit event should have arrived.
	select {
	case got := <-sub.Events():
		if got.EmittingNodeID != "node-int" {
			t.Errorf("Unexpected emitting node: %s", got.EmittingNodeID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for trail event")
	}

	// Global best CAS semantics.
	promoted, err := store.PromoteGlobalBest(ctx, &GlobalBest{
		NodeID: "node-int", Position: Position{1, 2}, ResonanceScore: 0.4, Timestamp: time.Now().UTC(),
	})
	if err != nil || !promoted {
		t.Fatalf("First promotion failed: promoted=%v err=%v", promoted, err)
	}
	promoted, err = store.PromoteGlobalBest(ctx, &GlobalBest{
		NodeID: "node-two", Position: Position{3, 4}, ResonanceScore: 0.4, Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Second promotion errored: %v", err)
	}
	if promoted {
		t.Error("Equal resonance should not be promoted")
	}
}
