package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/authz"
	"github.com/orgaflow/orgaflow/internal/events"
	"github.com/orgaflow/orgaflow/internal/orgs"
	"github.com/orgaflow/orgaflow/internal/webhooks"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	var userID uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (email, password_hash, full_name)
		VALUES ($1, 'x', 'Test User')
		RETURNING id
	`, fmt.Sprintf("user-%s@example.com", randomHex(t, 4))).Scan(&userID)
	require.NoError(t, err)
	return userID
}

func createTestOrg(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) *orgs.Org {
	t.Helper()

	service := orgs.NewService(pool, authz.DefaultPrivileges())
	org, err := service.CreateWithOwner(context.Background(), "Acme", "acme-"+randomHex(t, 4), "ops@acme.test", userID)
	require.NoError(t, err)
	return org
}

// Matching must return only active subscriptions of the right organization
// whose event set contains the kind, oldest first.
func TestWebhookRegistry_Matching(t *testing.T) {
	pool, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, pool)
	org := createTestOrg(t, pool, userID)
	otherOrg := createTestOrg(t, pool, userID)

	registry := webhooks.NewService(pool)

	created, err := registry.Register(ctx, org.ID, "https://example.com/a", []string{"task.created", "task.updated"})
	require.NoError(t, err)
	deletedOnly, err := registry.Register(ctx, org.ID, "https://example.com/b", []string{"task.deleted"})
	require.NoError(t, err)
	paused, err := registry.Register(ctx, org.ID, "https://example.com/c", []string{"task.created"})
	require.NoError(t, err)
	require.NoError(t, registry.SetActive(ctx, paused.ID, false))

	neighbor, err := registry.Register(ctx, otherOrg.ID, "https://example.com/d", []string{"task.created"})
	require.NoError(t, err)

	endpoints, err := registry.Matching(ctx, org.ID, events.KindTaskCreated)
	require.NoError(t, err)
	require.Len(t, endpoints, 1, "paused and kind-mismatched subscriptions must not match")
	require.Equal(t, created.ID, endpoints[0].ID)
	require.Equal(t, created.URL, endpoints[0].URL)
	require.Equal(t, created.Secret, endpoints[0].Secret)

	endpoints, err = registry.Matching(ctx, org.ID, events.KindTaskDeleted)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	require.Equal(t, deletedOnly.ID, endpoints[0].ID)

	// Subscriptions never leak across organizations.
	endpoints, err = registry.Matching(ctx, otherOrg.ID, events.KindTaskCreated)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	require.Equal(t, neighbor.ID, endpoints[0].ID)

	// Reactivation brings the subscription back, in registration order.
	require.NoError(t, registry.SetActive(ctx, paused.ID, true))
	endpoints, err = registry.Matching(ctx, org.ID, events.KindTaskCreated)
	require.NoError(t, err)
	require.Len(t, endpoints, 2)
	require.Equal(t, created.ID, endpoints[0].ID)
	require.Equal(t, paused.ID, endpoints[1].ID)
}

func TestWebhookRegistry_ListInsertionOrder(t *testing.T) {
	pool, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, pool)
	org := createTestOrg(t, pool, userID)

	registry := webhooks.NewService(pool)

	var want []uuid.UUID
	for i := 0; i < 3; i++ {
		sub, err := registry.Register(ctx, org.ID, fmt.Sprintf("https://example.com/hooks/%d", i), []string{"task.created"})
		require.NoError(t, err)
		want = append(want, sub.ID)
	}

	subs, err := registry.List(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	for i, sub := range subs {
		require.Equal(t, want[i], sub.ID)
		require.True(t, sub.IsActive)
	}
}

// End to end: a committed registration drives real dispatch, and a paused
// subscription receives nothing.
func TestWebhookDispatch_SkipsInactiveSubscription(t *testing.T) {
	pool, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, pool)
	org := createTestOrg(t, pool, userID)

	type received struct {
		body      []byte
		signature string
	}
	got := make(chan received, 1)
	activeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, signature: r.Header.Get(events.SignatureHeader)}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer activeServer.Close()

	pausedHits := make(chan struct{}, 8)
	pausedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pausedHits <- struct{}{}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer pausedServer.Close()

	registry := webhooks.NewService(pool)
	active, err := registry.Register(ctx, org.ID, activeServer.URL, []string{"task.created"})
	require.NoError(t, err)
	pausedSub, err := registry.Register(ctx, org.ID, pausedServer.URL, []string{"task.created"})
	require.NoError(t, err)
	require.NoError(t, registry.SetActive(ctx, pausedSub.ID, false))

	dispatcher := events.NewDispatcher(registry, 5000)
	dispatcher.Publish(events.DomainEvent{
		Kind:       events.KindTaskCreated,
		OrgID:      org.ID,
		OccurredAt: time.Now().UTC(),
		Data:       map[string]interface{}{"id": uuid.New().String()},
	})
	dispatcher.Close()

	select {
	case delivery := <-got:
		require.True(t, events.VerifySignature(delivery.body, active.Secret, delivery.signature))
	default:
		t.Fatal("active subscription received no delivery")
	}

	select {
	case <-pausedHits:
		t.Fatal("paused subscription must not receive deliveries")
	default:
	}
}
