package events

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	endpoints []Endpoint
}

func (s staticSource) Matching(_ context.Context, _ uuid.UUID, _ Kind) ([]Endpoint, error) {
	return s.endpoints, nil
}

type capturedRequest struct {
	body      []byte
	signature string
	userAgent string
}

// captureServer records every request it receives.
func captureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []capturedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		mu.Lock()
		requests = append(requests, capturedRequest{
			body:      body,
			signature: r.Header.Get(SignatureHeader),
			userAgent: r.Header.Get("User-Agent"),
		})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func TestPublish_DeliversSignedPayload(t *testing.T) {
	server, requests := captureServer(t, http.StatusOK)

	secret := "whsec_test_secret"
	dispatcher := NewDispatcher(staticSource{endpoints: []Endpoint{
		{ID: uuid.New(), URL: server.URL, Secret: secret},
	}}, 2000)

	orgID := uuid.New()
	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dispatcher.Publish(DomainEvent{
		Kind:       KindTaskUpdated,
		OrgID:      orgID,
		OccurredAt: occurred,
		Data:       map[string]interface{}{"id": "t1", "status": "DONE"},
	})
	dispatcher.Close()

	got := requests()
	require.Len(t, got, 1)

	require.Equal(t, "OrgaFlow-Webhook/1.0", got[0].userAgent)
	require.True(t, VerifySignature(got[0].body, secret, got[0].signature))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(got[0].body, &decoded))
	require.Equal(t, "task.updated", decoded["event"])
	require.Equal(t, orgID.String(), decoded["organizationId"])
	require.Equal(t, "2025-06-01T12:00:00Z", decoded["occurredAt"])
	require.Equal(t, map[string]interface{}{"id": "t1", "status": "DONE"}, decoded["data"])
}

func TestPublish_IsolatesFailingSubscriber(t *testing.T) {
	healthy, healthyRequests := captureServer(t, http.StatusOK)
	failing, failingRequests := captureServer(t, http.StatusInternalServerError)

	dispatcher := NewDispatcher(staticSource{endpoints: []Endpoint{
		{ID: uuid.New(), URL: failing.URL, Secret: "secret-fail"},
		{ID: uuid.New(), URL: healthy.URL, Secret: "secret-ok"},
	}}, 2000)

	dispatcher.Publish(DomainEvent{
		Kind:       KindTaskCreated,
		OrgID:      uuid.New(),
		OccurredAt: time.Now(),
		Data:       map[string]interface{}{"id": "t2"},
	})
	dispatcher.Close()

	// The failing endpoint was attempted, the healthy one still delivered.
	require.Len(t, failingRequests(), 1)
	require.Len(t, healthyRequests(), 1)
}

func TestPublish_UnreachableEndpointDiscarded(t *testing.T) {
	healthy, healthyRequests := captureServer(t, http.StatusOK)

	dispatcher := NewDispatcher(staticSource{endpoints: []Endpoint{
		{ID: uuid.New(), URL: "http://127.0.0.1:1", Secret: "secret-dead"},
		{ID: uuid.New(), URL: healthy.URL, Secret: "secret-ok"},
	}}, 2000)

	dispatcher.Publish(DomainEvent{
		Kind:       KindTaskDeleted,
		OrgID:      uuid.New(),
		OccurredAt: time.Now(),
		Data:       map[string]interface{}{"id": "t3"},
	})
	dispatcher.Close()

	require.Len(t, healthyRequests(), 1)
}

func TestPublish_SameBodyDifferentSignaturesPerSecret(t *testing.T) {
	first, firstRequests := captureServer(t, http.StatusOK)
	second, secondRequests := captureServer(t, http.StatusOK)

	dispatcher := NewDispatcher(staticSource{endpoints: []Endpoint{
		{ID: uuid.New(), URL: first.URL, Secret: "secret-one"},
		{ID: uuid.New(), URL: second.URL, Secret: "secret-two"},
	}}, 2000)

	dispatcher.Publish(DomainEvent{
		Kind:       KindTaskUpdated,
		OrgID:      uuid.New(),
		OccurredAt: time.Now(),
		Data:       map[string]interface{}{"id": "t4"},
	})
	dispatcher.Close()

	a := firstRequests()
	b := secondRequests()
	require.Len(t, a, 1)
	require.Len(t, b, 1)

	// Identical canonical bytes, subscriber-specific signatures.
	require.Equal(t, a[0].body, b[0].body)
	require.NotEqual(t, a[0].signature, b[0].signature)
	require.True(t, VerifySignature(a[0].body, "secret-one", a[0].signature))
	require.True(t, VerifySignature(b[0].body, "secret-two", b[0].signature))
}
