package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/orgaflow/orgaflow/internal/auth"
	"github.com/orgaflow/orgaflow/internal/config"
	"github.com/orgaflow/orgaflow/internal/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func testRouterConfig() *config.Config {
	return &config.Config{
		Env:              "dev",
		HTTPAddr:         ":0",
		BaseURL:          "http://localhost:3000",
		JWTSecret:        "test-secret",
		LogLevel:         "error",
		SessionDays:      7,
		WebhookTimeoutMS: 1000,
	}
}

// Join credentials are short; the endpoint must be throttled per IP like
// login and signup so they cannot be enumerated.
func TestRouter_JoinIsRateLimited(t *testing.T) {
	prev := log.Logger
	log.Logger = zerolog.Nop()
	defer func() { log.Logger = prev }()

	cfg := testRouterConfig()
	// A malformed UID is rejected before any database access, so a nil pool
	// is safe here.
	router := NewRouter(nil, cfg, events.NewDispatcher(nil, cfg.WebhookTimeoutMS))

	token, err := auth.CreateToken(uuid.New(), cfg.JWTSecret, cfg.SessionDays)
	require.NoError(t, err)

	doJoin := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/join", strings.NewReader(`{"uid":"not-a-join-code"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusNotFound, doJoin(), "request %d should pass the limiter", i+1)
	}

	require.Equal(t, http.StatusTooManyRequests, doJoin(), "request 11 should be throttled")
}
