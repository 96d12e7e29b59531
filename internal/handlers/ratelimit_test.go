package handlers_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/crewcal-dev/crewcal/internal/middleware"
	"github.com/crewcal-dev/crewcal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerateTierLimitsAfterBudget(t *testing.T) {
	r := setupRouter(t)
	user := createUser(t, models.RoleUser, "pw")
	cookie := sessionCookie(t, user)

	for i := 1; i <= 150; i++ {
		recorder := doRequest(t, r, http.MethodGet, "/api/users", nil, cookie)

		if i <= middleware.APITierLimit {
			require.Equal(t, http.StatusOK, recorder.Code, "request %d should pass", i)

			remaining, err := strconv.Atoi(recorder.Header().Get("X-RateLimit-Remaining"))
			require.NoError(t, err)
			assert.Equal(t, middleware.APITierLimit-i, remaining)
		} else {
			require.Equal(t, http.StatusTooManyRequests, recorder.Code, "request %d should be limited", i)

			retryAfter, err := strconv.Atoi(recorder.Header().Get("Retry-After"))
			require.NoError(t, err)
			assert.Greater(t, retryAfter, 0, "429 carries a retry hint")
			assert.LessOrEqual(t, retryAfter, 61)
		}
	}
}

func TestAuthTierIsStrict(t *testing.T) {
	r := setupRouter(t)

	payload := map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "wrong-password",
	}

	for i := 1; i <= middleware.AuthTierLimit; i++ {
		recorder := doRequest(t, r, http.MethodPost, "/api/auth/login", payload, nil)
		require.Equal(t, http.StatusUnauthorized, recorder.Code, "attempt %d hits the handler", i)
	}

	recorder := doRequest(t, r, http.MethodPost, "/api/auth/login", payload, nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code, "attempt %d is limited", middleware.AuthTierLimit+1)
	assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
}

func TestAuthAndAPITiersAreIndependent(t *testing.T) {
	r := setupRouter(t)
	user := createUser(t, models.RoleUser, "pw")
	cookie := sessionCookie(t, user)

	// Exhaust the strict tier.
	for i := 0; i <= middleware.AuthTierLimit; i++ {
		doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]interface{}{
			"email":    "nobody@example.com",
			"password": "wrong-password",
		}, nil)
	}

	// The moderate tier still serves the same client.
	recorder := doRequest(t, r, http.MethodGet, "/api/users", nil, cookie)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHealthIsExemptFromRateLimiting(t *testing.T) {
	r := setupRouter(t)

	for i := 0; i < middleware.APITierLimit+10; i++ {
		recorder := doRequest(t, r, http.MethodGet, "/api/health", nil, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
	}
}
