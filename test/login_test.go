//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("good creds, then logout", func(t *testing.T) {
		token := doLogin(ctx, t, s.httpClient, serverEndpoint, testUsername, testPassword)

		// the session is stored in redis
		sessions, err := s.redisClient.SMembers(ctx, "blogcms-sessions").Result()
		require.NoError(t, err)
		assert.Contains(t, sessions, token)

		logout := func() *http.Response {
			req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/a/logout", serverEndpoint), nil)
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			resp, err := s.httpClient.Do(withToken(req, token))
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			return resp
		}

		assert.Equal(t, http.StatusOK, logout().StatusCode)
		// token is gone now
		assert.Equal(t, http.StatusUnauthorized, logout().StatusCode)
	})

	for tn, tc := range map[string]struct {
		username       string
		password       string
		expectedStatus int
		expectedBody   string
	}{
		"bad password": {
			username:       testUsername,
			password:       "bad-password",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "error, wrong credentials",
		},
		"bad username": {
			username:       "bad-username",
			password:       testPassword,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "error, wrong credentials",
		},
		"empty password": {
			username:       testUsername,
			password:       "",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "error, password empty",
		},
	} {
		t.Run(tn, func(t *testing.T) {
			resp, err := s.httpClient.Do(newLoginRequest(ctx, t, serverEndpoint, tc.username, tc.password))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.expectedStatus, resp.StatusCode)

			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedBody, strings.TrimSpace(string(respBytes)))
		})
	}
}

func (s *IntegrationTestSuite) TestLogin_RateLimiting() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// simulate login requests brute force attack
	for i := 1; i <= loginPerMinute+5; i++ {
		resp, err := s.httpClient.Do(newLoginRequest(ctx, t, serverEndpoint, "test-user", "test-pass"))
		require.NoError(t, err)

		if i <= loginPerMinute {
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "iteration: %d", i)
		} else {
			require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "iteration: %d", i)
			respBytes, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(respBytes), "retry after"), "iteration: %d", i)
		}

		assert.NoError(t, resp.Body.Close())
	}
}
