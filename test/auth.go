package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/curiouscoder/blogcms/internal/middleware"
	"github.com/curiouscoder/blogcms/internal/misc"

	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func newLoginRequest(ctx context.Context, t *testing.T, endpoint, username, password string) *http.Request {
	t.Helper()

	loginReqJson, err := json.Marshal(loginRequest{
		Username: username,
		Password: password,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/login", endpoint), bytes.NewBuffer(loginReqJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doLogin(ctx context.Context, t *testing.T, client *http.Client, endpoint, username, password string) string {
	t.Helper()

	resp, err := client.Do(newLoginRequest(ctx, t, endpoint, username, password))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp misc.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set(middleware.AuthTokenHeader, token)
	return req
}
