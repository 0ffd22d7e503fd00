package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_IsLogged(t *testing.T) {
	db, mock := redismock.NewClientMock()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	isLogged, err := loginChecker.IsLogged(ctx, "invalid token")
	require.NoError(t, err)
	assert.False(t, isLogged)

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	isLogged, err = loginChecker.IsLogged(ctx, "invalid token")
	require.NoError(t, err)
	assert.False(t, isLogged) // idempotent

	// redis down
	mock.ExpectGet(sessionKeyPrefix + "some token").SetErr(errors.New("connection refused"))
	isLogged, err = loginChecker.IsLogged(ctx, "some token")
	require.EqualError(t, err, "connection refused")
	assert.False(t, isLogged)

	testToken := "test-token"
	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("%d", now.Unix()))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, isLogged)
	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("%d", now.Unix()))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.True(t, isLogged) // idempotent

	// session older than ttl
	mock.ExpectGet(sessionKey).SetVal(fmt.Sprintf("%d", now.Add(-2*time.Hour).Unix()))
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.NoError(t, err)
	assert.False(t, isLogged)

	// corrupted session value
	mock.ExpectGet(sessionKey).SetVal("not-a-timestamp")
	isLogged, err = loginChecker.IsLogged(ctx, testToken)
	require.Error(t, err)
	assert.False(t, isLogged)

	assert.NoError(t, mock.ExpectationsWereMet())
}
