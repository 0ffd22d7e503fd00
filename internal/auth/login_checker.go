package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
)

// LoginChecker validates admin session tokens against the sessions stored by Service.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

func (as *LoginChecker) IsLogged(ctx context.Context, token string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.login_checker.is_logged")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		// unknown or logged out token
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return false, err
	}

	createdAt := time.Unix(createdAtUnix, 0)
	return time.Since(createdAt) <= as.ttl, nil
}
