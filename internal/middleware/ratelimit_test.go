package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeeper/internal/config"
)

func limiterTestServer(t *testing.T, cfg config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	return e
}

func TestTokenBucketLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl-test",
	}
	e := limiterTestServer(t, cfg, rdb)

	for i := 0; i < cfg.Capacity; i++ {
		rec := get(e, "/ping")
		require.Equal(t, http.StatusOK, rec.Code, "request %d within capacity", i+1)
	}

	rec := get(e, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := limiterTestServer(t, config.RateLimitConfig{Enabled: false}, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(e, "/ping").Code)
	}
}
