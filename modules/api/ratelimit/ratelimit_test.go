package ratelimit

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(client, "rl:"), s
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "helper-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "helper-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Minute)

	other, err := l.Allow(ctx, "helper-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestLimiter_WindowSlides(t *testing.T) {
	l, _ := setupLimiter(t)
	ctx := context.Background()
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "k", 2, time.Second)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "k", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	l.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	res, err = l.Allow(ctx, "k", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_RedisDown(t *testing.T) {
	l, s := setupLimiter(t)
	s.Close()
	_, err := l.Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
}

func newTestApp(m *Middleware, rule Rule) *fiber.App {
	app := fiber.New()
	app.Post("/accept", m.Handler(rule), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	l, _ := setupLimiter(t)
	app := newTestApp(NewMiddleware(l), Rule{
		Name:   "accept",
		Limit:  2,
		Window: time.Minute,
		Key:    func(c *fiber.Ctx) string { return c.Get("X-User") },
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/accept", nil)
		req.Header.Set("X-User", "helper-1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), resp.Header.Get("X-RateLimit-Remaining"))
	}

	req := httptest.NewRequest("POST", "/accept", nil)
	req.Header.Set("X-User", "helper-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMiddleware_SkipsWithoutKey(t *testing.T) {
	l, _ := setupLimiter(t)
	app := newTestApp(NewMiddleware(l), Rule{
		Name:   "accept",
		Limit:  1,
		Window: time.Minute,
		Key:    func(*fiber.Ctx) string { return "" },
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/accept", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	}
}

func TestMiddleware_FailsOpen(t *testing.T) {
	l, s := setupLimiter(t)
	s.Close()
	app := newTestApp(NewMiddleware(l), Rule{Name: "profile", Limit: 1, Window: time.Minute, Key: ByIP})

	resp, err := app.Test(httptest.NewRequest("POST", "/accept", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
