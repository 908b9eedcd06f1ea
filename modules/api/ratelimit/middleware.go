package ratelimit

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// KeyFunc extracts the client key a rule counts against. An empty key skips
// limiting for the request.
type KeyFunc func(c *fiber.Ctx) string

// Rule names a limit and how requests are grouped under it.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

// ByIP groups requests by client address.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// Middleware turns Rules into Fiber handlers backed by a Limiter.
type Middleware struct {
	limiter *Limiter
	logger  *slog.Logger
}

// NewMiddleware creates a Middleware over limiter.
func NewMiddleware(limiter *Limiter) *Middleware {
	return &Middleware{limiter: limiter, logger: slog.Default()}
}

// Handler enforces rule. Redis failures let the request through.
func (m *Middleware) Handler(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rule.Limit <= 0 {
			return c.Next()
		}
		key := rule.Key(c)
		if key == "" {
			return c.Next()
		}

		result, err := m.limiter.Allow(c.UserContext(), rule.Name+":"+key, rule.Limit, rule.Window)
		if err != nil {
			m.logger.Error("Rate limit check failed", "rule", rule.Name, "key", key, "error", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			m.logger.Warn("Rate limit exceeded", "rule", rule.Name, "key", key, "retry_after", retryAfter)
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter),
				"retry_after": retryAfter,
			})
		}
		return c.Next()
	}
}
