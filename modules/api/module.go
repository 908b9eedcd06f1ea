package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	userdomain "github.com/example/neardoer/domain/user"
	"github.com/example/neardoer/modules/api/ratelimit"
	"github.com/example/neardoer/modules/matching"
	"github.com/example/neardoer/modules/task"
	"github.com/example/neardoer/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr          string
	AcceptLimit   int
	AcceptWindow  time.Duration
	ProfileLimit  int
	ProfileWindow time.Duration
}

// APIModule serves the HTTP API and the live feed endpoint.
type APIModule struct {
	config  Config
	app     *fiber.App
	users   user.UserPort
	tasks   task.TaskPort
	matcher matching.MatchPort
	limiter *ratelimit.Limiter
	feed    fiber.Handler
	logger  types.Logger
}

var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates the API module. limiter and feed may be nil to disable
// rate limiting and the WebSocket feed.
func NewModule(config Config, limiter *ratelimit.Limiter, feed fiber.Handler, logger types.Logger) *APIModule {
	if config.Addr == "" {
		config.Addr = ":3000"
	}
	return &APIModule{config: config, limiter: limiter, feed: feed, logger: logger}
}

func (m *APIModule) Name() string {
	return "api"
}

func (m *APIModule) Dependencies() []string {
	return []string{"user", "task", "matching"}
}

func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "user":
		m.users = user.NewUserAdapter(container)
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	case "matching":
		m.matcher = matching.NewMatchAdapter(container)
	}
}

func (m *APIModule) Start(_ context.Context) error {
	if m.users == nil || m.tasks == nil || m.matcher == nil {
		return fmt.Errorf("api dependencies not set")
	}
	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.config.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.config.Addr, "rate_limiting", m.limiter != nil, "feed", m.feed != nil)
	return nil
}

func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{"addr": m.config.Addr},
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "NearDoer",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	h := NewHandlers(m.users, m.tasks, m.matcher, m.logger)
	auth := AuthMiddleware(m.users)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "neardoer"})
	})
	if m.feed != nil {
		app.Get("/ws/feed", m.feed)
	}

	v1 := app.Group("/api/v1")
	v1.Post("/profile", m.limit(ratelimit.Rule{
		Name: "profile", Limit: m.config.ProfileLimit, Window: m.config.ProfileWindow, Key: ratelimit.ByIP,
	}), h.SaveProfile)
	v1.Get("/profile", auth, h.Profile)

	tasks := v1.Group("/tasks", auth)
	tasks.Post("/", RequireRole(userdomain.RolePoster), h.CreateTask)
	tasks.Get("/browse", RequireRole(userdomain.RoleHelper), h.Browse)
	tasks.Get("/mine", h.Mine)
	tasks.Get("/:id", h.GetTask)
	tasks.Post("/:id/accept", RequireRole(userdomain.RoleHelper), m.limit(ratelimit.Rule{
		Name: "accept", Limit: m.config.AcceptLimit, Window: m.config.AcceptWindow, Key: bySessionUser,
	}), h.AcceptTask)
	tasks.Post("/:id/complete", RequireRole(userdomain.RolePoster), h.CompleteTask)

	return app
}

// limit returns a rate limiting handler for rule, or a pass-through when
// no limiter is configured.
func (m *APIModule) limit(rule ratelimit.Rule) fiber.Handler {
	if m.limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return ratelimit.NewMiddleware(m.limiter).Handler(rule)
}

func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: message})
}
