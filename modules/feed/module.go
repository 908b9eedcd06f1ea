package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/example/neardoer/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Message is what feed subscribers receive.
type Message struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"task_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Zip        string    `json:"zip"`
	Status     string    `json:"status"`
	AcceptedBy string    `json:"accepted_by,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FeedModule pushes task lifecycle events to WebSocket subscribers by ZIP.
type FeedModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

var (
	_ mono.Module                = (*FeedModule)(nil)
	_ mono.EventConsumerModule   = (*FeedModule)(nil)
	_ mono.HealthCheckableModule = (*FeedModule)(nil)
)

func NewModule(logger types.Logger) *FeedModule {
	return &FeedModule{hub: NewHub(logger), logger: logger}
}

func (m *FeedModule) Name() string {
	return "feed"
}

func (m *FeedModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Feed module started")
	return nil
}

func (m *FeedModule) Stop(_ context.Context) error {
	count := m.hub.SubscriberCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Feed module stopped", "subscribers", count)
	return nil
}

func (m *FeedModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"subscribers": m.hub.SubscriberCount()},
	}
}

// Hub returns the subscriber hub.
func (m *FeedModule) Hub() *Hub {
	return m.hub
}

func (m *FeedModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskAcceptedV1, m.handleTaskAccepted, m); err != nil {
		return fmt.Errorf("failed to register TaskAccepted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	m.logger.Info("Registered feed event consumers", "events", "TaskCreated, TaskAccepted, TaskCompleted")
	return nil
}

func (m *FeedModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	return m.hub.Publish(event.Zip, Message{
		Type:      "task_created",
		TaskID:    event.TaskID,
		Title:     event.Title,
		Category:  event.Category,
		Zip:       event.Zip,
		Status:    "Open",
		Timestamp: event.CreatedAt,
	})
}

func (m *FeedModule) handleTaskAccepted(_ context.Context, event events.TaskAcceptedEvent, _ *mono.Msg) error {
	return m.hub.Publish(event.Zip, Message{
		Type:       "task_accepted",
		TaskID:     event.TaskID,
		Title:      event.Title,
		Category:   event.Category,
		Zip:        event.Zip,
		Status:     "Accepted",
		AcceptedBy: event.AcceptedBy,
		Timestamp:  event.AcceptedAt,
	})
}

func (m *FeedModule) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	return m.hub.Publish(event.Zip, Message{
		Type:       "task_completed",
		TaskID:     event.TaskID,
		Title:      event.Title,
		Category:   event.Category,
		Zip:        event.Zip,
		Status:     "Completed",
		AcceptedBy: event.AcceptedBy,
		Timestamp:  event.CompletedAt,
	})
}

// Handler returns the Fiber handler serving GET /ws/feed?zip=. Non-upgrade
// requests and requests without a ZIP are rejected.
func (m *FeedModule) Handler() fiber.Handler {
	ws := websocket.New(m.serve)
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if normalizeZip(c.Query("zip")) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "zip is required")
		}
		return ws(c)
	}
}

func (m *FeedModule) serve(c *websocket.Conn) {
	sub := &Subscriber{ID: uuid.NewString(), Zip: c.Query("zip"), Conn: c}
	m.hub.Register(sub)
	defer m.hub.Unregister(sub)

	// Subscribers only listen; reads detect the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("Feed connection error", "id", sub.ID, "error", err)
			}
			return
		}
	}
}
