package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/example/neardoer/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// CacheModule owns the listing cache and keeps it consistent with task
// lifecycle events.
type CacheModule struct {
	cache  *Cache
	logger types.Logger
}

var (
	_ mono.Module                = (*CacheModule)(nil)
	_ mono.EventConsumerModule   = (*CacheModule)(nil)
	_ mono.HealthCheckableModule = (*CacheModule)(nil)
)

// NewModule creates a cache module over client. The caller owns client.
func NewModule(client *redis.Client, ttl time.Duration, logger types.Logger) *CacheModule {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CacheModule{
		cache:  New(client, "neardoer:", ttl),
		logger: logger,
	}
}

func (m *CacheModule) Name() string {
	return "cache"
}

// Cache returns the listing cache.
func (m *CacheModule) Cache() *Cache {
	return m.cache
}

func (m *CacheModule) Start(ctx context.Context) error {
	if err := m.cache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	m.logger.Info("Cache module started", "ttl", m.cache.ttl.String())
	return nil
}

func (m *CacheModule) Stop(_ context.Context) error {
	m.logger.Info("Cache module stopped", "hits", m.cache.hits.Load(), "misses", m.cache.misses.Load())
	return nil
}

func (m *CacheModule) Health(ctx context.Context) mono.HealthStatus {
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	stats := m.cache.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": stats.HitRate,
		},
	}
}

func (m *CacheModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskAcceptedV1, m.handleTaskAccepted, m); err != nil {
		return fmt.Errorf("failed to register TaskAccepted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	m.logger.Info("Registered cache event consumers", "events", "TaskCreated, TaskAccepted, TaskCompleted")
	return nil
}

func (m *CacheModule) handleTaskCreated(ctx context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	return m.invalidateZip(ctx, event.Zip, event.TaskID)
}

func (m *CacheModule) handleTaskAccepted(ctx context.Context, event events.TaskAcceptedEvent, _ *mono.Msg) error {
	return m.invalidateZip(ctx, event.Zip, event.TaskID)
}

func (m *CacheModule) handleTaskCompleted(ctx context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	return m.invalidateZip(ctx, event.Zip, event.TaskID)
}

func (m *CacheModule) invalidateZip(ctx context.Context, zip, taskID string) error {
	n, err := m.cache.DeletePattern(ctx, zipPattern(zip))
	if err != nil {
		m.logger.Error("Failed to invalidate listings", "zip", zip, "taskID", taskID, "error", err)
		return err
	}
	// Listings browsed without a zip filter hold tasks from every zip.
	if zip != "" {
		all, err := m.cache.DeletePattern(ctx, zipPattern(""))
		if err != nil {
			m.logger.Error("Failed to invalidate listings", "zip", "", "taskID", taskID, "error", err)
			return err
		}
		n += all
	}
	m.logger.Debug("Invalidated listings", "zip", zip, "taskID", taskID, "keys", n)
	return nil
}
