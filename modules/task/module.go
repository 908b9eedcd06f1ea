package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/neardoer/domain/task"
	"github.com/example/neardoer/events"
	"github.com/example/neardoer/modules/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage backends.
const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendJetStream = "jetstream"
	BackendMemory    = "memory"
)

// Config selects and configures the task store.
type Config struct {
	Backend     string
	DBPath      string
	DatabaseURL string
	NATSURL     string
	Bucket      string
}

// TaskModule owns the task lifecycle and its storage.
type TaskModule struct {
	config   Config
	store    domain.Store
	manager  *domain.Manager
	userPort user.UserPort
	eventBus mono.EventBus
	logger   types.Logger

	ping    func(ctx context.Context) error
	closers []func()
}

var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.DependentModule       = (*TaskModule)(nil)
	_ mono.EventBusAwareModule   = (*TaskModule)(nil)
	_ mono.EventEmitterModule    = (*TaskModule)(nil)
	_ mono.HealthCheckableModule = (*TaskModule)(nil)
)

// NewModule creates a new TaskModule.
func NewModule(config Config, logger types.Logger) *TaskModule {
	if config.Backend == "" {
		config.Backend = BackendSQLite
	}
	if config.DBPath == "" {
		config.DBPath = "tasks.db"
	}
	if config.Bucket == "" {
		config.Bucket = "tasks"
	}
	return &TaskModule{config: config, logger: logger}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"user"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "user" {
		m.userPort = user.NewUserAdapter(container)
	}
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskAcceptedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "accept-task", json.Unmarshal, json.Marshal, m.acceptTask,
	); err != nil {
		return fmt.Errorf("failed to register accept-task service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "complete-task", json.Unmarshal, json.Marshal, m.completeTask,
	); err != nil {
		return fmt.Errorf("failed to register complete-task service: %w", err)
	}

	m.logger.Info("Registered task services",
		"services", "create-task, get-task, list-tasks, accept-task, complete-task")
	return nil
}

// Start opens the configured store.
func (m *TaskModule) Start(ctx context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}
	if m.store == nil {
		store, err := m.openStore(ctx)
		if err != nil {
			m.closeAll()
			return err
		}
		m.store = store
	}
	m.manager = domain.NewManager(m.store)
	if m.eventBus == nil {
		m.logger.Warn("eventBus not set, task events will not be published")
	}
	m.logger.Info("Task module started", "backend", m.config.Backend)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	m.closeAll()
	m.logger.Info("Task module stopped")
	return nil
}

// Health checks the store connection.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.manager == nil {
		return mono.HealthStatus{Healthy: false, Message: "store not initialized"}
	}
	if m.ping != nil {
		if err := m.ping(ctx); err != nil {
			return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("store ping failed: %v", err)}
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"backend": m.config.Backend},
	}
}

func (m *TaskModule) openStore(ctx context.Context) (domain.Store, error) {
	switch m.config.Backend {
	case BackendMemory:
		return domain.NewMemoryStore(), nil

	case BackendSQLite:
		db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database connection: %w", err)
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		m.closers = append(m.closers, func() { sqlDB.Close() })
		m.ping = sqlDB.PingContext
		return NewGormStore(db)

	case BackendPostgres:
		if m.config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, m.config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		m.closers = append(m.closers, pool.Close)
		m.ping = pool.Ping
		return NewPostgresStore(ctx, pool)

	case BackendJetStream:
		nc, err := nats.Connect(m.config.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		m.closers = append(m.closers, nc.Close)
		m.ping = func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats connection %s", nc.Status())
			}
			return nil
		}
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		return NewKVStore(ctx, js, m.config.Bucket)
	}
	return nil, fmt.Errorf("unknown task store backend %q", m.config.Backend)
}

func (m *TaskModule) closeAll() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
	m.closers = nil
}
