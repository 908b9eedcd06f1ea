package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/neardoer/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the user module.
type Config struct {
	DBPath     string
	BcryptCost int
	Session    SessionConfig
}

// UserModule owns profiles and session tokens.
type UserModule struct {
	config  Config
	db      *gorm.DB
	service *UserService
	logger  types.Logger
}

var (
	_ mono.Module                = (*UserModule)(nil)
	_ mono.ServiceProviderModule = (*UserModule)(nil)
	_ mono.HealthCheckableModule = (*UserModule)(nil)
)

// NewModule creates a new UserModule.
func NewModule(config Config, logger types.Logger) *UserModule {
	if config.DBPath == "" {
		config.DBPath = "users.db"
	}
	return &UserModule{config: config, logger: logger}
}

func (m *UserModule) Name() string {
	return "user"
}

// Start opens the profile database and wires the service.
func (m *UserModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	m.db = db
	m.service = NewUserService(
		NewUserRepository(db),
		NewPasswordHasher(m.config.BcryptCost),
		NewSessionManager(m.config.Session),
	)

	m.logger.Info("User module started", "database", m.config.DBPath)
	return nil
}

func (m *UserModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("User module stopped")
	return nil
}

// Health pings the profile database.
func (m *UserModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.config.DBPath},
	}
}

// RegisterServices registers save-profile, get-user and verify-session.
func (m *UserModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "save-profile", json.Unmarshal, json.Marshal, m.handleSaveProfile,
	); err != nil {
		return fmt.Errorf("failed to register save-profile service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "verify-session", json.Unmarshal, json.Marshal, m.handleVerifySession,
	); err != nil {
		return fmt.Errorf("failed to register verify-session service: %w", err)
	}

	m.logger.Info("Registered user services", "services", "save-profile, get-user, verify-session")
	return nil
}

func (m *UserModule) handleSaveProfile(ctx context.Context, req SaveProfileRequest, _ *mono.Msg) (SaveProfileResponse, error) {
	u, created, err := m.service.SaveProfile(ctx, ProfileInput{
		Name:     req.Name,
		Role:     req.Role,
		Zip:      req.Zip,
		Skills:   req.Skills,
		Password: req.Password,
	})
	if err != nil {
		if isRejection(err) {
			return SaveProfileResponse{Rejection: err.Error()}, nil
		}
		return SaveProfileResponse{}, err
	}
	session, err := m.service.IssueSession(u)
	if err != nil {
		return SaveProfileResponse{}, err
	}
	if created {
		m.logger.Info("Profile created", "userID", u.ID, "role", u.Role, "zip", u.Zip)
	}
	return SaveProfileResponse{
		User:      *u,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Created:   created,
	}, nil
}

func (m *UserModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	u, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return GetUserResponse{Found: false}, nil
		}
		return GetUserResponse{}, err
	}
	return GetUserResponse{User: *u, Found: true}, nil
}

func (m *UserModule) handleVerifySession(_ context.Context, req VerifySessionRequest, _ *mono.Msg) (VerifySessionResponse, error) {
	session, err := m.service.VerifySession(req.Token)
	if err != nil {
		// Rejections are a normal reply, not a service failure.
		return VerifySessionResponse{Valid: false, Error: err.Error()}, nil
	}
	return VerifySessionResponse{Session: *session, Valid: true}, nil
}

func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrNameRequired,
		domain.ErrZipRequired,
		domain.ErrInvalidRole,
		domain.ErrPasswordTooLong,
		domain.ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
