package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager owns the Open -> Accepted -> Completed state machine.
// Transitions never read-then-write; they delegate to Store.Transition.
type Manager struct {
	store Store
	now   func() time.Time
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a lifecycle manager backed by store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates fields and inserts a new Open task owned by posterID.
func (m *Manager) Create(ctx context.Context, fields NewTask, posterID string) (*Task, error) {
	posterID = strings.TrimSpace(posterID)
	if posterID == "" {
		return nil, ErrPosterRequired
	}
	title := strings.TrimSpace(fields.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description := strings.TrimSpace(fields.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	zip := strings.TrimSpace(fields.Zip)
	if zip == "" {
		return nil, ErrZipRequired
	}
	category, err := ParseCategory(fields.Category)
	if err != nil {
		return nil, err
	}

	now := m.now()
	t := &Task{
		ID:          m.newID(),
		Title:       title,
		Description: description,
		Category:    category,
		Price:       strings.TrimSpace(fields.Price),
		Zip:         zip,
		Status:      StatusOpen,
		PostedBy:    posterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

// Accept moves an Open task to Accepted with helperID as accepter.
// It returns false when the task is not Open or does not exist; the caller
// should re-read the task to learn who won.
func (m *Manager) Accept(ctx context.Context, taskID, helperID string) (bool, error) {
	helperID = strings.TrimSpace(helperID)
	if helperID == "" {
		return false, ErrHelperRequired
	}
	if strings.TrimSpace(taskID) == "" {
		return false, nil
	}
	ok, err := m.store.Transition(ctx, taskID, StatusOpen, StatusAccepted, helperID, m.now())
	if err != nil {
		return false, fmt.Errorf("failed to accept task: %w", err)
	}
	return ok, nil
}

// Complete moves an Accepted task to Completed. Only the poster may call
// this; the caller enforces that.
func (m *Manager) Complete(ctx context.Context, taskID string) (bool, error) {
	if strings.TrimSpace(taskID) == "" {
		return false, nil
	}
	ok, err := m.store.Transition(ctx, taskID, StatusAccepted, StatusCompleted, "", m.now())
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	return ok, nil
}

// Get returns the task with the given id or ErrNotFound.
func (m *Manager) Get(ctx context.Context, taskID string) (*Task, error) {
	return m.store.Get(ctx, taskID)
}

// List returns tasks matching filter, newest first.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]Task, error) {
	return m.store.List(ctx, filter)
}
