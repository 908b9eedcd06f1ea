package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/neardoer/domain/task"
	userdomain "github.com/example/neardoer/domain/user"
	"github.com/example/neardoer/events"
	"github.com/go-monolith/mono"
)

// createTask handles the create-task service request.
func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	poster, err := m.userPort.GetUser(ctx, req.PosterID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return CreateTaskResponse{Rejection: fmt.Sprintf("unknown poster: %s", req.PosterID)}, nil
		}
		return CreateTaskResponse{}, fmt.Errorf("failed to validate poster: %w", err)
	}
	if poster.Role != userdomain.RolePoster {
		return CreateTaskResponse{Rejection: "only posters can create tasks"}, nil
	}

	created, err := m.manager.Create(ctx, domain.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Zip:         req.Zip,
	}, poster.ID)
	if err != nil {
		if domain.IsValidation(err) {
			return CreateTaskResponse{Rejection: err.Error()}, nil
		}
		return CreateTaskResponse{}, err
	}

	if m.eventBus != nil {
		event := events.TaskCreatedEvent{
			TaskID:    created.ID,
			Title:     created.Title,
			Category:  string(created.Category),
			Zip:       created.Zip,
			PostedBy:  created.PostedBy,
			CreatedAt: created.CreatedAt,
		}
		if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskCreated event", "taskID", created.ID, "error", err)
		}
	}
	m.logger.Info("Task created", "taskID", created.ID, "zip", created.Zip, "category", created.Category)
	return CreateTaskResponse{Task: *created}, nil
}

// getTask handles the get-task service request.
func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (GetTaskResponse, error) {
	t, err := m.manager.Get(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return GetTaskResponse{Found: false}, nil
		}
		return GetTaskResponse{}, err
	}
	return GetTaskResponse{Task: *t, Found: true}, nil
}

// listTasks handles the list-tasks service request.
func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	filter := domain.ListFilter{
		Zip:        req.Zip,
		PostedBy:   req.PostedBy,
		AcceptedBy: req.AcceptedBy,
	}
	if req.Status != "" {
		filter.Status = domain.Status(req.Status)
		if !filter.Status.Valid() {
			return ListTasksResponse{Rejection: fmt.Sprintf("unknown status %q", req.Status)}, nil
		}
	}
	if req.Category != "" && req.Category != string(domain.CategoryAll) {
		category, err := domain.ParseCategory(req.Category)
		if err != nil {
			return ListTasksResponse{Rejection: fmt.Sprintf("unknown category %q", req.Category)}, nil
		}
		filter.Category = category
	}

	tasks, err := m.manager.List(ctx, filter)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// acceptTask handles the accept-task service request. A lost race is a
// normal reply with Accepted false.
func (m *TaskModule) acceptTask(ctx context.Context, req AcceptTaskRequest, _ *mono.Msg) (AcceptTaskResponse, error) {
	accepted, err := m.manager.Accept(ctx, req.TaskID, req.HelperID)
	if err != nil {
		return AcceptTaskResponse{}, err
	}

	current, err := m.manager.Get(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AcceptTaskResponse{Accepted: false, Found: false}, nil
		}
		return AcceptTaskResponse{}, err
	}

	if !accepted {
		m.logger.Debug("Accept rejected", "taskID", req.TaskID, "helperID", req.HelperID, "status", current.Status)
		return AcceptTaskResponse{Accepted: false, Found: true, Task: *current}, nil
	}

	if m.eventBus != nil {
		event := events.TaskAcceptedEvent{
			TaskID:     current.ID,
			Title:      current.Title,
			Category:   string(current.Category),
			Zip:        current.Zip,
			PostedBy:   current.PostedBy,
			AcceptedBy: req.HelperID,
			AcceptedAt: current.UpdatedAt,
		}
		if err := events.TaskAcceptedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskAccepted event", "taskID", current.ID, "error", err)
		}
	}
	m.logger.Info("Task accepted", "taskID", current.ID, "helperID", req.HelperID)
	return AcceptTaskResponse{Accepted: true, Found: true, Task: *current}, nil
}

// completeTask handles the complete-task service request.
func (m *TaskModule) completeTask(ctx context.Context, req CompleteTaskRequest, _ *mono.Msg) (CompleteTaskResponse, error) {
	completed, err := m.manager.Complete(ctx, req.TaskID)
	if err != nil {
		return CompleteTaskResponse{}, err
	}

	current, err := m.manager.Get(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return CompleteTaskResponse{Completed: false, Found: false}, nil
		}
		return CompleteTaskResponse{}, err
	}
	if !completed {
		return CompleteTaskResponse{Completed: false, Found: true, Task: *current}, nil
	}

	if m.eventBus != nil {
		event := events.TaskCompletedEvent{
			TaskID:      current.ID,
			Title:       current.Title,
			Category:    string(current.Category),
			Zip:         current.Zip,
			PostedBy:    current.PostedBy,
			AcceptedBy:  current.AcceptedBy,
			CompletedAt: current.UpdatedAt,
		}
		if err := events.TaskCompletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskCompleted event", "taskID", current.ID, "error", err)
		}
	}
	m.logger.Info("Task completed", "taskID", current.ID)
	return CompleteTaskResponse{Completed: true, Found: true, Task: *current}, nil
}
