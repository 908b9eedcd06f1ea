package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/neardoer/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a TaskPort backed by the task module's services.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// CreateTask returns an error wrapping ErrInvalidTask for rejected input.
func (a *taskAdapter) CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error) {
	var resp CreateTaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "create-task", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, fmt.Errorf("create-task service call failed: %w", err)
	}
	if resp.Rejection != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTask, resp.Rejection)
	}
	return &resp.Task, nil
}

// GetTask returns domain.ErrNotFound for unknown ids.
func (a *taskAdapter) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	req := GetTaskRequest{TaskID: taskID}
	var resp GetTaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-task", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-task service call failed: %w", err)
	}
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	return &resp.Task, nil
}

func (a *taskAdapter) ListTasks(ctx context.Context, req *ListTasksRequest) ([]domain.Task, error) {
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "list-tasks", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, fmt.Errorf("list-tasks service call failed: %w", err)
	}
	if resp.Rejection != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTask, resp.Rejection)
	}
	return resp.Tasks, nil
}

func (a *taskAdapter) AcceptTask(ctx context.Context, taskID, helperID string) (*AcceptTaskResponse, error) {
	req := AcceptTaskRequest{TaskID: taskID, HelperID: helperID}
	var resp AcceptTaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "accept-task", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("accept-task service call failed: %w", err)
	}
	return &resp, nil
}

func (a *taskAdapter) CompleteTask(ctx context.Context, taskID string) (*CompleteTaskResponse, error) {
	req := CompleteTaskRequest{TaskID: taskID}
	var resp CompleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "complete-task", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("complete-task service call failed: %w", err)
	}
	return &resp, nil
}
