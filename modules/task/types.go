package task

import (
	"context"
	"errors"

	domain "github.com/example/neardoer/domain/task"
)

// ErrInvalidTask marks create or list requests rejected for bad input.
var ErrInvalidTask = errors.New("invalid task request")

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	PosterID    string `json:"poster_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price,omitempty"`
	Zip         string `json:"zip"`
}

// CreateTaskResponse carries the created task, or the reason it was rejected.
type CreateTaskResponse struct {
	Task      domain.Task `json:"task"`
	Rejection string      `json:"rejection,omitempty"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// GetTaskResponse is the response for getting a task.
type GetTaskResponse struct {
	Task  domain.Task `json:"task"`
	Found bool        `json:"found"`
}

// ListTasksRequest filters a listing; empty fields do not filter.
type ListTasksRequest struct {
	Status     string `json:"status,omitempty"`
	Zip        string `json:"zip,omitempty"`
	Category   string `json:"category,omitempty"`
	PostedBy   string `json:"posted_by,omitempty"`
	AcceptedBy string `json:"accepted_by,omitempty"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks     []domain.Task `json:"tasks"`
	Total     int           `json:"total"`
	Rejection string        `json:"rejection,omitempty"`
}

// AcceptTaskRequest is the request for accepting a task.
type AcceptTaskRequest struct {
	TaskID   string `json:"task_id"`
	HelperID string `json:"helper_id"`
}

// AcceptTaskResponse reports whether this caller won the accept. Task is
// the state read back after the attempt.
type AcceptTaskResponse struct {
	Accepted bool        `json:"accepted"`
	Found    bool        `json:"found"`
	Task     domain.Task `json:"task"`
}

// CompleteTaskRequest is the request for completing a task.
type CompleteTaskRequest struct {
	TaskID string `json:"task_id"`
}

// CompleteTaskResponse reports whether the task moved to Completed.
type CompleteTaskResponse struct {
	Completed bool        `json:"completed"`
	Found     bool        `json:"found"`
	Task      domain.Task `json:"task"`
}

// TaskPort defines the task operations other modules rely on.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) ([]domain.Task, error)
	AcceptTask(ctx context.Context, taskID, helperID string) (*AcceptTaskResponse, error)
	CompleteTask(ctx context.Context, taskID string) (*CompleteTaskResponse, error)
}
