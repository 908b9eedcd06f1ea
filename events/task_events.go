package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a poster publishes a task.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Zip       string    `json:"zip"`
	PostedBy  string    `json:"posted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskAcceptedEvent is emitted when a helper wins the accept on a task.
type TaskAcceptedEvent struct {
	TaskID     string    `json:"task_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Zip        string    `json:"zip"`
	PostedBy   string    `json:"posted_by"`
	AcceptedBy string    `json:"accepted_by"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// TaskAcceptedV1 is the typed event definition for task acceptance.
// Subject: events.task.v1.task-accepted
var TaskAcceptedV1 = helper.EventDefinition[TaskAcceptedEvent](
	"task", "TaskAccepted", "v1",
)

// TaskCompletedEvent is emitted when the poster marks a task done.
type TaskCompletedEvent struct {
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Zip         string    `json:"zip"`
	PostedBy    string    `json:"posted_by"`
	AcceptedBy  string    `json:"accepted_by"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskCompletedV1 is the typed event definition for task completion.
// Subject: events.task.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
	"task", "TaskCompleted", "v1",
)
