package api

import (
	"time"

	"github.com/example/neardoer/domain/match"
	taskdomain "github.com/example/neardoer/domain/task"
	userdomain "github.com/example/neardoer/domain/user"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProfileRequest saves or switches the caller's profile.
type ProfileRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Zip      string `json:"zip"`
	Skills   string `json:"skills,omitempty"`
	Password string `json:"password,omitempty"`
}

// ProfileResponse returns the profile and a bearer token for it.
type ProfileResponse struct {
	User      userdomain.User `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Created   bool            `json:"created"`
}

// CreateTaskRequest is the body of POST /api/v1/tasks. Zip defaults to the
// poster's profile ZIP.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price,omitempty"`
	Zip         string `json:"zip,omitempty"`
}

// BrowseResponse lists Open tasks ranked for a helper.
type BrowseResponse struct {
	Zip      string         `json:"zip"`
	Category string         `json:"category"`
	Query    string         `json:"query"`
	Results  []match.Scored `json:"results"`
	Fallback bool           `json:"fallback"`
	Total    int            `json:"total"`
}

// MineResponse groups the caller's tasks by status.
type MineResponse struct {
	Role      userdomain.Role   `json:"role"`
	Open      []taskdomain.Task `json:"open"`
	Accepted  []taskdomain.Task `json:"accepted"`
	Completed []taskdomain.Task `json:"completed"`
}
