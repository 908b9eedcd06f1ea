package api

import (
	"encoding/json"
	"errors"

	"github.com/example/neardoer/domain/match"
	taskdomain "github.com/example/neardoer/domain/task"
	userdomain "github.com/example/neardoer/domain/user"
	"github.com/example/neardoer/modules/matching"
	"github.com/example/neardoer/modules/task"
	"github.com/example/neardoer/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Handlers serves the HTTP API over the user, task and matching ports.
type Handlers struct {
	users   user.UserPort
	tasks   task.TaskPort
	matcher matching.MatchPort
	logger  types.Logger
}

func NewHandlers(users user.UserPort, tasks task.TaskPort, matcher matching.MatchPort, logger types.Logger) *Handlers {
	return &Handlers{users: users, tasks: tasks, matcher: matcher, logger: logger}
}

// SaveProfile handles POST /api/v1/profile.
func (h *Handlers) SaveProfile(c *fiber.Ctx) error {
	if err := validatePayload(profileValidator, c.Body()); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req ProfileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.users.SaveProfile(c.UserContext(), &user.SaveProfileRequest{
		Name:     req.Name,
		Role:     req.Role,
		Zip:      req.Zip,
		Skills:   req.Skills,
		Password: req.Password,
	})
	if err != nil {
		return h.toHTTPError(err)
	}

	status := fiber.StatusOK
	if resp.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(ProfileResponse{
		User:      resp.User,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		Created:   resp.Created,
	})
}

// Profile handles GET /api/v1/profile.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	session := sessionFrom(c)
	u, err := h.users.GetUser(c.UserContext(), session.UserID)
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(u)
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	if err := validatePayload(createTaskValidator, c.Body()); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var req CreateTaskRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	session := sessionFrom(c)
	zip := req.Zip
	if zip == "" {
		zip = session.Zip
	}
	t, err := h.tasks.CreateTask(c.UserContext(), &task.CreateTaskRequest{
		PosterID:    session.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Zip:         zip,
	})
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// Browse handles GET /api/v1/tasks/browse. zip defaults to the helper's
// profile ZIP and q, when absent, to their saved skills. An explicit empty
// zip browses every ZIP.
func (h *Handlers) Browse(c *fiber.Ctx) error {
	session := sessionFrom(c)
	args := c.Context().QueryArgs()
	zip := session.Zip
	if args.Has("zip") {
		zip = c.Query("zip")
	}
	category := c.Query("category", string(taskdomain.CategoryAll))
	query := session.Skills
	if args.Has("q") {
		query = c.Query("q")
	}

	resp, err := h.matcher.RankTasks(c.UserContext(), &matching.RankTasksRequest{
		Zip:      zip,
		Category: category,
		Query:    query,
	})
	if err != nil {
		return h.toHTTPError(err)
	}
	results := resp.Results
	if results == nil {
		results = []match.Scored{}
	}
	return c.JSON(BrowseResponse{
		Zip:      zip,
		Category: category,
		Query:    query,
		Results:  results,
		Fallback: resp.Fallback,
		Total:    len(results),
	})
}

// Mine handles GET /api/v1/tasks/mine: a poster's own tasks, or the tasks a
// helper has accepted.
func (h *Handlers) Mine(c *fiber.Ctx) error {
	session := sessionFrom(c)
	req := &task.ListTasksRequest{PostedBy: session.UserID}
	if session.IsHelper() {
		req = &task.ListTasksRequest{AcceptedBy: session.UserID}
	}
	tasks, err := h.tasks.ListTasks(c.UserContext(), req)
	if err != nil {
		return h.toHTTPError(err)
	}

	resp := MineResponse{
		Role:      session.Role,
		Open:      []taskdomain.Task{},
		Accepted:  []taskdomain.Task{},
		Completed: []taskdomain.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case taskdomain.StatusOpen:
			resp.Open = append(resp.Open, t)
		case taskdomain.StatusAccepted:
			resp.Accepted = append(resp.Accepted, t)
		case taskdomain.StatusCompleted:
			resp.Completed = append(resp.Completed, t)
		}
	}
	return c.JSON(resp)
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	t, err := h.tasks.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(t)
}

// AcceptTask handles POST /api/v1/tasks/:id/accept.
func (h *Handlers) AcceptTask(c *fiber.Ctx) error {
	session := sessionFrom(c)
	resp, err := h.tasks.AcceptTask(c.UserContext(), c.Params("id"), session.UserID)
	if err != nil {
		return h.toHTTPError(err)
	}
	if !resp.Found {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	if !resp.Accepted {
		if resp.Task.AcceptedBy == session.UserID {
			return fiber.NewError(fiber.StatusConflict, "you already accepted this task")
		}
		return fiber.NewError(fiber.StatusConflict, "already accepted by someone else")
	}
	return c.JSON(resp.Task)
}

// CompleteTask handles POST /api/v1/tasks/:id/complete. Only the poster
// who owns the task may complete it.
func (h *Handlers) CompleteTask(c *fiber.Ctx) error {
	session := sessionFrom(c)
	id := c.Params("id")

	t, err := h.tasks.GetTask(c.UserContext(), id)
	if err != nil {
		return h.toHTTPError(err)
	}
	if t.PostedBy != session.UserID {
		return fiber.NewError(fiber.StatusForbidden, "only the poster of this task can complete it")
	}

	resp, err := h.tasks.CompleteTask(c.UserContext(), id)
	if err != nil {
		return h.toHTTPError(err)
	}
	if !resp.Found {
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	}
	if !resp.Completed {
		return fiber.NewError(fiber.StatusConflict, "task is "+string(resp.Task.Status)+", only Accepted tasks can be completed")
	}
	return c.JSON(resp.Task)
}

// toHTTPError maps port errors onto HTTP statuses.
func (h *Handlers) toHTTPError(err error) error {
	switch {
	case errors.Is(err, taskdomain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "task not found")
	case errors.Is(err, userdomain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "profile not found")
	case errors.Is(err, userdomain.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, task.ErrInvalidTask), errors.Is(err, user.ErrInvalidProfile):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	h.logger.Error("Request failed", "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
}
