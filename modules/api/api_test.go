package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/neardoer/domain/match"
	taskdomain "github.com/example/neardoer/domain/task"
	userdomain "github.com/example/neardoer/domain/user"
	"github.com/example/neardoer/modules/api/ratelimit"
	"github.com/example/neardoer/modules/matching"
	"github.com/example/neardoer/modules/task"
	"github.com/example/neardoer/modules/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

var (
	posterSession = userdomain.Session{UserID: "poster-1", Name: "Pat", Role: userdomain.RolePoster, Zip: "94110"}
	helperSession = userdomain.Session{UserID: "helper-1", Name: "Hana", Role: userdomain.RoleHelper, Zip: "94110", Skills: "furniture assembly"}
)

type mockUserPort struct {
	saveProfileFunc func(ctx context.Context, req *user.SaveProfileRequest) (*user.SaveProfileResponse, error)
	getUserFunc     func(ctx context.Context, userID string) (*userdomain.User, error)
}

func (m *mockUserPort) SaveProfile(ctx context.Context, req *user.SaveProfileRequest) (*user.SaveProfileResponse, error) {
	if m.saveProfileFunc != nil {
		return m.saveProfileFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserPort) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, userdomain.ErrNotFound
}

func (m *mockUserPort) VerifySession(_ context.Context, token string) (*userdomain.Session, error) {
	switch token {
	case "poster-token":
		s := posterSession
		return &s, nil
	case "other-poster-token":
		s := posterSession
		s.UserID = "poster-2"
		return &s, nil
	case "helper-token":
		s := helperSession
		return &s, nil
	case "helper2-token":
		s := helperSession
		s.UserID = "helper-2"
		return &s, nil
	}
	return nil, user.ErrInvalidToken
}

type mockTaskPort struct {
	createFunc   func(ctx context.Context, req *task.CreateTaskRequest) (*taskdomain.Task, error)
	getFunc      func(ctx context.Context, id string) (*taskdomain.Task, error)
	listFunc     func(ctx context.Context, req *task.ListTasksRequest) ([]taskdomain.Task, error)
	acceptFunc   func(ctx context.Context, id, helperID string) (*task.AcceptTaskResponse, error)
	completeFunc func(ctx context.Context, id string) (*task.CompleteTaskResponse, error)
}

func (m *mockTaskPort) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*taskdomain.Task, error) {
	return m.createFunc(ctx, req)
}

func (m *mockTaskPort) GetTask(ctx context.Context, id string) (*taskdomain.Task, error) {
	return m.getFunc(ctx, id)
}

func (m *mockTaskPort) ListTasks(ctx context.Context, req *task.ListTasksRequest) ([]taskdomain.Task, error) {
	return m.listFunc(ctx, req)
}

func (m *mockTaskPort) AcceptTask(ctx context.Context, id, helperID string) (*task.AcceptTaskResponse, error) {
	return m.acceptFunc(ctx, id, helperID)
}

func (m *mockTaskPort) CompleteTask(ctx context.Context, id string) (*task.CompleteTaskResponse, error) {
	return m.completeFunc(ctx, id)
}

type mockMatchPort struct {
	last matching.RankTasksRequest
	resp *matching.RankTasksResponse
}

func (m *mockMatchPort) RankTasks(_ context.Context, req *matching.RankTasksRequest) (*matching.RankTasksResponse, error) {
	m.last = *req
	if m.resp == nil {
		return &matching.RankTasksResponse{}, nil
	}
	return m.resp, nil
}

func newTestModule(users user.UserPort, tasks task.TaskPort, matcher matching.MatchPort) *APIModule {
	m := NewModule(Config{}, nil, nil, &mockLogger{})
	m.users = users
	m.tasks = tasks
	m.matcher = matcher
	m.app = m.newApp()
	return m
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestHealth(t *testing.T) {
	m := newTestModule(&mockUserPort{}, &mockTaskPort{}, &mockMatchPort{})
	resp, body := do(t, m.app, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "healthy")
}

func TestAuthMiddleware(t *testing.T) {
	m := newTestModule(&mockUserPort{}, &mockTaskPort{}, &mockMatchPort{})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing header", header: "", want: "authorization header is required"},
		{name: "wrong scheme", header: "Basic abc", want: "invalid authorization header format"},
		{name: "unknown token", header: "Bearer nope", want: "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := m.app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			raw, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(raw), tt.want)
		})
	}
}

func TestSaveProfile(t *testing.T) {
	var got *user.SaveProfileRequest
	users := &mockUserPort{
		saveProfileFunc: func(_ context.Context, req *user.SaveProfileRequest) (*user.SaveProfileResponse, error) {
			got = req
			return &user.SaveProfileResponse{
				User:    userdomain.User{ID: "u1", Name: req.Name, Role: userdomain.RoleHelper, Zip: req.Zip},
				Token:   "tok",
				Created: true,
			}, nil
		},
	}
	m := newTestModule(users, &mockTaskPort{}, &mockMatchPort{})

	resp, body := do(t, m.app, "POST", "/api/v1/profile", "", `{"name":"Hana","role":"Helper","zip":"94110","skills":"yardwork"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var out ProfileResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "tok", out.Token)
	assert.Equal(t, "yardwork", got.Skills)

	resp, body = do(t, m.app, "POST", "/api/v1/profile", "", `{"name":"Hana"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "validation failed")

	resp, _ = do(t, m.app, "POST", "/api/v1/profile", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveProfile_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "bad credentials", err: userdomain.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "invalid profile", err: user.ErrInvalidProfile, want: http.StatusBadRequest},
		{name: "transport failure", err: errors.New("nats timeout"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserPort{
				saveProfileFunc: func(context.Context, *user.SaveProfileRequest) (*user.SaveProfileResponse, error) {
					return nil, tt.err
				},
			}
			m := newTestModule(users, &mockTaskPort{}, &mockMatchPort{})
			resp, _ := do(t, m.app, "POST", "/api/v1/profile", "", `{"name":"Pat","role":"Poster","zip":"94110"}`)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestProfile(t *testing.T) {
	users := &mockUserPort{
		getUserFunc: func(_ context.Context, id string) (*userdomain.User, error) {
			if id == "poster-1" {
				return &userdomain.User{ID: id, Name: "Pat", Role: userdomain.RolePoster, Zip: "94110"}, nil
			}
			return nil, userdomain.ErrNotFound
		},
	}
	m := newTestModule(users, &mockTaskPort{}, &mockMatchPort{})

	resp, body := do(t, m.app, "GET", "/api/v1/profile", "poster-token", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"Pat"`)

	resp, _ = do(t, m.app, "GET", "/api/v1/profile", "helper-token", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTask(t *testing.T) {
	var got *task.CreateTaskRequest
	tasks := &mockTaskPort{
		createFunc: func(_ context.Context, req *task.CreateTaskRequest) (*taskdomain.Task, error) {
			got = req
			if req.Category == "Gardening" {
				return nil, errors.Join(task.ErrInvalidTask, taskdomain.ErrInvalidCategory)
			}
			return &taskdomain.Task{ID: "t1", Title: req.Title, Zip: req.Zip, Status: taskdomain.StatusOpen, PostedBy: req.PosterID}, nil
		},
	}
	m := newTestModule(&mockUserPort{}, tasks, &mockMatchPort{})

	resp, body := do(t, m.app, "POST", "/api/v1/tasks", "poster-token", `{"title":"Assemble shelf","description":"IKEA","category":"Assembly"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "poster-1", got.PosterID)
	assert.Equal(t, "94110", got.Zip, "zip defaults to the poster's profile")

	resp, _ = do(t, m.app, "POST", "/api/v1/tasks", "helper-token", `{"title":"x","description":"y"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = do(t, m.app, "POST", "/api/v1/tasks", "poster-token", `{"title":"","description":"y"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "title")

	resp, _ = do(t, m.app, "POST", "/api/v1/tasks", "poster-token", `{"title":"x","description":"y","category":"Gardening"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBrowse(t *testing.T) {
	matcher := &mockMatchPort{resp: &matching.RankTasksResponse{
		Results: []match.Scored{{Task: taskdomain.Task{ID: "t1"}, Score: 0.8}},
	}}
	m := newTestModule(&mockUserPort{}, &mockTaskPort{}, matcher)

	resp, body := do(t, m.app, "GET", "/api/v1/tasks/browse", "helper-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, matching.RankTasksRequest{Zip: "94110", Category: "All", Query: "furniture assembly"}, matcher.last)
	var out BrowseResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "t1", out.Results[0].Task.ID)

	// An explicit blank q overrides saved skills.
	resp, _ = do(t, m.app, "GET", "/api/v1/tasks/browse?zip=10001&category=Cleaning&q=", "helper-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, matching.RankTasksRequest{Zip: "10001", Category: "Cleaning", Query: ""}, matcher.last)

	resp, _ = do(t, m.app, "GET", "/api/v1/tasks/browse", "poster-token", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBrowse_ZipParam(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantZip string
	}{
		{name: "absent uses profile zip", path: "/api/v1/tasks/browse", wantZip: "94110"},
		{name: "explicit zip", path: "/api/v1/tasks/browse?zip=10001", wantZip: "10001"},
		{name: "explicit empty zip browses every zip", path: "/api/v1/tasks/browse?zip=", wantZip: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := &mockMatchPort{}
			m := newTestModule(&mockUserPort{}, &mockTaskPort{}, matcher)

			resp, body := do(t, m.app, "GET", tt.path, "helper-token", "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantZip, matcher.last.Zip)
			var out BrowseResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, tt.wantZip, out.Zip)
		})
	}
}

func TestBrowse_EmptyResults(t *testing.T) {
	m := newTestModule(&mockUserPort{}, &mockTaskPort{}, &mockMatchPort{})
	resp, body := do(t, m.app, "GET", "/api/v1/tasks/browse?q=plumbing", "helper-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"results":[]`)
}

func TestMine(t *testing.T) {
	var got *task.ListTasksRequest
	tasks := &mockTaskPort{
		listFunc: func(_ context.Context, req *task.ListTasksRequest) ([]taskdomain.Task, error) {
			got = req
			return []taskdomain.Task{
				{ID: "a", Status: taskdomain.StatusOpen},
				{ID: "b", Status: taskdomain.StatusAccepted},
				{ID: "c", Status: taskdomain.StatusCompleted},
				{ID: "d", Status: taskdomain.StatusOpen},
			}, nil
		},
	}
	m := newTestModule(&mockUserPort{}, tasks, &mockMatchPort{})

	resp, body := do(t, m.app, "GET", "/api/v1/tasks/mine", "poster-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "poster-1", got.PostedBy)
	var out MineResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Len(t, out.Open, 2)
	assert.Len(t, out.Accepted, 1)
	assert.Len(t, out.Completed, 1)

	resp, _ = do(t, m.app, "GET", "/api/v1/tasks/mine", "helper-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "helper-1", got.AcceptedBy)
	assert.Empty(t, got.PostedBy)
}

func TestGetTask(t *testing.T) {
	tasks := &mockTaskPort{
		getFunc: func(_ context.Context, id string) (*taskdomain.Task, error) {
			if id == "t1" {
				return &taskdomain.Task{ID: "t1", Status: taskdomain.StatusOpen}, nil
			}
			return nil, taskdomain.ErrNotFound
		},
	}
	m := newTestModule(&mockUserPort{}, tasks, &mockMatchPort{})

	resp, _ := do(t, m.app, "GET", "/api/v1/tasks/t1", "helper-token", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, m.app, "GET", "/api/v1/tasks/nope", "helper-token", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"task not found"}`, body)
}

func TestAcceptTask(t *testing.T) {
	tasks := &mockTaskPort{
		acceptFunc: func(_ context.Context, id, helperID string) (*task.AcceptTaskResponse, error) {
			switch id {
			case "open":
				return &task.AcceptTaskResponse{Accepted: true, Found: true, Task: taskdomain.Task{ID: id, Status: taskdomain.StatusAccepted, AcceptedBy: helperID}}, nil
			case "taken":
				return &task.AcceptTaskResponse{Found: true, Task: taskdomain.Task{ID: id, Status: taskdomain.StatusAccepted, AcceptedBy: "helper-1"}}, nil
			}
			return &task.AcceptTaskResponse{}, nil
		},
	}
	m := newTestModule(&mockUserPort{}, tasks, &mockMatchPort{})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{name: "accepted", path: "/api/v1/tasks/open/accept", token: "helper-token", status: http.StatusOK, body: `"accepted_by":"helper-1"`},
		{name: "lost race", path: "/api/v1/tasks/taken/accept", token: "helper2-token", status: http.StatusConflict, body: "already accepted by someone else"},
		{name: "own task", path: "/api/v1/tasks/taken/accept", token: "helper-token", status: http.StatusConflict, body: "you already accepted"},
		{name: "missing", path: "/api/v1/tasks/missing/accept", token: "helper-token", status: http.StatusNotFound, body: "task not found"},
		{name: "poster forbidden", path: "/api/v1/tasks/open/accept", token: "poster-token", status: http.StatusForbidden, body: "only a Helper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, m.app, "POST", tt.path, tt.token, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, body, tt.body)
		})
	}
}

func TestCompleteTask(t *testing.T) {
	store := map[string]taskdomain.Task{
		"accepted": {ID: "accepted", Status: taskdomain.StatusAccepted, PostedBy: "poster-1", AcceptedBy: "helper-1"},
		"open":     {ID: "open", Status: taskdomain.StatusOpen, PostedBy: "poster-1"},
	}
	tasks := &mockTaskPort{
		getFunc: func(_ context.Context, id string) (*taskdomain.Task, error) {
			t, ok := store[id]
			if !ok {
				return nil, taskdomain.ErrNotFound
			}
			return &t, nil
		},
		completeFunc: func(_ context.Context, id string) (*task.CompleteTaskResponse, error) {
			t := store[id]
			if t.Status != taskdomain.StatusAccepted {
				return &task.CompleteTaskResponse{Found: true, Task: t}, nil
			}
			t.Status = taskdomain.StatusCompleted
			return &task.CompleteTaskResponse{Completed: true, Found: true, Task: t}, nil
		},
	}
	m := newTestModule(&mockUserPort{}, tasks, &mockMatchPort{})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{name: "completed", path: "/api/v1/tasks/accepted/complete", token: "poster-token", status: http.StatusOK, body: `"status":"Completed"`},
		{name: "not accepted", path: "/api/v1/tasks/open/complete", token: "poster-token", status: http.StatusConflict, body: "task is Open"},
		{name: "not owner", path: "/api/v1/tasks/accepted/complete", token: "other-poster-token", status: http.StatusForbidden, body: "only the poster"},
		{name: "missing", path: "/api/v1/tasks/missing/complete", token: "poster-token", status: http.StatusNotFound, body: "task not found"},
		{name: "helper forbidden", path: "/api/v1/tasks/accepted/complete", token: "helper-token", status: http.StatusForbidden, body: "only a Poster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, m.app, "POST", tt.path, tt.token, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, body, tt.body)
		})
	}
}

func TestAcceptTask_RateLimited(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	tasks := &mockTaskPort{
		acceptFunc: func(_ context.Context, id, helperID string) (*task.AcceptTaskResponse, error) {
			return &task.AcceptTaskResponse{Found: true, Task: taskdomain.Task{ID: id, AcceptedBy: "someone"}}, nil
		},
	}
	m := NewModule(Config{AcceptLimit: 2, AcceptWindow: time.Minute}, ratelimit.NewLimiter(client, "test:"), nil, &mockLogger{})
	m.users, m.tasks, m.matcher = &mockUserPort{}, tasks, &mockMatchPort{}
	app := m.newApp()

	for i := 0; i < 2; i++ {
		resp, _ := do(t, app, "POST", "/api/v1/tasks/t1/accept", "helper-token", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	}
	resp, _ := do(t, app, "POST", "/api/v1/tasks/t1/accept", "helper-token", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Limits are per helper.
	resp, _ = do(t, app, "POST", "/api/v1/tasks/t1/accept", "helper2-token", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStart_RequiresDependencies(t *testing.T) {
	m := NewModule(Config{}, nil, nil, &mockLogger{})
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, validatePayload(createTaskValidator, []byte(`{"title":"a","description":"b"}`)))
	assert.Error(t, validatePayload(createTaskValidator, []byte(`{"title":"a"}`)))
	assert.Error(t, validatePayload(createTaskValidator, []byte(`{"title":"a","description":"b","price":7}`)))
	assert.Error(t, validatePayload(profileValidator, []byte(`{`)))
}
