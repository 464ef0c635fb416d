package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/model"
)

// memStore backs the engine and the user lookup for handler tests.
type memStore struct {
	tasks     map[string]model.Task
	users     map[string]model.User
	assignees map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		tasks:     make(map[string]model.Task),
		users:     make(map[string]model.User),
		assignees: make(map[string][]string),
	}
}

func (m *memStore) FetchTasks(_ context.Context, workspaceID string) ([]model.Task, error) {
	var out []model.Task
	for _, t := range m.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t.Clone())
		}
	}
	return out, nil
}

func (m *memStore) FetchTaskByID(_ context.Context, id string) (*model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (m *memStore) CreateTask(_ context.Context, task *model.Task) error {
	m.tasks[task.ID] = *task.Clone()
	return nil
}

func (m *memStore) UpdateTask(_ context.Context, task *model.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return model.ErrTaskNotFound
	}
	m.tasks[task.ID] = *task.Clone()
	return nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	delete(m.tasks, id)
	return nil
}

func (m *memStore) FetchComments(context.Context, string) ([]model.Comment, error) { return nil, nil }
func (m *memStore) CreateComment(context.Context, *model.Comment) error           { return nil }

func (m *memStore) FetchAttachments(context.Context, string) ([]model.Attachment, error) {
	return nil, nil
}
func (m *memStore) FetchAttachmentByID(context.Context, string) (*model.Attachment, error) {
	return nil, model.ErrAttachmentNotFound
}
func (m *memStore) CreateAttachment(context.Context, *model.Attachment) error { return nil }
func (m *memStore) DeleteAttachment(context.Context, string) error            { return nil }

func (m *memStore) FetchActivities(context.Context, string) ([]model.Activity, error) {
	return nil, nil
}
func (m *memStore) CreateActivity(context.Context, *model.Activity) error { return nil }

func (m *memStore) FetchMovements(context.Context, string) ([]model.Movement, error) {
	return nil, nil
}
func (m *memStore) CreateMovement(context.Context, *model.Movement) error { return nil }

func (m *memStore) FetchAssignees(_ context.Context, taskID string) ([]string, error) {
	return append([]string(nil), m.assignees[taskID]...), nil
}
func (m *memStore) AddAssignees(_ context.Context, taskID string, userIDs []string) error {
	m.assignees[taskID] = append(m.assignees[taskID], userIDs...)
	return nil
}
func (m *memStore) RemoveAssignee(_ context.Context, taskID, userID string) error { return nil }

func (m *memStore) DisplayName(_ context.Context, userID string) (string, error) {
	u, ok := m.users[userID]
	if !ok {
		return "", model.ErrUserNotFound
	}
	return u.FullName, nil
}

func (m *memStore) FetchUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) FetchUserByTgID(context.Context, int64) (*model.User, error) {
	return nil, model.ErrUserNotFound
}
func (m *memStore) FetchUsersInWorkspace(context.Context, string) ([]model.User, error) {
	return nil, nil
}
func (m *memStore) CreateUser(context.Context, *model.User) error { return nil }
func (m *memStore) UpdateUser(context.Context, *model.User) error { return nil }

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()

	store := newMemStore()
	store.users["admin"] = model.User{ID: "admin", FullName: "Admin", Role: model.UserRoleAdmin, IsActive: true}
	store.users["client"] = model.User{ID: "client", FullName: "Client", Role: model.UserRoleClient, IsActive: true}
	store.tasks["t1"] = model.Task{
		ID:          "t1",
		WorkspaceID: "ws-1",
		Title:       "Task one",
		Status:      model.TaskStatusPlanning,
		CreatedBy:   "admin",
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-time.Hour),
	}

	engine := board.NewEngine("ws-1", board.Repositories{
		Tasks:       store,
		Comments:    store,
		Attachments: store,
		Activities:  store,
		Movements:   store,
		Assignments: store,
		Profiles:    store,
	}, nil)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	return New(engine, store, nil, nil), store
}

func doRequest(srv *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(actorHeader, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServer_MissingActorHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/board", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServer_UnknownActor(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/board", "ghost", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServer_BoardListsStages(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/board", "admin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Stages []struct {
			Status string     `json:"status"`
			Tasks  []taskView `json:"tasks"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Stages) != len(model.TaskStatuses) {
		t.Fatalf("stages = %d, want %d", len(resp.Stages), len(model.TaskStatuses))
	}
	if len(resp.Stages[0].Tasks) != 1 || resp.Stages[0].Tasks[0].ID != "t1" {
		t.Fatalf("planning column wrong: %+v", resp.Stages[0])
	}
}

func TestServer_MoveTask(t *testing.T) {
	srv, store := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/tasks/t1/move", "admin", `{"status":"in_progress"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := store.tasks["t1"].Status; got != model.TaskStatusInProgress {
		t.Fatalf("persisted status = %s", got)
	}
}

func TestServer_MoveTaskForbiddenForClient(t *testing.T) {
	srv, store := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/tasks/t1/move", "client", `{"status":"in_progress"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := store.tasks["t1"].Status; got != model.TaskStatusPlanning {
		t.Fatalf("denied move changed persisted status to %s", got)
	}
}

func TestServer_MoveTaskUnknownStage(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/tasks/t1/move", "admin", `{"status":"limbo"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_DeleteTaskAdminOnly(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doRequest(srv, http.MethodDelete, "/api/tasks/t1", "client", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client delete status = %d, want 403", rec.Code)
	}

	rec = doRequest(srv, http.MethodDelete, "/api/tasks/t1", "admin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := store.tasks["t1"]; ok {
		t.Fatalf("task not deleted from storage")
	}
}

func TestServer_CreateTask(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/tasks", "admin", `{"title":"  New thing  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Task taskView `json:"task"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Task.Title != "New thing" || resp.Task.Status != "planning" {
		t.Fatalf("unexpected task: %+v", resp.Task)
	}
}
