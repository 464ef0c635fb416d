package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

func TestTaskStorageCRUD(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	workspaces := NewWorkspaceStorage(db)
	ws := model.NewWorkspace("Test", 0)
	ws.ID = "ws-1"
	if err := workspaces.CreateWorkspace(ctx, ws); err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	hub := realtime.NewHub(nil)
	defer hub.Close()
	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tasks := NewTaskStorage(db, hub)
	now := time.Now().UTC().Truncate(time.Second)
	task := &model.Task{
		ID:          "t1",
		WorkspaceID: "ws-1",
		Title:       "First",
		Status:      model.TaskStatusPlanning,
		CreatedBy:   "u1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tasks.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	ev := <-sub.Events()
	if ev.Type != realtime.EventInsert || ev.Table != realtime.TableTasks {
		t.Fatalf("unexpected event after create: %+v", ev)
	}

	got, err := tasks.FetchTaskByID(ctx, "t1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Title != "First" || got.Status != model.TaskStatusPlanning {
		t.Fatalf("unexpected task: %+v", got)
	}

	got.Status = model.TaskStatusInProgress
	got.UpdatedAt = now.Add(time.Second)
	if err := tasks.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	ev = <-sub.Events()
	if ev.Type != realtime.EventUpdate {
		t.Fatalf("unexpected event after update: %+v", ev)
	}

	listed, err := tasks.FetchTasks(ctx, "ws-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Status != model.TaskStatusInProgress {
		t.Fatalf("unexpected list: %+v", listed)
	}

	if err := tasks.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tasks.FetchTaskByID(ctx, "t1"); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskStorageUpdateMissing(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	tasks := NewTaskStorage(db, nil)
	task := &model.Task{ID: "ghost", Status: model.TaskStatusPlanning, UpdatedAt: time.Now().UTC()}
	if err := tasks.UpdateTask(context.Background(), task); !errors.Is(err, model.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAssignmentStorageRoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	assignments := NewAssignmentStorage(db, nil)

	if err := assignments.AddAssignees(ctx, "t1", []string{"u1", "u2"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Duplicate add is ignored.
	if err := assignments.AddAssignees(ctx, "t1", []string{"u1"}); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}

	got, err := assignments.FetchAssignees(ctx, "t1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("assignees = %v, want 2 entries", got)
	}

	if err := assignments.RemoveAssignee(ctx, "t1", "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, err = assignments.FetchAssignees(ctx, "t1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0] != "u2" {
		t.Fatalf("assignees = %v, want [u2]", got)
	}
}
