package board

import (
	"context"
	"errors"
	"testing"

	"github.com/agalitsyn/taskboard/internal/model"
)

func TestDragController_DeniedPickupStaysIdle(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	err := drag.Start(testUser("stranger", model.UserRoleClient), "t1")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denial, got %v", err)
	}
	if _, dragging := drag.Dragging(); dragging {
		t.Fatalf("denied pick-up must not enter dragging state")
	}
}

func TestDragController_StartUnknownTask(t *testing.T) {
	storage := newFakeStorage()
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	if err := drag.Start(testUser("admin", model.UserRoleAdmin), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDragController_CancelDropsGestureWithoutMutation(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	admin := testUser("admin", model.UserRoleAdmin)
	if err := drag.Start(admin, "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	drag.Cancel()

	if _, dragging := drag.Dragging(); dragging {
		t.Fatalf("cancel must reset the gesture")
	}
	got, _ := engine.Task("t1")
	if got.Status != model.TaskStatusPlanning {
		t.Fatalf("cancel must not move the task, got %s", got.Status)
	}
	if calls := storage.updateTaskCalls; calls != 0 {
		t.Fatalf("cancel issued %d storage writes", calls)
	}
}

func TestDragController_DropOnSameStageIsNoOp(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	admin := testUser("admin", model.UserRoleAdmin)
	if err := drag.Start(admin, "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := drag.Drop(context.Background(), admin, model.TaskStatusPlanning); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if calls := storage.updateTaskCalls; calls != 0 {
		t.Fatalf("same-stage drop issued %d storage writes", calls)
	}
	if len(storage.movementsFor("t1")) != 0 {
		t.Fatalf("same-stage drop recorded a movement")
	}
}

func TestDragController_DropOnUnknownStageCancels(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	admin := testUser("admin", model.UserRoleAdmin)
	if err := drag.Start(admin, "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := drag.Drop(context.Background(), admin, model.TaskStatus("limbo")); err != nil {
		t.Fatalf("drop on unknown stage must cancel quietly, got %v", err)
	}
	got, _ := engine.Task("t1")
	if got.Status != model.TaskStatusPlanning {
		t.Fatalf("unknown-stage drop moved the task to %s", got.Status)
	}
}

func TestDragController_DropMovesTask(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	admin := testUser("admin", model.UserRoleAdmin)
	if err := drag.Start(admin, "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := drag.Drop(context.Background(), admin, model.TaskStatusInProgress); err != nil {
		t.Fatalf("drop: %v", err)
	}

	got, _ := engine.Task("t1")
	if got.Status != model.TaskStatusInProgress {
		t.Fatalf("status = %s, want in_progress", got.Status)
	}
	if _, dragging := drag.Dragging(); dragging {
		t.Fatalf("gesture must end after drop")
	}
	if len(storage.movementsFor("t1")) != 1 {
		t.Fatalf("drop must record exactly one movement")
	}
}

func TestDragController_DropWithoutStartIsNoOp(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	if err := drag.Drop(context.Background(), testUser("admin", model.UserRoleAdmin), model.TaskStatusCompleted); err != nil {
		t.Fatalf("drop without start: %v", err)
	}
	got, _ := engine.Task("t1")
	if got.Status != model.TaskStatusPlanning {
		t.Fatalf("drop without start moved the task")
	}
}

func TestDragController_SecondStartWhileDraggingFails(t *testing.T) {
	storage := newFakeStorage()
	seedTask(storage, "t1", model.TaskStatusPlanning, "boss")
	seedTask(storage, "t2", model.TaskStatusPlanning, "boss")
	engine := newTestEngine(t, storage)
	drag := NewDragController(engine)

	admin := testUser("admin", model.UserRoleAdmin)
	if err := drag.Start(admin, "t1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := drag.Start(admin, "t2"); err == nil {
		t.Fatalf("second pick-up during a drag must fail")
	}
	if id, _ := drag.Dragging(); id != "t1" {
		t.Fatalf("original gesture lost, dragging %q", id)
	}
}
