package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/perm"
)

// DragController turns a drag gesture into a stage transition:
// Idle -> Dragging -> Dropped/Cancelled. The permission gate runs at pick-up,
// so a denied drag never leaves Idle.
type DragController struct {
	engine *Engine

	mu       sync.Mutex
	dragging bool
	taskID   string
	from     model.TaskStatus
}

func NewDragController(engine *Engine) *DragController {
	return &DragController{engine: engine}
}

// Start picks a task up. It fails without any visual pick-up when the actor
// may not move the task or the task is gone.
func (c *DragController) Start(actor *model.User, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dragging {
		return fmt.Errorf("drag already in progress for task %s", c.taskID)
	}

	task, ok := c.engine.Store().Get(taskID)
	if !ok {
		return fmt.Errorf("drag task: %w", ErrNotFound)
	}
	if !perm.CanMoveTask(actor, task) {
		return fmt.Errorf("drag task: %w", ErrPermissionDenied)
	}

	c.dragging = true
	c.taskID = taskID
	c.from = task.Status
	return nil
}

// Dragging reports the task currently picked up, if any.
func (c *DragController) Dragging() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID, c.dragging
}

// Cancel drops the gesture without any mutation (release outside a column).
func (c *DragController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Drop releases the task over a stage. A drop on an unknown stage cancels
// the gesture; a drop on the current stage is ignored; otherwise the
// optimistic pipeline drives the transition and rolls back on rejection.
func (c *DragController) Drop(ctx context.Context, actor *model.User, target model.TaskStatus) error {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return nil
	}
	taskID, from := c.taskID, c.from
	c.reset()
	c.mu.Unlock()

	if !target.Valid() {
		return nil
	}
	if target == from {
		return nil
	}
	return c.engine.MoveTask(ctx, actor, taskID, target)
}

func (c *DragController) reset() {
	c.dragging = false
	c.taskID = ""
	c.from = ""
}
