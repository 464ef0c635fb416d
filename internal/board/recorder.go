package board

import (
	"context"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/agalitsyn/taskboard/internal/model"
)

// Recorder appends the immutable audit trail. Writes are best-effort: a
// failed audit append is logged and never rolls back the primary mutation.
type Recorder struct {
	movements  model.MovementRepository
	activities model.ActivityRepository
	log        lgr.L
}

func NewRecorder(movements model.MovementRepository, activities model.ActivityRepository, log lgr.L) *Recorder {
	if log == nil {
		log = lgr.NoOp
	}
	return &Recorder{movements: movements, activities: activities, log: log}
}

func (r *Recorder) RecordMovement(ctx context.Context, task *model.Task, from, to model.TaskStatus, actorID string) {
	m := &model.Movement{
		ID:          uuid.NewString(),
		TaskID:      task.ID,
		WorkspaceID: task.WorkspaceID,
		MovedBy:     actorID,
		FromStatus:  from,
		ToStatus:    to,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.movements.CreateMovement(ctx, m); err != nil {
		r.log.Logf("WARN could not record movement of task %s (%s -> %s): %v", task.ID, from, to, err)
	}
}

func (r *Recorder) RecordActivity(
	ctx context.Context,
	taskID, actorID string,
	action model.ActivityAction,
	details map[string]string,
	oldValue, newValue string,
) {
	a := &model.Activity{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    actorID,
		Action:    action,
		Details:   details,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.activities.CreateActivity(ctx, a); err != nil {
		r.log.Logf("WARN could not record %s activity for task %s: %v", action, taskID, err)
	}
}
