package model

import (
	"context"
	"time"
)

// Assignment is a row in the task/user join relation. The set of assignments
// for a task is the authoritative "who may act on this task" list.
type Assignment struct {
	TaskID    string
	UserID    string
	CreatedAt time.Time
}

type AssignmentRepository interface {
	FetchAssignees(ctx context.Context, taskID string) ([]string, error)
	AddAssignees(ctx context.Context, taskID string, userIDs []string) error
	RemoveAssignee(ctx context.Context, taskID, userID string) error
}
