package model

import (
	"context"
	"time"
)

type ActivityAction string

const (
	ActivityTaskCreated        ActivityAction = "task_created"
	ActivityTitleUpdated       ActivityAction = "title_updated"
	ActivityDescriptionUpdated ActivityAction = "description_updated"
	ActivityStatusChanged      ActivityAction = "status_changed"
	ActivityCommentAdded       ActivityAction = "comment_added"
	ActivityUsersAssigned      ActivityAction = "users_assigned"
	ActivityUserRemoved        ActivityAction = "user_removed"
	ActivityFileUploaded       ActivityAction = "file_uploaded"
	ActivityFileDownloaded     ActivityAction = "file_downloaded"
	ActivityFileDeleted        ActivityAction = "file_deleted"
)

// Activity is an immutable audit entry. UserID is empty for system events.
type Activity struct {
	ID        string
	TaskID    string
	UserID    string
	Action    ActivityAction
	Details   map[string]string
	OldValue  string
	NewValue  string
	CreatedAt time.Time

	// UserName is denormalized for display, resolved via ProfileDirectory.
	UserName string
}

func (a *Activity) IsSystemEvent() bool {
	return a.UserID == ""
}

// Movement is the immutable audit entry for a single stage transition.
type Movement struct {
	ID          string
	TaskID      string
	WorkspaceID string
	MovedBy     string
	FromStatus  TaskStatus
	ToStatus    TaskStatus
	CreatedAt   time.Time
}

type ActivityRepository interface {
	FetchActivities(ctx context.Context, taskID string) ([]Activity, error)
	CreateActivity(ctx context.Context, activity *Activity) error
}

type MovementRepository interface {
	FetchMovements(ctx context.Context, taskID string) ([]Movement, error)
	CreateMovement(ctx context.Context, movement *Movement) error
}
