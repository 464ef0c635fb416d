package model

import (
	"context"
	"errors"
	"time"
)

type Task struct {
	ID          string
	WorkspaceID string
	Title       string
	Description string
	Status      TaskStatus
	// Priority is advisory; 0 means unset. The engine never interprets it.
	Priority int
	// AssignedTo is the legacy primary assignee pointer. The assignment set
	// (Assignees) is authoritative for permissions.
	AssignedTo string
	Assignees  []string
	CreatedBy  string
	DueDate    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Derived from sub-collections, never persisted.
	CommentsCount    int
	AttachmentsCount int
}

func NewTask(workspaceID, title, createdBy string) *Task {
	now := time.Now().UTC()
	return &Task{
		WorkspaceID: workspaceID,
		Title:       title,
		Status:      TaskStatusPlanning,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate.IsZero() || t.Status == TaskStatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// Clone returns a deep copy, safe to hand out or keep as a rollback snapshot.
func (t *Task) Clone() *Task {
	cp := *t
	if t.Assignees != nil {
		cp.Assignees = append([]string(nil), t.Assignees...)
	}
	return &cp
}

func (t *Task) HasAssignee(userID string) bool {
	for _, id := range t.Assignees {
		if id == userID {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPlanning       TaskStatus = "planning"
	TaskStatusInProgress     TaskStatus = "in_progress"
	TaskStatusAtRisk         TaskStatus = "at_risk"
	TaskStatusUpdateRequired TaskStatus = "update_required"
	TaskStatusOnHold         TaskStatus = "on_hold"
	TaskStatusCompleted      TaskStatus = "completed"
)

// TaskStatuses lists the workflow stages in board column order.
var TaskStatuses = []TaskStatus{
	TaskStatusPlanning,
	TaskStatusInProgress,
	TaskStatusAtRisk,
	TaskStatusUpdateRequired,
	TaskStatusOnHold,
	TaskStatusCompleted,
}

func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s TaskStatus) StringLocalized() string {
	switch s {
	case TaskStatusPlanning:
		return "планирование"
	case TaskStatusInProgress:
		return "в работе"
	case TaskStatusAtRisk:
		return "под угрозой"
	case TaskStatusUpdateRequired:
		return "нужно обновление"
	case TaskStatusOnHold:
		return "на паузе"
	case TaskStatusCompleted:
		return "завершена"
	default:
		return string(s)
	}
}

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository interface {
	FetchTasks(ctx context.Context, workspaceID string) ([]Task, error)
	FetchTaskByID(ctx context.Context, id string) (*Task, error)
	CreateTask(ctx context.Context, task *Task) error
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error
}
