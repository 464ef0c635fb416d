package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

const (
	TableTasks       = "tasks"
	TableComments    = "comments"
	TableAttachments = "attachments"
	TableActivities  = "activities"
	TableMovements   = "movements"
	TableAssignments = "assignments"
)

// Event is the change notification envelope pushed to subscribers. Payload is
// the affected row encoded as JSON; for deletes at least the row id is set.
type Event struct {
	Type    EventType       `json:"type"`
	Table   string          `json:"table"`
	Payload json.RawMessage `json:"payload"`
}

func NewEvent(typ EventType, table string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("could not marshal %s payload: %w", table, err)
	}
	return Event{Type: typ, Table: table, Payload: raw}, nil
}

// Row payloads mirror the persisted rows. The assignment set travels as
// separate assignment rows, not inside the task row.

type TaskRow struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedBy   string     `json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func TaskRowFrom(t *model.Task) TaskRow {
	row := TaskRow{
		ID:          t.ID,
		WorkspaceID: t.WorkspaceID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if !t.DueDate.IsZero() {
		due := t.DueDate
		row.DueDate = &due
	}
	return row
}

func (r TaskRow) Model() *model.Task {
	t := &model.Task{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Title:       r.Title,
		Description: r.Description,
		Status:      model.TaskStatus(r.Status),
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DueDate != nil {
		t.DueDate = *r.DueDate
	}
	return t
}

type CommentRow struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func CommentRowFrom(c *model.Comment) CommentRow {
	return CommentRow{ID: c.ID, TaskID: c.TaskID, UserID: c.UserID, Body: c.Body, CreatedAt: c.CreatedAt}
}

func (r CommentRow) Model() model.Comment {
	return model.Comment{ID: r.ID, TaskID: r.TaskID, UserID: r.UserID, Body: r.Body, CreatedAt: r.CreatedAt}
}

type AttachmentRow struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func AttachmentRowFrom(a *model.Attachment) AttachmentRow {
	return AttachmentRow{
		ID:         a.ID,
		TaskID:     a.TaskID,
		FileName:   a.FileName,
		FilePath:   a.FilePath,
		FileSize:   a.FileSize,
		FileType:   a.FileType,
		UploadedBy: a.UploadedBy,
		CreatedAt:  a.CreatedAt,
	}
}

func (r AttachmentRow) Model() model.Attachment {
	return model.Attachment{
		ID:         r.ID,
		TaskID:     r.TaskID,
		FileName:   r.FileName,
		FilePath:   r.FilePath,
		FileSize:   r.FileSize,
		FileType:   r.FileType,
		UploadedBy: r.UploadedBy,
		CreatedAt:  r.CreatedAt,
	}
}

type ActivityRow struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	UserID    string            `json:"user_id,omitempty"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	OldValue  string            `json:"old_value,omitempty"`
	NewValue  string            `json:"new_value,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func ActivityRowFrom(a *model.Activity) ActivityRow {
	return ActivityRow{
		ID:        a.ID,
		TaskID:    a.TaskID,
		UserID:    a.UserID,
		Action:    string(a.Action),
		Details:   a.Details,
		OldValue:  a.OldValue,
		NewValue:  a.NewValue,
		CreatedAt: a.CreatedAt,
	}
}

func (r ActivityRow) Model() model.Activity {
	return model.Activity{
		ID:        r.ID,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		Action:    model.ActivityAction(r.Action),
		Details:   r.Details,
		OldValue:  r.OldValue,
		NewValue:  r.NewValue,
		CreatedAt: r.CreatedAt,
	}
}

type MovementRow struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	WorkspaceID string    `json:"workspace_id"`
	MovedBy     string    `json:"moved_by"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	CreatedAt   time.Time `json:"created_at"`
}

func MovementRowFrom(m *model.Movement) MovementRow {
	return MovementRow{
		ID:          m.ID,
		TaskID:      m.TaskID,
		WorkspaceID: m.WorkspaceID,
		MovedBy:     m.MovedBy,
		FromStatus:  string(m.FromStatus),
		ToStatus:    string(m.ToStatus),
		CreatedAt:   m.CreatedAt,
	}
}

func (r MovementRow) Model() model.Movement {
	return model.Movement{
		ID:          r.ID,
		TaskID:      r.TaskID,
		WorkspaceID: r.WorkspaceID,
		MovedBy:     r.MovedBy,
		FromStatus:  model.TaskStatus(r.FromStatus),
		ToStatus:    model.TaskStatus(r.ToStatus),
		CreatedAt:   r.CreatedAt,
	}
}

type AssignmentRow struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
