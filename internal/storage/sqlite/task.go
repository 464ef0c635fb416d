package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

type TaskStorage struct {
	db *sql.DB
	notifier
}

func NewTaskStorage(db *sql.DB, hub *realtime.Hub) *TaskStorage {
	return &TaskStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, workspace_id, title, description, status, priority, assigned_to, created_by, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.WorkspaceID,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		nullString(task.AssignedTo),
		task.CreatedBy,
		nullTime(task.DueDate),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	s.publish(realtime.EventInsert, realtime.TableTasks, realtime.TaskRowFrom(task))
	return nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, assigned_to = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		nullString(task.AssignedTo),
		nullTime(task.DueDate),
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("could not update task %s: %w", task.ID, model.ErrTaskNotFound)
	}

	s.publish(realtime.EventUpdate, realtime.TableTasks, realtime.TaskRowFrom(task))
	return nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	query := `DELETE FROM tasks WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	s.publish(realtime.EventDelete, realtime.TableTasks, realtime.TaskRow{ID: id})
	return nil
}

func (s *TaskStorage) FetchTasks(ctx context.Context, workspaceID string) ([]model.Task, error) {
	query := `
		SELECT id, workspace_id, title, description, status, priority, assigned_to, created_by, due_date, created_at, updated_at
		FROM tasks
		WHERE workspace_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}

	return tasks, nil
}

func (s *TaskStorage) FetchTaskByID(ctx context.Context, id string) (*model.Task, error) {
	query := `
		SELECT id, workspace_id, title, description, status, priority, assigned_to, created_by, due_date, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var assignedTo sql.NullString
	var dueDate sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.WorkspaceID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&assignedTo,
		&task.CreatedBy,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("could not scan task: %w", err)
	}

	if assignedTo.Valid {
		task.AssignedTo = assignedTo.String
	}
	if dueDate.Valid {
		task.DueDate = dueDate.Time
	}

	return &task, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
