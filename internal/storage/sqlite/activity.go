package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

type ActivityStorage struct {
	db *sql.DB
	notifier
}

func NewActivityStorage(db *sql.DB, hub *realtime.Hub) *ActivityStorage {
	return &ActivityStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *ActivityStorage) CreateActivity(ctx context.Context, activity *model.Activity) error {
	query := `
		INSERT INTO activities (id, task_id, user_id, action, details, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var details sql.NullString
	if len(activity.Details) > 0 {
		raw, err := json.Marshal(activity.Details)
		if err != nil {
			return fmt.Errorf("could not marshal activity details: %w", err)
		}
		details.String = string(raw)
		details.Valid = true
	}

	_, err := s.db.ExecContext(ctx, query,
		activity.ID,
		activity.TaskID,
		nullString(activity.UserID),
		string(activity.Action),
		details,
		activity.OldValue,
		activity.NewValue,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not create activity: %w", err)
	}

	s.publish(realtime.EventInsert, realtime.TableActivities, realtime.ActivityRowFrom(activity))
	return nil
}

func (s *ActivityStorage) FetchActivities(ctx context.Context, taskID string) ([]model.Activity, error) {
	query := `
		SELECT id, task_id, user_id, action, details, old_value, new_value, created_at
		FROM activities
		WHERE task_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		var userID sql.NullString
		var details sql.NullString

		err := rows.Scan(&a.ID, &a.TaskID, &userID, &a.Action, &details, &a.OldValue, &a.NewValue, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan activity: %w", err)
		}

		if userID.Valid {
			a.UserID = userID.String
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &a.Details); err != nil {
				return nil, fmt.Errorf("could not unmarshal activity details: %w", err)
			}
		}

		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate activities: %w", err)
	}

	return activities, nil
}

type MovementStorage struct {
	db *sql.DB
	notifier
}

func NewMovementStorage(db *sql.DB, hub *realtime.Hub) *MovementStorage {
	return &MovementStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *MovementStorage) CreateMovement(ctx context.Context, movement *model.Movement) error {
	query := `
		INSERT INTO movements (id, task_id, workspace_id, moved_by, from_status, to_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		movement.ID,
		movement.TaskID,
		movement.WorkspaceID,
		movement.MovedBy,
		string(movement.FromStatus),
		string(movement.ToStatus),
		movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not create movement: %w", err)
	}

	s.publish(realtime.EventInsert, realtime.TableMovements, realtime.MovementRowFrom(movement))
	return nil
}

func (s *MovementStorage) FetchMovements(ctx context.Context, taskID string) ([]model.Movement, error) {
	query := `
		SELECT id, task_id, workspace_id, moved_by, from_status, to_status, created_at
		FROM movements
		WHERE task_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch movements: %w", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		var m model.Movement
		err := rows.Scan(&m.ID, &m.TaskID, &m.WorkspaceID, &m.MovedBy, &m.FromStatus, &m.ToStatus, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate movements: %w", err)
	}

	return movements, nil
}
