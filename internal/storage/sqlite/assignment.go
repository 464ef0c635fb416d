package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agalitsyn/taskboard/internal/realtime"
)

type AssignmentStorage struct {
	db *sql.DB
	notifier
}

func NewAssignmentStorage(db *sql.DB, hub *realtime.Hub) *AssignmentStorage {
	return &AssignmentStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *AssignmentStorage) FetchAssignees(ctx context.Context, taskID string) ([]string, error) {
	query := `SELECT user_id FROM assignments WHERE task_id = ? ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch assignees: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("could not scan assignee: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate assignees: %w", err)
	}

	return userIDs, nil
}

func (s *AssignmentStorage) AddAssignees(ctx context.Context, taskID string, userIDs []string) error {
	query := `INSERT OR IGNORE INTO assignments (task_id, user_id, created_at) VALUES (?, ?, ?)`

	now := time.Now().UTC()
	for _, userID := range userIDs {
		if _, err := s.db.ExecContext(ctx, query, taskID, userID, now); err != nil {
			return fmt.Errorf("could not add assignee %s: %w", userID, err)
		}
		s.publish(realtime.EventInsert, realtime.TableAssignments, realtime.AssignmentRow{
			TaskID:    taskID,
			UserID:    userID,
			CreatedAt: now,
		})
	}
	return nil
}

func (s *AssignmentStorage) RemoveAssignee(ctx context.Context, taskID, userID string) error {
	query := `DELETE FROM assignments WHERE task_id = ? AND user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, taskID, userID); err != nil {
		return fmt.Errorf("could not remove assignee: %w", err)
	}

	s.publish(realtime.EventDelete, realtime.TableAssignments, realtime.AssignmentRow{TaskID: taskID, UserID: userID})
	return nil
}
