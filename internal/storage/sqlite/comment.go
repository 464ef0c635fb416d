package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

type CommentStorage struct {
	db *sql.DB
	notifier
}

func NewCommentStorage(db *sql.DB, hub *realtime.Hub) *CommentStorage {
	return &CommentStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *CommentStorage) CreateComment(ctx context.Context, comment *model.Comment) error {
	query := `
		INSERT INTO comments (id, task_id, user_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		comment.ID,
		comment.TaskID,
		comment.UserID,
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not create comment: %w", err)
	}

	s.publish(realtime.EventInsert, realtime.TableComments, realtime.CommentRowFrom(comment))
	return nil
}

func (s *CommentStorage) FetchComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	query := `
		SELECT id, task_id, user_id, body, created_at
		FROM comments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate comments: %w", err)
	}

	return comments, nil
}
