package model

import (
	"context"
	"time"
)

// Comment is append-only: no edit or delete once posted.
type Comment struct {
	ID        string
	TaskID    string
	UserID    string
	Body      string
	CreatedAt time.Time

	// UserName is denormalized for display, resolved via ProfileDirectory.
	UserName string
}

type CommentRepository interface {
	FetchComments(ctx context.Context, taskID string) ([]Comment, error)
	CreateComment(ctx context.Context, comment *Comment) error
}
