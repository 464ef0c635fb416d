package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/realtime"
)

type AttachmentStorage struct {
	db *sql.DB
	notifier
}

func NewAttachmentStorage(db *sql.DB, hub *realtime.Hub) *AttachmentStorage {
	return &AttachmentStorage{db: db, notifier: notifier{hub: hub}}
}

func (s *AttachmentStorage) CreateAttachment(ctx context.Context, attachment *model.Attachment) error {
	query := `
		INSERT INTO attachments (id, task_id, file_name, file_path, file_size, file_type, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		attachment.ID,
		attachment.TaskID,
		attachment.FileName,
		attachment.FilePath,
		attachment.FileSize,
		attachment.FileType,
		attachment.UploadedBy,
		attachment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not create attachment: %w", err)
	}

	s.publish(realtime.EventInsert, realtime.TableAttachments, realtime.AttachmentRowFrom(attachment))
	return nil
}

func (s *AttachmentStorage) DeleteAttachment(ctx context.Context, id string) error {
	attachment, err := s.FetchAttachmentByID(ctx, id)
	if err != nil {
		return err
	}

	query := `DELETE FROM attachments WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("could not delete attachment: %w", err)
	}

	s.publish(realtime.EventDelete, realtime.TableAttachments, realtime.AttachmentRowFrom(attachment))
	return nil
}

func (s *AttachmentStorage) FetchAttachments(ctx context.Context, taskID string) ([]model.Attachment, error) {
	query := `
		SELECT id, task_id, file_name, file_path, file_size, file_type, uploaded_by, created_at
		FROM attachments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.FilePath, &a.FileSize, &a.FileType, &a.UploadedBy, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate attachments: %w", err)
	}

	return attachments, nil
}

func (s *AttachmentStorage) FetchAttachmentByID(ctx context.Context, id string) (*model.Attachment, error) {
	query := `
		SELECT id, task_id, file_name, file_path, file_size, file_type, uploaded_by, created_at
		FROM attachments
		WHERE id = ?
	`

	var a model.Attachment
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.TaskID,
		&a.FileName,
		&a.FilePath,
		&a.FileSize,
		&a.FileType,
		&a.UploadedBy,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("could not get attachment: %w", err)
	}

	return &a, nil
}
