package model

import (
	"context"
	"errors"
	"time"
)

// Attachment holds file metadata only; the blob itself lives in external storage.
type Attachment struct {
	ID         string
	TaskID     string
	FileName   string
	FilePath   string
	FileSize   int64
	FileType   string
	UploadedBy string
	CreatedAt  time.Time
}

var ErrAttachmentNotFound = errors.New("attachment not found")

type AttachmentRepository interface {
	FetchAttachments(ctx context.Context, taskID string) ([]Attachment, error)
	FetchAttachmentByID(ctx context.Context, id string) (*Attachment, error)
	CreateAttachment(ctx context.Context, attachment *Attachment) error
	DeleteAttachment(ctx context.Context, id string) error
}
