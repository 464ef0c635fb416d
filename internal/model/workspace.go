package model

import (
	"context"
	"errors"
)

type Workspace struct {
	ID       string
	TgChatID int64
	Title    string
	Archived bool
}

func NewWorkspace(title string, tgChatID int64) *Workspace {
	return &Workspace{
		Title:    title,
		TgChatID: tgChatID,
	}
}

var ErrWorkspaceNotFound = errors.New("workspace not found")

type WorkspaceRepository interface {
	FetchWorkspaceByID(ctx context.Context, id string) (*Workspace, error)
	FetchWorkspaceByChatID(ctx context.Context, tgChatID int64) (*Workspace, error)
	CreateWorkspace(ctx context.Context, workspace *Workspace) error
	UpdateWorkspace(ctx context.Context, workspace *Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
}
