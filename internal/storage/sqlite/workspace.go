package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
)

type WorkspaceStorage struct {
	db *sql.DB
}

func NewWorkspaceStorage(db *sql.DB) *WorkspaceStorage {
	return &WorkspaceStorage{db: db}
}

func (s *WorkspaceStorage) CreateWorkspace(ctx context.Context, workspace *model.Workspace) error {
	const query = `INSERT INTO workspaces (id, tg_chat_id, title, archived) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		workspace.ID,
		workspace.TgChatID,
		workspace.Title,
		workspace.Archived,
	)
	if err != nil {
		return fmt.Errorf("could not create workspace: %w", err)
	}
	return nil
}

func (s *WorkspaceStorage) UpdateWorkspace(ctx context.Context, workspace *model.Workspace) error {
	const query = `UPDATE workspaces SET tg_chat_id = ?, title = ?, archived = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		workspace.TgChatID,
		workspace.Title,
		workspace.Archived,
		workspace.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update workspace: %w", err)
	}
	return nil
}

func (s *WorkspaceStorage) DeleteWorkspace(ctx context.Context, id string) error {
	const query = `DELETE FROM workspaces WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("could not delete workspace: %w", err)
	}
	return nil
}

func (s *WorkspaceStorage) FetchWorkspaceByID(ctx context.Context, id string) (*model.Workspace, error) {
	const query = `SELECT id, tg_chat_id, title, archived FROM workspaces WHERE id = ?`
	return s.fetchOne(ctx, query, id)
}

func (s *WorkspaceStorage) FetchWorkspaceByChatID(ctx context.Context, tgChatID int64) (*model.Workspace, error) {
	const query = `SELECT id, tg_chat_id, title, archived FROM workspaces WHERE tg_chat_id = ?`
	return s.fetchOne(ctx, query, tgChatID)
}

func (s *WorkspaceStorage) fetchOne(ctx context.Context, query string, arg any) (*model.Workspace, error) {
	var workspace model.Workspace
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&workspace.ID,
		&workspace.TgChatID,
		&workspace.Title,
		&workspace.Archived,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("could not get workspace: %w", err)
	}
	return &workspace, nil
}
