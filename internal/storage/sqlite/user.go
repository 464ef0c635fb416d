package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agalitsyn/taskboard/internal/model"
)

type UserStorage struct {
	db *sql.DB
}

func NewUserStorage(db *sql.DB) *UserStorage {
	return &UserStorage{db: db}
}

func (s *UserStorage) CreateUser(ctx context.Context, user *model.User) error {
	const query = `
		INSERT INTO users (id, tg_user_id, full_name, username, role, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.TgUserID,
		user.FullName,
		user.Username,
		string(user.Role),
		user.IsActive,
	)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}
	return nil
}

func (s *UserStorage) UpdateUser(ctx context.Context, user *model.User) error {
	const query = `UPDATE users SET full_name = ?, username = ?, role = ?, is_active = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		user.FullName,
		user.Username,
		string(user.Role),
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update user: %w", err)
	}
	return nil
}

func (s *UserStorage) FetchUserByID(ctx context.Context, id string) (*model.User, error) {
	const query = `SELECT id, tg_user_id, full_name, username, role, is_active FROM users WHERE id = ?`
	return s.fetchOne(ctx, query, id)
}

func (s *UserStorage) FetchUserByTgID(ctx context.Context, tgUserID int64) (*model.User, error) {
	const query = `SELECT id, tg_user_id, full_name, username, role, is_active FROM users WHERE tg_user_id = ?`
	return s.fetchOne(ctx, query, tgUserID)
}

func (s *UserStorage) fetchOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.TgUserID,
		&user.FullName,
		&user.Username,
		&user.Role,
		&user.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	return &user, nil
}

func (s *UserStorage) FetchUsersInWorkspace(ctx context.Context, workspaceID string) ([]model.User, error) {
	const query = `
		SELECT u.id, u.tg_user_id, u.full_name, u.username, u.role, u.is_active
		FROM users u
		JOIN workspace_users wu ON u.id = wu.user_id
		WHERE wu.workspace_id = ?
		ORDER BY u.full_name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch workspace users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TgUserID, &u.FullName, &u.Username, &u.Role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("could not scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate users: %w", err)
	}

	return users, nil
}

func (s *UserStorage) AddUserToWorkspace(ctx context.Context, workspaceID, userID string) error {
	const query = `INSERT OR IGNORE INTO workspace_users (workspace_id, user_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, workspaceID, userID); err != nil {
		return fmt.Errorf("could not add user to workspace: %w", err)
	}
	return nil
}

// DisplayName implements the profile directory over the local users table.
func (s *UserStorage) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := s.FetchUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.FullName, nil
}
