package model

import (
	"context"
	"errors"
)

type User struct {
	ID       string
	TgUserID int64
	FullName string
	Username string
	Role     UserRole
	IsActive bool
}

func NewUser(fullName string, role UserRole) *User {
	return &User{
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
}

type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSalesAdmin UserRole = "sales_admin"
	UserRoleMember     UserRole = "member"
	UserRoleClient     UserRole = "client"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleSalesAdmin, UserRoleMember, UserRoleClient:
		return true
	}
	return false
}

func (r UserRole) StringLocalized() string {
	switch r {
	case UserRoleAdmin:
		return "администратор"
	case UserRoleSalesAdmin:
		return "администратор продаж"
	case UserRoleMember:
		return "участник"
	case UserRoleClient:
		return "клиент"
	default:
		return string(r)
	}
}

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	FetchUserByID(ctx context.Context, id string) (*User, error)
	FetchUserByTgID(ctx context.Context, tgUserID int64) (*User, error)
	FetchUsersInWorkspace(ctx context.Context, workspaceID string) ([]User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
}

// ProfileDirectory resolves user ids to display names. Backed by an external
// profile service; lookups may fail and callers degrade to a placeholder.
type ProfileDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
