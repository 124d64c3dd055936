package authentication

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleReader     Role = "reader"
	RoleJournalist Role = "journalist"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
)

func (role Role) IsValid() bool {
	switch role {
	case RoleReader, RoleJournalist, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanModerate reports whether the role may review and moderate comments.
func (role Role) CanModerate() bool {
	return role == RoleEditor || role == RoleAdmin
}

// Group is the authorization group that carries the role's policies.
func (role Role) Group() string {
	return "role:" + string(role)
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	RegisteredAt time.Time
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID string) (user *User, err error)
	FindByUsername(ctx context.Context, username string) (user *User, err error)
	UpdateRole(ctx context.Context, userID string, role Role) (err error)
}

type UserNotFoundError struct {
	ID string
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %q not found", err.ID)
}

type UserByUsernameNotFoundError struct {
	Username string
}

func (err UserByUsernameNotFoundError) Error() string {
	return fmt.Sprintf("user with username %q not found", err.Username)
}

type UserAlreadyExistsError struct {
	Username string
}

func (err UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", err.Username)
}

type InvalidRoleError struct {
	Role Role
}

func (err InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %q", err.Role)
}

type InvalidInputError struct {
	Field   string
	Message string
}

func (err InvalidInputError) Error() string {
	return err.Field + ": " + err.Message
}

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCurrentUserNotFound = errors.New("current user not found")
)
