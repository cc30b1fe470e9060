// Package repository is the persistence gateway for users and tasks.
// Backends live in subpackages; handlers only see these interfaces.
package repository

import (
	"context"
	"errors"
	"fmt"

	"taskhub/internal/models"
)

// ErrNotFound is returned when no record matches, including when an id is
// malformed for the backend or the record belongs to another user.
var ErrNotFound = errors.New("record not found")

// DuplicateKeyError reports a uniqueness violation on Field.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

type UserRepository interface {
	// Create assigns ID and CreatedAt. It fails with *DuplicateKeyError
	// when the email or username is taken.
	Create(ctx context.Context, user *models.User) error
	// FindByEmailOrUsername returns any user holding either value.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	// FindByEmail includes the password hash.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByID never loads the password hash.
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// TaskRepository scopes every lookup and mutation by owner.
type TaskRepository interface {
	// Create assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, task *models.Task) error
	// ListByOwner returns the owner's tasks, newest first.
	ListByOwner(ctx context.Context, owner string) ([]models.Task, error)
	FindOwned(ctx context.Context, id, owner string) (*models.Task, error)
	UpdateOwned(ctx context.Context, id, owner string, upd models.TaskUpdate) (*models.Task, error)
	DeleteOwned(ctx context.Context, id, owner string) (*models.Task, error)
}
