// Package repositories hides the persistence engine behind narrow interfaces.
// Implementations exist for gorm (postgres, sqlite) and redis.
package repositories

import (
	"context"
	"errors"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type TaskRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// FindManyByOwner returns the owner's tasks, newest first.
	FindManyByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles the repositories of one engine with its lifecycle hooks.
type Store struct {
	Users UserRepository
	Tasks TaskRepository

	Ping  func(ctx context.Context) error
	Close func() error
}
