package services

import (
	"context"
	"errors"
	"fmt"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

type TaskService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error)
	Create(ctx context.Context, ownerID uuid.UUID, in models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error
}

type taskService struct {
	tasks  repositories.TaskRepository
	logger *zap.Logger
}

func NewTaskService(tasks repositories.TaskRepository, logger *zap.Logger) TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taskService{tasks: tasks, logger: logger.Named("TaskService")}
}

func (s *taskService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error) {
	tasks, err := s.tasks.FindManyByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Create(ctx context.Context, ownerID uuid.UUID, in models.TaskInput) (*models.Task, error) {
	task := models.NewTask(ownerID, in)
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.Debug("Task created", zap.String("taskID", task.ID.String()), zap.String("userID", ownerID.String()))
	return &task, nil
}

func (s *taskService) Update(ctx context.Context, ownerID, taskID uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.findOwned(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	task.Apply(patch)
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	if _, err := s.findOwned(ctx, ownerID, taskID); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Debug("Task deleted", zap.String("taskID", taskID.String()), zap.String("userID", ownerID.String()))
	return nil
}

// findOwned checks existence before ownership: a missing id is ErrTaskNotFound
// for everyone, another user's id is ErrForbidden.
func (s *taskService) findOwned(ctx context.Context, ownerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task.OwnerID != ownerID {
		s.logger.Warn("Task access denied",
			zap.String("taskID", taskID.String()),
			zap.String("userID", ownerID.String()),
		)
		return nil, ErrForbidden
	}
	return task, nil
}
