package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}

// Task is a to-do item owned by exactly one user. OwnerID is set at creation
// and never changes.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description *string    `json:"description" gorm:"type:text"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:pending"`
	OwnerID     uuid.UUID  `json:"userId" gorm:"column:user_id;type:uuid;not null;index"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description *string
	Status      TaskStatus
}

// TaskPatch is a sparse update. Empty Title and Status mean "leave unchanged";
// Description distinguishes an omitted field from an explicit empty or null one.
type TaskPatch struct {
	Title       string
	Description Optional[string]
	Status      TaskStatus
}

// NewTask builds a task for owner, applying the creation defaults.
func NewTask(owner uuid.UUID, in TaskInput) Task {
	status := in.Status
	if status == "" {
		status = TaskStatusPending
	}
	return Task{
		Title:       in.Title,
		Description: NormalizeDescription(in.Description),
		Status:      status,
		OwnerID:     owner,
	}
}

// Apply merges the fields present in p into t.
func (t *Task) Apply(p TaskPatch) {
	if p.Title != "" {
		t.Title = p.Title
	}
	if p.Description.Set {
		t.Description = NormalizeDescription(p.Description.Value)
	}
	if p.Status != "" {
		t.Status = p.Status
	}
}

// NormalizeDescription maps an absent or empty description to nil.
func NormalizeDescription(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	v := *d
	return &v
}
