package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brainboard/internal/model"
)

// TaskRepository handles CRUD for task documents, keyed by
// (user, task id).
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Upsert writes a task document, replacing any existing row with the
// same key. It reports whether the write created a new document.
func (r *TaskRepository) Upsert(ctx context.Context, task *model.Task) (created bool, err error) {
	db := r.db.WithContext(ctx)

	var existing model.Task
	findErr := db.Where("user_id = ? AND task_id = ?", task.UserID, task.TaskID).First(&existing).Error
	switch {
	case findErr == nil:
		task.ID = existing.ID
		if err := db.Save(task).Error; err != nil {
			return false, fmt.Errorf("replace task: %w", err)
		}
		return false, nil
	case errors.Is(findErr, gorm.ErrRecordNotFound):
		if err := db.Create(task).Error; err != nil {
			return false, fmt.Errorf("create task: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("find task: %w", findErr)
	}
}

// SetCompleted updates the completed flag only. A single-column update,
// so a concurrent title or due-time write is never clobbered.
func (r *TaskRepository) SetCompleted(ctx context.Context, userID, taskID string, completed bool) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Update("completed", completed).Error; err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return nil
}

// FindByID fetches one task document for the given user.
func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND task_id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns the user's tasks ordered by write time, most recent
// first.
func (r *TaskRepository) List(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Delete removes a task document. Deleting an id that does not exist is
// a no-op, so callers can retry freely.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND task_id = ?", userID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
