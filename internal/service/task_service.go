package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"brainboard/internal/codec"
	"brainboard/internal/model"
	"brainboard/internal/store"
)

// TaskService wraps task CRUD with validation and keeps the reminder
// schedule in step with the store.
type TaskService struct {
	store     *store.Adapter
	scheduler *SchedulerService
	lead      time.Duration
}

func NewTaskService(st *store.Adapter, scheduler *SchedulerService, lead time.Duration) *TaskService {
	if lead <= 0 {
		lead = time.Hour
	}
	return &TaskService{store: st, scheduler: scheduler, lead: lead}
}

// Create validates and persists a new task, then books its reminder.
// Nothing is written when validation fails.
func (s *TaskService) Create(ctx context.Context, title string, dueAt time.Time) (model.Task, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return model.Task{}, err
	}
	if dueAt.IsZero() {
		return model.Task{}, fmt.Errorf("due time is required")
	}

	task := model.Task{
		Title:       title,
		DueDateTime: codec.FormatDueAt(dueAt),
	}
	saved, err := s.store.CreateOrReplace(ctx, task)
	if err != nil {
		return model.Task{}, err
	}

	s.scheduler.Schedule(saved.TaskID, saved.Title, dueAt, s.lead)
	return saved, nil
}

// Update replaces a task's title and due time under the same document
// key and reschedules its reminder. The generation bump discards any
// action still pending on the old firing.
func (s *TaskService) Update(ctx context.Context, taskID, title string, dueAt time.Time) (model.Task, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return model.Task{}, err
	}
	if dueAt.IsZero() {
		return model.Task{}, fmt.Errorf("due time is required")
	}

	task := model.Task{
		TaskID:      taskID,
		Title:       title,
		DueDateTime: codec.FormatDueAt(dueAt),
	}
	saved, err := s.store.CreateOrReplace(ctx, task)
	if err != nil {
		return model.Task{}, err
	}

	s.scheduler.Schedule(saved.TaskID, saved.Title, dueAt, s.lead)
	return saved, nil
}

// Complete finishes a task: the document is deleted and any pending
// reminder cancelled. Completing an already-deleted task succeeds.
func (s *TaskService) Complete(ctx context.Context, taskID string) error {
	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}
	s.scheduler.Cancel(taskID)
	return nil
}

// SetDone flips only the completed flag, for the list UI's checkbox
// path. Marking done cancels the reminder; unmarking leaves scheduling
// to the next resync sweep.
func (s *TaskService) SetDone(ctx context.Context, taskID string, done bool) error {
	if err := s.store.SetCompleted(ctx, taskID, done); err != nil {
		return err
	}
	if done {
		s.scheduler.Cancel(taskID)
	}
	return nil
}

// Delete removes a task and cancels its reminder.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}
	s.scheduler.Cancel(taskID)
	return nil
}

// List returns the stored collection, most recently written first.
func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.store.List(ctx)
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if strings.Contains(title, "||") {
		return fmt.Errorf("title must not contain %q", "||")
	}
	return nil
}
