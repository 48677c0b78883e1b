// Package tasks implements task management rules on top of a TaskStore.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskpom/taskpom/internal/app/domain/task"
	"github.com/taskpom/taskpom/internal/app/storage"
	"github.com/taskpom/taskpom/pkg/logger"
)

// Service coordinates task lifecycle operations.
type Service struct {
	store storage.TaskStore
	log   *logger.Logger
}

// New creates a configured task service.
func New(store storage.TaskStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: store, log: log}
}

// Create validates and persists a new task. Titles must be unique among all
// tasks.
func (s *Service) Create(ctx context.Context, title, description, status string) (task.Task, error) {
	parsed, err := task.ParseStatus(status)
	if err != nil {
		return task.Task{}, err
	}

	t := task.Task{
		Title:       strings.TrimSpace(title),
		Description: description,
		Status:      parsed,
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}

	if _, err := s.store.GetTaskByTitle(ctx, t.Title); err == nil {
		return task.Task{}, storage.ErrDuplicateTitle
	} else if !errors.Is(err, storage.ErrNotFound) {
		return task.Task{}, err
	}

	t, err = s.store.CreateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", t.ID).
		WithField("status", t.Status).
		Info("task created")
	return t, nil
}

// Get fetches a task by identifier.
func (s *Service) Get(ctx context.Context, id string) (task.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return task.Task{}, fmt.Errorf("task id is required")
	}
	return s.store.GetTask(ctx, id)
}

// List returns tasks, optionally filtered by status. The filter is matched
// literally; an unknown status simply yields no results.
func (s *Service) List(ctx context.Context, status string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, task.Status(strings.TrimSpace(status)))
}

// Update replaces the mutable fields of a task. The duplicate-title check
// excludes the task itself.
func (s *Service) Update(ctx context.Context, id, title, description, status string) (task.Task, error) {
	existing, err := s.store.GetTask(ctx, strings.TrimSpace(id))
	if err != nil {
		return task.Task{}, err
	}

	parsed, err := task.ParseStatus(status)
	if err != nil {
		return task.Task{}, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(title)
	updated.Description = description
	updated.Status = parsed
	if err := updated.Validate(); err != nil {
		return task.Task{}, err
	}

	if other, err := s.store.GetTaskByTitle(ctx, updated.Title); err == nil {
		if other.ID != existing.ID {
			return task.Task{}, storage.ErrDuplicateTitle
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return task.Task{}, err
	}

	updated, err = s.store.UpdateTask(ctx, updated)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", updated.ID).
		WithField("status", updated.Status).
		Info("task updated")
	return updated, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("task id is required")
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log.WithField("task_id", id).Info("task deleted")
	return nil
}
