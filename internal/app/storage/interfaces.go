package storage

import (
	"context"
	"errors"
	"time"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/domain/task"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateTitle is returned when a task title is already taken.
var ErrDuplicateTitle = errors.New("task title already exists")

// TaskStore persists task records.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	GetTaskByTitle(ctx context.Context, title string) (task.Task, error)
	ListTasks(ctx context.Context, status task.Status) ([]task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// PomodoroStore persists focus sessions.
type PomodoroStore interface {
	CreateSession(ctx context.Context, s pomodoro.Session) (pomodoro.Session, error)
	UpdateSession(ctx context.Context, s pomodoro.Session) (pomodoro.Session, error)
	GetSession(ctx context.Context, id string) (pomodoro.Session, error)
	GetActiveSession(ctx context.Context, taskID string) (pomodoro.Session, error)
	ListSessions(ctx context.Context, taskID string) ([]pomodoro.Session, error)
	ListCompletedSessions(ctx context.Context) ([]pomodoro.Session, error)
	ListExpiredSessions(ctx context.Context, now time.Time) ([]pomodoro.Session, error)
}
