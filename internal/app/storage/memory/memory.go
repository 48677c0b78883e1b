package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/domain/task"
	"github.com/taskpom/taskpom/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	tasks    map[string]task.Task
	byTitle  map[string]string
	sessions map[string]pomodoro.Session
}

var _ storage.TaskStore = (*Store)(nil)
var _ storage.PomodoroStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		tasks:    make(map[string]task.Task),
		byTitle:  make(map[string]string),
		sessions: make(map[string]pomodoro.Session),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// TaskStore implementation ----------------------------------------------------

func (s *Store) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byTitle[t.Title]; taken {
		return task.Task{}, storage.ErrDuplicateTitle
	}

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.tasks[t.ID]; exists {
		return task.Task{}, fmt.Errorf("task %s already exists", t.ID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tasks[t.ID] = t
	s.byTitle[t.Title] = t.ID
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, fmt.Errorf("task %s: %w", t.ID, storage.ErrNotFound)
	}
	if owner, taken := s.byTitle[t.Title]; taken && owner != t.ID {
		return task.Task{}, storage.ErrDuplicateTitle
	}

	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	delete(s.byTitle, original.Title)
	s.tasks[t.ID] = t
	s.byTitle[t.Title] = t.ID
	return t, nil
}

func (s *Store) GetTask(_ context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTaskByTitle(_ context.Context, title string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTitle[title]
	if !ok {
		return task.Task{}, fmt.Errorf("task %q: %w", title, storage.ErrNotFound)
	}
	return s.tasks[id], nil
}

func (s *Store) ListTasks(_ context.Context, status task.Status) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	delete(s.tasks, id)
	delete(s.byTitle, t.Title)
	return nil
}

// PomodoroStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess pomodoro.Session) (pomodoro.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	} else if _, exists := s.sessions[sess.ID]; exists {
		return pomodoro.Session{}, fmt.Errorf("session %s already exists", sess.ID)
	}

	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess pomodoro.Session) (pomodoro.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.sessions[sess.ID]
	if !ok {
		return pomodoro.Session{}, fmt.Errorf("session %s: %w", sess.ID, storage.ErrNotFound)
	}

	sess.CreatedAt = original.CreatedAt
	sess.UpdatedAt = time.Now().UTC()

	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (pomodoro.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return pomodoro.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) GetActiveSession(_ context.Context, taskID string) (pomodoro.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.TaskID == taskID && !sess.Completed {
			return sess, nil
		}
	}
	return pomodoro.Session{}, fmt.Errorf("active session for task %s: %w", taskID, storage.ErrNotFound)
}

func (s *Store) ListSessions(_ context.Context, taskID string) ([]pomodoro.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pomodoro.Session
	for _, sess := range s.sessions {
		if taskID != "" && sess.TaskID != taskID {
			continue
		}
		result = append(result, sess)
	}
	sortSessions(result)
	return result, nil
}

func (s *Store) ListCompletedSessions(_ context.Context) ([]pomodoro.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pomodoro.Session
	for _, sess := range s.sessions {
		if sess.Completed {
			result = append(result, sess)
		}
	}
	sortSessions(result)
	return result, nil
}

func (s *Store) ListExpiredSessions(_ context.Context, now time.Time) ([]pomodoro.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pomodoro.Session
	for _, sess := range s.sessions {
		if sess.Expired(now) {
			result = append(result, sess)
		}
	}
	sortSessions(result)
	return result, nil
}

func sortSessions(sessions []pomodoro.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartTime.Equal(sessions[j].StartTime) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
}
