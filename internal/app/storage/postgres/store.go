package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/domain/task"
	"github.com/taskpom/taskpom/internal/app/storage"
)

// uniqueViolationCode is the Postgres error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.TaskStore = (*Store)(nil)
var _ storage.PomodoroStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
		return storage.ErrDuplicateTitle
	}
	return err
}

// --- TaskStore --------------------------------------------------------------

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Title, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return task.Task{}, mapError(err, "task "+t.ID)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	existing, err := s.GetTask(ctx, t.ID)
	if err != nil {
		return task.Task{}, err
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Status, t.UpdatedAt)
	if err != nil {
		return task.Task{}, mapError(err, "task "+t.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return task.Task{}, fmt.Errorf("task %s: %w", t.ID, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id)
	return scanTask(row, "task "+id)
}

func (s *Store) GetTaskByTitle(ctx context.Context, title string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks
		WHERE title = $1
	`, title)
	return scanTask(row, "task "+title)
}

func (s *Store) ListTasks(ctx context.Context, status task.Status) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks
		WHERE $1 = '' OR status = $1
		ORDER BY created_at, id
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, what string) (task.Task, error) {
	var t task.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, mapError(err, what)
	}
	return t, nil
}

// --- PomodoroStore ----------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess pomodoro.Session) (pomodoro.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pomodoro_sessions (id, task_id, start_time, end_time, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.TaskID, sess.StartTime, sess.EndTime, sess.Completed, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return pomodoro.Session{}, mapError(err, "session "+sess.ID)
	}
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess pomodoro.Session) (pomodoro.Session, error) {
	existing, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		return pomodoro.Session{}, err
	}

	sess.TaskID = existing.TaskID
	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE pomodoro_sessions
		SET start_time = $2, end_time = $3, completed = $4, updated_at = $5
		WHERE id = $1
	`, sess.ID, sess.StartTime, sess.EndTime, sess.Completed, sess.UpdatedAt)
	if err != nil {
		return pomodoro.Session{}, mapError(err, "session "+sess.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return pomodoro.Session{}, fmt.Errorf("session %s: %w", sess.ID, storage.ErrNotFound)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (pomodoro.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, start_time, end_time, completed, created_at, updated_at
		FROM pomodoro_sessions
		WHERE id = $1
	`, id)
	return scanSession(row, "session "+id)
}

func (s *Store) GetActiveSession(ctx context.Context, taskID string) (pomodoro.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, start_time, end_time, completed, created_at, updated_at
		FROM pomodoro_sessions
		WHERE task_id = $1 AND NOT completed
		ORDER BY start_time
		LIMIT 1
	`, taskID)
	return scanSession(row, "active session for task "+taskID)
}

func (s *Store) ListSessions(ctx context.Context, taskID string) ([]pomodoro.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, task_id, start_time, end_time, completed, created_at, updated_at
		FROM pomodoro_sessions
		WHERE $1 = '' OR task_id = $1
		ORDER BY start_time, id
	`, taskID)
}

func (s *Store) ListCompletedSessions(ctx context.Context) ([]pomodoro.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, task_id, start_time, end_time, completed, created_at, updated_at
		FROM pomodoro_sessions
		WHERE completed
		ORDER BY start_time, id
	`)
}

func (s *Store) ListExpiredSessions(ctx context.Context, now time.Time) ([]pomodoro.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, task_id, start_time, end_time, completed, created_at, updated_at
		FROM pomodoro_sessions
		WHERE NOT completed AND end_time < $1
		ORDER BY start_time, id
	`, now.UTC())
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]pomodoro.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pomodoro.Session
	for rows.Next() {
		var sess pomodoro.Session
		if err := rows.Scan(&sess.ID, &sess.TaskID, &sess.StartTime, &sess.EndTime, &sess.Completed, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func scanSession(row rowScanner, what string) (pomodoro.Session, error) {
	var sess pomodoro.Session
	if err := row.Scan(&sess.ID, &sess.TaskID, &sess.StartTime, &sess.EndTime, &sess.Completed, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return pomodoro.Session{}, mapError(err, what)
	}
	return sess, nil
}
