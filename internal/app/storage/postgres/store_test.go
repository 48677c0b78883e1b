package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/domain/task"
	"github.com/taskpom/taskpom/internal/app/storage"
	"github.com/taskpom/taskpom/internal/platform/migrations"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCreateTaskMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "tasks_title_key"})

	_, err := store.CreateTask(context.Background(), task.Task{Title: "duplicate"})
	if !errors.Is(err, storage.ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestGetTaskMapsNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, status, created_at, updated_at")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetTask(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskNotFoundOnZeroRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteTask(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActiveSessionMapsNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pomodoro_sessions")).
		WithArgs("t1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetActiveSession(context.Background(), "t1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// openTestDB connects to the database named by TEST_POSTGRES_DSN. Tests that
// need a live database are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	_ = godotenv.Load("../../../../.env")

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.ExecContext(ctx, "TRUNCATE pomodoro_sessions, tasks"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func TestPostgresTaskRoundTrip(t *testing.T) {
	store := New(openTestDB(t))
	ctx := context.Background()

	created, err := store.CreateTask(ctx, task.Task{Title: "integration task", Status: task.StatusTodo})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.CreateTask(ctx, task.Task{Title: "integration task", Status: task.StatusTodo}); !errors.Is(err, storage.ErrDuplicateTitle) {
		t.Fatalf("expected duplicate title error, got %v", err)
	}

	got, err := store.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "integration task" {
		t.Fatalf("unexpected title %q", got.Title)
	}

	got.Status = task.StatusDone
	if _, err := store.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	done, err := store.ListTasks(ctx, task.StatusDone)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(done) != 1 {
		t.Fatalf("expected one DONE task, got %d", len(done))
	}

	if err := store.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetTask(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresSessionRoundTrip(t *testing.T) {
	store := New(openTestDB(t))
	ctx := context.Background()

	created, err := store.CreateTask(ctx, task.Task{Title: "session task", Status: task.StatusTodo})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	start := time.Now().UTC().Truncate(time.Microsecond)
	sess, err := store.CreateSession(ctx, pomodoro.Session{
		TaskID:    created.ID,
		StartTime: start,
		EndTime:   start.Add(pomodoro.SessionDuration),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	active, err := store.GetActiveSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != sess.ID {
		t.Fatalf("unexpected active session %s", active.ID)
	}

	sess.Completed = true
	if _, err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("update session: %v", err)
	}

	if _, err := store.GetActiveSession(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no active session, got %v", err)
	}

	completed, err := store.ListCompletedSessions(ctx)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected one completed session, got %d", len(completed))
	}

	expired, err := store.ListExpiredSessions(ctx, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("completed sessions must not expire, got %d", len(expired))
	}
}
