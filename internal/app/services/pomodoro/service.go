// Package pomodoro implements focus session tracking for tasks.
package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/storage"
	"github.com/taskpom/taskpom/internal/platform/cache"
	"github.com/taskpom/taskpom/pkg/logger"
)

// ErrSessionActive is returned when a task already has a running session.
var ErrSessionActive = errors.New("pomodoro session already active for this task")

// Service coordinates Pomodoro sessions.
type Service struct {
	tasks storage.TaskStore
	store storage.PomodoroStore
	cache *cache.StatsCache
	log   *logger.Logger
	now   func() time.Time
}

// New creates a configured Pomodoro service.
func New(tasks storage.TaskStore, store storage.PomodoroStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pomodoro")
	}
	return &Service{
		tasks: tasks,
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// AttachCache enables stats caching. Call before serving traffic.
func (s *Service) AttachCache(c *cache.StatsCache) {
	s.cache = c
}

// Start opens a 25-minute session for the task. Only one session per task
// may be active at a time.
func (s *Service) Start(ctx context.Context, taskID string) (pomodoro.Session, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return pomodoro.Session{}, fmt.Errorf("task_id is required")
	}

	if s.tasks != nil {
		if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
			return pomodoro.Session{}, err
		}
	}

	if _, err := s.store.GetActiveSession(ctx, taskID); err == nil {
		return pomodoro.Session{}, ErrSessionActive
	} else if !errors.Is(err, storage.ErrNotFound) {
		return pomodoro.Session{}, err
	}

	start := s.now().UTC()
	sess := pomodoro.Session{
		TaskID:    taskID,
		StartTime: start,
		EndTime:   start.Add(pomodoro.SessionDuration),
	}
	sess, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return pomodoro.Session{}, err
	}

	s.cache.Invalidate(ctx)
	s.log.WithField("session_id", sess.ID).
		WithField("task_id", taskID).
		Info("pomodoro session started")
	return sess, nil
}

// Stop marks the task's active session as completed.
func (s *Service) Stop(ctx context.Context, taskID string) (pomodoro.Session, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return pomodoro.Session{}, fmt.Errorf("task_id is required")
	}

	sess, err := s.store.GetActiveSession(ctx, taskID)
	if err != nil {
		return pomodoro.Session{}, err
	}

	sess.Completed = true
	sess, err = s.store.UpdateSession(ctx, sess)
	if err != nil {
		return pomodoro.Session{}, err
	}

	s.cache.Invalidate(ctx)
	s.log.WithField("session_id", sess.ID).
		WithField("task_id", taskID).
		Info("pomodoro session stopped")
	return sess, nil
}

// List returns sessions, optionally scoped to one task.
func (s *Service) List(ctx context.Context, taskID string) ([]pomodoro.Session, error) {
	return s.store.ListSessions(ctx, strings.TrimSpace(taskID))
}

// Stats aggregates completed focus time per task, 25 minutes per session.
func (s *Service) Stats(ctx context.Context) (pomodoro.Stats, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	sessions, err := s.store.ListCompletedSessions(ctx)
	if err != nil {
		return pomodoro.Stats{}, err
	}

	stats := pomodoro.Stats{MinutesByTask: make(map[string]int)}
	for _, sess := range sessions {
		stats.MinutesByTask[sess.TaskID] += pomodoro.MinutesPerSession
		stats.TotalMinutes += pomodoro.MinutesPerSession
		stats.Sessions++
	}

	s.cache.Set(ctx, stats)
	return stats, nil
}

// SweepExpired completes every session whose window elapsed before now.
// Returns the number of sessions swept.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredSessions(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, sess := range expired {
		sess.Completed = true
		if _, err := s.store.UpdateSession(ctx, sess); err != nil {
			s.log.WithError(err).
				WithField("session_id", sess.ID).
				Warn("failed to sweep expired session")
			continue
		}
		swept++
	}
	if swept > 0 {
		s.cache.Invalidate(ctx)
		s.log.WithField("swept", swept).Info("expired pomodoro sessions completed")
	}
	return swept, nil
}
