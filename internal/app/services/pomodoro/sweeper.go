package pomodoro

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskpom/taskpom/pkg/logger"
)

// Sweeper periodically completes sessions whose 25-minute window has
// elapsed without an explicit stop. It implements the system.Service
// lifecycle.
type Sweeper struct {
	svc      *Service
	schedule string
	log      *logger.Logger
	cron     *cron.Cron
}

// NewSweeper creates a sweeper running on the given cron schedule
// (e.g. "@every 1m").
func NewSweeper(svc *Service, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("pomodoro-sweeper")
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Sweeper{svc: svc, schedule: schedule, log: log}
}

// Name identifies the sweeper to the system manager.
func (w *Sweeper) Name() string { return "pomodoro-sweeper" }

// Start registers the cron entry and begins sweeping.
func (w *Sweeper) Start(ctx context.Context) error {
	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.schedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := w.svc.SweepExpired(sweepCtx, time.Now()); err != nil {
			w.log.WithError(err).Warn("sweep run failed")
		}
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.log.WithField("schedule", w.schedule).Info("pomodoro sweeper started")
	return nil
}

// Stop halts the cron scheduler and waits for a running sweep to finish.
func (w *Sweeper) Stop(ctx context.Context) error {
	if w.cron == nil {
		return nil
	}
	done := w.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
