package app

import (
	"context"
	"fmt"

	pomodorosvc "github.com/taskpom/taskpom/internal/app/services/pomodoro"
	"github.com/taskpom/taskpom/internal/app/services/tasks"
	"github.com/taskpom/taskpom/internal/app/storage"
	"github.com/taskpom/taskpom/internal/app/storage/memory"
	"github.com/taskpom/taskpom/internal/app/system"
	"github.com/taskpom/taskpom/internal/platform/cache"
	"github.com/taskpom/taskpom/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Tasks    storage.TaskStore
	Pomodoro storage.PomodoroStore
}

// Options configures optional application behavior.
type Options struct {
	// StatsCache enables Redis-backed caching of the stats aggregate.
	StatsCache *cache.StatsCache

	// SweepSchedule enables the expired-session sweeper when non-empty.
	SweepSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Tasks    *tasks.Service
	Pomodoro *pomodorosvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Tasks == nil {
		stores.Tasks = mem
	}
	if stores.Pomodoro == nil {
		stores.Pomodoro = mem
	}

	manager := system.NewManager()

	taskService := tasks.New(stores.Tasks, log)
	pomodoroService := pomodorosvc.New(stores.Tasks, stores.Pomodoro, log)
	if opts.StatsCache != nil {
		pomodoroService.AttachCache(opts.StatsCache)
	}

	for _, name := range []string{"tasks", "pomodoro"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	if opts.SweepSchedule != "" {
		sweeper := pomodorosvc.NewSweeper(pomodoroService, opts.SweepSchedule, log)
		if err := manager.Register(sweeper); err != nil {
			return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Tasks:    taskService,
		Pomodoro: pomodoroService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
