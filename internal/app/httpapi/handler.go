// Package httpapi exposes the REST API over the application services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/taskpom/taskpom/internal/app"
	"github.com/taskpom/taskpom/internal/app/auth"
	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/app/domain/task"
	"github.com/taskpom/taskpom/internal/app/metrics"
	pomodorosvc "github.com/taskpom/taskpom/internal/app/services/pomodoro"
	"github.com/taskpom/taskpom/internal/app/storage"
)

const welcomeMessage = "Welcome to the TODO application with Pomodoro support."

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	authMgr *auth.Manager
}

// NewHandler returns a router exposing the core REST API. The auth manager
// may be nil, in which case /auth/login responds 404.
func NewHandler(application *app.Application, authMgr *auth.Manager) http.Handler {
	h := &handler{app: application, authMgr: authMgr}

	r := mux.NewRouter()
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/tasks", h.createTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks", h.listTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", h.getTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", h.updateTask).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id}", h.deleteTask).Methods(http.MethodDelete)

	r.HandleFunc("/pomodoro", h.startPomodoro).Methods(http.MethodPost)
	r.HandleFunc("/pomodoro/sessions", h.listSessions).Methods(http.MethodGet)
	r.HandleFunc("/pomodoro/stats", h.pomodoroStats).Methods(http.MethodGet)
	r.HandleFunc("/pomodoro/{task_id}/stop", h.stopPomodoro).Methods(http.MethodPost)

	if authMgr != nil {
		r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	}

	return r
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "taskpom",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Tasks ------------------------------------------------------------------

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Tasks.Create(r.Context(), payload.Title, payload.Description, payload.Status)
	metrics.RecordTaskOperation("create", err)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Tasks.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []task.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Tasks.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Tasks.Update(r.Context(), mux.Vars(r)["id"], payload.Title, payload.Description, payload.Status)
	metrics.RecordTaskOperation("update", err)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	err := h.app.Tasks.Delete(r.Context(), mux.Vars(r)["id"])
	metrics.RecordTaskOperation("delete", err)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Pomodoro ---------------------------------------------------------------

func (h *handler) startPomodoro(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if r.Body != nil && r.ContentLength != 0 {
		var payload struct {
			TaskID string `json:"task_id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(payload.TaskID) != "" {
			taskID = payload.TaskID
		}
	}

	sess, err := h.app.Pomodoro.Start(r.Context(), taskID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	metrics.RecordSessionStarted()
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handler) stopPomodoro(w http.ResponseWriter, r *http.Request) {
	sess, err := h.app.Pomodoro.Stop(r.Context(), mux.Vars(r)["task_id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	metrics.RecordSessionCompleted("stopped")
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.app.Pomodoro.List(r.Context(), r.URL.Query().Get("task_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []pomodoro.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handler) pomodoroStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Pomodoro.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Auth -------------------------------------------------------------------

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.authMgr.Login(payload.Username, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- Helpers ----------------------------------------------------------------

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateTitle):
		return http.StatusBadRequest
	case errors.Is(err, pomodorosvc.ErrSessionActive):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
