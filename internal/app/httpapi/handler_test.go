package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/taskpom/taskpom/internal/app"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	return NewHandler(application, nil)
}

func marshal(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestHandlerTaskLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	body := marshal(t, map[string]any{"title": "write report", "description": "quarterly numbers"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/tasks", body))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	id := created["id"].(string)
	if created["status"] != "TODO" {
		t.Fatalf("expected default TODO status, got %v", created["status"])
	}

	// duplicate title rejected
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/tasks", marshal(t, map[string]any{"title": "write report"})))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate title, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/tasks/"+id, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 get, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/tasks/does-not-exist", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", resp.Code)
	}

	updateBody := marshal(t, map[string]any{"title": "write final report", "description": "", "status": "IN_PROGRESS"})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/tasks/"+id, updateBody))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 update, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/tasks?status=IN_PROGRESS", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 list, got %d", resp.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || list[0]["id"] != id {
		t.Fatalf("unexpected filtered list: %v", list)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/tasks/"+id, nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 delete, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/tasks/"+id, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", resp.Code)
	}
}

func TestHandlerPomodoroLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/tasks", marshal(t, map[string]any{"title": "deep work"})))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create task: %d", resp.Code)
	}
	var created map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &created)
	taskID := created["id"].(string)

	// start via JSON body
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/pomodoro", marshal(t, map[string]any{"task_id": taskID})))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 start, got %d: %s", resp.Code, resp.Body.String())
	}

	// second start conflicts
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/pomodoro", marshal(t, map[string]any{"task_id": taskID})))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second start, got %d", resp.Code)
	}

	// unknown task is 404
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/pomodoro", marshal(t, map[string]any{"task_id": "nope"})))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/pomodoro/%s/stop", taskID), nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 stop, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/pomodoro/%s/stop", taskID), nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 stopping idle task, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/pomodoro/stats", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 stats, got %d", resp.Code)
	}
	var stats struct {
		MinutesByTask map[string]int `json:"minutes_by_task"`
		TotalMinutes  int            `json:"total_minutes"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.MinutesByTask[taskID] != 25 || stats.TotalMinutes != 25 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/pomodoro/sessions?task_id="+taskID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 sessions, got %d", resp.Code)
	}
	var sessions []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("unmarshal sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
}

func TestHandlerRootAndHealth(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 root, got %d", resp.Code)
	}
	var welcome map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &welcome); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	if welcome["message"] == "" {
		t.Fatalf("expected welcome message")
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 healthz, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", resp.Code)
	}
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader([]byte(`{"title":"valid title","priority":9}`))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.Code)
	}
}
