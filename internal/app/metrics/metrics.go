package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskpom",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpom",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskpom",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	taskOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpom",
			Subsystem: "tasks",
			Name:      "operations_total",
			Help:      "Total number of task mutations.",
		},
		[]string{"operation", "outcome"},
	)

	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskpom",
			Subsystem: "pomodoro",
			Name:      "sessions_started_total",
			Help:      "Total number of Pomodoro sessions started.",
		},
	)

	sessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpom",
			Subsystem: "pomodoro",
			Name:      "sessions_completed_total",
			Help:      "Total number of Pomodoro sessions completed.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		taskOperations,
		sessionsStarted,
		sessionsCompleted,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTaskOperation counts a task mutation and its outcome.
func RecordTaskOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	taskOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordSessionStarted counts a started Pomodoro session.
func RecordSessionStarted() {
	sessionsStarted.Inc()
}

// RecordSessionCompleted counts a completed session. Reason is "stopped" for
// explicit stops and "swept" for expiry sweeps.
func RecordSessionCompleted(reason string) {
	if reason == "" {
		reason = "stopped"
	}
	sessionsCompleted.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "tasks":
		if len(parts) == 1 {
			return "/tasks"
		}
		return "/tasks/:id"
	case "pomodoro":
		if len(parts) == 1 {
			return "/pomodoro"
		}
		if parts[len(parts)-1] == "stop" {
			return "/pomodoro/:task_id/stop"
		}
		return "/pomodoro/" + parts[1]
	default:
		return "/" + parts[0]
	}
}
