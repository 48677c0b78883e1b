package pomodoro

import "time"

// SessionDuration is the fixed length of a focus session.
const SessionDuration = 25 * time.Minute

// MinutesPerSession is the focus time credited for each completed session.
const MinutesPerSession = 25

// Session represents a single Pomodoro timer bound to a task.
type Session struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the session window has elapsed at the given time.
func (s Session) Expired(now time.Time) bool {
	return !s.Completed && now.After(s.EndTime)
}

// Stats aggregates completed focus minutes per task.
type Stats struct {
	MinutesByTask map[string]int `json:"minutes_by_task"`
	TotalMinutes  int            `json:"total_minutes"`
	Sessions      int            `json:"sessions"`
}
