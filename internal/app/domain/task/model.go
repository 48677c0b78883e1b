package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Status enumerates the lifecycle states of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

const (
	// TitleMinLen and TitleMaxLen bound the task title length in runes.
	TitleMinLen = 3
	TitleMaxLen = 100

	// DescriptionMaxLen bounds the optional description length in runes.
	DescriptionMaxLen = 300
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus normalises and validates a raw status string. An empty input
// defaults to TODO.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusTodo, nil
	}
	s := Status(trimmed)
	if !s.Valid() {
		return "", fmt.Errorf("status must be one of TODO, IN_PROGRESS, DONE")
	}
	return s, nil
}

// Task represents a unit of work tracked by the service.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks title, description and status constraints.
func (t Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if n := utf8.RuneCountInString(title); n < TitleMinLen || n > TitleMaxLen {
		return fmt.Errorf("title must be between %d and %d characters", TitleMinLen, TitleMaxLen)
	}
	if utf8.RuneCountInString(t.Description) > DescriptionMaxLen {
		return fmt.Errorf("description must be at most %d characters", DescriptionMaxLen)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("status must be one of TODO, IN_PROGRESS, DONE")
	}
	return nil
}
