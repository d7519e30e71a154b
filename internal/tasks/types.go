package tasks

import "fmt"

// NewTask is the caller-supplied part of a task.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Deadline    string `json:"deadline"`
}

// ActionRequest is the body of POST /api/tasks.
type ActionRequest struct {
	Action string `json:"action"`
	NewTask
}

const (
	ActionGenerateInsight = "generate-insight"
	ActionCreate          = "create"
)

type StatusRequest struct {
	Status string `json:"status"`
}

// ValidationError is returned for missing or malformed input. The store is
// never mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}
