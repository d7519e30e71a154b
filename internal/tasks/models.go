package tasks

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

const (
	// PlaceholderInsight is shown until the insight call settles.
	PlaceholderInsight = "Neural analysis pending. Task complexity assessment in progress."

	DefaultCategory = "General"
	deadlineLayout  = "2006-01-02"
)

type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Priority      Priority  `json:"priority"`
	Status        Status    `json:"status"`
	AIInsight     string    `json:"aiInsight"`
	EstimatedTime string    `json:"estimatedTime"`
	Deadline      string    `json:"deadline,omitempty"`
	Category      string    `json:"category"`
	NeuralScore   int       `json:"neuralScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ParsePriority maps an empty value to medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	default:
		return "", &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", s)}
	}
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
}

// build validates the input and fills defaults and generated fields.
func (in NewTask) build(now time.Time) (Task, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)

	if title == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "required"}
	}
	if desc == "" {
		return Task{}, &ValidationError{Field: "description", Reason: "required"}
	}

	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return Task{}, err
	}

	deadline := strings.TrimSpace(in.Deadline)
	if deadline != "" {
		if _, err := time.Parse(deadlineLayout, deadline); err != nil {
			return Task{}, &ValidationError{Field: "deadline", Reason: "expected YYYY-MM-DD"}
		}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	return Task{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   desc,
		Priority:      priority,
		Status:        StatusTodo,
		AIInsight:     PlaceholderInsight,
		EstimatedTime: estimateTime(),
		Deadline:      deadline,
		Category:      category,
		NeuralScore:   neuralScore(),
		CreatedAt:     now,
	}, nil
}

// Display fields only; nothing is derived from them.
func estimateTime() string {
	return fmt.Sprintf("%d.%d hours", rand.IntN(8)+1, rand.IntN(9))
}

func neuralScore() int {
	return rand.IntN(40) + 60
}
