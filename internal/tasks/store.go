package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackbox-backend/internal/ai"
)

// Insighter produces the asynchronous annotation for a new task.
type Insighter interface {
	Generate(ctx context.Context, title, description string) ai.Insight
}

// Enrichment settles once the insight for TaskID has been applied.
type Enrichment struct {
	TaskID  string
	done    chan struct{}
	insight ai.Insight
}

func (e *Enrichment) Done() <-chan struct{} { return e.done }

// Wait blocks until the insight settles or ctx ends. The enrichment itself
// keeps running when ctx ends.
func (e *Enrichment) Wait(ctx context.Context) (ai.Insight, error) {
	select {
	case <-e.done:
		return e.insight, nil
	case <-ctx.Done():
		return ai.Insight{}, ctx.Err()
	}
}

// Store keeps tasks in memory in insertion order.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	order    []string
	insights Insighter
	now      func() time.Time
	inflight sync.WaitGroup
}

func NewStore(insights Insighter) *Store {
	return &Store{
		tasks:    make(map[string]*Task),
		insights: insights,
		now:      time.Now,
	}
}

// Add inserts a todo task with the placeholder insight and starts the
// insight call. The call is detached from ctx cancellation.
func (s *Store) Add(ctx context.Context, in NewTask) (Task, *Enrichment, error) {
	t, err := in.build(s.now().UTC())
	if err != nil {
		return Task{}, nil, err
	}

	s.mu.Lock()
	for {
		if _, exists := s.tasks[t.ID]; !exists {
			break
		}
		t.ID = uuid.NewString()
	}
	stored := t
	s.tasks[t.ID] = &stored
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	e := &Enrichment{TaskID: t.ID, done: make(chan struct{})}

	s.inflight.Add(1)
	go s.enrich(context.WithoutCancel(ctx), t, e)

	return t, e, nil
}

func (s *Store) enrich(ctx context.Context, t Task, e *Enrichment) {
	defer s.inflight.Done()
	defer close(e.done)

	if s.insights == nil {
		e.insight = ai.Insight{Text: PlaceholderInsight}
		return
	}

	insight := s.insights.Generate(ctx, t.Title, t.Description)
	if insight.Text == "" {
		insight.Text = PlaceholderInsight
	}
	e.insight = insight

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok {
		slog.Debug("task removed before insight settled", "task_id", t.ID)
		return
	}
	cur.AIInsight = insight.Text
	if insight.Degraded {
		slog.Warn("insight degraded", "task_id", t.ID)
	}
}

// Seed inserts fully formed tasks without enrichment. Tasks whose id is
// already present are skipped.
func (s *Store) Seed(tasks ...Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tasks {
		if _, exists := s.tasks[t.ID]; exists || t.ID == "" {
			continue
		}
		stored := t
		s.tasks[t.ID] = &stored
		s.order = append(s.order, t.ID)
	}
}

// UpdateStatus replaces the status field only and reports the status it
// replaced. Any status is reachable from any other.
func (s *Store) UpdateStatus(id string, status Status) (Task, Status, error) {
	st, err := ParseStatus(string(status))
	if err != nil {
		return Task{}, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, "", &NotFoundError{ID: id}
	}
	prev := t.Status
	t.Status = st
	return *t, prev, nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(s.tasks, id)

	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, &NotFoundError{ID: id}
	}
	return *t, nil
}

// List returns copies in insertion order.
func (s *Store) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) Stats() Stats {
	return Summarize(s.List())
}

// Wait blocks until every in-flight enrichment has settled.
func (s *Store) Wait() {
	s.inflight.Wait()
}
