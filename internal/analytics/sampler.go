package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cron "github.com/netresearch/go-cron"
)

const FrameMetrics = "metrics"

// Sampler refreshes the gauges on a cron schedule and pushes each sample
// to the hub.
type Sampler struct {
	mu       sync.RWMutex
	latest   Gauges
	schedule string
	hub      *Hub
	now      func() time.Time
}

func NewSampler(schedule string, hub *Hub) *Sampler {
	return &Sampler{
		latest:   InitialGauges(time.Now().UTC()),
		schedule: schedule,
		hub:      hub,
		now:      time.Now,
	}
}

func (s *Sampler) Latest() Gauges {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Tick takes one sample.
func (s *Sampler) Tick() Gauges {
	g := SampleGauges(s.now().UTC())

	s.mu.Lock()
	s.latest = g
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Publish(FrameMetrics, g)
	}
	return g
}

// Run samples until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Tick() }); err != nil {
		return fmt.Errorf("metrics schedule %q: %w", s.schedule, err)
	}

	c.Start()
	slog.Info("metrics sampler started", "schedule", s.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("metrics sampler stopped")
	return nil
}
