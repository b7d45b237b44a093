// Package events defines the lifecycle-event publishing capability consumed
// by the orchestrators. Publishing is fire-and-forget: a failing or absent
// event bus must never fail the pipeline, so implementations log and swallow
// transport errors.
package events

import (
	"context"
	"sync"

	"infrastat/internal/infrastat/models"
)

// Publisher notifies the rest of the system of batch lifecycle transitions.
// Orchestrators receive it as a constructor dependency; NoopPublisher
// satisfies "event bus disabled".
type Publisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.LifecycleEvent) {}

// Recorder captures events in memory for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event models.LifecycleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything published so far, in order.
func (r *Recorder) Events() []models.LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LifecycleEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns just the event types, in publish order.
func (r *Recorder) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
