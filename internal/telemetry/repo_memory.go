package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
)

// DefaultRetention bounds how many events a MemoryRepository keeps.
const DefaultRetention = 10000

// Repository stores telemetry events
type Repository interface {
	Recorder
	GetEvents(since time.Time, eventTypes []EventType) ([]Event, error)
	Clear() error
}

// MemoryRepository stores the most recent events in memory. Events are lost
// on restart.
type MemoryRepository struct {
	mu        sync.RWMutex
	clock     clock.Clock
	retention int
	events    []Event
	nextID    int
}

func NewMemoryRepository(c clock.Clock, retention int) *MemoryRepository {
	if c == nil {
		c = clock.RealClock{}
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryRepository{
		clock:     c,
		retention: retention,
		events:    make([]Event, 0),
		nextID:    1,
	}
}

func (r *MemoryRepository) RecordEvent(eventType EventType, metadata EventMetadata) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		ID:        r.nextID,
		Type:      eventType,
		Timestamp: r.clock.Now(),
		Metadata:  string(metadataJSON),
	})
	r.nextID++

	if over := len(r.events) - r.retention; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
	return nil
}

func (r *MemoryRepository) GetEvents(since time.Time, eventTypes []EventType) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeFilter := make(map[EventType]bool)
	for _, t := range eventTypes {
		typeFilter[t] = true
	}

	result := make([]Event, 0)
	for _, event := range r.events {
		if event.Timestamp.Before(since) {
			continue
		}
		if len(eventTypes) > 0 && !typeFilter[event.Type] {
			continue
		}
		result = append(result, event)
	}

	return result, nil
}

func (r *MemoryRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = make([]Event, 0)
	r.nextID = 1

	return nil
}
