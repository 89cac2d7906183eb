package telemetry

import "time"

type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventDedupCollision    EventType = "dedup_collision"
	EventGeneratorFallback EventType = "generator_fallback"
	EventProofSubmitted    EventType = "proof_submitted"
	EventAnswerGraded      EventType = "answer_graded"
	EventGrassRefreshed    EventType = "grass_refreshed"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}

// Recorder is the write side of a Repository. Recording is best effort:
// callers ignore the error.
type Recorder interface {
	RecordEvent(eventType EventType, metadata EventMetadata) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) RecordEvent(EventType, EventMetadata) error { return nil }
