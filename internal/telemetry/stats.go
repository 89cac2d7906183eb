package telemetry

import (
	"encoding/json"
	"time"
)

type Stats struct {
	Period             string            `json:"period"`
	EventCounts        map[EventType]int `json:"event_counts"`
	TasksCreated       int               `json:"tasks_created"`
	DedupCollisions    int               `json:"dedup_collisions"`
	GeneratorFallbacks int               `json:"generator_fallbacks"`
	Proofs             int               `json:"proofs"`
	ProofsAccepted     int               `json:"proofs_accepted"`
	Grades             int               `json:"grades"`
	GradesPassed       int               `json:"grades_passed"`
	AcceptRate         float64           `json:"accept_rate"`
	CreatedByPractice  map[string]int    `json:"created_by_practice"`
	ProofsByType       map[string]int    `json:"proofs_by_type"`
}

// CalculateStats computes lifecycle stats from events
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:            since.Format("2006-01-02"),
		EventCounts:       make(map[EventType]int),
		CreatedByPractice: make(map[string]int),
		ProofsByType:      make(map[string]int),
	}

	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventTaskCreated:
			stats.TasksCreated++
			if slug, ok := metadata["practice"].(string); ok {
				stats.CreatedByPractice[slug]++
			}
		case EventDedupCollision:
			stats.DedupCollisions++
		case EventGeneratorFallback:
			stats.GeneratorFallbacks++
		case EventProofSubmitted:
			stats.Proofs++
			if accepted, _ := metadata["accepted"].(bool); accepted {
				stats.ProofsAccepted++
			}
			if typ, ok := metadata["type"].(string); ok {
				stats.ProofsByType[typ]++
			}
		case EventAnswerGraded:
			stats.Grades++
			if passed, _ := metadata["passed"].(bool); passed {
				stats.GradesPassed++
			}
		}
	}

	if n := stats.Proofs + stats.Grades; n > 0 {
		stats.AcceptRate = float64(stats.ProofsAccepted+stats.GradesPassed) / float64(n)
	}

	return stats, nil
}
