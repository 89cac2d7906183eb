package telemetry

import (
	"testing"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_FiltersByTimeAndType(t *testing.T) {
	c := clock.NewFakeClock(time.Date(2026, 2, 7, 9, 0, 0, 0, time.Local))
	r := NewMemoryRepository(c, 0)

	require.NoError(t, r.RecordEvent(EventTaskCreated, EventMetadata{"practice": "yoga"}))
	c.AdvanceDays(1)
	require.NoError(t, r.RecordEvent(EventProofSubmitted, EventMetadata{"type": "minutes", "accepted": true}))
	require.NoError(t, r.RecordEvent(EventTaskCreated, EventMetadata{"practice": "js"}))

	all, err := r.GetEvents(time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, all[0].ID)

	recent, err := r.GetEvents(c.Now().Add(-time.Hour), []EventType{EventTaskCreated})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0].Metadata, `"js"`)

	require.NoError(t, r.Clear())
	all, _ = r.GetEvents(time.Time{}, nil)
	assert.Empty(t, all)
}

func TestMemoryRepository_Retention(t *testing.T) {
	r := NewMemoryRepository(nil, 2)
	for range 5 {
		require.NoError(t, r.RecordEvent(EventGrassRefreshed, nil))
	}
	events, _ := r.GetEvents(time.Time{}, nil)
	require.Len(t, events, 2)
	assert.Equal(t, 4, events[0].ID)
	assert.Equal(t, 5, events[1].ID)
}

func TestCalculateStats(t *testing.T) {
	r := NewMemoryRepository(nil, 0)
	_ = r.RecordEvent(EventTaskCreated, EventMetadata{"practice": "yoga"})
	_ = r.RecordEvent(EventTaskCreated, EventMetadata{"practice": "yoga"})
	_ = r.RecordEvent(EventDedupCollision, EventMetadata{"practice": "yoga"})
	_ = r.RecordEvent(EventGeneratorFallback, EventMetadata{"practice": "yoga"})
	_ = r.RecordEvent(EventProofSubmitted, EventMetadata{"type": "minutes", "accepted": true})
	_ = r.RecordEvent(EventProofSubmitted, EventMetadata{"type": "text", "accepted": false})
	_ = r.RecordEvent(EventAnswerGraded, EventMetadata{"passed": true})
	_ = r.RecordEvent(EventAnswerGraded, EventMetadata{"passed": false})

	events, _ := r.GetEvents(time.Time{}, nil)
	stats, err := CalculateStats(events, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2026-02-01", stats.Period)
	assert.Equal(t, 2, stats.TasksCreated)
	assert.Equal(t, 2, stats.CreatedByPractice["yoga"])
	assert.Equal(t, 1, stats.DedupCollisions)
	assert.Equal(t, 1, stats.GeneratorFallbacks)
	assert.Equal(t, 2, stats.Proofs)
	assert.Equal(t, 1, stats.ProofsAccepted)
	assert.Equal(t, 1, stats.ProofsByType["text"])
	assert.Equal(t, 2, stats.Grades)
	assert.Equal(t, 1, stats.GradesPassed)
	assert.InDelta(t, 0.5, stats.AcceptRate, 1e-9)
}
