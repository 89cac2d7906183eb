package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupPolicy_Plan(t *testing.T) {
	plan := DefaultDedupPolicy().Plan(3, false)
	require.Len(t, plan, 5)

	assert.Equal(t, AttemptPlan{Variant: 3}, plan[0])
	assert.Equal(t, AttemptPlan{Variant: 4}, plan[1])
	assert.Equal(t, AttemptPlan{Variant: 5, Better: true}, plan[2])
	assert.Equal(t, AttemptPlan{Variant: 6, Better: true}, plan[3])
	assert.Equal(t, AttemptPlan{Variant: 102, Better: true, Final: true}, plan[4])

	for _, step := range DefaultDedupPolicy().Plan(1, true) {
		assert.True(t, step.Better)
	}
}

func TestDedupPolicy_PlanAlwaysEndsFinal(t *testing.T) {
	p := DedupPolicy{MaxAttempts: 0}
	plan := p.Plan(1, false)
	require.Len(t, plan, 1)
	assert.True(t, plan[0].Final)
}

func sameContent() generator.Content {
	return generator.Content{
		Title:    "Sum it",
		Brief:    "Arrays.",
		Exercise: &model.Exercise{Title: "Sum", Instructions: "Sum an array."},
		Steps:    []model.Step{{Label: "a"}, {Label: "b"}},
	}
}

func TestGenerateUnique_TerminatesWhenEverythingCollides(t *testing.T) {
	gen := &scriptedGen{contents: []generator.Content{sameContent()}}
	h := newHarness(t, gen, nil)
	ctx := context.Background()

	first, err := h.svc.GetOrCreateToday(ctx, "js", true)
	require.NoError(t, err)
	require.Len(t, gen.Calls(), 1)

	next, err := h.svc.CreateNext(ctx, "js", false)
	require.NoError(t, err)

	calls := gen.Calls()[1:]
	require.Len(t, calls, 5)
	assert.Equal(t, 2, next.Index)
	assert.Equal(t, Signature(first), Signature(next.Task))

	for i, c := range calls {
		assert.Contains(t, c.Avoid, Signature(first), "call %d", i)
	}
	assert.False(t, calls[0].Better)
	assert.False(t, calls[1].Better)
	assert.True(t, calls[2].Better)
	assert.Equal(t, 2+99, calls[4].Variant)

	stored, err := h.svc.Repo().Load(ctx, "js", h.today(), 2)
	require.NoError(t, err)
	assert.Equal(t, next.Task.ID, stored.ID)

	collisions, _ := h.events.GetEvents(time.Time{}, []telemetry.EventType{telemetry.EventDedupCollision})
	assert.Len(t, collisions, 4)
}

func TestGenerateUnique_FirstFreshCandidateWins(t *testing.T) {
	fresh := sameContent()
	fresh.Exercise = &model.Exercise{Title: "Reverse", Instructions: "Reverse a string."}
	gen := &scriptedGen{contents: []generator.Content{sameContent(), sameContent(), fresh, sameContent()}}
	h := newHarness(t, gen, nil)
	ctx := context.Background()

	_, err := h.svc.GetOrCreateToday(ctx, "js", true)
	require.NoError(t, err)

	next, err := h.svc.CreateNext(ctx, "js", false)
	require.NoError(t, err)
	assert.Len(t, gen.Calls(), 3)
	assert.Equal(t, "Reverse", next.Task.Exercise.Title)
}

func TestGenerateUnique_GeneratorFailureUsesFallback(t *testing.T) {
	gen := &scriptedGen{err: errors.New("ollama down")}
	h := newHarness(t, gen, nil)

	got, err := h.svc.GetOrCreateToday(context.Background(), "luke", true)
	require.NoError(t, err)

	assert.Equal(t, model.Text{MinWords: 40}, got.Acceptance.Rule)
	assert.Equal(t, "Bible — 2026-02-07", got.Title)
	assert.Len(t, got.Steps, 2)
	assert.Equal(t, 1, h.grass.count("luke"))

	fallbacks, _ := h.events.GetEvents(time.Time{}, []telemetry.EventType{telemetry.EventGeneratorFallback})
	assert.Len(t, fallbacks, 1)
}

func TestGenerateUnique_PassesPracticeContext(t *testing.T) {
	gen := &scriptedGen{}
	h := newHarness(t, gen, nil)

	_, err := h.svc.CreateNext(context.Background(), "uke", true)
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.KindHobby, calls[0].Kind)
	assert.Equal(t, "Ukulele", calls[0].Title)
	assert.Equal(t, h.today(), calls[0].Date)
	assert.Equal(t, "Sam", calls[0].User.Name)
	assert.True(t, calls[0].Better)
	assert.Equal(t, 1, calls[0].Variant)
}

func TestBuildAvoidSet_KeepsMostRecentWithinWindow(t *testing.T) {
	h := newHarness(t, &scriptedGen{}, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		h.seed(t, "misc", clock.DaysBefore(testNow, i), 1, model.Task{Brief: fmt.Sprintf("day %d", i)})
	}
	h.seed(t, "misc", clock.DaysBefore(testNow, 0), 2, model.Task{Brief: "day 0 again"})

	set, err := h.svc.buildAvoidSet(ctx, "misc", 45, 10)
	require.NoError(t, err)
	require.Len(t, set.list, 10)
	assert.Equal(t, "day 0 again", set.list[0])
	assert.Equal(t, "day 0", set.list[1])
	assert.Equal(t, "day 8", set.list[9])

	wide, err := h.svc.buildAvoidSet(ctx, "misc", 45, 100)
	require.NoError(t, err)
	assert.True(t, wide.has("day 45"))
	assert.False(t, wide.has("day 46"))
	assert.Len(t, wide.head(3), 3)
}
