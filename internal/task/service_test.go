package task

import (
	"context"
	"testing"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateToday_CreatesOncePerDay(t *testing.T) {
	gen := &uniqueGen{}
	h := newHarness(t, gen, nil)
	ctx := context.Background()

	a, err := h.svc.GetOrCreateToday(ctx, "yoga", true)
	require.NoError(t, err)
	b, err := h.svc.GetOrCreateToday(ctx, "yoga", true)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, gen.n)
	assert.Equal(t, h.today(), a.Date)
	assert.Equal(t, "yoga", a.Practice)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, model.Minutes{Baseline: 20}, a.Acceptance.Rule)
	assert.Equal(t, 1, h.grass.count("yoga"))

	loc, ok, err := h.svc.Repo().Location(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Location{Practice: "yoga", Date: h.today(), Index: 1}, loc)

	h.clock.AdvanceDays(1)
	c, err := h.svc.GetOrCreateToday(ctx, "yoga", true)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, 2, gen.n)
}

func TestGetOrCreateToday_RehydratesOnlyWhenChanged(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	h.seed(t, "yoga", h.today(), 1, model.Task{
		ID:         "old1",
		Date:       h.today(),
		Practice:   "yoga",
		Title:      "Stale",
		Brief:      "b",
		Steps:      []model.Step{{Label: "a"}, {Label: "b"}},
		Acceptance: model.Accept(model.Checkbox{}),
		Status:     model.StatusPending,
	})

	got, err := h.svc.GetOrCreateToday(ctx, "yoga", true)
	require.NoError(t, err)
	assert.Equal(t, "old1", got.ID)
	assert.Equal(t, model.Minutes{Baseline: 20}, got.Acceptance.Rule)
	assert.Equal(t, 1, h.grass.count("yoga"))

	stored, err := h.svc.Repo().Load(ctx, "yoga", h.today(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.Minutes{Baseline: 20}, stored.Acceptance.Rule)

	_, err = h.svc.GetOrCreateToday(ctx, "yoga", true)
	require.NoError(t, err)
	assert.Equal(t, 1, h.grass.count("yoga"), "unchanged task must not be re-persisted")
}

func TestGetOrCreateToday_LatestAndFirst(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	first, err := h.svc.GetOrCreateToday(ctx, "misc", true)
	require.NoError(t, err)
	next, err := h.svc.CreateNext(ctx, "misc", false)
	require.NoError(t, err)

	latest, err := h.svc.GetOrCreateToday(ctx, "misc", true)
	require.NoError(t, err)
	assert.Equal(t, next.Task.ID, latest.ID)

	initial, err := h.svc.GetOrCreateToday(ctx, "misc", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, initial.ID)
}

func TestCreateNext_SequencesIgnoringBetter(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	_, err := h.svc.GetOrCreateToday(ctx, "js", true)
	require.NoError(t, err)

	e2, err := h.svc.CreateNext(ctx, "js", true)
	require.NoError(t, err)
	e3, err := h.svc.CreateNext(ctx, "js", false)
	require.NoError(t, err)

	assert.Equal(t, 2, e2.Index)
	assert.Equal(t, 3, e3.Index)
}

func TestCreateNext_OrdersNumericallyPastNine(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		h.seed(t, "misc", h.today(), i, model.Task{ID: "s" + string(rune('a'+i)), Brief: "x"})
	}

	e, err := h.svc.CreateNext(ctx, "misc", false)
	require.NoError(t, err)
	assert.Equal(t, 11, e.Index)

	list, err := h.svc.ListToday(ctx, "misc")
	require.NoError(t, err)
	require.Len(t, list, 11)
	for i, entry := range list {
		assert.Equal(t, i+1, entry.Index)
	}
}

func TestListToday_OnlyToday(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	h.seed(t, "uke", clock.DaysBefore(testNow, 1), 1, model.Task{ID: "y1"})
	list, err := h.svc.ListToday(ctx, "uke")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.svc.GetOrCreateToday(ctx, "uke", true)
	require.NoError(t, err)
	list, err = h.svc.ListToday(ctx, "uke")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHistory_OrderAndWindow(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	ctx := context.Background()

	d0 := clock.DaysBefore(testNow, 0)
	d1 := clock.DaysBefore(testNow, 1)
	h.seed(t, "js", d1, 1, model.Task{ID: "a", Exercise: &model.Exercise{AnswerKey: "key"}})
	h.seed(t, "js", d0, 2, model.Task{ID: "c"})
	h.seed(t, "js", d0, 1, model.Task{ID: "b", Solution: "sol"})
	h.seed(t, "js", clock.DaysBefore(testNow, 61), 1, model.Task{ID: "old"})

	items, err := h.svc.History(ctx, "js", 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, []string{"b", "c", "a"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "sol", items[0].Solution)
	assert.Equal(t, "key", items[2].Solution)
	assert.Equal(t, 2, items[1].Index)
	assert.NotNil(t, items[1].Attempts)
	assert.Equal(t, "js", items[1].Practice)

	capped, err := h.svc.History(ctx, "js", 90, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestPractice_UnknownAndInvalidSlugs(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)

	p, err := h.svc.Practice("piano")
	require.NoError(t, err)
	assert.Equal(t, model.UnknownPractice("piano"), p)

	_, err = h.svc.Practice("../etc")
	assert.ErrorIs(t, err, ErrBadPractice)

	_, err = h.svc.GetOrCreateToday(context.Background(), "a/b", true)
	assert.ErrorIs(t, err, ErrBadPractice)
}

func TestPractices_ConfigOrder(t *testing.T) {
	h := newHarness(t, &uniqueGen{}, nil)
	got := h.svc.Practices()
	require.Len(t, got, len(testPractices))
	assert.Equal(t, "yoga", got[0].Slug)
	assert.Equal(t, "misc", got[len(got)-1].Slug)
}
