package task

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/grader"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"
)

var testNow = time.Date(2026, 2, 7, 9, 30, 0, 0, time.Local)

// scriptedGen hands out contents in order and repeats the last one.
type scriptedGen struct {
	mu       sync.Mutex
	contents []generator.Content
	err      error
	calls    []generator.Request
}

func (g *scriptedGen) Generate(_ context.Context, req generator.Request) (generator.Content, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return generator.Content{}, g.err
	}
	if len(g.contents) == 0 {
		return generator.Fallback(req), nil
	}
	i := len(g.calls) - 1
	if i >= len(g.contents) {
		i = len(g.contents) - 1
	}
	return g.contents[i], nil
}

func (g *scriptedGen) Calls() []generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generator.Request(nil), g.calls...)
}

// uniqueGen produces a different exercise on every call.
type uniqueGen struct {
	mu sync.Mutex
	n  int
}

func (g *uniqueGen) Generate(_ context.Context, req generator.Request) (generator.Content, error) {
	g.mu.Lock()
	g.n++
	n := g.n
	g.mu.Unlock()
	return generator.Content{
		Title:    fmt.Sprintf("Lesson %d", n),
		Brief:    "Focus.",
		Exercise: &model.Exercise{Title: fmt.Sprintf("Drill %d", n), Instructions: fmt.Sprintf("Do drill number %d", n)},
		Steps:    []model.Step{{Label: "a"}, {Label: "b"}},
	}, nil
}

type fixedGrader struct {
	res grader.Result
	err error
	got []grader.Request
}

func (g *fixedGrader) Grade(_ context.Context, req grader.Request) (grader.Result, error) {
	g.got = append(g.got, req)
	return g.res, g.err
}

type countingRefresher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRefresher) Refresh(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[slug]++
	return nil
}

func (r *countingRefresher) count(slug string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[slug]
}

var testPractices = []model.Practice{
	{Slug: "yoga", Kind: model.KindFitness, Title: "Yoga + Muscle"},
	{Slug: "js", Kind: model.KindStudy, Title: "JS & Math"},
	{Slug: "luke", Kind: model.KindReligion, Title: "Bible"},
	{Slug: "chem", Kind: model.KindMicro, Title: "Chemistry"},
	{Slug: "uke", Kind: model.KindHobby, Title: "Ukulele"},
	{Slug: "misc", Kind: model.KindGeneric, Title: "Misc"},
}

type harness struct {
	svc    *Service
	st     *store.MemoryStore
	clock  *clock.FakeClock
	grass  *countingRefresher
	events *telemetry.MemoryRepository
}

func newHarness(t *testing.T, gen generator.Generator, gr grader.Grader) *harness {
	t.Helper()
	h := &harness{
		st:    store.NewMemoryStore(),
		clock: clock.NewFakeClock(testNow),
		grass: &countingRefresher{},
	}
	h.events = telemetry.NewMemoryRepository(h.clock, 0)
	var n int
	var mu sync.Mutex
	h.svc = NewService(Deps{
		Store:     h.st,
		Practices: testPractices,
		User:      model.User{Name: "Sam"},
		Generator: gen,
		Grader:    gr,
		Grass:     h.grass,
		Clock:     h.clock,
		Events:    h.events,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("t%03d", n)
		},
	})
	return h
}

func (h *harness) today() string { return clock.Today(h.clock) }

func (h *harness) seed(t *testing.T, slug, date string, index int, task model.Task) {
	t.Helper()
	if err := h.svc.Repo().Save(context.Background(), slug, date, index, task); err != nil {
		t.Fatal(err)
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func f64(v float64) *float64 { return &v }
