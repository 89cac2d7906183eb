// Package grass derives the activity heatmap ("grass"), the current streak
// and the completion total of a practice from its stored tasks.
package grass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	Weeks      = 53
	DaysOfWeek = 7
	WindowDays = Weeks * DaysOfWeek

	calendarKey = "calendar"
	statsKey    = "stats"

	refreshAllLimit = 4
)

var (
	Palette = []string{"#0b1020", "#163d2b", "#1e6d3f", "#29a35a", "#39d27a"}
	Legend  = []string{"No activity", "Attempted", "Baseline", "Good", "Great"}
)

// Calendar is the derived heatmap record. Weeks[c][r] is the score of day
// c*7+r of the window, oldest first.
type Calendar struct {
	AsOf        string         `json:"asOf"`
	Weeks       [][]int        `json:"weeks"`
	Palette     []string       `json:"palette"`
	Legend      []string       `json:"legend"`
	ScoreByDate map[string]int `json:"scoreByDate"`
}

type Stats struct {
	Streak int `json:"streak"`
	Totals int `json:"totals"`
}

// View is what Read returns: the calendar and the stats side by side.
type View struct {
	Calendar
	Stats
}

// Build derives the calendar and stats from per-day best scores, for a
// window ending on the day of today.
func Build(scoreByDate map[string]int, today time.Time) (Calendar, Stats) {
	dates := make([]string, WindowDays)
	for i := range dates {
		dates[i] = clock.DaysBefore(today, WindowDays-1-i)
	}

	weeks := make([][]int, Weeks)
	for c := range weeks {
		col := make([]int, DaysOfWeek)
		for r := range col {
			col[r] = scoreByDate[dates[c*DaysOfWeek+r]]
		}
		weeks[c] = col
	}

	var st Stats
	for i := len(dates) - 1; i >= 0; i-- {
		if scoreByDate[dates[i]] <= 0 {
			break
		}
		st.Streak++
	}
	for _, v := range scoreByDate {
		if v > 0 {
			st.Totals++
		}
	}

	if scoreByDate == nil {
		scoreByDate = map[string]int{}
	}
	return Calendar{
		AsOf:        clock.Day(today),
		Weeks:       weeks,
		Palette:     Palette,
		Legend:      Legend,
		ScoreByDate: scoreByDate,
	}, st
}

type Aggregator struct {
	st     store.Store
	clock  clock.Clock
	logger *zap.Logger
	events telemetry.Recorder
	// rebuilds coalesces concurrent rebuilds triggered by Read.
	rebuilds singleflight.Group
}

func NewAggregator(st store.Store, c clock.Clock, logger *zap.Logger, events telemetry.Recorder) *Aggregator {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = telemetry.Discard{}
	}
	return &Aggregator{st: st, clock: c, logger: logger, events: events}
}

// scores maps each task date of slug to its best score across variants.
func (a *Aggregator) scores(ctx context.Context, slug string) (map[string]int, error) {
	coll := store.Tasks(slug)
	keys, err := a.st.ListKeys(ctx, coll, "")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	out := make(map[string]int)
	for _, k := range keys {
		date, _, ok := model.ParseDayKey(k)
		if !ok {
			continue
		}
		var t struct {
			Score int `json:"score"`
		}
		if err := store.GetJSON(ctx, a.st, coll, k, &t); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if cur, seen := out[date]; !seen || t.Score > cur {
			out[date] = t.Score
		}
	}
	return out, nil
}

// Refresh recomputes the derived records of slug from scratch.
func (a *Aggregator) Refresh(ctx context.Context, slug string) error {
	_, err := a.rebuild(ctx, slug)
	return err
}

func (a *Aggregator) rebuild(ctx context.Context, slug string) (View, error) {
	scores, err := a.scores(ctx, slug)
	if err != nil {
		return View{}, err
	}
	cal, st := Build(scores, a.clock.Now())

	coll := store.Grass(slug)
	if err := store.PutJSON(ctx, a.st, coll, calendarKey, cal); err != nil {
		return View{}, err
	}
	if err := store.PutJSON(ctx, a.st, coll, statsKey, st); err != nil {
		return View{}, err
	}
	_ = a.events.RecordEvent(telemetry.EventGrassRefreshed, telemetry.EventMetadata{
		"practice": slug, "streak": st.Streak, "totals": st.Totals,
	})
	a.logger.Debug("grass refreshed",
		zap.String("practice", slug),
		zap.Int("streak", st.Streak),
		zap.Int("totals", st.Totals))
	return View{Calendar: cal, Stats: st}, nil
}

// Read returns the derived records of slug. They are rebuilt when missing or
// when the calendar window ends on an earlier day.
func (a *Aggregator) Read(ctx context.Context, slug string) (View, error) {
	coll := store.Grass(slug)
	var v View
	calErr := store.GetJSON(ctx, a.st, coll, calendarKey, &v.Calendar)
	statErr := store.GetJSON(ctx, a.st, coll, statsKey, &v.Stats)

	if calErr == nil && statErr == nil && v.AsOf == clock.Today(a.clock) {
		return v, nil
	}
	for _, err := range []error{calErr, statErr} {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return View{}, err
		}
	}

	res, err, _ := a.rebuilds.Do(slug, func() (any, error) {
		return a.rebuild(ctx, slug)
	})
	if err != nil {
		return View{}, err
	}
	return res.(View), nil
}

// RefreshAll refreshes every slug concurrently and returns the first error.
func (a *Aggregator) RefreshAll(ctx context.Context, slugs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshAllLimit)
	for _, slug := range slugs {
		g.Go(func() error {
			if err := a.Refresh(ctx, slug); err != nil {
				return fmt.Errorf("refresh %s: %w", slug, err)
			}
			return nil
		})
	}
	return g.Wait()
}
