// Package task owns the daily task lifecycle: creating today's task for a
// practice without repeating recent content, normalizing its shape, and
// judging the proof a user submits against it.
package task

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/grader"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTaskNotFound = errors.New("task not found for today")
	ErrNotProblem   = errors.New("this task is not a problem type")
	ErrValidation   = errors.New("invalid submission")
	ErrBadPractice  = errors.New("invalid practice slug")
)

// Refresher rebuilds the derived heatmap records of a practice.
type Refresher interface {
	Refresh(ctx context.Context, slug string) error
}

type Deps struct {
	Store     store.Store
	Practices []model.Practice
	User      model.User
	Generator generator.Generator
	Grader    grader.Grader
	Grass     Refresher
	Clock     clock.Clock
	Logger    *zap.Logger
	Events    telemetry.Recorder
	Policy    *DedupPolicy
	// NewID overrides task id generation; UUIDv7 by default.
	NewID func() string
}

type Service struct {
	repo      *Repo
	practices map[string]model.Practice
	order     []string
	user      model.User
	gen       generator.Generator
	grader    grader.Grader
	grass     Refresher
	clock     clock.Clock
	logger    *zap.Logger
	events    telemetry.Recorder
	policy    DedupPolicy
	newID     func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:      NewRepo(d.Store),
		practices: make(map[string]model.Practice, len(d.Practices)),
		user:      d.User,
		gen:       d.Generator,
		grader:    d.Grader,
		grass:     d.Grass,
		clock:     d.Clock,
		logger:    d.Logger,
		events:    d.Events,
		policy:    DefaultDedupPolicy(),
		newID:     d.NewID,
		locks:     map[string]*sync.Mutex{},
	}
	for _, p := range d.Practices {
		s.practices[p.Slug] = p
		s.order = append(s.order, p.Slug)
	}
	if d.Policy != nil {
		s.policy = *d.Policy
	}
	if s.gen == nil {
		s.gen = generator.Static{}
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = telemetry.Discard{}
	}
	if s.grass == nil {
		s.grass = noRefresh{}
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	return s
}

type noRefresh struct{}

func (noRefresh) Refresh(context.Context, string) error { return nil }

func (s *Service) Repo() *Repo { return s.repo }

func (s *Service) Today() string { return clock.Today(s.clock) }

// Practices returns the configured practices in configuration order.
func (s *Service) Practices() []model.Practice {
	out := make([]model.Practice, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.practices[slug])
	}
	return out
}

var slugRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Practice resolves slug; unconfigured slugs are generic practices.
func (s *Service) Practice(slug string) (model.Practice, error) {
	if !slugRe.MatchString(slug) {
		return model.Practice{}, fmt.Errorf("%w: %q", ErrBadPractice, slug)
	}
	if p, ok := s.practices[slug]; ok {
		return p, nil
	}
	return model.UnknownPractice(slug), nil
}

// lock serializes read-modify-write on one practice's records.
func (s *Service) lock(slug string) func() {
	s.mu.Lock()
	m, ok := s.locks[slug]
	if !ok {
		m = &sync.Mutex{}
		s.locks[slug] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// GetOrCreateToday returns today's task for slug, creating the first one if
// none exists. With wantLatest the newest variant is returned and re-persisted
// only if normalization changed it; otherwise the first variant is returned
// as stored.
func (s *Service) GetOrCreateToday(ctx context.Context, slug string, wantLatest bool) (model.Task, error) {
	p, err := s.Practice(slug)
	if err != nil {
		return model.Task{}, err
	}
	defer s.lock(slug)()

	date := s.Today()
	indexes, err := s.repo.DayIndexes(ctx, slug, date)
	if err != nil {
		return model.Task{}, err
	}
	if len(indexes) == 0 {
		return s.generateUnique(ctx, p, date, 1, false)
	}

	index := indexes[0]
	if wantLatest {
		index = indexes[len(indexes)-1]
	}
	existing, err := s.repo.Load(ctx, slug, date, index)
	if err != nil {
		return model.Task{}, err
	}
	if !wantLatest {
		return existing, nil
	}

	hydrated := Normalize(shapeOf(p, date), existing)
	if cmp.Equal(hydrated, existing, cmpopts.EquateEmpty()) {
		return existing, nil
	}
	s.logger.Info("re-normalized stored task",
		zap.String("practice", slug),
		zap.String("date", date),
		zap.Int("index", index))
	if err := s.repo.Save(ctx, slug, date, index, hydrated); err != nil {
		return model.Task{}, err
	}
	if err := s.grass.Refresh(ctx, slug); err != nil {
		return model.Task{}, err
	}
	return hydrated, nil
}

// CreateNext adds another task for today at the next free index. better
// nudges the generator toward a stronger lesson; it does not change indexing.
func (s *Service) CreateNext(ctx context.Context, slug string, better bool) (model.Entry, error) {
	p, err := s.Practice(slug)
	if err != nil {
		return model.Entry{}, err
	}
	defer s.lock(slug)()

	date := s.Today()
	indexes, err := s.repo.DayIndexes(ctx, slug, date)
	if err != nil {
		return model.Entry{}, err
	}
	next := 1
	if n := len(indexes); n > 0 {
		next = indexes[n-1] + 1
	}
	t, err := s.generateUnique(ctx, p, date, next, better)
	if err != nil {
		return model.Entry{}, err
	}
	return model.Entry{Index: next, Task: t}, nil
}

// ListToday returns today's variants for slug ordered by index.
func (s *Service) ListToday(ctx context.Context, slug string) ([]model.Entry, error) {
	if _, err := s.Practice(slug); err != nil {
		return nil, err
	}
	date := s.Today()
	indexes, err := s.repo.DayIndexes(ctx, slug, date)
	if err != nil {
		return nil, err
	}
	out := make([]model.Entry, 0, len(indexes))
	for _, i := range indexes {
		t, err := s.repo.Load(ctx, slug, date, i)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, model.Entry{Index: i, Task: t})
	}
	return out, nil
}

// HistoryItem is a past task as listed by History.
type HistoryItem struct {
	ID         string           `json:"id"`
	Date       string           `json:"date"`
	Index      int              `json:"index"`
	Title      string           `json:"title"`
	Practice   string           `json:"practice"`
	Status     model.Status     `json:"status"`
	Score      int              `json:"score"`
	Brief      string           `json:"brief"`
	Exercise   *model.Exercise  `json:"exercise"`
	Acceptance model.Acceptance `json:"acceptance"`
	Attempts   []model.Attempt  `json:"attempts"`
	Solution   string           `json:"solution"`
}

const (
	DefaultHistoryDays = 60
	DefaultHistoryMax  = 200
)

// History lists slug's tasks from the last days days, newest date first and
// by index within a day, at most max items.
func (s *Service) History(ctx context.Context, slug string, days, max int) ([]HistoryItem, error) {
	if _, err := s.Practice(slug); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultHistoryDays
	}
	if max <= 0 {
		max = DefaultHistoryMax
	}
	locs, err := s.repo.Positions(ctx, slug, "")
	if err != nil {
		return nil, err
	}
	cutoff := clock.DaysBefore(s.clock.Now(), days)

	items := make([]HistoryItem, 0)
	for _, l := range locs {
		if l.Date < cutoff {
			continue
		}
		t, err := s.repo.Load(ctx, slug, l.Date, l.Index)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		solution := t.Solution
		if solution == "" && t.Exercise != nil {
			solution = t.Exercise.AnswerKey
		}
		attempts := t.Attempts
		if attempts == nil {
			attempts = []model.Attempt{}
		}
		practice := t.Practice
		if practice == "" {
			practice = slug
		}
		items = append(items, HistoryItem{
			ID:         t.ID,
			Date:       l.Date,
			Index:      l.Index,
			Title:      t.Title,
			Practice:   practice,
			Status:     t.Status,
			Score:      t.Score,
			Brief:      t.Brief,
			Exercise:   t.Exercise,
			Acceptance: t.Acceptance,
			Attempts:   attempts,
			Solution:   solution,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date > items[j].Date
		}
		return items[i].Index < items[j].Index
	})
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}
