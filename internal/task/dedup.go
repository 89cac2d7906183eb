package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"go.uber.org/zap"
)

// DedupPolicy bounds how hard generateUnique tries to avoid recent content
// before it settles for whatever the fallback attempt produces.
type DedupPolicy struct {
	// LookbackDays and AvoidCap bound the avoid set for regular attempts.
	LookbackDays int
	AvoidCap     int
	// HintCap bounds how many signatures are sent to the generator.
	HintCap     int
	MaxAttempts int
	// BetterFromAttempt is the zero-based attempt from which better is forced.
	BetterFromAttempt int
	Fallback          FallbackPolicy
}

// FallbackPolicy shapes the final attempt, which is kept even if it collides.
type FallbackPolicy struct {
	LookbackDays  int
	AvoidCap      int
	VariantOffset int
}

func DefaultDedupPolicy() DedupPolicy {
	return DedupPolicy{
		LookbackDays:      45,
		AvoidCap:          60,
		HintCap:           50,
		MaxAttempts:       4,
		BetterFromAttempt: 2,
		Fallback: FallbackPolicy{
			LookbackDays:  90,
			AvoidCap:      80,
			VariantOffset: 99,
		},
	}
}

// AttemptPlan is one generator call.
type AttemptPlan struct {
	Variant int
	Better  bool
	// Final marks the fallback attempt: its result is kept unconditionally.
	Final bool
}

// Plan lists the generator calls for a task at index, in order. The last
// entry is always Final, so len(Plan) is MaxAttempts+1.
func (p DedupPolicy) Plan(index int, better bool) []AttemptPlan {
	out := make([]AttemptPlan, 0, p.MaxAttempts+1)
	for i := 0; i < p.MaxAttempts; i++ {
		out = append(out, AttemptPlan{
			Variant: index + i,
			Better:  better || i >= p.BetterFromAttempt,
		})
	}
	return append(out, AttemptPlan{
		Variant: index + p.Fallback.VariantOffset,
		Better:  true,
		Final:   true,
	})
}

// avoidSet holds recent signatures, newest first.
type avoidSet struct {
	list []string
	seen map[string]bool
}

func (a avoidSet) has(sig string) bool { return a.seen[sig] }

func (a avoidSet) head(n int) []string {
	if n >= 0 && len(a.list) > n {
		return a.list[:n]
	}
	return a.list
}

// buildAvoidSet reads the signatures of slug's tasks dated within days of
// today. Positions are scanned newest first, so the cap keeps the most
// recent signatures.
func (s *Service) buildAvoidSet(ctx context.Context, slug string, days, limit int) (avoidSet, error) {
	set := avoidSet{seen: map[string]bool{}}
	locs, err := s.repo.Positions(ctx, slug, "")
	if err != nil {
		return set, err
	}
	cutoff := clock.DaysBefore(s.clock.Now(), days)

	for i := len(locs) - 1; i >= 0 && len(set.list) < limit; i-- {
		l := locs[i]
		if l.Date < cutoff {
			break
		}
		t, err := s.repo.Load(ctx, slug, l.Date, l.Index)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return set, err
		}
		sig := Signature(t)
		if sig == "" || set.seen[sig] {
			continue
		}
		set.seen[sig] = true
		set.list = append(set.list, sig)
	}
	return set, nil
}

// generateUnique creates, persists and returns the task at (slug, date,
// index). It calls the generator at most MaxAttempts+1 times and always
// returns a task unless the store fails.
func (s *Service) generateUnique(ctx context.Context, p model.Practice, date string, index int, better bool) (model.Task, error) {
	avoid, err := s.buildAvoidSet(ctx, p.Slug, s.policy.LookbackDays, s.policy.AvoidCap)
	if err != nil {
		return model.Task{}, err
	}
	shape := shapeOf(p, date)

	for _, step := range s.policy.Plan(index, better) {
		hint := avoid.head(s.policy.HintCap)
		if step.Final {
			wide, err := s.buildAvoidSet(ctx, p.Slug, s.policy.Fallback.LookbackDays, s.policy.Fallback.AvoidCap)
			if err != nil {
				return model.Task{}, err
			}
			hint = wide.list
		}

		content := s.generate(ctx, generator.Request{
			Kind:    p.Kind,
			Title:   p.Title,
			Date:    date,
			User:    s.user,
			Config:  p.Config,
			Better:  step.Better,
			Variant: step.Variant,
			Avoid:   hint,
		}, p.Slug)

		t := Normalize(shape, model.Task{
			ID:         s.newID(),
			Date:       date,
			Practice:   p.Slug,
			Title:      content.Title,
			Brief:      content.Brief,
			Exercise:   content.Exercise,
			Steps:      content.Steps,
			Quiz:       content.Quiz,
			Acceptance: content.Acceptance,
			Status:     model.StatusPending,
			Attempts:   []model.Attempt{},
		})

		if !step.Final && avoid.has(Signature(t)) {
			_ = s.events.RecordEvent(telemetry.EventDedupCollision, telemetry.EventMetadata{
				"practice": p.Slug, "date": date, "index": index, "variant": step.Variant,
			})
			s.logger.Debug("generated task collides with recent content",
				zap.String("practice", p.Slug),
				zap.Int("index", index),
				zap.Int("variant", step.Variant))
			continue
		}

		if err := s.persistNew(ctx, p.Slug, date, index, t); err != nil {
			return model.Task{}, err
		}
		_ = s.events.RecordEvent(telemetry.EventTaskCreated, telemetry.EventMetadata{
			"practice": p.Slug, "date": date, "index": index, "variant": step.Variant, "final": step.Final,
		})
		s.logger.Info("task created",
			zap.String("practice", p.Slug),
			zap.String("date", date),
			zap.Int("index", index),
			zap.String("id", t.ID))
		return t, nil
	}
	// Plan always ends with a Final attempt.
	return model.Task{}, fmt.Errorf("dedup policy for %s has no final attempt", p.Slug)
}

// generate never fails: collaborator errors yield the fallback template.
func (s *Service) generate(ctx context.Context, req generator.Request, slug string) generator.Content {
	c, err := s.gen.Generate(ctx, req)
	if err == nil {
		return c
	}
	s.logger.Warn("generator failed, using fallback content",
		zap.String("practice", slug),
		zap.Int("variant", req.Variant),
		zap.Error(err))
	_ = s.events.RecordEvent(telemetry.EventGeneratorFallback, telemetry.EventMetadata{
		"practice": slug, "date": req.Date, "variant": req.Variant,
	})
	return generator.Fallback(req)
}

func (s *Service) persistNew(ctx context.Context, slug, date string, index int, t model.Task) error {
	if err := s.repo.Save(ctx, slug, date, index, t); err != nil {
		return err
	}
	if err := s.repo.PutLocation(ctx, t.ID, Location{Practice: slug, Date: date, Index: index}); err != nil {
		return err
	}
	return s.grass.Refresh(ctx, slug)
}
