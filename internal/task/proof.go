package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/grader"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"go.uber.org/zap"
)

// Proof is a self-reported submission for a non-problem task.
type Proof struct {
	Type    string        `json:"type"`
	Payload model.Payload `json:"payload"`
}

type ProofResult struct {
	Task     model.Task `json:"task"`
	Practice string     `json:"practice"`
	Accepted bool       `json:"accepted"`
	Feedback string     `json:"feedback"`
}

type GradeResult struct {
	Task     model.Task        `json:"task"`
	Practice string            `json:"practice"`
	Auto     model.GradeDetail `json:"auto"`
}

const (
	defaultMinutesBaseline = 10
	defaultTextMinWords    = 40
)

// Verdict judges p against rule. An untagged acceptance is a checkbox.
// Problem rules are graded through GradeAndSubmit and rejected here.
func Verdict(rule model.AcceptanceRule, p model.Payload) (accepted bool, score int, feedback string, err error) {
	switch r := rule.(type) {
	case model.Minutes:
		base := r.Baseline
		if base <= 0 {
			base = defaultMinutesBaseline
		}
		mins := 0.0
		if p.Minutes != nil {
			mins = *p.Minutes
		}
		if mins >= base {
			score = 2
			if mins >= 2*base {
				score = 4
			}
			return true, score, fmt.Sprintf("Accepted — %s/%s minutes logged.", num(mins), num(base)), nil
		}
		return false, 0, fmt.Sprintf("Denied — need at least %s minutes; you logged %s.", num(base), num(mins)), nil

	case model.Text:
		req := r.MinWords
		if req <= 0 {
			req = defaultTextMinWords
		}
		words := len(strings.Fields(p.Text))
		if words >= req {
			score = 2
			if words >= req*3/2 {
				score = 3
			}
			return true, score, fmt.Sprintf("Accepted — %d words (min %d).", words, req), nil
		}
		return false, 0, fmt.Sprintf("Denied — %d words; need at least %d.", words, req), nil

	case model.QuizCheck:
		total := 1.0
		if p.Total != nil && *p.Total != 0 {
			total = *p.Total
		}
		correct := 0.0
		if p.Correct != nil {
			correct = *p.Correct
		}
		ratio := correct / total
		min := r.Threshold()
		if ratio >= min {
			switch {
			case ratio >= 0.9:
				score = 4
			case ratio >= 0.75:
				score = 3
			default:
				score = 2
			}
			return true, score, fmt.Sprintf("Accepted — %s/%s correct.", num(correct), num(total)), nil
		}
		return false, 0, fmt.Sprintf("Denied — %s/%s correct (min %d%%).", num(correct), num(total), int(math.Round(min*100))), nil

	case model.Checkbox, nil:
		if p.Checked {
			return true, 1, "Accepted.", nil
		}
		return false, 0, "Denied — please check the box when done.", nil

	case model.Problem:
		return false, 0, "", fmt.Errorf("%w: problem tasks are graded, submit an answer instead", ErrValidation)

	default:
		return false, 0, "", fmt.Errorf("%w: unknown acceptance %T", ErrValidation, rule)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ProblemScore maps a grader score to the stored task score.
func ProblemScore(parsed, min float64) (passed bool, score int) {
	if parsed < min {
		return false, 0
	}
	switch {
	case parsed >= 0.9:
		return true, 4
	case parsed >= 0.8:
		return true, 3
	default:
		return true, 2
	}
}

// locate finds today's task with id. The id index is consulted first; a
// miss, or an entry from another day, falls back to scanning today's
// positions of every configured practice.
func (s *Service) locate(ctx context.Context, id string) (Location, error) {
	if !slugRe.MatchString(id) {
		return Location{}, ErrTaskNotFound
	}
	date := s.Today()

	loc, ok, err := s.repo.Location(ctx, id)
	if err != nil {
		return Location{}, err
	}
	if ok && loc.Date == date {
		t, err := s.repo.Load(ctx, loc.Practice, loc.Date, loc.Index)
		if err == nil && t.ID == id {
			return loc, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Location{}, err
		}
	}

	for _, slug := range s.order {
		indexes, err := s.repo.DayIndexes(ctx, slug, date)
		if err != nil {
			return Location{}, err
		}
		for _, i := range indexes {
			t, err := s.repo.Load(ctx, slug, date, i)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return Location{}, err
			}
			if t.ID == id {
				return Location{Practice: slug, Date: date, Index: i}, nil
			}
		}
	}
	return Location{}, ErrTaskNotFound
}

// loadLocked finds id and returns it with its practice lock held.
func (s *Service) loadLocked(ctx context.Context, id string) (Location, model.Task, func(), error) {
	loc, err := s.locate(ctx, id)
	if err != nil {
		return Location{}, model.Task{}, nil, err
	}
	unlock := s.lock(loc.Practice)
	t, err := s.repo.Load(ctx, loc.Practice, loc.Date, loc.Index)
	if err == nil && t.ID != id {
		err = ErrTaskNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		err = ErrTaskNotFound
	}
	if err != nil {
		unlock()
		return Location{}, model.Task{}, nil, err
	}
	return loc, t, unlock, nil
}

// SubmitProof judges a self-reported proof for today's task id, appends the
// attempt and persists the task.
func (s *Service) SubmitProof(ctx context.Context, id string, proof Proof) (ProofResult, error) {
	loc, t, unlock, err := s.loadLocked(ctx, id)
	if err != nil {
		return ProofResult{}, err
	}
	defer unlock()

	accepted, score, feedback, err := Verdict(t.Acceptance.Rule, proof.Payload)
	if err != nil {
		return ProofResult{}, err
	}

	typ := proof.Type
	if typ == "" {
		typ = string(t.Acceptance.Type())
	}
	t.Status = model.StatusPending
	if accepted {
		t.Status = model.StatusDone
	}
	t.Score = score
	t.Attempts = append(t.Attempts, model.Attempt{
		At:       s.clock.Now(),
		Type:     typ,
		Payload:  proof.Payload,
		Score:    score,
		Passed:   accepted,
		Feedback: feedback,
	})

	if err := s.saveAndRefresh(ctx, loc, t); err != nil {
		return ProofResult{}, err
	}
	_ = s.events.RecordEvent(telemetry.EventProofSubmitted, telemetry.EventMetadata{
		"practice": loc.Practice, "type": typ, "accepted": accepted, "score": score,
	})
	s.logger.Info("proof submitted",
		zap.String("practice", loc.Practice),
		zap.String("id", id),
		zap.String("type", typ),
		zap.Bool("accepted", accepted),
		zap.Int("score", score))

	return ProofResult{Task: t, Practice: loc.Practice, Accepted: accepted, Feedback: feedback}, nil
}

// GradeAndSubmit has the grader score answer for today's problem task id.
// Grader failures are recorded as a failed attempt, never returned.
func (s *Service) GradeAndSubmit(ctx context.Context, id, answer string) (GradeResult, error) {
	loc, t, unlock, err := s.loadLocked(ctx, id)
	if err != nil {
		return GradeResult{}, err
	}
	defer unlock()

	rule, ok := t.Acceptance.Rule.(model.Problem)
	if !ok {
		return GradeResult{}, ErrNotProblem
	}
	kind := rule.Kind
	if kind == "" {
		kind = model.ProblemConcept
	}
	prompt := rule.Prompt
	if prompt == "" && t.Exercise != nil {
		prompt = t.Exercise.Instructions
	}
	if prompt == "" {
		prompt = studyPromptDefault
	}

	res := s.grade(ctx, loc.Practice, grader.Request{
		Kind:    kind,
		Prompt:  prompt,
		Answer:  answer,
		Context: grader.Context{Steps: t.Steps, Brief: t.Brief, Exercise: t.Exercise},
	})

	auto := model.GradeDetail{Feedback: grader.CouldNotParse}
	passed, score := false, 0
	if res.Valid() {
		auto.Score = *res.Score
		if res.Feedback != "" {
			auto.Feedback = res.Feedback
		}
		passed, score = ProblemScore(auto.Score, rule.Threshold())
	}

	t.Solution = res.Solution
	if t.Solution == "" && t.Exercise != nil {
		t.Solution = t.Exercise.AnswerKey
	}
	auto.Solution = t.Solution

	t.Status = model.StatusFailed
	if passed {
		t.Status = model.StatusDone
	}
	t.Score = score
	t.Attempts = append(t.Attempts, model.Attempt{
		At:       s.clock.Now(),
		Type:     string(model.AcceptProblem),
		Payload:  model.Payload{Answer: answer},
		Score:    score,
		Passed:   passed,
		Feedback: auto.Feedback,
		Auto:     &auto,
	})

	if err := s.saveAndRefresh(ctx, loc, t); err != nil {
		return GradeResult{}, err
	}
	_ = s.events.RecordEvent(telemetry.EventAnswerGraded, telemetry.EventMetadata{
		"practice": loc.Practice, "kind": string(kind), "passed": passed, "score": score,
	})
	s.logger.Info("answer graded",
		zap.String("practice", loc.Practice),
		zap.String("id", id),
		zap.Float64("auto_score", auto.Score),
		zap.Bool("passed", passed))

	return GradeResult{Task: t, Practice: loc.Practice, Auto: auto}, nil
}

func (s *Service) grade(ctx context.Context, slug string, req grader.Request) grader.Result {
	if s.grader == nil {
		return grader.Result{Feedback: grader.CouldNotParse}
	}
	res, err := s.grader.Grade(ctx, req)
	if err != nil {
		s.logger.Warn("grader failed, recording a failed attempt",
			zap.String("practice", slug),
			zap.Error(err))
		return grader.Result{Feedback: grader.CouldNotParse}
	}
	return res
}

func (s *Service) saveAndRefresh(ctx context.Context, loc Location, t model.Task) error {
	if err := s.repo.Save(ctx, loc.Practice, loc.Date, loc.Index, t); err != nil {
		return err
	}
	return s.grass.Refresh(ctx, loc.Practice)
}
