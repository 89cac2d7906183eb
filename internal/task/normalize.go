package task

import (
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/model"
)

// Shape is what Normalize needs to know about the practice a task belongs to.
type Shape struct {
	Kind   model.Kind
	Title  string
	Date   string
	Config model.PracticeConfig
}

func shapeOf(p model.Practice, date string) Shape {
	return Shape{Kind: p.Kind, Title: p.Title, Date: date, Config: p.Config}
}

const (
	studyPromptDefault = "Solve the exercise."
	microPromptDefault = "Answer the concept check clearly."
)

var defaultBriefs = map[model.Kind]string{
	model.KindStudy:    "Warm up on today's topic. Read the brief, then solve the 2-minute task.",
	model.KindMicro:    "Quick concept refresh. Read and answer the check question.",
	model.KindReligion: "Read the passage and write a short reflection.",
	model.KindFitness:  "Short yoga + strength sequence. Move safely.",
	model.KindHobby:    "Tiny focused drill to build skill via repetition.",
}

const genericBrief = "Tiny task: read, do, submit proof."

// Normalize forces t into the shape its practice kind requires. It has no
// side effects and Normalize(s, Normalize(s, t)) equals Normalize(s, t).
func Normalize(s Shape, t model.Task) model.Task {
	t.Brief = strings.TrimSpace(t.Brief)
	if t.Brief == "" {
		t.Brief = genericBrief
		if b, ok := defaultBriefs[s.Kind]; ok {
			t.Brief = b
		}
	}

	hasExercise := t.Exercise != nil &&
		(strings.TrimSpace(t.Exercise.Title) != "" || strings.TrimSpace(t.Exercise.Instructions) != "")
	if s.Kind == model.KindStudy && !hasExercise {
		ex := generator.SumExercise()
		t.Exercise = &ex
	}

	t.Acceptance = normalizeAcceptance(s, t)

	if len(t.Steps) < 2 {
		t.Steps = generator.DefaultSteps()
	}

	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		t.Title = generator.DefaultTitle(s.Title, s.Date)
	}
	if t.Attempts == nil {
		t.Attempts = []model.Attempt{}
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	return t
}

func normalizeAcceptance(s Shape, t model.Task) model.Acceptance {
	switch s.Kind {
	case model.KindStudy:
		kind := model.ProblemCode
		if p, ok := t.Acceptance.Rule.(model.Problem); ok && p.Kind == model.ProblemMath {
			kind = model.ProblemMath
		}
		prompt := studyPromptDefault
		if t.Exercise != nil && t.Exercise.Instructions != "" {
			prompt = t.Exercise.Instructions
		}
		return model.Accept(model.Problem{MinScore: model.DefaultProblemMinScore, Kind: kind, Prompt: prompt})

	case model.KindMicro:
		prompt := microPromptDefault
		if p, ok := t.Acceptance.Rule.(model.Problem); ok && p.Prompt != "" {
			prompt = p.Prompt
		}
		return model.Accept(model.Problem{MinScore: model.DefaultProblemMinScore, Kind: model.ProblemConcept, Prompt: prompt})

	case model.KindReligion:
		return model.Accept(model.Text{MinWords: s.Config.ReflectionWords()})

	case model.KindFitness:
		return model.Accept(model.Minutes{Baseline: float64(s.Config.FitnessBaseline())})

	case model.KindHobby:
		return model.Accept(model.Minutes{Baseline: float64(s.Config.HobbyBaseline())})

	default:
		if t.Acceptance.Tagged() {
			return t.Acceptance
		}
		return model.Accept(model.Checkbox{})
	}
}
