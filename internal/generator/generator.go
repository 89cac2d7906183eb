// Package generator produces candidate task content for a practice day.
// Output is untrusted: the task package normalizes it before storing.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/llm"
	"github.com/Leumas-Tech/leumas-education/internal/model"

	"go.uber.org/zap"
)

type Request struct {
	Kind   model.Kind
	Title  string
	Date   string
	User   model.User
	Config model.PracticeConfig
	Better bool
	// Variant biases the model away from earlier same-day content.
	Variant int
	// Avoid holds signatures of recent tasks that must not be repeated.
	Avoid []string
}

type Content struct {
	Title      string
	Brief      string
	Exercise   *model.Exercise
	Steps      []model.Step
	Acceptance model.Acceptance
	Quiz       *model.Quiz
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Content, error)
}

// LLMGenerator asks a text model for task content as JSON.
type LLMGenerator struct {
	client llm.Client
	logger *zap.Logger
}

func NewLLMGenerator(client llm.Client, logger *zap.Logger) *LLMGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMGenerator{client: client, logger: logger}
}

type rawContent struct {
	Title      string          `json:"title"`
	Brief      string          `json:"brief"`
	Exercise   json.RawMessage `json:"exercise"`
	Steps      json.RawMessage `json:"steps"`
	Acceptance json.RawMessage `json:"acceptance"`
	Quiz       json.RawMessage `json:"quiz"`
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	system, user := Prompt(req)

	var raw rawContent
	if err := llm.CompleteJSON(ctx, g.client, system, user, schemaHint, &raw); err != nil {
		return Content{}, fmt.Errorf("generate %s task: %w", req.Kind, err)
	}

	out := Content{
		Title:      strings.TrimSpace(raw.Title),
		Brief:      strings.TrimSpace(raw.Brief),
		Exercise:   decodeExercise(raw.Exercise),
		Steps:      decodeSteps(raw.Steps),
		Acceptance: decodeAcceptance(raw.Acceptance),
		Quiz:       decodeQuiz(raw.Quiz),
	}
	if out.Title == "" {
		out.Title = DefaultTitle(req.Title, req.Date)
	}
	if len(out.Steps) == 0 {
		out.Steps = DefaultSteps()
	}
	if req.Kind == model.KindStudy {
		if out.Exercise == nil {
			ex := SumExercise()
			out.Exercise = &ex
		}
		kind := model.ProblemCode
		if p, ok := out.Acceptance.Rule.(model.Problem); ok && p.Kind == model.ProblemMath {
			kind = model.ProblemMath
		}
		out.Acceptance = model.Accept(model.Problem{
			MinScore: model.DefaultProblemMinScore,
			Kind:     kind,
			Prompt:   out.Exercise.Instructions,
		})
	}
	g.logger.Debug("generated task content",
		zap.String("kind", string(req.Kind)),
		zap.String("date", req.Date),
		zap.Int("variant", req.Variant),
		zap.Bool("better", req.Better),
		zap.Int("avoid", len(req.Avoid)))
	return out, nil
}

func decodeExercise(b json.RawMessage) *model.Exercise {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var ex model.Exercise
	if err := json.Unmarshal(b, &ex); err != nil {
		return nil
	}
	return &ex
}

// decodeSteps accepts both ["label", ...] and [{"label":..., "code":...}, ...].
func decodeSteps(b json.RawMessage) []model.Step {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	out := make([]model.Step, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, model.Step{Label: s})
			}
			continue
		}
		var st model.Step
		if err := json.Unmarshal(it, &st); err == nil && strings.TrimSpace(st.Label) != "" {
			out = append(out, model.Step{Label: strings.TrimSpace(st.Label), Code: st.Code})
		}
	}
	return out
}

func decodeAcceptance(b json.RawMessage) model.Acceptance {
	var a model.Acceptance
	if len(b) == 0 {
		return a
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return model.Acceptance{}
	}
	return a
}

func decodeQuiz(b json.RawMessage) *model.Quiz {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var q model.Quiz
	if err := json.Unmarshal(b, &q); err != nil || strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
		return nil
	}
	return &q
}

// Static always returns the deterministic fallback content.
type Static struct{}

func (Static) Generate(_ context.Context, req Request) (Content, error) {
	return Fallback(req), nil
}
