// Package grader scores free-form answers to problem tasks with a text model.
package grader

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/llm"
	"github.com/Leumas-Tech/leumas-education/internal/model"

	"go.uber.org/zap"
)

// CouldNotParse is the feedback recorded when no usable score came back.
const CouldNotParse = "Could not parse."

const contextCharsMax = 1500

type Context struct {
	Steps    []model.Step    `json:"steps"`
	Brief    string          `json:"brief"`
	Exercise *model.Exercise `json:"exercise"`
}

type Request struct {
	Kind    model.ProblemKind
	Prompt  string
	Answer  string
	Context Context
}

// Result is what the grader returned. Score is nil when the reply carried no
// number at all; callers still need to range-check a non-nil Score.
type Result struct {
	Score    *float64
	Feedback string
	Solution string
}

// Valid reports whether Score is a finite number in [0,1].
func (r Result) Valid() bool {
	if r.Score == nil {
		return false
	}
	s := *r.Score
	return !math.IsNaN(s) && !math.IsInf(s, 0) && s >= 0 && s <= 1
}

type Grader interface {
	Grade(ctx context.Context, req Request) (Result, error)
}

const strictSystem = `You are a strict, fair grader.
Return ONLY JSON:
{"score": number (0..1), "feedback": string (<= 120 chars), "solution": string}
Rules:
- score 1.0 fully correct; 0.7 mostly correct; 0.4 partial; 0 incorrect.
- "solution" MUST contain a correct reference answer.
- If kind="code": provide a minimal correct implementation as a code block (language inferred).
- If kind="math": show steps and final numeric/symbolic result.
- If kind="concept": provide a clear 2-4 sentence ideal answer.`

const reminderSystem = `Return ONLY a single JSON object with keys: score, feedback, solution. NO MARKDOWN, NO EXTRA TEXT.`

// LLMGrader asks the model twice at most: once with the grading rubric and,
// if that reply does not parse, once more with a bare JSON reminder.
type LLMGrader struct {
	client llm.Client
	logger *zap.Logger
}

func NewLLMGrader(client llm.Client, logger *zap.Logger) *LLMGrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMGrader{client: client, logger: logger}
}

func (g *LLMGrader) Grade(ctx context.Context, req Request) (Result, error) {
	user := userPrompt(req)

	for pass, system := range []string{strictSystem, reminderSystem} {
		content, err := g.client.Complete(ctx, llm.Request{
			System:   system,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
			JSON:     true,
		})
		if err != nil {
			return Result{}, err
		}
		res, err := parseResult(content)
		if err == nil {
			return res, nil
		}
		g.logger.Debug("grader reply did not parse",
			zap.Int("pass", pass+1),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
	}
	return Result{Feedback: CouldNotParse}, nil
}

func userPrompt(req Request) string {
	ctxJSON, _ := json.Marshal(req.Context)
	c := string(ctxJSON)
	if len(c) > contextCharsMax {
		c = strings.ToValidUTF8(c[:contextCharsMax], "")
	}
	var b strings.Builder
	b.WriteString("Kind: ")
	b.WriteString(string(req.Kind))
	b.WriteString("\nPrompt: ")
	b.WriteString(req.Prompt)
	b.WriteString("\nStudentAnswer: ")
	b.WriteString(req.Answer)
	b.WriteString("\nContext: ")
	b.WriteString(c)
	return b.String()
}

type rawResult struct {
	Score    json.RawMessage `json:"score"`
	Feedback any             `json:"feedback"`
	Solution any             `json:"solution"`
}

var errNoObject = errors.New("reply has no JSON object")

func parseResult(content string) (Result, error) {
	var raw rawResult
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return Result{}, err
	}
	if raw.Score == nil && raw.Feedback == nil && raw.Solution == nil {
		return Result{}, errNoObject
	}
	return Result{
		Score:    decodeScore(raw.Score),
		Feedback: asText(raw.Feedback),
		Solution: asText(raw.Solution),
	}, nil
}

// decodeScore accepts 0.8 and "0.8"; anything else is nil.
func decodeScore(b json.RawMessage) *float64 {
	if len(b) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
