package model

import (
	"encoding/json"
	"fmt"
	"math"
)

type AcceptanceType string

const (
	AcceptCheckbox AcceptanceType = "checkbox"
	AcceptMinutes  AcceptanceType = "minutes"
	AcceptText     AcceptanceType = "text"
	AcceptQuiz     AcceptanceType = "quiz"
	AcceptProblem  AcceptanceType = "problem"
)

type ProblemKind string

const (
	ProblemMath    ProblemKind = "math"
	ProblemCode    ProblemKind = "code"
	ProblemConcept ProblemKind = "concept"
)

const (
	DefaultQuizMinScore    = 0.6
	DefaultProblemMinScore = 0.7
)

// AcceptanceRule is the closed set of ways a task can be verified:
// Checkbox, Minutes, Text, QuizCheck and Problem.
type AcceptanceRule interface {
	AcceptanceType() AcceptanceType
	acceptanceRule()
}

type Checkbox struct{}

type Minutes struct {
	Baseline float64
}

type Text struct {
	MinWords int
}

type QuizCheck struct {
	MinScore float64
}

type Problem struct {
	MinScore float64
	Kind     ProblemKind
	Prompt   string
}

func (Checkbox) AcceptanceType() AcceptanceType  { return AcceptCheckbox }
func (Minutes) AcceptanceType() AcceptanceType   { return AcceptMinutes }
func (Text) AcceptanceType() AcceptanceType      { return AcceptText }
func (QuizCheck) AcceptanceType() AcceptanceType { return AcceptQuiz }
func (Problem) AcceptanceType() AcceptanceType   { return AcceptProblem }

func (Checkbox) acceptanceRule()  {}
func (Minutes) acceptanceRule()   {}
func (Text) acceptanceRule()      {}
func (QuizCheck) acceptanceRule() {}
func (Problem) acceptanceRule()   {}

// Threshold returns MinScore, or the quiz default when unset.
func (q QuizCheck) Threshold() float64 {
	if q.MinScore <= 0 {
		return DefaultQuizMinScore
	}
	return q.MinScore
}

// Threshold returns MinScore, or the problem default when unset.
func (p Problem) Threshold() float64 {
	if p.MinScore <= 0 {
		return DefaultProblemMinScore
	}
	return p.MinScore
}

// Acceptance carries one AcceptanceRule. A nil Rule means the candidate was untagged.
type Acceptance struct {
	Rule AcceptanceRule
}

func Accept(rule AcceptanceRule) Acceptance {
	return Acceptance{Rule: rule}
}

func (a Acceptance) Tagged() bool {
	return a.Rule != nil
}

func (a Acceptance) Type() AcceptanceType {
	if a.Rule == nil {
		return ""
	}
	return a.Rule.AcceptanceType()
}

// acceptanceWire is the tagged JSON form, e.g. {"type":"minutes","baseline":20}.
type acceptanceWire struct {
	Type     AcceptanceType `json:"type"`
	Baseline float64        `json:"baseline,omitempty"`
	MinWords float64        `json:"minWords,omitempty"`
	MinScore float64        `json:"minScore,omitempty"`
	Kind     ProblemKind    `json:"kind,omitempty"`
	Prompt   string         `json:"prompt,omitempty"`
}

func (a Acceptance) MarshalJSON() ([]byte, error) {
	var w acceptanceWire
	switch r := a.Rule.(type) {
	case nil:
		return []byte("null"), nil
	case Checkbox:
		w = acceptanceWire{Type: AcceptCheckbox}
	case Minutes:
		w = acceptanceWire{Type: AcceptMinutes, Baseline: r.Baseline}
	case Text:
		w = acceptanceWire{Type: AcceptText, MinWords: float64(r.MinWords)}
	case QuizCheck:
		w = acceptanceWire{Type: AcceptQuiz, MinScore: r.MinScore}
	case Problem:
		w = acceptanceWire{Type: AcceptProblem, MinScore: r.MinScore, Kind: r.Kind, Prompt: r.Prompt}
	default:
		return nil, fmt.Errorf("unknown acceptance rule %T", r)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the tagged form. Unknown tags decode to an untagged Acceptance.
func (a *Acceptance) UnmarshalJSON(b []byte) error {
	a.Rule = nil
	if string(b) == "null" {
		return nil
	}
	var w acceptanceWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case AcceptCheckbox:
		a.Rule = Checkbox{}
	case AcceptMinutes:
		a.Rule = Minutes{Baseline: w.Baseline}
	case AcceptText:
		a.Rule = Text{MinWords: int(math.Round(w.MinWords))}
	case AcceptQuiz:
		a.Rule = QuizCheck{MinScore: w.MinScore}
	case AcceptProblem:
		a.Rule = Problem{MinScore: w.MinScore, Kind: w.Kind, Prompt: w.Prompt}
	}
	return nil
}
