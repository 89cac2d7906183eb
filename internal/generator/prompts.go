package generator

import (
	"fmt"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/model"
)

const schemaHint = `type Task = {
  title: string;
  brief?: string;
  exercise?: { title: string, instructions: string, starterCode?: string, answerKey?: string };
  steps: { label: string, code?: string }[];
  acceptance:
    | { type: "checkbox" }
    | { type: "minutes", baseline: number }
    | { type: "text", minWords: number }
    | { type: "quiz", minScore: number }
    | { type: "problem", minScore: number, kind: "math" | "code" | "concept", prompt: string };
  quiz?: { q: string, options: string[], answerIndex: number };
}`

const (
	avoidListMax  = 20
	avoidCharsMax = 2000
)

// Prompt builds the system and user prompts for req.
func Prompt(req Request) (system, user string) {
	better := ""
	if req.Better {
		better = "\nProduce a stronger, more concrete micro-lesson than usual."
	}
	variant := fmt.Sprintf("This is variant #%d for today. Choose a different micro-focus than earlier variants and avoid repeating instructions.", req.Variant)
	avoid := avoidHint(req.Avoid)
	cfg := req.Config

	switch req.Kind {
	case model.KindFitness:
		system = "You are a certified trainer. JSON only."
		user = fmt.Sprintf(`Create a safe, concise Yoga + Muscle micro-workout for %s on %s.
%s
Return:
- title
- brief (<= 80 words)
- steps: 3-6 short labels
- acceptance: {type:"minutes", baseline:%d}%s%s`, req.User.Name, req.Date, variant, cfg.FitnessBaseline(), better, avoid)

	case model.KindStudy:
		topics := "Arrays, Loops, Algebra"
		if len(cfg.Topics) > 0 {
			topics = strings.Join(cfg.Topics, ", ")
		}
		system = "You are a senior JS & Math mentor. JSON only."
		user = fmt.Sprintf(`Make a 3-5 minute micro-lesson for %s on %s (date %s).
%s
Return:
- title
- brief (<= 120 words) explaining the concept(s)
- exercise { title, instructions (1-3 short lines), starterCode (<=12 lines if code), answerKey }
- steps: 3-6 concise steps
- acceptance: { type:"problem", minScore:0.7, kind:"code" or "math", prompt: the exact exercise statement to solve }%s%s`,
			req.User.Name, topics, req.Date, variant, better, avoid)

	case model.KindReligion:
		plan := cfg.Plan
		if plan == "" {
			plan = "Luke"
		}
		system = "You are a concise Bible study guide. JSON only."
		user = fmt.Sprintf(`Plan: %s. Date %s.
%s
Return:
- title
- brief (<= 80 words) with today's reading
- steps: 2-4 bullets (include 2 reflection prompts)
- acceptance: {type:"text", minWords:%d}%s%s`, plan, req.Date, variant, cfg.ReflectionWords(), better, avoid)

	case model.KindMicro:
		topic := "atoms"
		if len(cfg.Syllabus) > 0 {
			topic = cfg.Syllabus[0]
		}
		system = "You are a chemistry tutor. JSON only."
		user = fmt.Sprintf(`Topic %s. Date %s.
%s
Return:
- title
- brief (<= 120 words) explaining the core idea
- exercise { title, instructions, answerKey }
- steps: 3-5 concise bullets
- acceptance: { type:"problem", minScore:0.7, kind:"concept", prompt: a precise single-question check }%s%s`,
			topic, req.Date, variant, better, avoid)

	case model.KindHobby:
		system = "You are a hobby coach. JSON only."
		user = fmt.Sprintf(`Ukulele or Rubik's Cube drill. Date %s.
%s
Return:
- title
- brief (<=60 words)
- steps: 3-6 concise drill steps
- acceptance: { type:"minutes", baseline:%d }%s%s`, req.Date, variant, cfg.HobbyBaseline(), better, avoid)

	default:
		system = "You are a helpful coach. JSON only."
		user = fmt.Sprintf(`Create a tiny task for %s on %s with brief, exercise, steps, and a concrete acceptance.
%s%s%s`, req.User.Name, req.Date, variant, better, avoid)
	}
	return system, user
}

func avoidHint(avoid []string) string {
	if len(avoid) == 0 {
		return ""
	}
	if len(avoid) > avoidListMax {
		avoid = avoid[:avoidListMax]
	}
	list := strings.Join(avoid, "\n- ")
	if len(list) > avoidCharsMax {
		list = strings.ToValidUTF8(list[:avoidCharsMax], "")
	}
	return "\nDo NOT repeat or closely paraphrase any of these prior prompts/themes:\n- " + list
}
