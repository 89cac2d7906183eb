package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

type Exercise struct {
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	StarterCode  string `json:"starterCode,omitempty"`
	AnswerKey    string `json:"answerKey,omitempty"`
}

type Step struct {
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
}

// Quiz is an optional single multiple-choice question attached to a task.
type Quiz struct {
	Question    string   `json:"q"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
}

// Payload is the raw submission attached to an attempt.
type Payload struct {
	Minutes *float64 `json:"minutes,omitempty"`
	Text    string   `json:"text,omitempty"`
	Correct *float64 `json:"correct,omitempty"`
	Total   *float64 `json:"total,omitempty"`
	Checked bool     `json:"checked,omitempty"`
	Answer  string   `json:"answer,omitempty"`
}

type GradeDetail struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Solution string  `json:"solution"`
}

// Attempt is appended on each submission and never mutated afterwards.
type Attempt struct {
	At       time.Time    `json:"ts"`
	Type     string       `json:"type"`
	Payload  Payload      `json:"payload"`
	Score    int          `json:"score"`
	Passed   bool         `json:"passed"`
	Feedback string       `json:"feedback,omitempty"`
	Auto     *GradeDetail `json:"auto,omitempty"`
}

type Task struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"`
	Practice   string     `json:"practice"`
	Title      string     `json:"title"`
	Brief      string     `json:"brief"`
	Exercise   *Exercise  `json:"exercise"`
	Steps      []Step     `json:"steps"`
	Quiz       *Quiz      `json:"quiz"`
	Acceptance Acceptance `json:"acceptance"`
	Status     Status     `json:"status"`
	Score      int        `json:"score"`
	Solution   string     `json:"solution,omitempty"`
	Attempts   []Attempt  `json:"attempts"`
}

// Entry is a task together with its same-day sequence index.
type Entry struct {
	Index int  `json:"index"`
	Task  Task `json:"task"`
}

var dayKeyRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:--(\d+))?$`)

// DayKey is the record key for (date, index): "2025-09-04" for index 1,
// "2025-09-04--2" for later variants.
func DayKey(date string, index int) string {
	if index > 1 {
		return fmt.Sprintf("%s--%d", date, index)
	}
	return date
}

// ParseDayKey reverses DayKey.
func ParseDayKey(key string) (date string, index int, ok bool) {
	m := dayKeyRe.FindStringSubmatch(key)
	if m == nil {
		return "", 0, false
	}
	index = 1
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return "", 0, false
		}
		index = n
	}
	return m[1], index, true
}
