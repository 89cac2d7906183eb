// Package chat keeps one tutor conversation per practice per day and asks
// the text model for replies grounded in today's task.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/llm"
	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"

	"go.uber.org/zap"
)

var ErrEmptyMessage = errors.New("message is required")

// Apology is the assistant reply stored when the tutor cannot answer.
const Apology = "Sorry, the tutor is unavailable right now. Try again in a moment."

type Message struct {
	Role    llm.Role  `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"ts"`
}

type Transcript struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

// TaskSource provides the task the tutor talks about.
type TaskSource interface {
	GetOrCreateToday(ctx context.Context, slug string, wantLatest bool) (model.Task, error)
	Practice(slug string) (model.Practice, error)
}

type Service struct {
	st     store.Store
	tasks  TaskSource
	tutor  llm.Client
	clock  clock.Clock
	logger *zap.Logger
}

func NewService(st store.Store, tasks TaskSource, tutor llm.Client, c clock.Clock, logger *zap.Logger) *Service {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tutor == nil {
		tutor = llm.Disabled{}
	}
	return &Service{st: st, tasks: tasks, tutor: tutor, clock: c, logger: logger}
}

func (s *Service) load(ctx context.Context, slug, date string) (Transcript, error) {
	tr := Transcript{Date: date, Messages: []Message{}}
	var rec struct {
		Messages []Message `json:"messages"`
	}
	err := store.GetJSON(ctx, s.st, store.Chats(slug), date, &rec)
	if errors.Is(err, store.ErrNotFound) {
		return tr, nil
	}
	if err != nil {
		return tr, err
	}
	if rec.Messages != nil {
		tr.Messages = rec.Messages
	}
	return tr, nil
}

func (s *Service) save(ctx context.Context, slug string, tr Transcript) error {
	return store.PutJSON(ctx, s.st, store.Chats(slug), tr.Date, map[string]any{"messages": tr.Messages})
}

// Get returns today's transcript for slug.
func (s *Service) Get(ctx context.Context, slug string) (Transcript, error) {
	if _, err := s.tasks.Practice(slug); err != nil {
		return Transcript{}, err
	}
	return s.load(ctx, slug, clock.Today(s.clock))
}

// Send appends message and the tutor's reply to today's transcript and
// returns the reply. An empty message fails with ErrEmptyMessage before
// anything is read or written.
func (s *Service) Send(ctx context.Context, slug, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	p, err := s.tasks.Practice(slug)
	if err != nil {
		return "", err
	}
	task, err := s.tasks.GetOrCreateToday(ctx, slug, true)
	if err != nil {
		return "", err
	}

	date := clock.Today(s.clock)
	tr, err := s.load(ctx, slug, date)
	if err != nil {
		return "", err
	}
	history := tr.Messages

	tr.Messages = append(tr.Messages, Message{Role: llm.RoleUser, Content: message, At: s.clock.Now()})
	if err := s.save(ctx, slug, tr); err != nil {
		return "", err
	}

	reply, err := s.tutor.Complete(ctx, tutorRequest(p, task, history, message))
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		s.logger.Warn("tutor reply failed",
			zap.String("practice", slug),
			zap.Error(err))
		reply = Apology
	}

	tr.Messages = append(tr.Messages, Message{Role: llm.RoleAssistant, Content: reply, At: s.clock.Now()})
	if err := s.save(ctx, slug, tr); err != nil {
		return "", err
	}
	return reply, nil
}

const tutorSystem = "You are a friendly, rigorous tutor. Keep answers concise (<= 180 words). " +
	"Use lesson context; show steps for math; snippets for code. " +
	"Give hints when asked; do not reveal full answers unless asked."

func tutorRequest(p model.Practice, t model.Task, history []Message, message string) llm.Request {
	exercise := ""
	if t.Exercise != nil {
		exercise = t.Exercise.Title + " — " + t.Exercise.Instructions
	}
	acceptance := ""
	if t.Acceptance.Tagged() {
		if b, err := json.Marshal(t.Acceptance); err == nil {
			acceptance = string(b)
		}
	}
	labels := make([]string, 0, len(t.Steps))
	for _, st := range t.Steps {
		labels = append(labels, st.Label)
	}

	lesson := strings.Join([]string{
		fmt.Sprintf("Practice kind: %s", p.Kind),
		fmt.Sprintf("Title: %s", t.Title),
		fmt.Sprintf("Brief: %s", t.Brief),
		fmt.Sprintf("Exercise: %s", exercise),
		fmt.Sprintf("Acceptance: %s", acceptance),
		fmt.Sprintf("Steps: %s", strings.Join(labels, " • ")),
	}, "\n")

	msgs := []llm.Message{{Role: llm.RoleUser, Content: "Lesson context:\n" + lesson}}
	for _, m := range history {
		if m.Role == "" || m.Content == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})
	return llm.Request{System: tutorSystem, Messages: msgs}
}
