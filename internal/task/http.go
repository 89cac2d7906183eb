package task

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/model"
	"github.com/Leumas-Tech/leumas-education/internal/store"

	"go.uber.org/zap"
)

type Handler struct {
	svc      *Service
	autoNext bool
	logger   *zap.Logger
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, autoNext: true, logger: zap.NewNop()}
}

// SetAutoNext controls whether proof and grade responses also create the
// next task of the practice.
func (h *Handler) SetAutoNext(on bool) {
	h.autoNext = on
}

func (h *Handler) SetLogger(l *zap.Logger) {
	if l != nil {
		h.logger = l
	}
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteErr(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, map[string]any{"ok": false, "error": msg})
}

// StatusOf maps lifecycle errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotProblem), errors.Is(err, ErrBadPractice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	WriteErr(w, code, err.Error())
}

// decodeJSON tolerates an empty body.
func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseBool(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitTail(path, prefix string) []string {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if tail == "" {
		return nil
	}
	return strings.Split(tail, "/")
}

// /api/practices
func (h *Handler) Practices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErr(w, 405, "method not allowed")
		return
	}
	WriteJSON(w, 200, h.svc.Practices())
}

// /api/task/{slug}/today and /api/task/{slug}/today/list
func (h *Handler) TaskSub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErr(w, 405, "method not allowed")
		return
	}
	parts := splitTail(r.URL.Path, "/api/task/")
	if len(parts) < 2 || parts[1] != "today" {
		WriteErr(w, 404, "not found")
		return
	}
	slug := parts[0]

	switch {
	case len(parts) == 2:
		latest := r.URL.Query().Get("latest") != "0"
		t, err := h.svc.GetOrCreateToday(r.Context(), slug, latest)
		if err != nil {
			h.fail(w, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"ok": true, "task": t})

	case len(parts) == 3 && parts[2] == "list":
		items, err := h.svc.ListToday(r.Context(), slug)
		if err != nil {
			h.fail(w, err)
			return
		}
		WriteJSON(w, 200, map[string]any{"ok": true, "items": items})

	default:
		WriteErr(w, 404, "not found")
	}
}

// /api/practice/{slug}/next
func (h *Handler) PracticeSub(w http.ResponseWriter, r *http.Request) {
	parts := splitTail(r.URL.Path, "/api/practice/")
	if len(parts) != 2 || parts[1] != "next" {
		WriteErr(w, 404, "not found")
		return
	}
	if r.Method != http.MethodPost {
		WriteErr(w, 405, "method not allowed")
		return
	}

	var in struct {
		Better bool `json:"better"`
	}
	if err := decodeJSON(r, &in); err != nil {
		WriteErr(w, 400, "bad json")
		return
	}
	better := in.Better || parseBool(r.URL.Query().Get("better"))

	e, err := h.svc.CreateNext(r.Context(), parts[0], better)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, 200, map[string]any{"ok": true, "task": e.Task, "index": e.Index})
}

// /api/tasks/{id}/proof and /api/tasks/{id}/grade
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	parts := splitTail(r.URL.Path, "/api/tasks/")
	if len(parts) != 2 {
		WriteErr(w, 404, "not found")
		return
	}
	if r.Method != http.MethodPost {
		WriteErr(w, 405, "method not allowed")
		return
	}
	id := parts[0]

	switch parts[1] {
	case "proof":
		var in Proof
		if err := decodeJSON(r, &in); err != nil {
			WriteErr(w, 400, "bad json")
			return
		}
		res, err := h.svc.SubmitProof(r.Context(), id, in)
		if err != nil {
			h.fail(w, err)
			return
		}
		WriteJSON(w, 200, map[string]any{
			"ok":       true,
			"task":     res.Task,
			"practice": res.Practice,
			"accepted": res.Accepted,
			"feedback": res.Feedback,
			"nextTask": h.next(r, res.Practice),
		})

	case "grade":
		var in struct {
			Answer string `json:"answer"`
		}
		if err := decodeJSON(r, &in); err != nil {
			WriteErr(w, 400, "bad json")
			return
		}
		res, err := h.svc.GradeAndSubmit(r.Context(), id, in.Answer)
		if err != nil {
			h.fail(w, err)
			return
		}
		WriteJSON(w, 200, map[string]any{
			"ok":       true,
			"task":     res.Task,
			"practice": res.Practice,
			"auto":     res.Auto,
			"solution": res.Auto.Solution,
			"nextTask": h.next(r, res.Practice),
		})

	default:
		WriteErr(w, 404, "not found")
	}
}

// next creates the follow-up task when auto-next is on. The submission is
// already stored, so a failure here is logged and reported as no next task.
func (h *Handler) next(r *http.Request, slug string) *model.Task {
	if !h.autoNext {
		return nil
	}
	e, err := h.svc.CreateNext(r.Context(), slug, false)
	if err != nil {
		h.logger.Error("create next task", zap.String("practice", slug), zap.Error(err))
		return nil
	}
	return &e.Task
}

// /api/history/{slug}?days=&max=
func (h *Handler) HistorySub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErr(w, 405, "method not allowed")
		return
	}
	parts := splitTail(r.URL.Path, "/api/history/")
	if len(parts) != 1 {
		WriteErr(w, 404, "not found")
		return
	}
	q := r.URL.Query()
	days, _ := strconv.Atoi(q.Get("days"))
	max, _ := strconv.Atoi(q.Get("max"))

	items, err := h.svc.History(r.Context(), parts[0], days, max)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, 200, map[string]any{"ok": true, "items": items})
}
