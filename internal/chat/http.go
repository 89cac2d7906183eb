package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Leumas-Tech/leumas-education/internal/task"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// /api/chat/{slug}
func (h *Handler) ChatSub(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chat/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		task.WriteErr(w, 404, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tr, err := h.svc.Get(r.Context(), slug)
		if err != nil {
			task.WriteErr(w, task.StatusOf(err), err.Error())
			return
		}
		task.WriteJSON(w, 200, map[string]any{"ok": true, "date": tr.Date, "messages": tr.Messages})

	case http.MethodPost:
		var in struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			task.WriteErr(w, 400, "bad json")
			return
		}
		reply, err := h.svc.Send(r.Context(), slug, in.Message)
		if errors.Is(err, ErrEmptyMessage) {
			task.WriteErr(w, 400, "Message is required.")
			return
		}
		if err != nil {
			task.WriteErr(w, task.StatusOf(err), err.Error())
			return
		}
		task.WriteJSON(w, 200, map[string]any{"ok": true, "reply": reply})

	default:
		task.WriteErr(w, 405, "method not allowed")
	}
}
