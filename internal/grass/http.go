package grass

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var slugRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Handler struct {
	agg    *Aggregator
	logger *zap.Logger
}

func NewHandler(agg *Aggregator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{agg: agg, logger: logger}
}

// /api/grass/{slug}
func (h *Handler) GrassSub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/grass/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if !slugRe.MatchString(slug) {
		writeErr(w, http.StatusBadRequest, "invalid practice slug")
		return
	}

	v, err := h.agg.Read(r.Context(), slug)
	if err != nil {
		h.logger.Error("read grass", zap.String("practice", slug), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}
