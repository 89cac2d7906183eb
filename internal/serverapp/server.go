package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Leumas-Tech/leumas-education/internal/chat"
	"github.com/Leumas-Tech/leumas-education/internal/clock"
	"github.com/Leumas-Tech/leumas-education/internal/config"
	"github.com/Leumas-Tech/leumas-education/internal/generator"
	"github.com/Leumas-Tech/leumas-education/internal/grader"
	"github.com/Leumas-Tech/leumas-education/internal/grass"
	"github.com/Leumas-Tech/leumas-education/internal/httpmw"
	"github.com/Leumas-Tech/leumas-education/internal/llm"
	"github.com/Leumas-Tech/leumas-education/internal/store"
	"github.com/Leumas-Tech/leumas-education/internal/task"
	"github.com/Leumas-Tech/leumas-education/internal/telemetry"

	"go.uber.org/zap"
)

const (
	service      = "leumas-education"
	maxBodyBytes = 5 << 20
)

type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Store and LLM override what Config selects.
	Store  store.Store
	LLM    llm.Client
	Clock  clock.Clock
	Events telemetry.Repository
}

// App is the assembled service graph behind the HTTP handler.
type App struct {
	Handler http.Handler
	Config  *config.Config
	Tasks   *task.Service
	Grass   *grass.Aggregator
	Chat    *chat.Service
	Events  telemetry.Repository

	store     store.Store
	ownsStore bool
	clock     clock.Clock
	logger    *zap.Logger
}

func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Events == nil {
		opts.Events = telemetry.NewMemoryRepository(opts.Clock, 0)
	}
	logger := opts.Logger

	st, owns := opts.Store, false
	if st == nil {
		var err error
		st, err = store.Open(ctx, store.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN, DataDir: cfg.DataDir})
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		owns = true
	}

	client := opts.LLM
	if client == nil {
		var err error
		client, err = llm.Open(ctx, llmSettings(cfg.LLM), logger.Named("llm"))
		if err != nil {
			if owns {
				_ = st.Close()
			}
			return nil, fmt.Errorf("open llm: %w", err)
		}
	}

	var gen generator.Generator = generator.NewLLMGenerator(client, logger.Named("generator"))
	if _, off := client.(llm.Disabled); off {
		gen = generator.Static{}
	}

	agg := grass.NewAggregator(st, opts.Clock, logger.Named("grass"), opts.Events)
	tasks := task.NewService(task.Deps{
		Store:     st,
		Practices: cfg.Practices,
		User:      cfg.User,
		Generator: gen,
		Grader:    grader.NewLLMGrader(client, logger.Named("grader")),
		Grass:     agg,
		Clock:     opts.Clock,
		Logger:    logger.Named("task"),
		Events:    opts.Events,
	})
	chats := chat.NewService(st, tasks, client, opts.Clock, logger.Named("chat"))

	app := &App{
		Config:    cfg,
		Tasks:     tasks,
		Grass:     agg,
		Chat:      chats,
		Events:    opts.Events,
		store:     st,
		ownsStore: owns,
		clock:     opts.Clock,
		logger:    logger,
	}
	app.Handler = app.routes()
	return app, nil
}

func llmSettings(c config.LLM) llm.Settings {
	return llm.Settings{
		Provider: c.Provider,
		Ollama: llm.OllamaConfig{
			Host:          c.Ollama.Host,
			ModelPriority: c.Ollama.ModelPriority,
			Timeout:       c.Timeout,
		},
		Gemini: llm.GeminiConfig{
			APIKey:  c.Gemini.APIKey,
			Model:   c.Gemini.Model,
			Timeout: c.Timeout,
		},
	}
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.health)
	mux.HandleFunc("/api/health", a.health)
	mux.HandleFunc("/readyz", a.ready)

	taskHandler := task.NewHandler(a.Tasks)
	taskHandler.SetAutoNext(a.Config.Flow.AutoNextEnabled())
	taskHandler.SetLogger(a.logger.Named("http"))
	mux.HandleFunc("/api/practices", taskHandler.Practices)
	mux.HandleFunc("/api/task/", taskHandler.TaskSub)
	mux.HandleFunc("/api/practice/", taskHandler.PracticeSub)
	mux.HandleFunc("/api/tasks/", taskHandler.TasksSub)
	mux.HandleFunc("/api/history/", taskHandler.HistorySub)

	mux.HandleFunc("/api/grass/", grass.NewHandler(a.Grass, a.logger.Named("http")).GrassSub)
	mux.HandleFunc("/api/chat/", chat.NewHandler(a.Chat).ChatSub)
	mux.HandleFunc("/api/telemetry/stats", a.telemetryStats)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(a.logger.Named("http")),
		httpmw.WithRequestID,
		httpmw.WithRecover(a.logger),
		httpmw.WithBodyLimit(maxBodyBytes),
	)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": service,
		"time":    a.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := a.store.ListKeys(r.Context(), store.IDs, ""); err != nil {
		a.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":    false,
			"error": "record store unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": service,
		"time":    a.clock.Now().UTC().Format(time.RFC3339),
	})
}

// /api/telemetry/stats?since= accepts an RFC 3339 time or a duration back
// from now. The default window is seven days.
func (a *App) telemetryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
		return
	}
	since, err := parseSince(r.URL.Query().Get("since"), a.clock.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	events, err := a.Events.GetEvents(since, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	stats, err := telemetry.CalculateStats(events, since)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "since": since.UTC().Format(time.RFC3339), "stats": stats})
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-7 * 24 * time.Hour), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid since %q", raw)
	}
	return now.Add(-d), nil
}

// Warm rebuilds the heatmap records of every configured practice.
func (a *App) Warm(ctx context.Context) error {
	return a.Grass.RefreshAll(ctx, a.Config.Slugs())
}

// Close releases the store when App opened it.
func (a *App) Close() error {
	if a.ownsStore {
		return a.store.Close()
	}
	return nil
}

// Run serves the handler on addr until ctx is canceled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
