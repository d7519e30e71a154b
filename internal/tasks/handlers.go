package tasks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blackbox-backend/internal/ai"
	"blackbox-backend/internal/analytics"
)

const (
	errInvalidAction   = "Invalid action"
	errInvalidBody     = "Invalid request body"
	errBodyTooLarge    = "Request body too large"
	errInsightRequired = "Title and description required for insight generation"
)

// maxBodyBytes caps every task request body.
const maxBodyBytes = 1 << 20

type TaskHandler struct {
	Store    *Store
	Insights Insighter
	Events   analytics.Sink
}

func New(store *Store, insights Insighter, events analytics.Sink) *TaskHandler {
	return &TaskHandler{
		Store:    store,
		Insights: insights,
		Events:   events,
	}
}

func (h *TaskHandler) Mount(r chi.Router) {
	limited := r.With(middleware.RequestSize(maxBodyBytes))

	r.Get("/", ListTasksHandler(h.Store))
	limited.Post("/", h.Action)
	r.Get("/stats", StatsHandler(h.Store))
	r.Get("/status", CapabilitiesHandler())
	r.Get("/{id}", GetTaskHandler(h.Store))
	limited.Patch("/{id}/status", SetTaskStatusHandler(h.Store, h.Events))
	r.Delete("/{id}", DeleteTaskHandler(h.Store, h.Events))
}

// Action serves POST /api/tasks. The body selects generate-insight or
// create.
func (h *TaskHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Action {
	case ActionGenerateInsight:
		h.generateInsight(w, r, req.NewTask)
	case ActionCreate:
		h.create(w, r, req.NewTask)
	default:
		writeError(w, http.StatusBadRequest, errInvalidAction)
	}
}

func (h *TaskHandler) generateInsight(w http.ResponseWriter, r *http.Request, in NewTask) {
	if err := ai.ValidateInsightInput(in.Title, in.Description); err != nil {
		writeError(w, http.StatusBadRequest, errInsightRequired)
		return
	}

	insight := h.Insights.Generate(r.Context(), in.Title, in.Description)
	if insight.Degraded {
		slog.Warn("AI insight failed on GENERATE", "title_len", len(in.Title))
		w.Header().Set("X-AI-Error", "1")
	}

	writeJSON(w, http.StatusOK, insight)
}

// create answers 201 with the placeholder insight. With ?wait=true it holds
// the response until the insight settles or the request ends.
func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request, in NewTask) {
	t, enrichment, err := h.Store.Add(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}

	analytics.LogRequest(r, h.Events, "task_created", map[string]any{
		"task_id":      t.ID,
		"priority":     string(t.Priority),
		"category":     t.Category,
		"has_deadline": t.Deadline != "",
		"text_len":     len(t.Title) + len(t.Description),
		"neural_tier":  analytics.TierFromScore(t.NeuralScore),
	})

	if r.URL.Query().Get("wait") == "true" {
		insight, err := enrichment.Wait(r.Context())
		if err == nil {
			if insight.Degraded {
				w.Header().Set("X-AI-Error", "1")
			}
			if cur, err := h.Store.Get(t.ID); err == nil {
				t = cur
			}
		}
	}

	writeJSON(w, http.StatusCreated, t)
}

// decodeBody decodes JSON into v. It answers 413 or 400 itself and reports
// false when the handler should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
		return false
	}
	writeError(w, http.StatusBadRequest, errInvalidBody)
	return false
}

// respondError maps store errors to status codes.
func respondError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var nf *NotFoundError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	default:
		slog.Error("task request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
