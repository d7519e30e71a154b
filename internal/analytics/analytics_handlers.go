package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
	performancePoints  = 12
)

// Handler serves the analytics page: gauges, the performance series, the
// event log and the live gauge stream.
type Handler struct {
	Sink    Sink
	Sampler *Sampler
	Hub     *Hub
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/metrics", MetricsHandler(h.Sampler))
	r.Get("/performance", PerformanceHandler())
	r.Get("/events", EventsHandler(h.Sink))
	r.Post("/app-opened", AppOpenedHandler(h.Sink))
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWS)
	}
}

func MetricsHandler(s *Sampler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Latest())
	}
}

func PerformanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, PerformanceSeries(performancePoints))
	}
}

func EventsHandler(sink Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultEventsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxEventsLimit)
		}

		events, err := sink.Recent(r.Context(), limit)
		if err != nil {
			slog.Error("list analytics events", "error", err)
			http.Error(w, "events unavailable", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// app_opened: the dashboard was opened
func AppOpenedHandler(sink Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ColdStart bool   `json:"cold_start"`
			From      string `json:"from"` // push/deeplink/icon/unknown
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		from := body.From
		if from == "" {
			from = "unknown"
		}

		LogRequest(r, sink, "app_opened", map[string]any{
			"cold_start": body.ColdStart,
			"from":       from,
		})

		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
