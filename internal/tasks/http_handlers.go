package tasks

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"blackbox-backend/internal/analytics"
)

func ListTasksHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.List())
	}
}

func GetTaskHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func StatsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Stats())
	}
}

func CapabilitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "Neural task management system active",
			"features": []string{
				"AI-powered task prioritization",
				"Quantum-inspired analytics",
				"Neural efficiency scoring",
				"Predictive time estimation",
				"Smart categorization",
				"Productivity optimization",
			},
			"neural_processing": true,
			"quantum_enhanced":  true,
		})
	}
}

func SetTaskStatusHandler(store *Store, events analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var body StatusRequest
		if !decodeBody(w, r, &body) {
			return
		}

		t, prev, err := store.UpdateStatus(id, Status(body.Status))
		if err != nil {
			respondError(w, err)
			return
		}

		if prev != t.Status {
			props := map[string]any{
				"task_id":     t.ID,
				"from":        string(prev),
				"to":          string(t.Status),
				"priority":    string(t.Priority),
				"neural_tier": analytics.TierFromScore(t.NeuralScore),
			}
			if t.Status == StatusCompleted {
				props["time_since_created_sec"] = int(time.Since(t.CreatedAt).Seconds())
			}
			analytics.LogRequest(r, events, "task_status_changed", props)
		}

		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteTaskHandler(store *Store, events analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.Remove(id); err != nil {
			respondError(w, err)
			return
		}

		analytics.LogRequest(r, events, "task_deleted", map[string]any{"task_id": id})
		w.WriteHeader(http.StatusNoContent)
	}
}
