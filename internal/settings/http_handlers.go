package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes caps settings and system prompt bodies.
const maxBodyBytes = 256 << 10

type Handler struct {
	Service *Service
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/", GetSettingsHandler(h.Service))
	r.With(middleware.RequestSize(maxBodyBytes)).Put("/", SaveSettingsHandler(h.Service))
	r.Get("/system-prompt", GetSystemPromptHandler(h.Service))
	r.With(middleware.RequestSize(maxBodyBytes)).Put("/system-prompt", SaveSystemPromptHandler(h.Service))
	r.Post("/reset", ResetHandler(h.Service))
}

type promptBody struct {
	SystemPrompt string `json:"systemPrompt"`
}

func GetSettingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Get(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// SaveSettingsHandler applies the body over the current settings, so
// fields the caller omits are kept.
func SaveSettingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Get(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}

		if !decodeBody(w, r, &st) {
			return
		}

		saved, err := svc.Save(r.Context(), st)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func GetSystemPromptHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.SystemPrompt(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, promptBody{SystemPrompt: p})
	}
}

func SaveSystemPromptHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body promptBody
		if !decodeBody(w, r, &body) {
			return
		}

		if err := svc.SaveSystemPrompt(r.Context(), body.SystemPrompt); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func ResetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, p, err := svc.Reset(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"settings":     st,
			"systemPrompt": p,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "invalid json", http.StatusBadRequest)
	return false
}

func respondError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
		return
	}
	slog.Error("settings request failed", "error", err)
	http.Error(w, "settings unavailable", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
