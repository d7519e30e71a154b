package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"blackbox-backend/internal/ai"
	"blackbox-backend/internal/analytics"
)

const (
	errInvalidMessages = "Invalid messages format"
	errInvalidBody     = "Invalid request body"
	errBodyTooLarge    = "Request body too large"
	errUnavailable     = "AI service temporarily unavailable"
)

// maxBodyBytes caps chat request bodies: one base64 attachment at
// MaxAttachmentBytes plus room for the text and JSON framing.
const maxBodyBytes = (MaxAttachmentBytes+2)/3*4 + 1<<20

type ChatHandler struct {
	Store  *Store
	Client ai.Completer
	Params ParamsSource
	Events analytics.Sink
}

func New(store *Store, client ai.Completer, params ParamsSource, events analytics.Sink) *ChatHandler {
	if params == nil {
		params = StaticParams{}
	}
	return &ChatHandler{
		Store:  store,
		Client: client,
		Params: params,
		Events: events,
	}
}

func (h *ChatHandler) Mount(r chi.Router) {
	limited := r.With(middleware.RequestSize(maxBodyBytes))

	limited.Post("/", CompletionHandler(h.Client, h.Params))
	r.Get("/", CapabilitiesHandler(h.Params))
	limited.Post("/send", SendHandler(h.Store, h.Events))
	r.Get("/messages", MessagesHandler(h.Store))
	r.Post("/reset", ResetHandler(h.Store, h.Events))
}

type completionBody struct {
	Messages []ai.Message `json:"messages"`
}

// CompletionHandler forwards a caller-built conversation to the completion
// endpoint unchanged and returns the reply text.
func CompletionHandler(client ai.Completer, params ParamsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body completionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) == 0 {
			if isTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
				return
			}
			writeError(w, http.StatusBadRequest, errInvalidMessages)
			return
		}

		p, _ := params.ChatParams(r.Context())
		text, err := client.Complete(r.Context(), body.Messages, p)
		if err != nil {
			var reqErr *ai.RequestError
			var remote *ai.RemoteServiceError
			switch {
			case errors.As(err, &reqErr):
				writeError(w, http.StatusBadRequest, errInvalidMessages)
			case errors.As(err, &remote):
				slog.Error("completion API error", "status", remote.StatusCode, "reason", remote.Reason)
				writeError(w, remote.StatusCode, errUnavailable)
			default:
				slog.Error("completion API unreachable", "error", err)
				writeError(w, http.StatusBadGateway, errUnavailable)
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"response":  text,
			"model":     p.Model,
			"timestamp": time.Now().UTC(),
		})
	}
}

func CapabilitiesHandler(params ParamsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := params.ChatParams(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "Neural chat interface active",
			"model":  p.Model,
			"capabilities": []string{
				"Text analysis and generation",
				"Image recognition and processing",
				"Document analysis",
				"Code review and generation",
				"Data analysis and insights",
				"Creative writing and brainstorming",
			},
			"multimodal":       true,
			"quantum_enhanced": true,
		})
	}
}

type sendBody struct {
	Text       string      `json:"text"`
	Attachment *attachment `json:"attachment"`
}

type attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      string `json:"data"`
}

// SendHandler appends the user turn and waits for the assistant turn while
// the request lasts. If the request ends first, or ?wait=false is given, it
// answers 202 with the user message only.
func SendHandler(store *Store, events analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if isTooLarge(err) {
				writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
				return
			}
			writeError(w, http.StatusBadRequest, errInvalidBody)
			return
		}

		var att *Attachment
		if body.Attachment != nil {
			att = &Attachment{
				Name:      body.Attachment.Name,
				MediaType: body.Attachment.MediaType,
				Data:      body.Attachment.Data,
			}
		}

		user, reply, err := store.Send(r.Context(), body.Text, att)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrAttachmentTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, err.Error())
			return
		}

		props := map[string]any{
			"text_len":       len(body.Text),
			"has_attachment": user.Attachment != nil,
		}
		if user.Attachment != nil {
			props["attachment_kind"] = user.Attachment.Kind
		}
		analytics.LogRequest(r, events, "chat_message_sent", props)

		if r.URL.Query().Get("wait") == "false" {
			writeJSON(w, http.StatusAccepted, map[string]any{"user": user})
			return
		}

		assistant, err := reply.Wait(r.Context())
		if err != nil {
			writeJSON(w, http.StatusAccepted, map[string]any{"user": user})
			return
		}
		if reply.Err() != nil {
			w.Header().Set("X-AI-Error", "1")
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"user":      user,
			"assistant": assistant,
		})
	}
}

func MessagesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Messages())
	}
}

func ResetHandler(store *Store, events analytics.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dropped := store.Len()
		m := store.Reset()

		analytics.LogRequest(r, events, "chat_reset", map[string]any{"dropped_messages": dropped})
		writeJSON(w, http.StatusOK, m)
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
