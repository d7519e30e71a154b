package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is what we store with every event.
type Envelope struct {
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// FromRequest extracts event envelope fields from request headers.
func FromRequest(r *http.Request) Envelope {
	platform := strings.TrimSpace(r.Header.Get("X-Platform"))
	if platform == "" {
		platform = "unknown"
	} else {
		platform = strings.ToLower(platform)
		if platform != "ios" && platform != "android" && platform != "web" {
			platform = "unknown"
		}
	}

	appVer := strings.TrimSpace(r.Header.Get("X-App-Version"))
	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	return Envelope{
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   appVer,
		DeviceLocale: locale,
	}
}

// SourceEventKeyFromRequest returns the client idempotency key, if any.
// A duplicate key makes the insert a no-op.
func SourceEventKeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

type Event struct {
	ID             string         `json:"id"`
	Name           string         `json:"event_name"`
	Time           time.Time      `json:"event_time"`
	SessionID      string         `json:"session_id,omitempty"`
	Platform       string         `json:"platform"`
	AppVersion     string         `json:"app_version,omitempty"`
	DeviceLocale   string         `json:"device_locale,omitempty"`
	SourceEventKey string         `json:"source_event_key,omitempty"`
	Properties     map[string]any `json:"properties"`
}

// Sink stores events. Recent returns the newest first.
type Sink interface {
	Record(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Log records one event. It never fails the caller: sink errors are logged
// and dropped. Callers pass sanitized props, never raw user text.
func Log(ctx context.Context, sink Sink, env Envelope, eventName string, props map[string]any, sourceEventKey string) error {
	if eventName == "" || sink == nil {
		return nil
	}
	if props == nil {
		props = map[string]any{}
	}

	e := Event{
		ID:             uuid.NewString(),
		Name:           eventName,
		Time:           time.Now().UTC(),
		SessionID:      env.SessionID,
		Platform:       env.Platform,
		AppVersion:     env.AppVersion,
		DeviceLocale:   env.DeviceLocale,
		SourceEventKey: sourceEventKey,
		Properties:     props,
	}

	if err := sink.Record(ctx, e); err != nil {
		slog.Warn("analytics event dropped", "event", eventName, "error", err)
	}
	return nil
}

// LogRequest is Log with the envelope and idempotency key taken from r.
func LogRequest(r *http.Request, sink Sink, eventName string, props map[string]any) {
	_ = Log(r.Context(), sink, FromRequest(r), eventName, props, SourceEventKeyFromRequest(r))
}

// TierFromScore buckets a neural score (60..99) into a display tier.
func TierFromScore(score int) string {
	switch {
	case score >= 90:
		return "P1"
	case score >= 75:
		return "P2"
	default:
		return "P3"
	}
}
