package chat

import (
	"errors"
	"strings"
	"time"

	"blackbox-backend/internal/ai"
)

const (
	// MaxAttachmentBytes bounds the decoded attachment payload.
	MaxAttachmentBytes = 10 << 20

	KindImage = "image"
	KindFile  = "file"
	KindText  = "text"
)

const (
	InitialSystemMessage = "Neural interface initialized. Quantum processing active. Ready for multi-modal communication."
	ResetSystemMessage   = "Neural interface reset. Quantum processing reinitialized. Ready for new conversation."

	// ApologyReply is appended as the assistant turn when the completion
	// call fails.
	ApologyReply = "I apologize, but I encountered an error processing your request. Please check your connection and try again."

	attachmentPrompt = "Please analyze this file."
)

var (
	ErrEmptyMessage       = errors.New("message text or attachment required")
	ErrAttachmentTooLarge = errors.New("attachment exceeds 10 MiB")
	ErrInvalidAttachment  = errors.New("attachment payload is not valid base64")
)

// Attachment is a user-supplied file. Data is a base64 data URL or raw
// base64 and is never echoed back to clients.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Kind      string `json:"kind"`
	Size      int    `json:"size"`
	Data      string `json:"-"`
}

// normalize validates the payload and fills MediaType, Kind and Size.
func (a Attachment) normalize() (*Attachment, error) {
	payload, err := ai.DecodePayload(a.Data)
	if err != nil || len(payload) == 0 {
		return nil, ErrInvalidAttachment
	}
	if len(payload) > MaxAttachmentBytes {
		return nil, ErrAttachmentTooLarge
	}

	if a.MediaType == "" {
		a.MediaType = mediaTypeOf(a.Data)
	}
	if a.Name == "" {
		a.Name = "attachment"
	}
	a.Kind = KindFile
	if strings.HasPrefix(a.MediaType, "image/") {
		a.Kind = KindImage
	}
	a.Size = len(payload)
	return &a, nil
}

// DataURL returns Data as a data URL.
func (a *Attachment) DataURL() string {
	if strings.HasPrefix(a.Data, "data:") {
		return a.Data
	}
	mt := a.MediaType
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + a.Data
}

func (a *Attachment) part() ai.Part {
	if a.Kind == KindImage {
		return ai.ImagePart(a.DataURL())
	}
	return ai.FilePart(a.Name, a.DataURL())
}

func mediaTypeOf(data string) string {
	rest, ok := strings.CutPrefix(data, "data:")
	if !ok {
		return ""
	}
	mt, _, _ := strings.Cut(rest, ";")
	return mt
}

// Message is one conversation entry. Messages are never edited after they
// are appended.
type Message struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       string      `json:"type"`
	FileName   string      `json:"fileName,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`

	// prompt replaces Content in the outbound request when set.
	prompt string
}

// completionMessage maps an entry to the completion endpoint's shape.
func (m Message) completionMessage() ai.Message {
	text := m.Content
	if m.prompt != "" {
		text = m.prompt
	}
	if m.Attachment == nil {
		return ai.TextMessage(m.Role, text)
	}
	return ai.PartsMessage(m.Role, ai.TextPart(text), m.Attachment.part())
}
