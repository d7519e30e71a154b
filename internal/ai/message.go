package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content part kinds understood by the completion endpoint.
const (
	PartText     = "text"
	PartImageURL = "image_url"
	PartFile     = "file"
)

// Message is one role-tagged turn sent to the completion endpoint.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Content is either plain text or a sequence of parts. On the wire it is a
// JSON string when Parts is nil and an array otherwise.
type Content struct {
	Text  string
	Parts []Part
}

type Part struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *ImageURL   `json:"image_url,omitempty"`
	File     *InlineFile `json:"file,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type InlineFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

func TextMessage(role, text string) Message {
	return Message{Role: role, Content: Content{Text: text}}
}

func PartsMessage(role string, parts ...Part) Message {
	return Message{Role: role, Content: Content{Parts: parts}}
}

func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

func ImagePart(dataURL string) Part {
	return Part{Type: PartImageURL, ImageURL: &ImageURL{URL: dataURL}}
}

func FilePart(name, data string) Part {
	return Part{Type: PartFile, File: &InlineFile{Filename: name, FileData: data}}
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Content{}
		return nil
	}

	if b[0] == '[' {
		var parts []Part
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		*c = Content{Parts: parts}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = Content{Text: s}
	return nil
}

// PlainText flattens the text parts of c.
func (c Content) PlainText() string {
	if c.Parts == nil {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// DecodePayload decodes an inline attachment given either as a data URL
// ("data:<media>;base64,<payload>") or as bare base64.
func DecodePayload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty payload")
	}

	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data url")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("data url is not base64 encoded")
		}
		s = payload
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return b, nil
}

// Validate checks a conversation against the endpoint's input contract.
func Validate(messages []Message) error {
	if len(messages) == 0 {
		return &RequestError{Reason: "no messages"}
	}

	for i, m := range messages {
		if strings.TrimSpace(m.Role) == "" {
			return &RequestError{Reason: fmt.Sprintf("message %d has no role", i)}
		}
		for j, p := range m.Content.Parts {
			if err := validatePart(p); err != nil {
				return &RequestError{Reason: fmt.Sprintf("message %d part %d: %s", i, j, err)}
			}
		}
	}
	return nil
}

func validatePart(p Part) error {
	switch p.Type {
	case PartText:
		return nil
	case PartImageURL:
		if p.ImageURL == nil || p.ImageURL.URL == "" {
			return fmt.Errorf("image part without url")
		}
		u := p.ImageURL.URL
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			return nil
		}
		if _, err := DecodePayload(u); err != nil {
			return fmt.Errorf("image payload: %v", err)
		}
		return nil
	case PartFile:
		if p.File == nil {
			return fmt.Errorf("file part without file")
		}
		if _, err := DecodePayload(p.File.FileData); err != nil {
			return fmt.Errorf("file payload: %v", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
}
