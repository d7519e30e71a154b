package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"blackbox-backend/internal/ai"
)

// Storage keys, kept from the dashboard's local storage layout.
const (
	KeySettings     = "blackboxai-settings"
	KeySystemPrompt = "blackboxai-system-prompt"
)

type Service struct {
	kv            KV
	defaults      Settings
	defaultPrompt string
}

func NewService(kv KV, defaults Settings, defaultPrompt string) *Service {
	return &Service{kv: kv, defaults: defaults, defaultPrompt: defaultPrompt}
}

// Get returns the saved settings. Fields missing from the stored document
// keep their defaults.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	st := s.defaults

	raw, err := s.kv.Get(ctx, KeySettings)
	if errors.Is(err, ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return Settings{}, err
	}

	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", KeySettings, err)
	}
	return st, nil
}

func (s *Service) Save(ctx context.Context, st Settings) (Settings, error) {
	st.AIModel = strings.TrimSpace(st.AIModel)
	st.SecurityLevel = strings.ToLower(strings.TrimSpace(st.SecurityLevel))

	if err := st.Validate(); err != nil {
		return Settings{}, err
	}

	b, err := json.Marshal(st)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, KeySettings, string(b)); err != nil {
		return Settings{}, err
	}

	slog.Info("settings saved", "model", st.AIModel, "temperature", st.Temperature, "max_tokens", st.MaxTokens)
	return st, nil
}

func (s *Service) SystemPrompt(ctx context.Context) (string, error) {
	p, err := s.kv.Get(ctx, KeySystemPrompt)
	if errors.Is(err, ErrNotFound) {
		return s.defaultPrompt, nil
	}
	return p, err
}

func (s *Service) SaveSystemPrompt(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ValidationError{Field: "systemPrompt", Reason: "required"}
	}
	return s.kv.Set(ctx, KeySystemPrompt, prompt)
}

// Reset drops the saved settings and prompt.
func (s *Service) Reset(ctx context.Context) (Settings, string, error) {
	for _, key := range []string{KeySettings, KeySystemPrompt} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return Settings{}, "", err
		}
	}
	slog.Info("settings reset to defaults")
	return s.defaults, s.defaultPrompt, nil
}

// ChatParams returns the generation parameters and system prompt for chat.
// Storage errors fall back to the defaults.
func (s *Service) ChatParams(ctx context.Context) (ai.Params, string) {
	st, err := s.Get(ctx)
	if err != nil {
		slog.Warn("settings unavailable, using defaults", "error", err)
		st = s.defaults
	}

	prompt, err := s.SystemPrompt(ctx)
	if err != nil {
		slog.Warn("system prompt unavailable, using default", "error", err)
		prompt = s.defaultPrompt
	}
	return st.Params(), prompt
}
