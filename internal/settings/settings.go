package settings

import (
	"fmt"
	"slices"
	"strings"

	"blackbox-backend/internal/ai"
)

var securityLevels = []string{"low", "medium", "high", "maximum"}

// Settings are the dashboard preferences. Only AIModel, Temperature and
// MaxTokens affect backend behavior; the rest are stored for the UI.
type Settings struct {
	AIModel            string  `json:"aiModel"`
	Temperature        float64 `json:"temperature"`
	MaxTokens          int     `json:"maxTokens"`
	QuantumEnhancement bool    `json:"quantumEnhancement"`
	NeuralProcessing   bool    `json:"neuralProcessing"`
	RealTimeAnalytics  bool    `json:"realTimeAnalytics"`
	SecurityLevel      string  `json:"securityLevel"`
	AutoOptimization   bool    `json:"autoOptimization"`
	Notifications      bool    `json:"notifications"`
	DarkMode           bool    `json:"darkMode"`
}

func Defaults() Settings {
	return Settings{
		AIModel:            "openrouter/anthropic/claude-sonnet-4",
		Temperature:        0.7,
		MaxTokens:          4000,
		QuantumEnhancement: true,
		NeuralProcessing:   true,
		RealTimeAnalytics:  true,
		SecurityLevel:      "high",
		AutoOptimization:   true,
		Notifications:      true,
		DarkMode:           true,
	}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.AIModel) == "" {
		return &ValidationError{Field: "aiModel", Reason: "required"}
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return &ValidationError{Field: "temperature", Reason: "must be between 0 and 2"}
	}
	if s.MaxTokens < 100 || s.MaxTokens > 8000 {
		return &ValidationError{Field: "maxTokens", Reason: "must be between 100 and 8000"}
	}
	if !slices.Contains(securityLevels, s.SecurityLevel) {
		return &ValidationError{Field: "securityLevel", Reason: fmt.Sprintf("unknown level %q", s.SecurityLevel)}
	}
	return nil
}

func (s Settings) Params() ai.Params {
	return ai.Params{
		Model:       s.AIModel,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}
