package ai

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// DegradedInsight is returned when the completion call fails.
	DegradedInsight = "Neural analysis pending. Task complexity assessment in progress with quantum processing patterns."

	// EmptyInsight is returned when the call succeeds without generated text.
	EmptyInsight = "Neural complexity detected. Optimized processing pathways recommended for enhanced productivity flow."
)

// Completer is the part of Client the higher layers depend on.
type Completer interface {
	Complete(ctx context.Context, messages []Message, p Params) (string, error)
}

// Insight is the settled annotation for a task. Degraded is set when the
// text is a fixed substitute for a failed call.
type Insight struct {
	Text     string `json:"insight"`
	Degraded bool   `json:"-"`
}

type InsightGenerator struct {
	client Completer
	params Params
}

func NewInsightGenerator(client Completer, params Params) *InsightGenerator {
	return &InsightGenerator{client: client, params: params}
}

// ValidateInsightInput rejects a blank title or description.
func ValidateInsightInput(title, description string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return &RequestError{Reason: "title and description required"}
	}
	return nil
}

// Generate never fails: any client error turns into DegradedInsight.
func (g *InsightGenerator) Generate(ctx context.Context, title, description string) Insight {
	if err := ValidateInsightInput(title, description); err != nil {
		return Insight{Text: DegradedInsight, Degraded: true}
	}

	prompt := BuildInsightPrompt(title, description)
	reply, err := g.client.Complete(ctx, []Message{TextMessage(RoleUser, prompt)}, g.params)
	if err != nil {
		slog.Warn("insight generation failed, using degraded insight", "error", err)
		return Insight{Text: DegradedInsight, Degraded: true}
	}

	if reply == FallbackReply || strings.TrimSpace(reply) == "" {
		return Insight{Text: EmptyInsight}
	}
	return Insight{Text: strings.TrimSpace(reply)}
}
