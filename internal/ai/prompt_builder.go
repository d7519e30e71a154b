package ai

import "strings"

// BuildInsightPrompt renders the single user turn sent for a task insight.
func BuildInsightPrompt(title, description string) string {
	var b strings.Builder

	b.WriteString("Analyze this task for productivity optimization and provide a brief neural insight:\n\n")

	b.WriteString("Title: ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n")

	b.WriteString("Description: ")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\n")

	b.WriteString(insightInstructions)

	return b.String()
}
