package ai

import (
	"strings"

	"meligy/internal/models"
)

// HistoryWindow is how many prior messages are rendered into the prompt.
const HistoryWindow = 6

const persona = `You are Meligy, a friendly Egyptian AI assistant created by Joseph Ibrahim and Vision AI company. You are proudly Egyptian 🇪🇬 and speak both Arabic and English naturally.

Your personality:
- Warm, helpful, and genuinely caring
- Proudly Egyptian with authentic cultural expressions
- Smart and knowledgeable but never show-offy
- Use appropriate emojis naturally
- Respond directly to what users ask without over-explaining
- Match the user's language (Arabic or English)
- Be conversational, not formal
`

// BuildPrompt renders persona, optional profile context, the last six
// history turns and the new user turn.
func BuildPrompt(input string, history []*models.ChatMessage, profile string) string {
	var b strings.Builder
	b.WriteString(persona)
	if profile = strings.TrimSpace(profile); profile != "" {
		b.WriteString("\nAbout this user: ")
		b.WriteString(profile)
		b.WriteString("\n")
	}
	b.WriteString("\nRecent conversation:\n")
	for _, msg := range Recent(history, HistoryWindow) {
		role := "User"
		if msg.Sender == models.SenderAssistant {
			role = "Meligy"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nUser: ")
	b.WriteString(input)
	b.WriteString("\nMeligy:")
	return b.String()
}

// Recent returns at most n trailing messages, skipping nil entries.
func Recent(history []*models.ChatMessage, n int) []*models.ChatMessage {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]*models.ChatMessage, 0, len(history))
	for _, m := range history {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
