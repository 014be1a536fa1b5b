package agent

import "strings"

// historyWindow bounds how many trailing messages are rendered into
// the conversation context handed to the models.
const historyWindow = 6

// formatHistory renders the most recent messages as plain labeled
// turns. Returns "" for an empty history.
func formatHistory(messages []Message, window int) string {
	if window <= 0 || len(messages) == 0 {
		return ""
	}
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}

	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch m.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
