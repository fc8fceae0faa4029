package engine

import (
	"strings"

	"chatd/pkg/types"
)

// BuildPrompt renders a conversation into the ChatML-style template most
// instruct models ship with, ending with an open assistant turn.
func BuildPrompt(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case "system", "user", "assistant":
		default:
			role = "user"
		}
		b.WriteString("<|im_start|>")
		b.WriteString(role)
		b.WriteString("\n")
		b.WriteString(msg.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
