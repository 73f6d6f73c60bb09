package conversation

import "strings"

const (
	// MaxMessages is the history length above which older messages are
	// summarized before a request.
	MaxMessages = 24

	// KeepLast is how many recent non-system messages survive verbatim.
	KeepLast = 12

	// summaryCharLimit bounds each summarized message's contribution.
	summaryCharLimit = 140

	summaryPrefix = "Summary of earlier conversation: "
)

// PrepareForRequest derives the message sequence sent to the completions
// API. Histories of MaxMessages or fewer pass through unchanged. Longer
// histories are reduced to: the first original system message (if any), one
// synthetic system message summarizing the older non-system messages, and
// the last KeepLast non-system messages verbatim in their original relative
// order. The input is never mutated.
func PrepareForRequest(messages []Message) []Message {
	if len(messages) <= MaxMessages {
		return messages
	}

	var system, nonSystem []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			nonSystem = append(nonSystem, m)
		}
	}

	split := max(0, len(nonSystem)-KeepLast)
	older := nonSystem[:split]
	recent := nonSystem[split:]

	lines := make([]string, 0, len(older))
	for _, m := range older {
		lines = append(lines, summarizeMessage(m))
	}

	prepared := make([]Message, 0, len(recent)+2)
	if len(system) > 0 {
		prepared = append(prepared, system[0])
	}
	prepared = append(prepared, Message{
		Role:    RoleSystem,
		Content: summaryPrefix + strings.Join(lines, " | "),
	})
	prepared = append(prepared, recent...)
	return prepared
}

// summarizeMessage collapses a message to one tagged line: role prefix plus
// whitespace-normalized content truncated to summaryCharLimit characters.
// Truncation counts runes, not bytes, so multi-byte content is never cut
// mid-character.
func summarizeMessage(m Message) string {
	prefix := "Assistant:"
	if m.Role == RoleUser {
		prefix = "User:"
	}

	content := strings.Join(strings.Fields(m.Content), " ")
	if runes := []rune(content); len(runes) > summaryCharLimit {
		content = string(runes[:summaryCharLimit])
	}
	return prefix + " " + content
}
