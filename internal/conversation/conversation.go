// Package conversation maintains ordered chat history and the size-bounded
// view of it sent to the completions API.
package conversation

import "sync"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemPrompt seeds every conversation.
const SystemPrompt = "You are a helpful skincare assistant."

// History is an append-only ordered message sequence. The first message is
// always the seed system prompt; further system messages (search notes) may
// be interleaved later. Safe for concurrent use: the TUI renders the
// transcript while a completion command appends to it from its own
// goroutine.
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates a history seeded with the fixed system prompt.
func NewHistory() *History {
	return &History{
		messages: []Message{{Role: RoleSystem, Content: SystemPrompt}},
	}
}

// AddUser appends a user message.
func (h *History) AddUser(content string) {
	h.add(Message{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant message.
func (h *History) AddAssistant(content string) {
	h.add(Message{Role: RoleAssistant, Content: content})
}

// AddSystem appends a system message (search-result notes).
func (h *History) AddSystem(content string) {
	h.add(Message{Role: RoleSystem, Content: content})
}

func (h *History) add(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

// Messages returns a copy of the history in append order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
