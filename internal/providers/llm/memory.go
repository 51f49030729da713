package llm

import "sync"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMemory keeps a sliding window of recent turns per conversation so the
// model sees bounded context regardless of conversation length.
type chatMemory struct {
	mu       sync.Mutex
	window   int
	sessions map[string][]message
}

func newChatMemory(window int) *chatMemory {
	if window <= 0 {
		window = 10
	}
	return &chatMemory{window: window, sessions: make(map[string][]message)}
}

func (m *chatMemory) history(conversationID string) []message {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.sessions[conversationID]
	out := make([]message, len(h))
	copy(out, h)
	return out
}

func (m *chatMemory) append(conversationID string, msgs ...message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := append(m.sessions[conversationID], msgs...)
	if len(h) > m.window {
		h = h[len(h)-m.window:]
	}
	m.sessions[conversationID] = h
}
