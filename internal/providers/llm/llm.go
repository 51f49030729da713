package llm

import "context"

// Provider streams a completion for one chat turn. conversationID lets the
// implementation apply its own bounded conversation memory. The chunks
// channel is closed on natural completion; a single error may arrive on errs
// instead. Cancelling ctx stops fragment production.
type Provider interface {
	StreamChat(ctx context.Context, systemPrompt, userPrompt, conversationID string) (chunks <-chan string, errs <-chan error)
	Close() error
}
