package llm

import (
	"context"
	"errors"
)

// ErrUpstream marks failures of the external completion service: non-success
// HTTP status, an empty reply, or a reply that does not conform to the JSON
// schema the prompt requested. Callers decide whether it is fatal or a
// skip-and-continue condition.
var ErrUpstream = errors.New("upstream completion service error")

// ChatModel is a minimal abstraction for chat-based LLMs used by the domain.
// It intentionally hides concrete providers to preserve dependency direction.
type ChatModel interface {
	// Ask sends a system/user prompt pair and returns the raw model reply.
	// maxTokens bounds the reply length; 0 keeps the provider default.
	Ask(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}
