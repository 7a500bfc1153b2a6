package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer sends a full message sequence to a hosted model and returns the reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (Response, error)
}
