package analysis

import "context"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a single non-streaming completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// ChatModel returns the assistant text for a chat request. Implementations
// must not retry on their own: the extractor makes exactly one call.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatModelFunc adapts a plain function to ChatModel.
type ChatModelFunc func(ctx context.Context, req ChatRequest) (string, error)

func (f ChatModelFunc) Complete(ctx context.Context, req ChatRequest) (string, error) {
	return f(ctx, req)
}
