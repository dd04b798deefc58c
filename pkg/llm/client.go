package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Tool declares a function the model may call, described as a JSON
// schema object with the given properties.
type Tool struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ChatRequest is the normalized request shape shared by both backends.
// Model carries the OpenAI-style nominal name; each backend remaps it
// through ResolveModel before sending.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
	JSONMode    bool
	Tools       []Tool

	// BatchSize is the number of items packed into this prompt. It only
	// influences model selection, never the payload.
	BatchSize int
}

type ChatResponse struct {
	Content   string
	ModelUsed string
}

type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
