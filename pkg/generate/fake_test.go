package generate

import (
	"context"

	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

// fakeLLM replays scripted responses and records every request it saw.
type fakeLLM struct {
	responses []string
	err       error
	requests  []llm.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llm.ChatResponse{Content: f.responses[i], ModelUsed: "fake"}, nil
}

func testPrompts() *prompt.Store {
	return prompt.NewStore(nil)
}
