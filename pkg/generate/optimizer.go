package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

const optimizerModel = "gpt-4.1"

type OptimizeRequest struct {
	PromptID string
	Inputs   string
	Outputs  string
}

type OptimizeResult struct {
	NewPromptID string
	Critique    string
	Rewritten   string
}

// Optimizer is a developer tuning loop, not part of the request path:
// it asks a model to critique a stage's prompt against a real run and
// stores the rewrite under a fresh identifier for A/B use.
type Optimizer struct {
	llm     llm.Client
	prompts *prompt.Store
}

func NewOptimizer(client llm.Client, prompts *prompt.Store) *Optimizer {
	return &Optimizer{llm: client, prompts: prompts}
}

func (o *Optimizer) Run(ctx context.Context, req OptimizeRequest) (*OptimizeResult, error) {
	source, err := o.prompts.Source(req.PromptID)
	if err != nil {
		return nil, err
	}

	metaPrompt, err := o.prompts.Render("optimize_prompt", map[string]any{
		"promptId":     req.PromptID,
		"promptSource": source,
		"inputs":       req.Inputs,
		"outputs":      req.Outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("optimizer prompt: %w", err)
	}

	resp, err := o.llm.Chat(ctx, llm.ChatRequest{
		Model:       optimizerModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: metaPrompt}},
		Temperature: 0.4,
		MaxTokens:   8192,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("prompt optimization: %w", err)
	}

	content := llm.CleanJSONResponse(resp.Content)

	var parsed struct {
		Critique  string `json:"critique"`
		Rewritten string `json:"rewritten_prompt"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer response: %w, content: %s", err, content)
	}

	if strings.TrimSpace(parsed.Rewritten) == "" {
		return nil, fmt.Errorf("optimizer returned an empty rewrite")
	}

	newID := fmt.Sprintf("%s-%s", req.PromptID, uuid.NewString()[:8])
	o.prompts.SaveOverride(newID, parsed.Rewritten)

	return &OptimizeResult{
		NewPromptID: newID,
		Critique:    parsed.Critique,
		Rewritten:   parsed.Rewritten,
	}, nil
}
