package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"storywall/internal/model"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

const peopleModel = "gpt-4o-mini"

type PeopleExtractor struct {
	llm     llm.Client
	prompts *prompt.Store
}

func NewPeopleExtractor(client llm.Client, prompts *prompt.Store) *PeopleExtractor {
	return &PeopleExtractor{llm: client, prompts: prompts}
}

// Run lists the real, identifiable people a timeline mentions. Used to
// suggest the real-people flag before image generation. An unparseable
// response degrades to an empty list.
func (e *PeopleExtractor) Run(ctx context.Context, title, description string, events []model.Event) ([]string, error) {
	userPrompt, err := e.prompts.Render("extract_people", map[string]any{
		"title":       title,
		"description": description,
		"events":      eventVars(events),
	})
	if err != nil {
		return nil, fmt.Errorf("extract people prompt: %w", err)
	}

	resp, err := e.llm.Chat(ctx, llm.ChatRequest{
		Model:       peopleModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		Temperature: 0.1,
		MaxTokens:   1024,
		JSONMode:    true,
		BatchSize:   len(events),
	})
	if err != nil {
		return nil, fmt.Errorf("people extraction: %w", err)
	}

	content := llm.CleanJSONResponse(resp.Content)

	var parsed struct {
		People []string `json:"people"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return []string{}, nil
	}

	return parsed.People, nil
}
