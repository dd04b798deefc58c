package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storywall/internal/model"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

const correctModel = "gpt-4o-mini"

type CorrectRequest struct {
	TimelineTitle string
	Event         model.Event
	Issues        []string
}

type Corrector struct {
	llm     llm.Client
	prompts *prompt.Store
}

func NewCorrector(client llm.Client, prompts *prompt.Store) *Corrector {
	return &Corrector{llm: client, prompts: prompts}
}

// Run produces a targeted patch of the event: only fields named by the
// issues list may change, everything else is returned byte-identical.
// A correction the model omits, or that targets an unflagged field, is
// discarded in favor of the original value.
func (c *Corrector) Run(ctx context.Context, req CorrectRequest) (*model.Event, error) {
	corrected := req.Event

	if len(req.Issues) == 0 {
		return &corrected, nil
	}

	issueVars := make([]any, 0, len(req.Issues))
	for _, issue := range req.Issues {
		issueVars = append(issueVars, issue)
	}

	userPrompt, err := c.prompts.Render("correct_event", map[string]any{
		"title":            req.TimelineTitle,
		"eventTitle":       req.Event.Title,
		"eventDescription": req.Event.Description,
		"year":             req.Event.Date.Year,
		"month":            req.Event.Date.Month,
		"day":              req.Event.Date.Day,
		"issues":           issueVars,
	})
	if err != nil {
		return nil, fmt.Errorf("correction prompt: %w", err)
	}

	resp, err := c.llm.Chat(ctx, llm.ChatRequest{
		Model:       correctModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		Temperature: 0.2,
		MaxTokens:   1024,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("event correction: %w", err)
	}

	content := llm.CleanJSONResponse(resp.Content)

	// Pointer fields distinguish "omitted" from "set to zero value";
	// an omitted field always retains its original value.
	var patch struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Year        *int    `json:"year"`
		Month       *int    `json:"month"`
		Day         *int    `json:"day"`
	}
	if err := json.Unmarshal([]byte(content), &patch); err != nil {
		return &corrected, nil
	}

	titleFlagged, descriptionFlagged, dateFlagged := flaggedFields(req.Issues)

	if titleFlagged && patch.Title != nil {
		corrected.Title = *patch.Title
	}
	if descriptionFlagged && patch.Description != nil {
		corrected.Description = *patch.Description
	}
	if dateFlagged {
		if patch.Year != nil {
			corrected.Date.Year = *patch.Year
		}
		if patch.Month != nil {
			corrected.Date.Month = *patch.Month
		}
		if patch.Day != nil {
			corrected.Date.Day = *patch.Day
		}
	}

	return &corrected, nil
}

// flaggedFields maps free-text issues onto the event fields they
// mention.
func flaggedFields(issues []string) (title, description, date bool) {
	for _, issue := range issues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "title") {
			title = true
		}
		if strings.Contains(lower, "description") {
			description = true
		}
		for _, word := range []string{"date", "year", "month", "day"} {
			if strings.Contains(lower, word) {
				date = true
				break
			}
		}
	}
	return title, description, date
}
