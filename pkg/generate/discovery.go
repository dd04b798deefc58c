package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storywall/internal/model"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

const discoveryModel = "gpt-4o-mini"

// defaultDiscoveryEvents caps discovery when the caller gives no
// positive maximum, so the cap holds no matter how the stage is
// invoked.
const defaultDiscoveryEvents = 10

type DiscoveryRequest struct {
	Title       string
	Description string
	MaxEvents   int
	Factual     bool
}

// DiscoveryResult distinguishes "the model found no events" from "the
// model's response was garbage": ParseFailed marks the latter.
type DiscoveryResult struct {
	Events      []CandidateEvent
	ParseFailed bool
}

type Discovery struct {
	llm     llm.Client
	prompts *prompt.Store
	now     func() time.Time
}

func NewDiscovery(client llm.Client, prompts *prompt.Store) *Discovery {
	return &Discovery{llm: client, prompts: prompts, now: time.Now}
}

// Run asks the model for candidate events. In factual mode MaxEvents is
// an upper bound, not a target: an empty result is valid. An
// unparseable response degrades to zero events with ParseFailed set
// rather than an error, so the rest of the pipeline can proceed.
func (d *Discovery) Run(ctx context.Context, req DiscoveryRequest) (*DiscoveryResult, error) {
	maxEvents := req.MaxEvents
	if maxEvents < 1 {
		maxEvents = defaultDiscoveryEvents
	}

	userPrompt, err := d.prompts.Render("discover_events", map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"maxEvents":   maxEvents,
		"factual":     req.Factual,
		"fictional":   !req.Factual,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery prompt: %w", err)
	}

	temperature := 0.8
	if req.Factual {
		temperature = 0.2
	}

	resp, err := d.llm.Chat(ctx, llm.ChatRequest{
		Model:       discoveryModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		Temperature: temperature,
		MaxTokens:   4096,
		JSONMode:    true,
		BatchSize:   maxEvents,
	})
	if err != nil {
		return nil, fmt.Errorf("event discovery: %w", err)
	}

	content := llm.CleanJSONResponse(resp.Content)

	var parsed struct {
		Events []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Year        int    `json:"year"`
			Month       int    `json:"month"`
			Day         int    `json:"day"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return &DiscoveryResult{Events: []CandidateEvent{}, ParseFailed: true}, nil
	}

	currentYear := d.now().Year()

	events := make([]CandidateEvent, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		if e.Title == "" {
			continue
		}
		// Factual timelines cannot contain future events.
		if req.Factual && e.Year > currentYear {
			continue
		}
		events = append(events, CandidateEvent{
			Title:       e.Title,
			Description: e.Description,
			Date:        model.EventDate{Year: e.Year, Month: e.Month, Day: e.Day},
		})
		if len(events) >= maxEvents {
			break
		}
	}

	return &DiscoveryResult{Events: events}, nil
}
