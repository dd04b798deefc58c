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

const describeModel = "gpt-4o"

const noPeopleClause = "Do not depict recognizable real people."

type DescribeRequest struct {
	Title       string
	Description string
	Events      []model.Event
	Style       string
	CustomStyle string
	ThemeColor  string
	RealPeople  bool
}

type DescribedEvent struct {
	Description string
	ImagePrompt string
}

// DescribeResult carries one item per input event, in input order, plus
// the anchor style shared by every image prompt. Image backends have no
// memory between calls, so threading one style fragment through every
// prompt is what keeps a timeline's images visually consistent.
type DescribeResult struct {
	AnchorStyle string
	Items       []DescribedEvent
}

type Describer struct {
	llm     llm.Client
	prompts *prompt.Store
}

func NewDescriber(client llm.Client, prompts *prompt.Store) *Describer {
	return &Describer{llm: client, prompts: prompts}
}

func (d *Describer) Run(ctx context.Context, req DescribeRequest) (*DescribeResult, error) {
	userPrompt, err := d.prompts.Render("describe_events", map[string]any{
		"title":        req.Title,
		"description":  req.Description,
		"style":        req.Style,
		"customStyle":  req.CustomStyle,
		"themeColor":   req.ThemeColor,
		"realPeople":   req.RealPeople,
		"noRealPeople": !req.RealPeople,
		"events":       eventVars(req.Events),
	})
	if err != nil {
		return nil, fmt.Errorf("describe prompt: %w", err)
	}

	resp, err := d.llm.Chat(ctx, llm.ChatRequest{
		Model:       describeModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		Temperature: 0.7,
		MaxTokens:   8192,
		JSONMode:    true,
		BatchSize:   len(req.Events),
	})
	if err != nil {
		return nil, fmt.Errorf("description generation: %w", err)
	}

	content := llm.CleanJSONResponse(resp.Content)

	var parsed struct {
		AnchorStyle string `json:"anchor_style"`
		Items       []struct {
			Index       int    `json:"index"`
			Description string `json:"description"`
			ImagePrompt string `json:"image_prompt"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return d.fallback(req), nil
	}

	anchor := strings.TrimSpace(parsed.AnchorStyle)
	if anchor == "" {
		anchor = defaultAnchor(req.ThemeColor)
	}

	byIndex := make(map[int]DescribedEvent, len(parsed.Items))
	for _, item := range parsed.Items {
		byIndex[item.Index] = DescribedEvent{
			Description: item.Description,
			ImagePrompt: item.ImagePrompt,
		}
	}

	items := make([]DescribedEvent, 0, len(req.Events))
	for i, e := range req.Events {
		item, ok := byIndex[i]
		if !ok || item.Description == "" {
			item.Description = heuristicDescription(e)
		}
		if item.ImagePrompt == "" {
			item.ImagePrompt = heuristicImagePrompt(e)
		}
		item.ImagePrompt = composeImagePrompt(anchor, item.ImagePrompt, req.RealPeople)
		items = append(items, item)
	}

	return &DescribeResult{AnchorStyle: anchor, Items: items}, nil
}

// fallback builds heuristic copy when the model's response is not
// parseable, so generation degrades instead of aborting.
func (d *Describer) fallback(req DescribeRequest) *DescribeResult {
	anchor := defaultAnchor(req.ThemeColor)

	items := make([]DescribedEvent, 0, len(req.Events))
	for _, e := range req.Events {
		items = append(items, DescribedEvent{
			Description: heuristicDescription(e),
			ImagePrompt: composeImagePrompt(anchor, heuristicImagePrompt(e), req.RealPeople),
		})
	}
	return &DescribeResult{AnchorStyle: anchor, Items: items}
}

func composeImagePrompt(anchor, prompt string, realPeople bool) string {
	parts := []string{anchor, prompt}
	if !realPeople {
		parts = append(parts, noPeopleClause)
	}
	return strings.Join(parts, " ")
}

func defaultAnchor(themeColor string) string {
	anchor := "Clean editorial illustration with soft lighting and a consistent muted palette."
	if themeColor != "" {
		anchor = fmt.Sprintf("Clean editorial illustration with soft lighting, accented in %s.", themeColor)
	}
	return anchor
}

func heuristicDescription(e model.Event) string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("%s, %s.", e.Title, formatYear(e.Date.Year))
}

func heuristicImagePrompt(e model.Event) string {
	return fmt.Sprintf("An illustration of %s (%s).", e.Title, formatYear(e.Date.Year))
}

func formatYear(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BC", -year)
	}
	return fmt.Sprintf("%d", year)
}
