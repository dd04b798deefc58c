package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"storywall/internal/model"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

// Events are verified in groups of ten to bound per-request cost and
// latency.
const verifyBatchSize = 10

const verifyModel = "gpt-4o-mini"

type VerifyRequest struct {
	Title       string
	Description string
	Events      []model.Event
}

type VerifyResult struct {
	Events  []model.VerifiedEvent
	Summary model.VerificationSummary
}

type Verifier struct {
	llm     llm.Client
	prompts *prompt.Store
}

func NewVerifier(client llm.Client, prompts *prompt.Store) *Verifier {
	return &Verifier{llm: client, prompts: prompts}
}

// Run annotates every event with a verification. The output preserves
// input order and length: a failed batch marks each of its events
// unverified with a synthetic issue instead of dropping them.
func (v *Verifier) Run(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	out := make([]model.VerifiedEvent, 0, len(req.Events))

	for start := 0; start < len(req.Events); start += verifyBatchSize {
		end := min(start+verifyBatchSize, len(req.Events))
		out = append(out, v.verifyBatch(ctx, req, req.Events[start:end])...)
	}

	return &VerifyResult{
		Events:  out,
		Summary: summarize(out),
	}, nil
}

func (v *Verifier) verifyBatch(ctx context.Context, req VerifyRequest, batch []model.Event) []model.VerifiedEvent {
	userPrompt, err := v.prompts.Render("verify_events", map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"events":      eventVars(batch),
	})
	if err != nil {
		return failBatch(batch, fmt.Sprintf("verification error: %v", err))
	}

	resp, err := v.llm.Chat(ctx, llm.ChatRequest{
		Model:       verifyModel,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		Temperature: 0.1,
		MaxTokens:   2048,
		JSONMode:    true,
		BatchSize:   len(batch),
	})
	if err != nil {
		return failBatch(batch, fmt.Sprintf("verification error: %v", err))
	}

	content := llm.CleanJSONResponse(resp.Content)

	var parsed struct {
		Results []struct {
			Index      int      `json:"index"`
			Verified   bool     `json:"verified"`
			Confidence string   `json:"confidence"`
			Issues     []string `json:"issues"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return failBatch(batch, "verification error: unparseable model response")
	}

	byIndex := make(map[int]model.Verification, len(parsed.Results))
	for _, r := range parsed.Results {
		byIndex[r.Index] = model.Verification{
			Verified:   r.Verified,
			Confidence: normalizeConfidence(r.Confidence),
			Issues:     r.Issues,
		}
	}

	out := make([]model.VerifiedEvent, 0, len(batch))
	for i, e := range batch {
		verification, ok := byIndex[i]
		if !ok {
			// Conservative: no result means unconfirmed, never assumed
			// correct.
			verification = model.Verification{
				Verified:   false,
				Confidence: model.ConfidenceLow,
				Issues:     []string{"no verification result returned for this event"},
			}
		}
		out = append(out, model.VerifiedEvent{Event: e, Verification: verification})
	}
	return out
}

func failBatch(batch []model.Event, issue string) []model.VerifiedEvent {
	out := make([]model.VerifiedEvent, 0, len(batch))
	for _, e := range batch {
		out = append(out, model.VerifiedEvent{
			Event: e,
			Verification: model.Verification{
				Verified:   false,
				Confidence: model.ConfidenceLow,
				Issues:     []string{issue},
			},
		})
	}
	return out
}

func normalizeConfidence(confidence string) string {
	switch confidence {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		return confidence
	}
	return model.ConfidenceLow
}

func summarize(events []model.VerifiedEvent) model.VerificationSummary {
	summary := model.VerificationSummary{Total: len(events)}
	for _, e := range events {
		if e.Verification.Verified {
			summary.VerifiedCount++
		}
		if len(e.Verification.Issues) > 0 {
			summary.FlaggedCount++
		}
		switch e.Verification.Confidence {
		case model.ConfidenceHigh:
			summary.HighConfidence++
		case model.ConfidenceMedium:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}
	}
	return summary
}
