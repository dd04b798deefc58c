package generate

import (
	"context"
	"fmt"
	"log/slog"

	"storywall/internal/model"
)

type PipelineRequest struct {
	TimelineID   int64
	Title        string
	Description  string
	MaxEvents    int
	Factual      bool
	Style        string
	CustomStyle  string
	ThemeColor   string
	RealPeople   bool
	RenderImages bool
}

type PipelineResult struct {
	Events        []model.Event
	Verifications []model.Verification
	Summary       model.VerificationSummary
	AnchorStyle   string
	ParseFailed   bool
}

// Pipeline runs the generation stages strictly in sequence within one
// request: discovery, verification, correction, description, image
// rendering. Each stage's output is fully available before the next
// begins.
type Pipeline struct {
	discovery *Discovery
	verifier  *Verifier
	corrector *Corrector
	describer *Describer
	renderer  *ImageRenderer
}

func NewPipeline(discovery *Discovery, verifier *Verifier, corrector *Corrector, describer *Describer, renderer *ImageRenderer) *Pipeline {
	return &Pipeline{
		discovery: discovery,
		verifier:  verifier,
		corrector: corrector,
		describer: describer,
		renderer:  renderer,
	}
}

func (p *Pipeline) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	discovered, err := p.discovery.Run(ctx, DiscoveryRequest{
		Title:       req.Title,
		Description: req.Description,
		MaxEvents:   req.MaxEvents,
		Factual:     req.Factual,
	})
	if err != nil {
		return nil, err
	}

	if len(discovered.Events) == 0 {
		return &PipelineResult{
			Events:      []model.Event{},
			ParseFailed: discovered.ParseFailed,
		}, nil
	}

	events := make([]model.Event, 0, len(discovered.Events))
	for i, c := range discovered.Events {
		events = append(events, model.Event{
			TimelineID:  req.TimelineID,
			Title:       c.Title,
			Description: c.Description,
			Date:        c.Date,
			Position:    i,
		})
	}

	verified, err := p.verifier.Run(ctx, VerifyRequest{
		Title:       req.Title,
		Description: req.Description,
		Events:      events,
	})
	if err != nil {
		return nil, err
	}

	verifications := make([]model.Verification, 0, len(verified.Events))
	for i, ve := range verified.Events {
		verifications = append(verifications, ve.Verification)

		if ve.Verification.Verified || len(ve.Verification.Issues) == 0 {
			continue
		}

		corrected, err := p.corrector.Run(ctx, CorrectRequest{
			TimelineTitle: req.Title,
			Event:         ve.Event,
			Issues:        ve.Verification.Issues,
		})
		if err != nil {
			// Correction is best effort; the unverified original stays.
			slog.Warn("event correction failed, keeping original", "error", err, "event_title", ve.Event.Title)
			continue
		}
		events[i] = *corrected
	}

	described, err := p.describer.Run(ctx, DescribeRequest{
		Title:       req.Title,
		Description: req.Description,
		Events:      events,
		Style:       req.Style,
		CustomStyle: req.CustomStyle,
		ThemeColor:  req.ThemeColor,
		RealPeople:  req.RealPeople,
	})
	if err != nil {
		return nil, err
	}

	for i := range events {
		events[i].Description = described.Items[i].Description
		events[i].ImagePrompt = described.Items[i].ImagePrompt
	}

	if req.RenderImages {
		if p.renderer == nil {
			return nil, fmt.Errorf("image rendering requested but no renderer configured")
		}
		prompts := make([]string, len(events))
		for i, e := range events {
			prompts[i] = e.ImagePrompt
		}
		urls := p.renderer.Run(ctx, req.TimelineID, prompts)
		for i := range events {
			events[i].ImageURL = urls[i]
		}
	}

	return &PipelineResult{
		Events:        events,
		Verifications: verifications,
		Summary:       verified.Summary,
		AnchorStyle:   described.AnchorStyle,
		ParseFailed:   discovered.ParseFailed,
	}, nil
}
