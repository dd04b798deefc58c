package handler

import (
	"time"

	"storywall/internal/model"
)

type TimelineResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ViewMode    string `json:"view_mode"`
	Public      bool   `json:"public"`
	ShareToken  string `json:"share_token,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toTimelineResponse(t model.Timeline, includeShareToken bool) TimelineResponse {
	res := TimelineResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		ViewMode:    t.ViewMode,
		Public:      t.Public,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	if includeShareToken {
		res.ShareToken = t.ShareToken
	}
	return res
}

type EventResponse struct {
	ID          int64    `json:"id"`
	TimelineID  int64    `json:"timeline_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Year        int      `json:"year"`
	Month       int      `json:"month,omitempty"`
	Day         int      `json:"day,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ImagePrompt string   `json:"image_prompt,omitempty"`
	Category    string   `json:"category,omitempty"`
	Links       []string `json:"links,omitempty"`
	Position    int      `json:"position"`
}

func toEventResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		TimelineID:  e.TimelineID,
		Title:       e.Title,
		Description: e.Description,
		Year:        e.Date.Year,
		Month:       e.Date.Month,
		Day:         e.Date.Day,
		ImageURL:    e.ImageURL,
		ImagePrompt: e.ImagePrompt,
		Category:    e.Category,
		Links:       e.Links,
		Position:    e.Position,
	}
}

func toEventResponses(events []model.Event) []EventResponse {
	res := make([]EventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, toEventResponse(e))
	}
	return res
}

type ExploreResponse struct {
	Timelines []TimelineResponse `json:"timelines"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type VerificationResponse struct {
	Verified   bool     `json:"verified"`
	Confidence string   `json:"confidence"`
	Issues     []string `json:"issues"`
}

type VerifiedEventResponse struct {
	EventResponse
	Verification VerificationResponse `json:"verification"`
}

type VerificationSummaryResponse struct {
	Total            int `json:"total"`
	VerifiedCount    int `json:"verified_count"`
	FlaggedCount     int `json:"flagged_count"`
	HighConfidence   int `json:"high_confidence"`
	MediumConfidence int `json:"medium_confidence"`
	LowConfidence    int `json:"low_confidence"`
}

func toSummaryResponse(s model.VerificationSummary) VerificationSummaryResponse {
	return VerificationSummaryResponse{
		Total:            s.Total,
		VerifiedCount:    s.VerifiedCount,
		FlaggedCount:     s.FlaggedCount,
		HighConfidence:   s.HighConfidence,
		MediumConfidence: s.MediumConfidence,
		LowConfidence:    s.LowConfidence,
	}
}

type GeneratedEventResponse struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Year        int    `json:"year"`
	Month       int    `json:"month,omitempty"`
	Day         int    `json:"day,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

type GeneratedEventsResponse struct {
	Events      []GeneratedEventResponse `json:"events"`
	ParseFailed bool                     `json:"parse_failed"`
}
