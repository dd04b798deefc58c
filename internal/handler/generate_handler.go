package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storywall/internal/auth"
	"storywall/internal/model"
	"storywall/pkg/generate"
)

// Credit prices for paid AI operations.
const (
	discoveryCost  = 1
	generationCost = 5
)

const (
	defaultMaxEvents = 10
	maxMaxEvents     = 50

	extractPeopleTimeout = 20 * time.Second
)

// Generation job statuses, recorded for polling clients.
const (
	JobStatusRunning  = "running"
	JobStatusComplete = "complete"
	JobStatusFailed   = "failed"
)

type CreditStore interface {
	DebitCredits(userID int64, amount int) (bool, error)
}

// JobStore records per-run generation status under a job id. A nil
// JobStore disables tracking.
type JobStore interface {
	SetStatus(ctx context.Context, jobID, status string) error
	GetStatus(ctx context.Context, jobID string) (string, error)
}

type GenerateHandler struct {
	timelines TimelineStore
	events    EventStore
	credits   CreditStore
	pipeline  *generate.Pipeline
	discovery *generate.Discovery
	verifier  *generate.Verifier
	describer *generate.Describer
	people    *generate.PeopleExtractor
	jobs      JobStore
}

func NewGenerateHandler(
	timelines TimelineStore,
	events EventStore,
	credits CreditStore,
	pipeline *generate.Pipeline,
	discovery *generate.Discovery,
	verifier *generate.Verifier,
	describer *generate.Describer,
	people *generate.PeopleExtractor,
	jobs JobStore,
) *GenerateHandler {
	return &GenerateHandler{
		timelines: timelines,
		events:    events,
		credits:   credits,
		pipeline:  pipeline,
		discovery: discovery,
		verifier:  verifier,
		describer: describer,
		people:    people,
		jobs:      jobs,
	}
}

// recordJobStatus is best effort: a status write failure never fails
// the generation it describes.
func (h *GenerateHandler) recordJobStatus(ctx context.Context, jobID, status string) {
	if h.jobs == nil {
		return
	}
	if err := h.jobs.SetStatus(ctx, jobID, status); err != nil {
		slog.Warn("error recording job status", "error", err, "job_id", jobID, "status", status)
	}
}

type generateTimelineRequest struct {
	MaxEvents    int    `json:"max_events"`
	Factual      *bool  `json:"factual"`
	Style        string `json:"style"`
	CustomStyle  string `json:"custom_style"`
	ThemeColor   string `json:"theme_color"`
	RealPeople   bool   `json:"real_people"`
	RenderImages bool   `json:"render_images"`
	Persist      *bool  `json:"persist"`
}

// GenerateTimeline runs the full pipeline for an owned timeline and,
// by default, persists the generated events onto it.
func (h *GenerateHandler) GenerateTimeline(c *gin.Context) {
	timeline, ok := requireOwnedTimeline(c, h.timelines)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)

	var req generateTimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	maxEvents := clampMaxEvents(req.MaxEvents)
	factual := true
	if req.Factual != nil {
		factual = *req.Factual
	}
	persist := true
	if req.Persist != nil {
		persist = *req.Persist
	}

	// Credits are the financial path: fail loud, never degrade.
	ok, err := h.credits.DebitCredits(user.ID, generationCost)
	if err != nil {
		slog.Error("error debiting credits", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient credits"})
		return
	}

	jobID := uuid.NewString()
	h.recordJobStatus(c.Request.Context(), jobID, JobStatusRunning)

	result, err := h.pipeline.Run(c.Request.Context(), generate.PipelineRequest{
		TimelineID:   timeline.ID,
		Title:        timeline.Title,
		Description:  timeline.Description,
		MaxEvents:    maxEvents,
		Factual:      factual,
		Style:        req.Style,
		CustomStyle:  req.CustomStyle,
		ThemeColor:   req.ThemeColor,
		RealPeople:   req.RealPeople,
		RenderImages: req.RenderImages,
	})
	if err != nil {
		h.recordJobStatus(c.Request.Context(), jobID, JobStatusFailed)
		slog.Error("generation pipeline failed", "error", err, "timeline_id", timeline.ID, "job_id", jobID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if persist && len(result.Events) > 0 {
		if err := h.events.SaveBatch(result.Events); err != nil {
			h.recordJobStatus(c.Request.Context(), jobID, JobStatusFailed)
			slog.Error("error saving generated events", "error", err, "timeline_id", timeline.ID, "job_id", jobID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	}

	h.recordJobStatus(c.Request.Context(), jobID, JobStatusComplete)

	verified := make([]VerifiedEventResponse, 0, len(result.Events))
	for i, e := range result.Events {
		item := VerifiedEventResponse{EventResponse: toEventResponse(e)}
		if i < len(result.Verifications) {
			v := result.Verifications[i]
			item.Verification = VerificationResponse{
				Verified:   v.Verified,
				Confidence: v.Confidence,
				Issues:     v.Issues,
			}
		}
		verified = append(verified, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":       jobID,
		"events":       verified,
		"summary":      toSummaryResponse(result.Summary),
		"anchor_style": result.AnchorStyle,
		"parse_failed": result.ParseFailed,
		"persisted":    persist && len(result.Events) > 0,
	})
}

// JobStatus reports the recorded status of a generation run.
func (h *GenerateHandler) JobStatus(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job tracking unavailable"})
		return
	}

	jobID := c.Param("id")
	status, err := h.jobs.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		slog.Error("error reading job status", "error", err, "job_id", jobID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cache error"})
		return
	}
	if status == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": status})
}

type generateEventsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxEvents   int    `json:"max_events"`
	Factual     *bool  `json:"factual"`
}

// GenerateEvents runs event discovery alone, without touching any
// stored timeline.
func (h *GenerateHandler) GenerateEvents(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req generateEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	factual := true
	if req.Factual != nil {
		factual = *req.Factual
	}

	ok, err := h.credits.DebitCredits(user.ID, discoveryCost)
	if err != nil {
		slog.Error("error debiting credits", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient credits"})
		return
	}

	result, err := h.discovery.Run(c.Request.Context(), generate.DiscoveryRequest{
		Title:       req.Title,
		Description: req.Description,
		MaxEvents:   clampMaxEvents(req.MaxEvents),
		Factual:     factual,
	})
	if err != nil {
		slog.Error("event discovery failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := GeneratedEventsResponse{
		Events:      make([]GeneratedEventResponse, 0, len(result.Events)),
		ParseFailed: result.ParseFailed,
	}
	for _, e := range result.Events {
		res.Events = append(res.Events, GeneratedEventResponse{
			Title:       e.Title,
			Description: e.Description,
			Year:        e.Date.Year,
			Month:       e.Date.Month,
			Day:         e.Date.Day,
		})
	}

	c.JSON(http.StatusOK, res)
}

type verifyEventsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Events      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Year        int    `json:"year"`
		Month       int    `json:"month"`
		Day         int    `json:"day"`
	} `json:"events"`
}

// VerifyEvents annotates a caller-supplied batch of events. The
// response preserves input order and length.
func (h *GenerateHandler) VerifyEvents(c *gin.Context) {
	var req verifyEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Events are required"})
		return
	}

	events := make([]model.Event, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, model.Event{
			Title:       e.Title,
			Description: e.Description,
			Date:        model.EventDate{Year: e.Year, Month: e.Month, Day: e.Day},
		})
	}

	result, err := h.verifier.Run(c.Request.Context(), generate.VerifyRequest{
		Title:       req.Title,
		Description: req.Description,
		Events:      events,
	})
	if err != nil {
		slog.Error("verification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	verified := make([]VerifiedEventResponse, 0, len(result.Events))
	for _, ve := range result.Events {
		verified = append(verified, VerifiedEventResponse{
			EventResponse: toEventResponse(ve.Event),
			Verification: VerificationResponse{
				Verified:   ve.Verification.Verified,
				Confidence: ve.Verification.Confidence,
				Issues:     ve.Verification.Issues,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"verifiedEvents": verified,
		"summary":        toSummaryResponse(result.Summary),
	})
}

type describeEventsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Style       string `json:"style"`
	CustomStyle string `json:"custom_style"`
	ThemeColor  string `json:"theme_color"`
	RealPeople  bool   `json:"real_people"`
	Events      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Year        int    `json:"year"`
		Month       int    `json:"month"`
		Day         int    `json:"day"`
	} `json:"events"`
}

// DescribeEvents generates descriptions and image prompts for a
// caller-supplied batch, sharing one anchor style across the set.
func (h *GenerateHandler) DescribeEvents(c *gin.Context) {
	var req describeEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Events are required"})
		return
	}

	events := make([]model.Event, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, model.Event{
			Title:       e.Title,
			Description: e.Description,
			Date:        model.EventDate{Year: e.Year, Month: e.Month, Day: e.Day},
		})
	}

	result, err := h.describer.Run(c.Request.Context(), generate.DescribeRequest{
		Title:       req.Title,
		Description: req.Description,
		Events:      events,
		Style:       req.Style,
		CustomStyle: req.CustomStyle,
		ThemeColor:  req.ThemeColor,
		RealPeople:  req.RealPeople,
	})
	if err != nil {
		slog.Error("description generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	described := make([]GeneratedEventResponse, 0, len(events))
	for i, e := range events {
		described = append(described, GeneratedEventResponse{
			Title:       e.Title,
			Description: result.Items[i].Description,
			Year:        e.Date.Year,
			Month:       e.Date.Month,
			Day:         e.Date.Day,
			ImagePrompt: result.Items[i].ImagePrompt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       described,
		"anchor_style": result.AnchorStyle,
	})
}

type extractPeopleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Events      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"events"`
}

// ExtractPeople is a debug endpoint with an explicit timeout, unlike
// the production generation paths which ride the platform default.
func (h *GenerateHandler) ExtractPeople(c *gin.Context) {
	var req extractPeopleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	events := make([]model.Event, 0, len(req.Events))
	for _, e := range req.Events {
		events = append(events, model.Event{Title: e.Title, Description: e.Description})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), extractPeopleTimeout)
	defer cancel()

	people, err := h.people.Run(ctx, req.Title, req.Description, events)
	if err != nil {
		slog.Error("people extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"people":      people,
		"real_people": len(people) > 0,
	})
}

func clampMaxEvents(n int) int {
	if n < 1 {
		return defaultMaxEvents
	}
	if n > maxMaxEvents {
		return maxMaxEvents
	}
	return n
}
