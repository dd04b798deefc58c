package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storywall/internal/auth"
	"storywall/internal/model"
)

type EventHandler struct {
	timelines TimelineStore
	events    EventStore
}

func NewEventHandler(timelines TimelineStore, events EventStore) *EventHandler {
	return &EventHandler{timelines: timelines, events: events}
}

type eventRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Year        *int     `json:"year"`
	Month       int      `json:"month"`
	Day         int      `json:"day"`
	ImageURL    string   `json:"image_url"`
	ImagePrompt string   `json:"image_prompt"`
	Category    string   `json:"category"`
	Links       []string `json:"links"`
	Position    int      `json:"position"`
}

func (h *EventHandler) Create(c *gin.Context) {
	timeline, ok := requireOwnedTimeline(c, h.timelines)
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if req.Year == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Year is required"})
		return
	}
	if req.Month < 0 || req.Month > 12 || req.Day < 0 || req.Day > 31 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date"})
		return
	}

	event := model.Event{
		TimelineID:  timeline.ID,
		Title:       req.Title,
		Description: req.Description,
		Date:        model.EventDate{Year: *req.Year, Month: req.Month, Day: req.Day},
		ImageURL:    req.ImageURL,
		ImagePrompt: req.ImagePrompt,
		Category:    req.Category,
		Links:       req.Links,
		Position:    req.Position,
	}

	if err := h.events.Save(&event); err != nil {
		slog.Error("error saving event", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, toEventResponse(event))
}

func (h *EventHandler) List(c *gin.Context) {
	timeline, ok := loadTimelineParam(c, h.timelines)
	if !ok {
		return
	}

	user := auth.CurrentUser(c)
	isOwner := user != nil && user.ID == timeline.OwnerID
	if !timeline.Public && !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Timeline is private"})
		return
	}

	events, err := h.events.ListByTimeline(timeline.ID)
	if err != nil {
		slog.Error("error fetching events", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": toEventResponses(events)})
}

func (h *EventHandler) Update(c *gin.Context) {
	event, ok := h.requireOwnedEvent(c)
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title != "" {
		event.Title = req.Title
	}
	if req.Year != nil {
		event.Date.Year = *req.Year
	}
	if req.Month < 0 || req.Month > 12 || req.Day < 0 || req.Day > 31 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date"})
		return
	}
	event.Description = req.Description
	event.Date.Month = req.Month
	event.Date.Day = req.Day
	event.ImageURL = req.ImageURL
	event.ImagePrompt = req.ImagePrompt
	event.Category = req.Category
	event.Links = req.Links
	event.Position = req.Position

	if err := h.events.Update(event); err != nil {
		slog.Error("error updating event", "error", err, "event_id", event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toEventResponse(*event))
}

func (h *EventHandler) Delete(c *gin.Context) {
	event, ok := h.requireOwnedEvent(c)
	if !ok {
		return
	}

	if err := h.events.Delete(event.ID); err != nil {
		slog.Error("error deleting event", "error", err, "event_id", event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// requireOwnedEvent loads the :id event and checks that the caller
// owns its parent timeline.
func (h *EventHandler) requireOwnedEvent(c *gin.Context) (*model.Event, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return nil, false
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		slog.Error("error fetching event", "error", err, "event_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return nil, false
	}

	timeline, err := h.timelines.GetByID(event.TimelineID)
	if err != nil {
		slog.Error("error fetching timeline", "error", err, "timeline_id", event.TimelineID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if timeline == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Timeline not found"})
		return nil, false
	}

	user := auth.CurrentUser(c)
	if user == nil || user.ID != timeline.OwnerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the timeline owner"})
		return nil, false
	}

	return event, true
}
