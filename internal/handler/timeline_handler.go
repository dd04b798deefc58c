package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storywall/db"
	"storywall/internal/auth"
	"storywall/internal/model"
)

type TimelineStore interface {
	Save(t *model.Timeline) error
	GetByID(id int64) (*model.Timeline, error)
	GetByShareToken(token string) (*model.Timeline, error)
	ListByOwner(ownerID int64, limit, offset int) ([]model.Timeline, error)
	GetExplore(limit, offset int) ([]model.Timeline, error)
	GetExploreTotal() (int, error)
	Update(t *model.Timeline) error
	Delete(id int64) error
}

type EventStore interface {
	Save(e *model.Event) error
	GetByID(id int64) (*model.Event, error)
	ListByTimeline(timelineID int64) ([]model.Event, error)
	SaveBatch(events []model.Event) error
	Update(e *model.Event) error
	Delete(id int64) error
}

// Cache is the read-through cache for the explore feed. A nil Cache
// disables caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const exploreCacheTTL = time.Minute

type TimelineHandler struct {
	timelines TimelineStore
	events    EventStore
	cache     Cache
}

func NewTimelineHandler(timelines TimelineStore, events EventStore, cache Cache) *TimelineHandler {
	return &TimelineHandler{timelines: timelines, events: events, cache: cache}
}

type timelineRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ViewMode    string `json:"view_mode"`
	Public      bool   `json:"public"`
}

func (h *TimelineHandler) Create(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req timelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if req.ViewMode == "" {
		req.ViewMode = model.ViewHorizontal
	}
	if !model.ValidViewMode(req.ViewMode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view mode"})
		return
	}

	timeline := model.Timeline{
		OwnerID:     user.ID,
		Title:       req.Title,
		Description: req.Description,
		ViewMode:    req.ViewMode,
		Public:      req.Public,
		ShareToken:  uuid.NewString(),
	}

	if err := h.timelines.Save(&timeline); err != nil {
		slog.Error("error saving timeline", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, toTimelineResponse(timeline, true))
}

func (h *TimelineHandler) Get(c *gin.Context) {
	timeline, ok := h.loadTimeline(c)
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

	c.JSON(http.StatusOK, gin.H{
		"timeline": toTimelineResponse(*timeline, isOwner),
		"events":   toEventResponses(events),
	})
}

func (h *TimelineHandler) GetShared(c *gin.Context) {
	token := c.Param("token")

	timeline, err := h.timelines.GetByShareToken(token)
	if err != nil {
		slog.Error("error fetching shared timeline", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if timeline == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Timeline not found"})
		return
	}

	events, err := h.events.ListByTimeline(timeline.ID)
	if err != nil {
		slog.Error("error fetching events", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timeline": toTimelineResponse(*timeline, false),
		"events":   toEventResponses(events),
	})
}

func (h *TimelineHandler) ListMine(c *gin.Context) {
	user := auth.CurrentUser(c)
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)

	timelines, err := h.timelines.ListByOwner(user.ID, limit, offset)
	if err != nil {
		slog.Error("error listing timelines", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := make([]TimelineResponse, 0, len(timelines))
	for _, t := range timelines {
		res = append(res, toTimelineResponse(t, true))
	}
	c.JSON(http.StatusOK, gin.H{"timelines": res, "limit": limit, "offset": offset})
}

func (h *TimelineHandler) Update(c *gin.Context) {
	timeline, ok := h.requireOwned(c)
	if !ok {
		return
	}

	var req timelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title != "" {
		timeline.Title = req.Title
	}
	if req.ViewMode != "" {
		if !model.ValidViewMode(req.ViewMode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view mode"})
			return
		}
		timeline.ViewMode = req.ViewMode
	}
	timeline.Description = req.Description
	timeline.Public = req.Public

	if err := h.timelines.Update(timeline); err != nil {
		slog.Error("error updating timeline", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, toTimelineResponse(*timeline, true))
}

func (h *TimelineHandler) Delete(c *gin.Context) {
	timeline, ok := h.requireOwned(c)
	if !ok {
		return
	}

	if err := h.timelines.Delete(timeline.ID); err != nil {
		slog.Error("error deleting timeline", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *TimelineHandler) Explore(c *gin.Context) {
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)

	cacheKey := db.ExploreCacheKey(limit, offset)
	if h.cache != nil {
		cached, err := h.cache.Get(c.Request.Context(), cacheKey)
		if err != nil {
			slog.Warn("explore cache read failed", "error", err)
		} else if cached != "" {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	timelines, err := h.timelines.GetExplore(limit, offset)
	if err != nil {
		slog.Error("error fetching explore feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.timelines.GetExploreTotal()
	if err != nil {
		slog.Error("error fetching explore total", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := ExploreResponse{
		Timelines: make([]TimelineResponse, 0, len(timelines)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, t := range timelines {
		res.Timelines = append(res.Timelines, toTimelineResponse(t, false))
	}

	if h.cache != nil {
		if raw, err := json.Marshal(res); err == nil {
			if err := h.cache.Set(c.Request.Context(), cacheKey, string(raw), exploreCacheTTL); err != nil {
				slog.Warn("explore cache write failed", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, res)
}

func (h *TimelineHandler) GetHealth(c *gin.Context) {
	_, err := h.timelines.GetExploreTotal()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func (h *TimelineHandler) loadTimeline(c *gin.Context) (*model.Timeline, bool) {
	return loadTimelineParam(c, h.timelines)
}

func (h *TimelineHandler) requireOwned(c *gin.Context) (*model.Timeline, bool) {
	return requireOwnedTimeline(c, h.timelines)
}

func loadTimelineParam(c *gin.Context, timelines TimelineStore) (*model.Timeline, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timeline id"})
		return nil, false
	}

	timeline, err := timelines.GetByID(id)
	if err != nil {
		slog.Error("error fetching timeline", "error", err, "timeline_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if timeline == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Timeline not found"})
		return nil, false
	}

	return timeline, true
}

// requireOwnedTimeline loads the :id timeline and enforces ownership
// for write paths.
func requireOwnedTimeline(c *gin.Context, timelines TimelineStore) (*model.Timeline, bool) {
	timeline, ok := loadTimelineParam(c, timelines)
	if !ok {
		return nil, false
	}

	user := auth.CurrentUser(c)
	if user == nil || user.ID != timeline.OwnerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the timeline owner"})
		return nil, false
	}

	return timeline, true
}
